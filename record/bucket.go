package record

import (
	"github.com/jacentio/canopy/internal/shard"
)

// BucketFor returns a stable bucket in [0, n) for v, for models that add a bucket
// column to their partition key to spread a hot partition. v is hashed by its
// quoted literal, so equal values of the same column type share a bucket.
func BucketFor(v any, n int) int {
	return shard.Bucket(Quote(v), n)
}
