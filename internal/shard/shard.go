// Package shard spreads rows of a hot partition across a fixed number of buckets.
package shard

import (
	"hash/fnv"
)

// Bucket returns the bucket of key in [0, n). With n <= 1 every key maps to 0.
// The mapping is stable across processes and releases, so it may be stored as
// part of a partition key.
func Bucket(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
