// Package config loads canopy-migrate settings from flags, environment and an
// optional config file through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "CANOPY"

	defaultHosts            = "127.0.0.1"
	defaultConsistency      = "LOCAL_QUORUM"
	defaultTimeout          = 10 * time.Second
	defaultPoolSize         = 1
	defaultPoolTimeout      = 5 * time.Second
	defaultMigrationsDir    = "migrations"
	defaultLedgerBackend    = LedgerCQL
	defaultLogLevel         = "info"
	defaultKeyspacesRegion  = "us-east-1"
	defaultKeyspacesEnabled = false
)

// Ledger backends.
const (
	LedgerCQL    = "cql"
	LedgerDynamo = "dynamodb"
)

// AppConfig captures runtime configuration for the migration tools.
type AppConfig struct {
	Hosts       []string
	Keyspace    string
	Consistency string
	Timeout     time.Duration
	Username    string
	Password    string

	PoolSize    int
	PoolTimeout time.Duration

	// SigV4 authenticates against Amazon Keyspaces with AWS credentials.
	SigV4     bool
	AWSRegion string

	MigrationsDir string
	LedgerBackend string
	LedgerTable   string

	LogLevel string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v. CANOPY_CASSANDRA_HOSTS
// sets cassandra.hosts, and so on.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cassandra.hosts", defaultHosts)
	v.SetDefault("cassandra.consistency", defaultConsistency)
	v.SetDefault("cassandra.timeout", defaultTimeout)
	v.SetDefault("pool.size", defaultPoolSize)
	v.SetDefault("pool.timeout", defaultPoolTimeout)
	v.SetDefault("keyspaces.sigv4", defaultKeyspacesEnabled)
	v.SetDefault("aws.region", defaultKeyspacesRegion)
	v.SetDefault("migrations.dir", defaultMigrationsDir)
	v.SetDefault("ledger.backend", defaultLedgerBackend)
	v.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from v.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Hosts:         splitHosts(v.GetStringSlice("cassandra.hosts")),
		Keyspace:      v.GetString("cassandra.keyspace"),
		Consistency:   v.GetString("cassandra.consistency"),
		Timeout:       v.GetDuration("cassandra.timeout"),
		Username:      v.GetString("cassandra.username"),
		Password:      v.GetString("cassandra.password"),
		PoolSize:      v.GetInt("pool.size"),
		PoolTimeout:   v.GetDuration("pool.timeout"),
		SigV4:         v.GetBool("keyspaces.sigv4"),
		AWSRegion:     v.GetString("aws.region"),
		MigrationsDir: v.GetString("migrations.dir"),
		LedgerBackend: strings.ToLower(strings.TrimSpace(v.GetString("ledger.backend"))),
		LedgerTable:   v.GetString("ledger.table"),
		LogLevel:      v.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// splitHosts accepts both list values and a single comma-separated string, the
// form environment variables take.
func splitHosts(in []string) []string {
	var out []string
	for _, item := range in {
		for _, h := range strings.Split(item, ",") {
			if h = strings.TrimSpace(h); h != "" {
				out = append(out, h)
			}
		}
	}
	return out
}

func (c AppConfig) validate() error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("cassandra.hosts is required")
	}
	if strings.TrimSpace(c.Keyspace) == "" {
		return fmt.Errorf("cassandra.keyspace is required")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool.size must be at least 1")
	}
	if strings.TrimSpace(c.MigrationsDir) == "" {
		return fmt.Errorf("migrations.dir is required")
	}
	switch c.LedgerBackend {
	case LedgerCQL, LedgerDynamo:
	default:
		return fmt.Errorf("ledger.backend must be %q or %q, got %q", LedgerCQL, LedgerDynamo, c.LedgerBackend)
	}
	if c.SigV4 && strings.TrimSpace(c.AWSRegion) == "" {
		return fmt.Errorf("aws.region is required with keyspaces.sigv4")
	}
	if c.SigV4 && c.Username != "" {
		return fmt.Errorf("cassandra.username cannot be combined with keyspaces.sigv4")
	}
	return nil
}
