// Package app wires configuration into a gocql cluster, a session pool, a
// migration ledger and a Migrator for the canopy binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/jacentio/canopy/driver/gocqldriver"
	"github.com/jacentio/canopy/internal/config"
	"github.com/jacentio/canopy/internal/keyspaces"
	"github.com/jacentio/canopy/migrate"
	"github.com/jacentio/canopy/record"
)

// keyspacesPort is the TLS port Amazon Keyspaces listens on.
const keyspacesPort = 9142

// App holds the wired migration stack.
type App struct {
	Config   config.AppConfig
	Logger   *zap.Logger
	Pool     *record.Pool
	Ledger   migrate.Ledger
	Migrator *migrate.Migrator
}

// Open connects lazily: sessions are dialed on first use, so Open itself only
// fails on bad configuration or unreadable migrations.
func Open(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.SigV4 || cfg.LedgerBackend == config.LedgerDynamo {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
	}

	var auth gocql.Authenticator
	if cfg.SigV4 {
		auth = keyspaces.NewAuthenticator(cfg.AWSRegion, awsCfg.Credentials)
	}
	cluster := NewCluster(cfg, auth)

	pool := record.NewPool(record.PoolConfig{
		Size:    cfg.PoolSize,
		Timeout: cfg.PoolTimeout,
		Logger:  logger,
	}, Dialer(cluster, logger))

	ledger, err := NewLedger(cfg, pool, awsCfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	migrations, err := migrate.Load(os.DirFS(cfg.MigrationsDir), ".")
	if err != nil {
		pool.Close()
		return nil, err
	}

	migrator, err := migrate.New(pool, ledger, migrations, migrate.Config{Logger: logger})
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Ledger:   ledger,
		Migrator: migrator,
	}, nil
}

// Close releases the pooled sessions.
func (a *App) Close() {
	a.Pool.Close()
}

// NewCluster builds the gocql cluster configuration. A non-nil auth replaces
// password authentication and switches to the Keyspaces TLS endpoint.
func NewCluster(cfg config.AppConfig, auth gocql.Authenticator) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if c, err := gocql.ParseConsistencyWrapper(cfg.Consistency); err == nil {
		cluster.Consistency = c
	}

	switch {
	case auth != nil:
		cluster.Authenticator = auth
		cluster.Port = keyspacesPort
		cluster.SslOpts = &gocql.SslOptions{EnableHostVerification: true}
		cluster.DisableInitialHostLookup = true
	case cfg.Username != "":
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster
}

// Dialer returns a record.DialFunc opening one gocql session per pool slot.
func Dialer(cluster *gocql.ClusterConfig, logger *zap.Logger) record.DialFunc {
	return func(ctx context.Context) (record.Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := cluster.CreateSession()
		if err != nil {
			logger.Error("cassandra connect failed", zap.Strings("hosts", cluster.Hosts), zap.Error(err))
			return nil, fmt.Errorf("connect %v: %w", cluster.Hosts, err)
		}
		return gocqldriver.New(s, gocqldriver.Config{Logger: logger}), nil
	}
}

// NewLedger returns the ledger selected by cfg.LedgerBackend.
func NewLedger(cfg config.AppConfig, conn record.Connector, awsCfg aws.Config, logger *zap.Logger) (migrate.Ledger, error) {
	switch cfg.LedgerBackend {
	case config.LedgerDynamo:
		return migrate.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), cfg.LedgerTable), nil
	case config.LedgerCQL, "":
		return migrate.NewCQLLedger(conn, cfg.LedgerTable, record.Config{
			Consistency: cfg.Consistency,
			Logger:      logger,
		})
	}
	return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
}
