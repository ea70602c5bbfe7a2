package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jacentio/canopy/internal/app"
	"github.com/jacentio/canopy/internal/config"
	"github.com/jacentio/canopy/internal/logging"
	"github.com/jacentio/canopy/migrate"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "canopy-migrate",
		Short:        "Apply and revert CQL schema migrations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	setupFlags(rootCmd)

	var ifNotExists bool
	createLedger := &cobra.Command{
		Use:   "create-ledger",
		Short: "Create the table recording applied migrations",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer, _ []string) error {
			if err := a.Ledger.CreateTable(ctx, ifNotExists); err != nil {
				return err
			}
			fmt.Fprintln(out, "ledger ready")
			return nil
		}),
	}
	createLedger.Flags().BoolVar(&ifNotExists, "if-not-exists", true, "Do not fail when the ledger table exists")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply every pending migration in version order",
			Args:  cobra.NoArgs,
			RunE:  withApp(runMigrate),
		},
		&cobra.Command{
			Use:   "up VERSION",
			Short: "Apply one migration",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runUp),
		},
		&cobra.Command{
			Use:   "down VERSION",
			Short: "Revert one migration",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runDown),
		},
		&cobra.Command{
			Use:   "pending",
			Short: "List migrations not yet applied",
			Args:  cobra.NoArgs,
			RunE:  withApp(runPending),
		},
		createLedger,
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringSlice("hosts", defaults.GetStringSlice("cassandra.hosts"), "Cassandra contact points")
	flags.String("keyspace", "", "Keyspace to migrate")
	flags.String("consistency", defaults.GetString("cassandra.consistency"), "Statement consistency level")
	flags.String("username", "", "Password authentication user")
	flags.String("password", "", "Password authentication secret (prefer CANOPY_CASSANDRA_PASSWORD)")
	flags.Bool("sigv4", defaults.GetBool("keyspaces.sigv4"), "Authenticate to Amazon Keyspaces with AWS credentials")
	flags.String("region", defaults.GetString("aws.region"), "AWS region for SigV4 and the DynamoDB ledger")
	flags.String("dir", defaults.GetString("migrations.dir"), "Directory holding <version>_<name>.up.cql files")
	flags.String("ledger", defaults.GetString("ledger.backend"), "Ledger backend (cql, dynamodb)")
	flags.String("ledger-table", "", "Ledger table name (default schema_migrations)")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "cassandra.hosts", "hosts")
	bindFlag(cmd, "cassandra.keyspace", "keyspace")
	bindFlag(cmd, "cassandra.consistency", "consistency")
	bindFlag(cmd, "cassandra.username", "username")
	bindFlag(cmd, "cassandra.password", "password")
	bindFlag(cmd, "keyspaces.sigv4", "sigv4")
	bindFlag(cmd, "aws.region", "region")
	bindFlag(cmd, "migrations.dir", "dir")
	bindFlag(cmd, "ledger.backend", "ledger")
	bindFlag(cmd, "ledger.table", "ledger-table")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("canopy")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}
	return nil
}

type runFunc func(ctx context.Context, a *app.App, out io.Writer, args []string) error

// withApp loads configuration, opens the migration stack and hands it to fn.
func withApp(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err := logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		a, err := app.Open(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("startup failed", zap.Error(err))
			return err
		}
		defer a.Close()

		return fn(cmd.Context(), a, cmd.OutOrStdout(), args)
	}
}

func runMigrate(ctx context.Context, a *app.App, out io.Writer, _ []string) error {
	done, err := a.Migrator.Migrate(ctx)
	for _, v := range done {
		fmt.Fprintf(out, "applied %s\n", migrate.FormatVersion(v))
	}
	if err != nil {
		return err
	}
	if len(done) == 0 {
		fmt.Fprintln(out, "nothing to apply")
	}
	return nil
}

func runUp(ctx context.Context, a *app.App, out io.Writer, args []string) error {
	v, err := migrate.ParseVersion(args[0])
	if err != nil {
		return err
	}
	if err := a.Migrator.Up(ctx, v); err != nil {
		return err
	}
	fmt.Fprintf(out, "applied %s\n", args[0])
	return nil
}

func runDown(ctx context.Context, a *app.App, out io.Writer, args []string) error {
	v, err := migrate.ParseVersion(args[0])
	if err != nil {
		return err
	}
	if err := a.Migrator.Down(ctx, v); err != nil {
		return err
	}
	fmt.Fprintf(out, "reverted %s\n", args[0])
	return nil
}

func runPending(ctx context.Context, a *app.App, out io.Writer, _ []string) error {
	pending, err := a.Migrator.Pending(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		fmt.Fprintln(out, m.String())
	}
	return nil
}
