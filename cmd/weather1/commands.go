package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Fellisss/Weather1/internal/app"
	"github.com/Fellisss/Weather1/internal/config"
	"github.com/Fellisss/Weather1/internal/db"
	"github.com/Fellisss/Weather1/internal/logging"
	"github.com/Fellisss/Weather1/internal/migrate"
)

func newRootCommand() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Weather observations web application",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("addr", "", "HTTP listen address (HTTP_ADDR)")
	flags.String("db", "", "SQLite database file (SQLITE_PATH)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	bindFlag(v, "HTTP_ADDR", root, "addr")
	bindFlag(v, "SQLITE_PATH", root, "db")
	bindFlag(v, "LOG_LEVEL", root, "log-level")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd, v)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and print their status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrations(cmd, v)
			},
		},
	)
	return root
}

// bindFlag makes an explicitly set flag override the environment variable key.
func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func setup(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logging.New(cfg, version, appName))
	return cfg, nil
}

func serve(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := setup(v)
	if err != nil {
		return err
	}
	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	err = app.Run(cmd.Context(), cfg, version)
	slog.Info("shutting down")
	return err
}

func runMigrations(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := setup(v)
	if err != nil {
		return err
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			slog.Error("db close", "error", err)
		}
	}()

	ctx := cmd.Context()
	if err := migrate.Run(ctx, conn); err != nil {
		return err
	}
	status, err := migrate.Status(ctx, conn)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, m := range status {
		fmt.Fprintf(w, "%s\t%s\t%t\n", m.Version, m.Name, m.Applied)
	}
	return w.Flush()
}
