package main

import (
	"fmt"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	dsn        string
	redisAddr  string
	verbose    bool
}

// NewRootCmd creates the root command for the accountsctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "accountsctl",
		Short: "Manage accounts and sessions",
		Long: `accountsctl drives the account service against a SQLite directory and a
Redis confirmation store. Settings come from ACCOUNTS_* variables and an
optional YAML file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.dsn, "db", "", "SQLite DSN (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.redisAddr, "redis", "", "Redis address (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "trace level logging")

	cmd.AddCommand(NewRegisterCmd(opts))
	cmd.AddCommand(NewConfirmCmd(opts))
	cmd.AddCommand(NewReissueCmd(opts))
	cmd.AddCommand(NewLoginCmd(opts))
	cmd.AddCommand(NewGetCmd(opts))
	cmd.AddCommand(NewListCmd(opts))
	cmd.AddCommand(NewUpdateCmd(opts))
	cmd.AddCommand(NewDeleteCmd(opts))
	cmd.AddCommand(NewPasswdCmd(opts))
	cmd.AddCommand(NewServeCmd(opts))

	return cmd
}

// withApp loads configuration, wires the App and runs fn with it.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*App) error) error {
	cfg, err := loadConfig(opts.configFile, nil)
	if err != nil {
		return err
	}
	if opts.dsn != "" {
		cfg.Runtime.DatabaseDSN = opts.dsn
	}
	if opts.redisAddr != "" {
		cfg.Runtime.RedisAddr = opts.redisAddr
	}

	app, err := newApp(cmd.Context(), cfg, opts.verbose, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func printJSON(cmd *cobra.Command, v any) {
	fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(v))
}

// stderrCookieWriter prints the cookie the transport would set.
func stderrCookieWriter(cmd *cobra.Command) accounts.CookieWriter {
	return accounts.CookieWriterFunc(func(c accounts.SessionCookie) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Set-Cookie: %s\n", c.HTTPCookie().String())
	})
}
