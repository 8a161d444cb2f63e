package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/config"
	"go.klb.dev/cliip-show/internal/ipc"
	"go.klb.dev/cliip-show/internal/logging"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

// usageError marks errors that exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs turns positional-argument validation failures into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// bindViper wires a command's flags into a viper instance with the
// CLIIP_SHOW_* env var prefix. Display settings have their own layering in
// the config package; this covers command options only.
//
// Precedence (lowest → highest): flag defaults → CLIIP_SHOW_* env vars → flags set on the command line
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.PersistentFlags().String("log-format", "auto", "log format: auto|text|json")
	cmd.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error (default: info for the daemon, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "path to config file (overrides "+config.PathEnv+" and the default location)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(cmd *cobra.Command, v *viper.Viper) {
	w := cmd.ErrOrStderr()
	interactive := v.GetBool("no-background") || logging.IsTTY(w)
	opts := logging.Resolve(interactive, v.GetString("log-format"), v.GetString("log-level"))
	opts.Writer = w
	logging.Setup(opts)
}

// socketPath returns --socket when set, else the ipc default.
func socketPath(v *viper.Viper) string {
	if p := v.GetString("socket"); p != "" {
		return p
	}
	return ipc.SocketPath()
}

// configPath resolves the display config file path for a command.
func configPath(v *viper.Viper) (string, error) {
	return config.Path(v.GetString("config"))
}
