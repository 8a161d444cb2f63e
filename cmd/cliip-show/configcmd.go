package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the display settings file",
		Long: `Manage the TOML file holding the [display] settings.

Keys: ` + strings.Join(config.Keys(), ", ") + `
Hyphens are accepted in place of underscores (hud-scale = hud_scale).`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return usagef("missing config command: expected one of path, show, init, set")
		},
	}
	cmd.AddCommand(
		newConfigPathCmd(),
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigSetCmd(),
	)
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	v := viper.New()
	return &cobra.Command{
		Use:     "path",
		Short:   "Print the config file path",
		Args:    usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	v := viper.New()
	return &cobra.Command{
		Use:     "show",
		Short:   "Print saved and effective settings",
		Args:    usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runConfigShow(cmd, v) },
	}
}

func runConfigShow(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(cmd, v)
	path, err := configPath(v)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config_path = %s\n", path)

	f, exists, err := config.Load(path)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintln(out, "config_file = exists")
		fmt.Fprintln(out, "[saved]")
		printLines(out, f.Lines())
	} else {
		fmt.Fprintln(out, "config_file = not_found")
	}
	fmt.Fprintln(out, "[effective]")
	printLines(out, config.ApplyEnv(f.Apply(config.Defaults())).Lines())
	return nil
}

func newConfigInitCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Write a config file holding the defaults",
		Args:    usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(v)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !v.GetBool("force") {
				return usagef("config file already exists: %s (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Defaults().File()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized config: %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	v := viper.New()
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Store one setting in the config file",
		Args:    usageArgs(cobra.ExactArgs(2)),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runConfigSet(cmd, v, args[0], args[1]) },
	}
}

func runConfigSet(cmd *cobra.Command, v *viper.Viper, rawKey, rawValue string) error {
	setupLogging(cmd, v)
	key, err := config.ParseKey(rawKey)
	if err != nil {
		return &usageError{err: err}
	}
	path, err := configPath(v)
	if err != nil {
		return err
	}

	f, _, err := config.Load(path)
	if err != nil {
		return err
	}
	warning, err := f.Set(key, rawValue)
	if err != nil {
		if errors.Is(err, config.ErrInvalidValue) {
			return &usageError{err: err}
		}
		return err
	}
	if err := config.Save(path, f); err != nil {
		return err
	}

	if warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "updated config: %s\n", path)
	fmt.Fprintln(out, "[effective]")
	printLines(out, config.ApplyEnv(f.Apply(config.Defaults())).Lines())
	return nil
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
