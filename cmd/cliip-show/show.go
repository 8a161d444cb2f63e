package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/ipc"
	"go.klb.dev/cliip-show/internal/message"
)

func newShowCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "show --text <STRING>",
		Short: "Ask the running daemon to display text",
		Long: `Sends text to the running daemon, which shows it exactly as if it had just
been copied. The clipboard itself is left untouched.`,
		Args:    usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runShow(cmd, v) },
	}

	f := cmd.Flags()
	f.String("text", "", "text to display")

	return cmd
}

func runShow(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(cmd, v)
	text := v.GetString("text")
	if text == "" {
		return usagef("--text is required")
	}

	source, _ := os.Hostname()
	req := &message.Message{Type: message.TypeShow, Source: source, Text: text}
	if _, err := ipc.Request(cmd.Context(), socketPath(v), req); err != nil {
		return fmt.Errorf("show: %w", err)
	}
	return nil
}
