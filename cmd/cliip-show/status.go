package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/ipc"
	"go.klb.dev/cliip-show/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's state",
		Long: `Asks the running daemon over its control socket for its state: backend,
presenter, the visible HUD session if any, and the effective settings.`,
		Args:    usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(cmd, v)
	reply, err := ipc.Request(cmd.Context(), socketPath(v), &message.Message{Type: message.TypeStatus})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if reply.Type != message.TypeStatusResponse || reply.Status == nil {
		return fmt.Errorf("status: unexpected reply %q", reply.Type)
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(reply.Status, "", "  ")
		fmt.Fprintln(out, string(enc))
		return nil
	}
	printStatus(out, reply.Status, time.Now())
	return nil
}

func printStatus(out io.Writer, st *message.Status, now time.Time) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", st.Version)
	fmt.Fprintf(w, "PID:\t%d\n", st.PID)
	fmt.Fprintf(w, "Started:\t%s (%s)\n", st.StartedAt.Format(time.RFC3339), humanize.RelTime(st.StartedAt, now, "ago", "from now"))
	fmt.Fprintf(w, "Backend:\t%s\n", st.Backend)
	fmt.Fprintf(w, "Presenter:\t%s\n", st.Presenter)
	fmt.Fprintf(w, "Config:\t%s\n", st.ConfigPath)
	fmt.Fprintf(w, "State:\t%s\n", st.State)
	fmt.Fprintf(w, "Shown:\t%s\n", humanize.Comma(int64(st.Shown)))
	if s := st.Session; s != nil {
		fmt.Fprintf(w, "Session:\t%s\n", s.ID)
		fmt.Fprintf(w, "  Size:\t%dx%d, %d line(s), truncated=%t\n", s.Width, s.Height, s.Lines, s.Truncated)
		fmt.Fprintf(w, "  Hides:\t%s\n", humanize.RelTime(s.Deadline, now, "ago", "from now"))
	}
	_ = w.Flush()

	if len(st.Settings) > 0 {
		fmt.Fprintln(out, "[effective]")
		printLines(out, st.Settings)
	}
}
