// cliip-show: flash clipboard text in a heads-up display.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

// defaultText is rendered by --render-hud-png when --text is not given.
const defaultText = "Clipboard text"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code: 0 on success,
// 2 for usage errors, 1 for everything else.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, err)

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, "Use --help to see available options.")
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "cliip-show",
		Short: "Flash clipboard text in a heads-up display",
		Long: `cliip-show watches the system clipboard and briefly shows each newly
copied text in a small translucent HUD, then hides it again.

Without a mode flag it runs as a resident daemon. Snapshot modes:
  --render-hud-png --text <STRING> --output <PATH>
  --diff-png --baseline <PATH> --current <PATH> --output <PATH>

Display settings come from defaults, then the config file, then
CLIIP_SHOW_* environment variables. The config file lives at
<user config dir>/cliip-show/config.toml; override the path with --config
or CLIIP_SHOW_CONFIG_PATH. See "cliip-show config --help".

Environment overrides:
  CLIIP_SHOW_POLL_INTERVAL_SECS   Poll interval seconds (0.05 - 5.0)
  CLIIP_SHOW_HUD_DURATION_SECS    HUD visible seconds (0.1 - 10.0)
  CLIIP_SHOW_MAX_CHARS_PER_LINE   Max chars per line (1 - 500)
  CLIIP_SHOW_MAX_LINES            Max lines in HUD (1 - 20)
  CLIIP_SHOW_HUD_POSITION         HUD position (top|center|bottom)
  CLIIP_SHOW_HUD_SCALE            HUD scale (0.5 - 2.0)
  CLIIP_SHOW_HUD_BACKGROUND_COLOR HUD background color (default|yellow|blue|green|red|purple)`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PreRunE:       func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:          func(cmd *cobra.Command, _ []string) error { return runRoot(cmd, v) },
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := root.Flags()
	f.Bool("render-hud-png", false, "render a HUD snapshot PNG and exit")
	f.Bool("diff-png", false, "compare two PNGs, write a highlight image and exit")
	f.String("text", defaultText, "text to render with --render-hud-png")
	f.String("output", "", "output PNG path for --render-hud-png / --diff-png")
	f.String("baseline", "", "baseline image for --diff-png")
	f.String("current", "", "current image for --diff-png")
	f.String("presenter", "auto", "daemon HUD presenter: auto|log|file|kitty")
	f.String("hud-png", "", "PNG path mirrored by the file presenter")
	root.PersistentFlags().String("socket", "", "control socket path (default: $CLIIP_SHOW_SOCKET or the runtime dir)")

	addConfigFlag(root)
	addLoggingFlags(root)

	root.AddCommand(
		newConfigCmd(),
		newStatusCmd(),
		newShowCmd(),
		newVersionCmd(),
	)
	return root
}

func runRoot(cmd *cobra.Command, v *viper.Viper) error {
	render, diff := v.GetBool("render-hud-png"), v.GetBool("diff-png")
	switch {
	case render && diff:
		return usagef("--render-hud-png and --diff-png are mutually exclusive")
	case render:
		for _, name := range []string{"baseline", "current"} {
			if cmd.Flags().Changed(name) {
				return usagef("--%s is not valid with --render-hud-png", name)
			}
		}
		if v.GetString("output") == "" {
			return usagef("--output is required for --render-hud-png")
		}
		setupLogging(cmd, v)
		return runRender(v)
	case diff:
		if cmd.Flags().Changed("text") {
			return usagef("--text is not valid with --diff-png")
		}
		for _, name := range []string{"baseline", "current", "output"} {
			if v.GetString(name) == "" {
				return usagef("--%s is required for --diff-png", name)
			}
		}
		setupLogging(cmd, v)
		return runDiff(cmd, v)
	}

	for _, name := range []string{"text", "output", "baseline", "current"} {
		if cmd.Flags().Changed(name) {
			return usagef("--%s needs --render-hud-png or --diff-png", name)
		}
	}
	setupLogging(cmd, v)
	return runDaemon(cmd, v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cliip-show %s\n", Version)
		},
	}
}
