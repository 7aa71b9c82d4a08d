package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/krait-dev/krait/conformance"
	"github.com/krait-dev/krait/frontend/config"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/internal/log"
)

var CheckCmd = &cobra.Command{
	Use:          "check file.txtar ...",
	Short:        "Type-check fixture archives and diff their diagnostics",
	RunE:         runCheck,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	configPath *string
	logLevel   *int
)

func init() {
	configPath = CheckCmd.Flags().StringP("config", "c", "", "module configuration file")
	logLevel = CheckCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*logLevel))

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}
		cfg = loaded
	}

	var failed error
	for _, arg := range args {
		report, err := conformance.RunFile(arg, cfg)
		if err != nil {
			return fmt.Errorf("could not run fixture (this is a bug or a malformed archive, not a check failure): %w", err)
		}
		if mismatches := report.Mismatches(); len(mismatches) > 0 {
			failed = multierr.Append(failed,
				fmt.Errorf("%s:\n  %s", report.Path, strings.Join(mismatches, "\n  ")))
			continue
		}
		if kinds := report.Kinds(); len(kinds) > 0 {
			cmd.Printf("ok\t%s (%d modules; %s)\n", report.Path, len(report.Modules), joinKinds(kinds))
		} else {
			cmd.Printf("ok\t%s (%d modules)\n", report.Path, len(report.Modules))
		}
	}
	return failed
}

func joinKinds(kinds []diag.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
