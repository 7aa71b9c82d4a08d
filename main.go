package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/krait-dev/krait/cmd"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "krait [subcommand]",
	Short:        "krait 🐍\n a type checker for annotated Python modules",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.CheckCmd)
}
