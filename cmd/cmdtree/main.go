package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	config     string
	catalogue  string
	logLevel   string
	foldDigits bool
	noQuotes   bool
	maxDepth   int
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "cmdtree",
		Short:         "Normalize shell commands into grammar-constrained command trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Add flags
	rootCmd.PersistentFlags().StringVarP(&g.config, "config", "c", "", "Path to a TOML config file (default $CMDTREE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&g.catalogue, "catalogue", "", "Path to a YAML head-command catalogue")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&g.foldDigits, "fold-digits", true, "Replace digit runs in literals with _NUM")
	rootCmd.PersistentFlags().BoolVar(&g.noQuotes, "no-quotes", false, "Drop the quotes around quoted literals")
	rootCmd.PersistentFlags().IntVar(&g.maxDepth, "max-depth", 0, "Maximum nesting depth of a command")

	rootCmd.AddCommand(
		newNormalizeCmd(&g),
		newLinearizeCmd(&g),
		newRenderCmd(),
		newBatchCmd(&g),
	)
	return rootCmd
}

// getInputReader opens file, or stdin for "-"
func getInputReader(cmd *cobra.Command, file string) (io.Reader, func() error, error) {
	if file == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening file %s: %w", file, err)
	}
	return f, f.Close, nil
}
