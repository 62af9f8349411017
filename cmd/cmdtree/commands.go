package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/cmdtree/pkgs/config"
	"github.com/aledsdavies/cmdtree/pkgs/dataset"
	"github.com/aledsdavies/cmdtree/pkgs/linear"
	"github.com/aledsdavies/cmdtree/pkgs/normalizer"
	"github.com/aledsdavies/cmdtree/pkgs/render"
	"github.com/aledsdavies/cmdtree/pkgs/tree"
)

// setup resolves the config file, applies flag overrides and builds the
// normalizer.
func (g *globalFlags) setup(cmd *cobra.Command) (*config.Config, *normalizer.Normalizer, error) {
	cfg, err := config.Resolve(g.config)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("catalogue") {
		cfg.Catalogue.Path = g.catalogue
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("fold-digits") {
		cfg.Normalize.FoldDigits = g.foldDigits
	}
	if flags.Changed("no-quotes") {
		cfg.Normalize.RecoverQuotes = !g.noQuotes
	}
	if flags.Changed("max-depth") {
		cfg.Normalize.MaxDepth = g.maxDepth
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv(normalizer.DebugEnv) != "" {
		level = slog.LevelDebug
	}

	opts, err := cfg.NormalizerOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, normalizer.WithLogger(normalizer.NewLogger(cmd.ErrOrStderr(), level)))
	return cfg, normalizer.New(opts...), nil
}

func newNormalizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <command>",
		Short: "Show the normalized tree, its symbols and the rendered command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := g.setup(cmd)
			if err != nil {
				return err
			}
			res, err := n.Normalize(args[0])
			if err != nil {
				return err
			}

			symbols := linear.Linearize(res.Tree)
			back, err := linear.Delinearize(symbols)
			if err != nil {
				return err
			}
			if !tree.Equal(res.Tree, back) {
				return fmt.Errorf("linearization of %q does not round-trip", res.Command)
			}

			mode := render.Strict
			if res.Partial() {
				mode = render.Loose
			}
			rendered, err := render.Render(back, mode)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Tree:")
			fmt.Fprint(out, tree.Dump(res.Tree))
			fmt.Fprintln(out, "Symbols:")
			fmt.Fprintln(out, strings.Join(symbols, " "))
			fmt.Fprintf(out, "Command (%s):\n", mode)
			fmt.Fprintln(out, rendered)
			return nil
		},
	}
}

func newLinearizeCmd(g *globalFlags) *cobra.Command {
	var pad int
	cmd := &cobra.Command{
		Use:   "linearize <command>",
		Short: "Print the symbol sequence of a command as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := g.setup(cmd)
			if err != nil {
				return err
			}
			res, err := n.Normalize(args[0])
			if err != nil {
				return err
			}
			symbols := linear.Linearize(res.Tree)
			if pad > 0 {
				symbols = linear.Pad(symbols, pad)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			return enc.Encode(symbols)
		},
	}
	cmd.Flags().IntVar(&pad, "pad", 0, "Pad the sequence to this length")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var loose bool
	cmd := &cobra.Command{
		Use:   "render [symbols-json|-]",
		Short: "Render a JSON symbol sequence back to a command",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 1 && args[0] != "-" {
				data = []byte(args[0])
			} else {
				var err error
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("error reading symbols: %w", err)
				}
			}

			var symbols []string
			if err := json.Unmarshal(data, &symbols); err != nil {
				return fmt.Errorf("symbols must be a JSON array of strings: %w", err)
			}
			root, err := linear.Delinearize(symbols)
			if err != nil {
				return err
			}

			mode := render.Strict
			if loose {
				mode = render.Loose
			}
			s, err := render.Render(root, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&loose, "loose", false, "Render ungrammatical trees best-effort")
	return cmd
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	var (
		format string
		output string
		pad    int
	)
	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Normalize one command per line into training records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, n, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				cfg.Output.Format = format
			}
			if cmd.Flags().Changed("pad") {
				cfg.Output.PadTo = pad
			}

			file := "-"
			if len(args) == 1 {
				file = args[0]
			}
			reader, closeFunc, err := getInputReader(cmd, file)
			if err != nil {
				return err
			}
			defer func() { _ = closeFunc() }()

			commands, err := readLines(reader)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			w, err := dataset.NewWriter(out, cfg.Output.Format)
			if err != nil {
				return err
			}

			stats, err := n.Batch(cmd.Context(), commands, func(o normalizer.Outcome) error {
				if o.Err != nil {
					return nil
				}
				rec, err := dataset.NewRecord(o.Result, cfg.Output.PadTo)
				if err != nil {
					return err
				}
				return w.Write(rec)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", config.FormatJSON, "Record format: json or cbor")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write records to this file instead of stdout")
	cmd.Flags().IntVar(&pad, "pad", 0, "Pad symbol sequences to this length")
	return cmd
}

// readLines returns the non-blank lines of r
func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading commands: %w", err)
	}
	return lines, nil
}
