package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crabritto/arbor/internal/cli"
	"github.com/crabritto/arbor/internal/presentation/graph"
	"github.com/crabritto/arbor/internal/presentation/tui"
	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

var encodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Normalize a wire document, optionally submitting it for analysis",
	Long: `Reads a wire document (JSON, comments allowed), checks it against the
labeling rules and prints it re-encoded with the chosen key scheme.
With --submit the tree is sent to the analysis service instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		if submit, _ := cmd.Flags().GetBool("submit"); submit {
			return submitDocument(cmd, data)
		}

		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		scheme := cfg.KeyScheme()
		if s, _ := cmd.Flags().GetString("scheme"); s != "" {
			if scheme, err = domain.ParseKeyScheme(s); err != nil {
				return err
			}
		}

		tree, err := wire.Import(data, nil)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(wire.Encode(tree, scheme), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func submitDocument(cmd *cobra.Command, data []byte) error {
	_, rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	id, _, err := rt.Service.Start(ctx, "")
	if err != nil {
		return err
	}
	defer rt.Service.End(ctx, id)

	if _, err := rt.Service.Import(ctx, id, data); err != nil {
		return err
	}
	dm, err := rt.Service.ViewResult(ctx, id)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dm)
	}
	render := tui.NewRenderer(term.IsTerminal(int(os.Stdout.Fd())))
	out, err := render(tui.ResultMarkdown(dm))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export a wire document as a Mermaid diagram",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		tree, err := wire.Import(data, nil)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, nil))
		return nil
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline [file]",
	Short: "Print a wire document as an indented outline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		tree, err := wire.Import(data, nil)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.Outline(tree))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd, graphCmd, outlineCmd)
	encodeCmd.Flags().String("scheme", "", "Key scheme: label or composite (default from wire.key_scheme)")
	encodeCmd.Flags().Bool("submit", false, "Send the tree to the analysis service and show the result")
	encodeCmd.Flags().Bool("json", false, "With --submit, print the result as JSON")
}
