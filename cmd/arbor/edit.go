package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/crabritto/arbor"
	"github.com/crabritto/arbor/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Edit a tree in the terminal",
	Long: `Starts an interactive editing session. The optional file is a wire
document (JSON, comments allowed) loaded as the starting tree.

Commands are also read from a pipe, one per line:

  printf 'add root 3 left\nwire\n' | arbor edit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		sessionID, _ := cmd.Flags().GetString("session")
		sessionID, _, err = rt.Service.Start(sc, sessionID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		editor := cli.NewEditor(rt.Service, sessionID, out, cli.EditorOptions{
			Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			Version:     strings.TrimSpace(arbor.Version),
		})

		if len(args) == 1 {
			if err := editor.Exec(sc, "import "+args[0]); err != nil {
				return err
			}
		}

		if err := editor.Run(sc, os.Stdin); err != nil {
			return err
		}

		keep, _ := cmd.Flags().GetBool("keep")
		if !keep {
			// Sessions do not outlive the editor unless asked to.
			if err := rt.Service.End(context.Background(), sessionID); err != nil {
				rt.Logger.Warn("failed to end session", "session_id", sessionID, "err", err)
			}
		} else {
			fmt.Fprintf(out, "Session '%s' kept.\n", sessionID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("session", "s", "", "Session id to start or resume")
	editCmd.Flags().Bool("keep", false, "Keep the session in the store after quitting")
}
