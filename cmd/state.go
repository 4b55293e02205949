/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show or reset the remembered port and baud rate",
	Long: `Show the port and baud rate the interactive terminal starts with.

The selection is written when the terminal exits. --reset removes it so the
next start opens the port picker at 115200 baud.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := stateStore()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			if err := store.Reset(); err != nil {
				return fmt.Errorf("reset state: %w", err)
			}
			fmt.Fprintf(out, "Removed %s\n", store.Path)
			return nil
		}

		cfg, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "State file: %s\n", store.Path)
		fmt.Fprintf(out, "Selection:  %s\n", cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)

	stateCmd.Flags().Bool("reset", false, "Forget the stored selection")
}
