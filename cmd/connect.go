/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/hotplug"
	"github.com/allbin/serterm/internal/tui/models"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Open the interactive serial terminal",
	Long: `Open the interactive terminal with bidirectional communication.

Without a port argument the port and baud rate of the previous session are
used; when none was stored the port picker opens first. The selection is
saved again on exit.

Keys:
  p        pick a port (the list refreshes when devices are plugged in)
  [ ]      cycle the baud rate
  r / d    connect / disconnect
  i        type data to send, Tab switches between ASCII and hex
  q        quit

Example usage:
  serterm connect
  serterm connect /dev/ttyUSB0
  serterm connect /dev/ttyACM0 --baud 9600`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port := ""
		if len(args) == 1 {
			port = args[0]
		}
		return runConnect(cmd, port)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	addConnectFlags(connectCmd)
	addConnectFlags(rootCmd)
}

func addConnectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("baud", "b", "", "Baud rate (default: the stored one, else 115200)")
	cmd.Flags().String("line-ending", "\r\n", "Appended to text sent in ASCII mode")
	cmd.Flags().Bool("no-auto-connect", false, "Do not open the stored port on start")
	addLineFlags(cmd)
}

func runConnect(cmd *cobra.Command, port string) error {
	store, err := stateStore()
	if err != nil {
		return err
	}

	cfg, err := store.Load()
	if err != nil {
		// A broken state file only costs the previous selection
		appLogger.Warn("ignoring state file", "path", store.Path, "error", err)
	}
	if port != "" {
		cfg.Port = port
	}
	if cfg.Baudrate, err = baudFlag(cmd, cfg.Baudrate); err != nil {
		return err
	}

	portOpts, line, err := lineOptions(cmd)
	if err != nil {
		return err
	}
	lineEnding, _ := cmd.Flags().GetString("line-ending")
	noAuto, _ := cmd.Flags().GetBool("no-auto-connect")

	session := newSession(cfg, portOpts...)
	defer session.Close()

	var changes <-chan struct{}
	watcher, err := hotplug.New(serterm.DefaultDevDir,
		hotplug.WithMatch(serterm.IsSerialName),
		hotplug.WithLogger(appLogger),
	)
	if err != nil {
		appLogger.Warn("hotplug detection unavailable", "error", err)
	} else {
		defer watcher.Close()
		changes = watcher.Changes()
	}

	model := models.NewSerialModel(models.Options{
		Session:     session,
		Hotplug:     changes,
		LineEnding:  lineEnding,
		Line:        line,
		AutoConnect: !noAuto,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal: %w", err)
	}

	session.Disconnect()
	if err := store.Save(session.Config()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save state: %v\n", err)
		return nil
	}
	appLogger.Info("state saved", "path", store.Path, "config", session.Config().String())
	return nil
}
