/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/settings"
	"github.com/allbin/serterm/internal/tui/components"
)

// addLineFlags registers the framing flags shared by every command that
// opens a port.
func addLineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("data-bits", 8, "Data bits: 5, 6, 7 or 8")
	cmd.Flags().Int("stop-bits", 1, "Stop bits: 1 or 2")
	cmd.Flags().String("parity", "none", "Parity: none, odd, even")
	cmd.Flags().Duration("write-timeout", serterm.DefaultConfig().WriteTimeout, "How long a write may wait for the device, 0 waits forever")
	cmd.Flags().Bool("sync", false, "Open the device with O_SYNC so writes return only once transmitted")
}

// lineOptions turns the framing flags into port options and the summary
// shown in the status bar.
func lineOptions(cmd *cobra.Command) ([]serterm.Option, components.LineSettings, error) {
	dataBits, _ := cmd.Flags().GetInt("data-bits")
	stopBits, _ := cmd.Flags().GetInt("stop-bits")
	parityName, _ := cmd.Flags().GetString("parity")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	syncWrite, _ := cmd.Flags().GetBool("sync")

	var parity serterm.Parity
	switch strings.ToLower(parityName) {
	case "none", "n", "":
		parity = serterm.ParityNone
	case "odd", "o":
		parity = serterm.ParityOdd
	case "even", "e":
		parity = serterm.ParityEven
	default:
		return nil, components.LineSettings{}, fmt.Errorf("%w: unknown parity %q", serterm.ErrInvalidConfig, parityName)
	}

	opts := []serterm.Option{
		serterm.WithDataBits(dataBits),
		serterm.WithStopBits(stopBits),
		serterm.WithParity(parity),
		serterm.WithWriteTimeout(writeTimeout),
	}
	if syncWrite {
		opts = append(opts, serterm.WithSyncWrite())
	}

	// Reject bad values before a session ever tries them
	cfg := serterm.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, components.LineSettings{}, err
		}
	}

	return opts, components.LineSettings{DataBits: dataBits, StopBits: stopBits, Parity: parity}, nil
}

// baudFlag returns the --baud value, or fallback when the flag was not given.
func baudFlag(cmd *cobra.Command, fallback serterm.Baudrate) (serterm.Baudrate, error) {
	if !cmd.Flags().Changed("baud") {
		return fallback, nil
	}
	value, _ := cmd.Flags().GetString("baud")
	return serterm.ParseBaudrate(value)
}

func stateStore() (*settings.Store, error) {
	return settings.NewStore(viper.GetString(keyStateFile))
}

func newSession(cfg serterm.ConnectionConfig, portOpts ...serterm.Option) *serterm.Session {
	return serterm.New(
		serterm.WithConfig(cfg),
		serterm.WithLogger(appLogger),
		serterm.WithPortOptions(portOpts...),
	)
}
