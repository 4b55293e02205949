/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/components"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Stream received data to stdout and optionally a file",
	Long: `Stream everything a serial device sends to stdout.

Runs until interrupted (Ctrl+C) or until the device fails, for example when
it is unplugged. With --output the data is also appended to a file, so a
capture can be resumed without overwriting earlier data.

Example usage:
  serterm listen /dev/ttyUSB0
  serterm listen /dev/ttyUSB0 --baud 9600 --output capture.log
  serterm listen /dev/ttyUSB0 --hex --quiet --output capture.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baud, err := baudFlag(cmd, serterm.DefaultBaudrate)
		if err != nil {
			return err
		}
		portOpts, _, err := lineOptions(cmd)
		if err != nil {
			return err
		}
		outputPath, _ := cmd.Flags().GetString("output")
		quiet, _ := cmd.Flags().GetBool("quiet")
		hexMode, _ := cmd.Flags().GetBool("hex")

		var sinks []io.Writer
		if !quiet {
			console := cmd.OutOrStdout()
			if hexMode {
				console = &hexWriter{w: console}
			}
			sinks = append(sinks, console)
		}
		if outputPath != "" {
			file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open output file: %w", err)
			}
			defer file.Close()
			sinks = append(sinks, file)
		}

		cfg := serterm.ConnectionConfig{Port: args[0], Baudrate: baud}
		session := newSession(cfg, portOpts...)
		defer session.Close()

		fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s at %s baud, press Ctrl+C to stop\n", cfg.Port, cfg.Baudrate)
		start := time.Now()
		err = listen(cmd.Context(), session, cfg, io.MultiWriter(sinks...))
		st := session.Status()
		fmt.Fprintf(cmd.ErrOrStderr(), "\nReceived %s in %v\n",
			humanize.IBytes(st.BytesIn), time.Since(start).Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringP("baud", "b", "115200", "Baud rate")
	listenCmd.Flags().StringP("output", "o", "", "Append received data to this file")
	listenCmd.Flags().BoolP("quiet", "q", false, "Do not echo received data to stdout")
	listenCmd.Flags().BoolP("hex", "x", false, "Echo received data to stdout as a hex dump")
	addLineFlags(listenCmd)
}

// listen copies the session's OutputLog to w as it grows. It returns nil when
// ctx ends and the failure when the link breaks.
func listen(ctx context.Context, s *serterm.Session, cfg serterm.ConnectionConfig, w io.Writer) error {
	seen := 0
	flush := func() error {
		for _, e := range s.Output().Entries(seen) {
			if _, err := w.Write(e.Data); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			seen++
		}
		return nil
	}

	if err := connectAndWait(ctx, s, cfg); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		// The link may have failed right after connecting
		if ferr := flush(); ferr != nil {
			return ferr
		}
		return err
	}

	var werr error
	st, err := waitFor(ctx, s, func(st serterm.Status) bool {
		if werr = flush(); werr != nil {
			return true
		}
		return st.State != serterm.StateConnected
	})
	if werr == nil {
		werr = flush()
	}
	switch {
	case werr != nil:
		return werr
	case err != nil:
		// Interrupted
		return nil
	case st.State == serterm.StateFailed:
		return st.Err
	}
	return nil
}

// hexWriter prints each chunk as one line of hex bytes with its ASCII form.
type hexWriter struct {
	w io.Writer
}

func (h *hexWriter) Write(p []byte) (int, error) {
	if _, err := fmt.Fprintf(h.w, "% X  %s\n", p, components.PrintableASCII(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
