/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/components"
	"github.com/allbin/serterm/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port and disconnect.

Data can be provided as:
- Command line argument: serterm send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serterm send /dev/ttyUSB0
- Interactive mode: serterm send /dev/ttyUSB0 (prompts for input)

Example usage:
  serterm send "Hello World" /dev/ttyUSB0
  serterm send "AT+GMR" /dev/ttyUSB0 --newline
  serterm send "48 65 6c 6c 6f" /dev/ttyUSB0 --hex`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data, portPath string
		if len(args) == 1 {
			portPath = args[0]
			text, err := readInput(cmd.InOrStdin())
			if err != nil {
				return err
			}
			data = text
		} else {
			data = args[0]
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		payload, err := buildPayload(data, hexMode, addNewline)
		if err != nil {
			return err
		}

		baud, err := baudFlag(cmd, serterm.DefaultBaudrate)
		if err != nil {
			return err
		}
		portOpts, _, err := lineOptions(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		cfg := serterm.ConnectionConfig{Port: portPath, Baudrate: baud}
		session := newSession(cfg, portOpts...)
		defer session.Close()

		return sendData(ctx, cmd.OutOrStdout(), session, cfg, payload)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("baud", "b", "115200", "Baud rate")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for opening the port and sending")
	addLineFlags(sendCmd)
}

// readInput takes piped data, or prompts when stdin is a terminal.
func readInput(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			promptStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Mauve)
			fmt.Print(promptStyle.Render("Enter data to send: "))
			scanner := bufio.NewScanner(f)
			scanner.Scan()
			return scanner.Text(), scanner.Err()
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func buildPayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		payload, err := components.ParseHex(data)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return payload, nil
	}
	if addNewline {
		data += "\n"
	}
	if data == "" {
		return nil, errors.New("nothing to send")
	}
	return []byte(data), nil
}

// sendData connects, queues payload and returns once the device has
// transmitted all of it.
func sendData(ctx context.Context, out io.Writer, session *serterm.Session, cfg serterm.ConnectionConfig, payload []byte) error {
	infoStyle := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(styles.Green).Bold(true)

	fmt.Fprintf(out, "%s Opening %s at %s baud...\n", infoStyle.Render("⚡"), cfg.Port, cfg.Baudrate)
	if err := connectAndWait(ctx, session, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Connected\n", successStyle.Render("✓"))

	if err := session.Send(payload); err != nil {
		return err
	}
	if err := session.Drain(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("sent %d of %d bytes: %w", session.Status().BytesOut, len(payload), err)
		}
		return err
	}

	fmt.Fprintf(out, "%s Sent %d bytes: %s\n", successStyle.Render("✓"), session.Status().BytesOut, preview(payload))
	return nil
}

// preview shows the first bytes of data with control characters masked.
func preview(data []byte) string {
	const previewLen = 50
	suffix := ""
	if len(data) > previewLen {
		data = data[:previewLen]
		suffix = "..."
	}
	return components.PrintableASCII(data) + suffix
}
