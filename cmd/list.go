/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/serterm"
	"github.com/allbin/serterm/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := newSession(serterm.DefaultConnectionConfig()).ListPorts()
		if err != nil {
			return err
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			fmt.Fprint(out, renderTable(filtered))
		} else {
			for _, p := range filtered {
				fmt.Fprintln(out, p.Path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts keeps the ports of the given family.
func filterPorts(ports []serterm.PortDescriptor, filterType string) ([]serterm.PortDescriptor, error) {
	var match func(name string) bool
	switch strings.ToLower(filterType) {
	case "", "all":
		return ports, nil
	case "usb":
		match = func(name string) bool {
			return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		}
	case "standard":
		match = func(name string) bool {
			return strings.HasPrefix(name, "ttys") && !strings.HasPrefix(name, "ttysac")
		}
	case "arm":
		match = func(name string) bool { return strings.HasPrefix(name, "ttyama") }
	default:
		return nil, fmt.Errorf("unknown filter %q, expected usb, standard, arm or all", filterType)
	}

	var filtered []serterm.PortDescriptor
	for _, p := range ports {
		if match(strings.ToLower(p.Name)) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// renderTable renders the port list in a styled static table format
func renderTable(ports []serterm.PortDescriptor) string {
	const (
		portWidth = 15
		typeWidth = 20
		usbWidth  = 11
	)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Mauve).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(styles.Surface2)

	cellStyle := lipgloss.NewStyle().PaddingRight(2)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d serial port(s):\n\n", len(ports))
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %s",
		portWidth, "Port",
		typeWidth, "Type",
		usbWidth, "VID:PID",
		"Description")))
	b.WriteString("\n")

	for _, p := range ports {
		usb := ""
		if p.VendorID != "" || p.ProductID != "" {
			usb = p.VendorID + ":" + p.ProductID
		}
		b.WriteString(cellStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %s",
			portWidth, p.Name,
			typeWidth, getPortType(p.Name),
			usbWidth, usb,
			p.Description)))
		b.WriteString("\n")
	}
	return b.String()
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
