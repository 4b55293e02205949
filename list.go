package serterm

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortDescriptor identifies one discoverable serial device. It is a snapshot:
// devices come and go, so descriptors are never cached between listings.
type PortDescriptor struct {
	Name         string // device name, e.g. ttyUSB0
	Path         string // unique path used to open the device
	Description  string
	USB          bool
	VendorID     string
	ProductID    string
	SerialNumber string
	Product      string
}

func (d PortDescriptor) String() string {
	return d.Path
}

// Enumerator lists the serial devices currently visible on the host.
type Enumerator interface {
	ListPorts() ([]PortDescriptor, error)
}

// EnumeratorFunc adapts a function to the Enumerator interface.
type EnumeratorFunc func() ([]PortDescriptor, error)

func (f EnumeratorFunc) ListPorts() ([]PortDescriptor, error) {
	return f()
}

// DefaultDevDir is where serial device nodes are looked up.
const DefaultDevDir = "/dev"

// Serial device name patterns
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// Virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),
	regexp.MustCompile(`^console$`),
	regexp.MustCompile(`^ptmx$`),
	regexp.MustCompile(`^pty.*$`),
	regexp.MustCompile(`^pts/.*$`),
}

// DevEnumerator scans a device directory for serial ports and merges USB
// metadata when it is available.
type DevEnumerator struct {
	// Dir defaults to /dev.
	Dir string
	// Details returns USB metadata; nil disables the lookup.
	Details func() ([]*enumerator.PortDetails, error)
	// IsDevice reports whether a path is usable; nil means "is a character device".
	IsDevice func(path string) bool
}

// NewDevEnumerator returns the enumerator used by ListPorts.
func NewDevEnumerator() *DevEnumerator {
	return &DevEnumerator{
		Dir:     DefaultDevDir,
		Details: enumerator.GetDetailedPortsList,
	}
}

// ListPorts returns the serial ports visible right now, sorted by path.
func (e *DevEnumerator) ListPorts() ([]PortDescriptor, error) {
	dir := e.Dir
	if dir == "" {
		dir = DefaultDevDir
	}
	isDevice := e.IsDevice
	if isDevice == nil {
		isDevice = isCharacterDevice
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{Kind: ErrEnumeration, Op: "list", Port: dir, Err: err}
	}

	var paths []string
	for _, entry := range entries {
		if !IsSerialName(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if isDevice(fullPath) {
			paths = append(paths, fullPath)
		}
	}
	sort.Strings(paths)

	usb := e.usbDetails()
	ports := make([]PortDescriptor, 0, len(paths))
	for _, path := range paths {
		d := describe(path)
		if details, ok := usb[path]; ok {
			mergeUSB(&d, details)
		}
		ports = append(ports, d)
	}
	return ports, nil
}

// usbDetails indexes enumerator results by device path. Lookup failures are
// not fatal: the ports are still listed, just without USB metadata.
func (e *DevEnumerator) usbDetails() map[string]*enumerator.PortDetails {
	if e.Details == nil {
		return nil
	}
	list, err := e.Details()
	if err != nil {
		return nil
	}
	byPath := make(map[string]*enumerator.PortDetails, len(list))
	for _, d := range list {
		if d == nil {
			continue
		}
		byPath[d.Name] = d
	}
	return byPath
}

// ListPorts returns the serial ports currently available on the system
func ListPorts() ([]PortDescriptor, error) {
	return NewDevEnumerator().ListPorts()
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortDescriptor, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	d := describe(portPath)
	if list, err := enumerator.GetDetailedPortsList(); err == nil {
		for _, details := range list {
			if details != nil && details.Name == portPath {
				mergeUSB(&d, details)
				break
			}
		}
	}
	return &d, nil
}

func describe(path string) PortDescriptor {
	name := filepath.Base(path)
	return PortDescriptor{
		Name:        name,
		Path:        path,
		Description: getPortDescription(name),
		USB:         strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM"),
	}
}

func mergeUSB(d *PortDescriptor, details *enumerator.PortDetails) {
	if !details.IsUSB {
		return
	}
	d.USB = true
	d.VendorID = details.VID
	d.ProductID = details.PID
	d.SerialNumber = details.SerialNumber
	d.Product = details.Product
	if details.Product != "" {
		d.Description = details.Product
	}
}

// IsSerialName reports whether a device directory entry looks like a serial port.
func IsSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range serialPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
