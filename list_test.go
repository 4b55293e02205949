package serterm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	// Check that all returned ports are valid paths
	for _, port := range ports {
		if !strings.HasPrefix(port.Path, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port.Path)
		}

		// Verify it's a character device
		if !isCharacterDevice(port.Path) {
			t.Errorf("Port is not a character device: %s", port.Path)
		}
	}

	// Check that ports are sorted
	for i := 1; i < len(ports); i++ {
		if ports[i-1].Path > ports[i].Path {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1].Path, ports[i].Path)
		}
	}
}

func fakeDevDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestDevEnumeratorListPorts(t *testing.T) {
	dir := fakeDevDir(t, "ttyUSB1", "tty0", "ttyS0", "console", "ttyACM0", "null", "ttyUSB0")

	e := &DevEnumerator{
		Dir:      dir,
		IsDevice: func(string) bool { return true },
		Details: func() ([]*enumerator.PortDetails, error) {
			return []*enumerator.PortDetails{
				{Name: filepath.Join(dir, "ttyUSB0"), IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A50285BI", Product: "FT232R USB UART"},
				{Name: filepath.Join(dir, "ttyS0"), IsUSB: false},
				nil,
			}, nil
		},
	}

	ports, err := e.ListPorts()
	if err != nil {
		t.Fatalf("ListPorts failed: %v", err)
	}

	want := []string{"ttyACM0", "ttyS0", "ttyUSB0", "ttyUSB1"}
	if len(ports) != len(want) {
		t.Fatalf("got %d ports (%v), want %v", len(ports), ports, want)
	}
	for i, name := range want {
		if ports[i].Name != name {
			t.Errorf("ports[%d].Name = %s, want %s", i, ports[i].Name, name)
		}
		if ports[i].Path != filepath.Join(dir, name) {
			t.Errorf("ports[%d].Path = %s", i, ports[i].Path)
		}
	}

	usb0 := ports[2]
	if !usb0.USB || usb0.VendorID != "0403" || usb0.ProductID != "6001" || usb0.SerialNumber != "A50285BI" {
		t.Errorf("USB details not merged: %+v", usb0)
	}
	if usb0.Description != "FT232R USB UART" {
		t.Errorf("Description = %q, want product name", usb0.Description)
	}

	if ports[1].USB || ports[1].Description != "Standard Serial Port" {
		t.Errorf("ttyS0 = %+v", ports[1])
	}
	if ports[3].Description != "USB Serial Port" || ports[3].VendorID != "" {
		t.Errorf("ttyUSB1 = %+v", ports[3])
	}
}

func TestDevEnumeratorIgnoresDetailFailure(t *testing.T) {
	dir := fakeDevDir(t, "ttyUSB0")
	e := &DevEnumerator{
		Dir:      dir,
		IsDevice: func(string) bool { return true },
		Details: func() ([]*enumerator.PortDetails, error) {
			return nil, errors.New("udev unavailable")
		},
	}

	ports, err := e.ListPorts()
	if err != nil {
		t.Fatalf("ListPorts failed: %v", err)
	}
	if len(ports) != 1 || ports[0].Name != "ttyUSB0" {
		t.Errorf("ports = %v", ports)
	}
}

func TestDevEnumeratorSkipsNonDevices(t *testing.T) {
	dir := fakeDevDir(t, "ttyUSB0")

	// Regular files are not character devices
	ports, err := (&DevEnumerator{Dir: dir}).ListPorts()
	if err != nil {
		t.Fatalf("ListPorts failed: %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("ports = %v, want none", ports)
	}
}

func TestDevEnumeratorMissingDir(t *testing.T) {
	_, err := (&DevEnumerator{Dir: filepath.Join(t.TempDir(), "missing")}).ListPorts()
	if !errors.Is(err, ErrEnumeration) {
		t.Errorf("ListPorts = %v, want ErrEnumeration", err)
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB12", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"ttymxc3", true},
		{"ttyO1", true},
		{"ttySAC2", true},
		{"ttyTHS0", true},
		{"tty0", false},
		{"tty63", false},
		{"console", false},
		{"ptmx", false},
		{"ttyUSB", false},
		{"null", false},
	}

	for _, test := range tests {
		if result := IsSerialName(test.name); result != test.expected {
			t.Errorf("IsSerialName(%s) = %v, expected %v", test.name, result, test.expected)
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},     // Should exist and be a character device
		{"/dev/zero", true},     // Should exist and be a character device
		{"/tmp", false},         // Directory, not character device
		{"/nonexistent", false}, // Doesn't exist
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, test := range tests {
		result := getPortDescription(test.name)
		if result != test.expected {
			t.Errorf("getPortDescription(%s) = %s, expected %s", test.name, result, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	if _, err := GetPortInfo("/nonexistent"); err != ErrDeviceNotFound {
		t.Errorf("GetPortInfo(/nonexistent) = %v, want ErrDeviceNotFound", err)
	}

	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo(/dev/null) failed: %v", err)
	}
	if info.Path != "/dev/null" || info.Name != "null" {
		t.Errorf("GetPortInfo(/dev/null) = %+v", info)
	}
}
