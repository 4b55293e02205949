package serterm

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// ptyPair stands in for a serial device: the test drives the master side
// while the code under test opens the slave path like any tty.
type ptyPair struct {
	master int
	slave  string

	mu     sync.Mutex
	closed bool
}

func newPTY(t *testing.T) *ptyPair {
	t.Helper()

	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		unix.Close(fd)
		t.Skipf("unlockpt failed: %v", err)
	}
	n, err := unix.IoctlGetUint32(fd, unix.TIOCGPTN)
	if err != nil {
		unix.Close(fd)
		t.Skipf("ptsname failed: %v", err)
	}

	p := &ptyPair{master: fd, slave: fmt.Sprintf("/dev/pts/%d", n)}
	if _, err := os.Stat(p.slave); err != nil {
		unix.Close(fd)
		t.Skipf("pty slave not visible: %v", err)
	}
	t.Cleanup(p.hangup)
	return p
}

// write plays bytes from the device side.
func (p *ptyPair) write(t *testing.T, data []byte) {
	t.Helper()
	if _, err := unix.Write(p.master, data); err != nil {
		t.Fatalf("pty write: %v", err)
	}
}

// read collects at least n bytes sent to the device.
func (p *ptyPair) read(t *testing.T, n int, timeout time.Duration) []byte {
	t.Helper()

	var got []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for len(got) < n && time.Now().Before(deadline) {
		fds := []unix.PollFd{{Fd: int32(p.master), Events: unix.POLLIN}}
		ready, err := unix.Poll(fds, 50)
		if err != nil || ready == 0 {
			continue
		}
		m, err := unix.Read(p.master, buf)
		if err != nil {
			t.Fatalf("pty read: %v", err)
		}
		got = append(got, buf[:m]...)
	}
	return got
}

// hangup simulates unplugging the device.
func (p *ptyPair) hangup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		unix.Close(p.master)
		p.closed = true
	}
}
