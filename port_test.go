package serterm

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}

	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}

	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}

	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}

	if config.ReadTimeout != 100*time.Millisecond {
		t.Errorf("Expected ReadTimeout 100ms, got %v", config.ReadTimeout)
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	err := WithBaudRate(9600)(&config)
	if err != nil {
		t.Errorf("WithBaudRate failed: %v", err)
	}
	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	err = WithDataBits(7)(&config)
	if err != nil {
		t.Errorf("WithDataBits failed: %v", err)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}

	err = WithStopBits(2)(&config)
	if err != nil {
		t.Errorf("WithStopBits failed: %v", err)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}

	err = WithParity(ParityEven)(&config)
	if err != nil {
		t.Errorf("WithParity failed: %v", err)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}

	err = WithSyncWrite()(&config)
	if err != nil {
		t.Errorf("WithSyncWrite failed: %v", err)
	}
	if config.WriteMode != WriteModeSynced {
		t.Errorf("Expected WriteModeSynced, got %v", config.WriteMode)
	}
}

func TestInvalidBaudRate(t *testing.T) {
	config := DefaultConfig()
	err := WithBaudRate(123456)(&config)
	if err == nil {
		t.Error("Expected error for invalid baud rate")
	}
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestInvalidDataBits(t *testing.T) {
	config := DefaultConfig()
	err := WithDataBits(9)(&config)
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestInvalidStopBits(t *testing.T) {
	config := DefaultConfig()
	err := WithStopBits(3)(&config)
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestTermiosSpeed(t *testing.T) {
	// Every member of the registry must be configurable on the device
	for _, b := range Baudrates() {
		result, err := termiosSpeed(b.Int())
		if err != nil {
			t.Errorf("Unexpected error for baud rate %v: %v", b, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %v", b)
		}
	}

	if _, err := termiosSpeed(123456); err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate for 123456, got %v", err)
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent-serterm")
	if err == nil {
		t.Fatal("Expected error when opening non-existent device")
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOpenNonTerminal(t *testing.T) {
	_, err := Open("/dev/null")
	if !errors.Is(err, ErrNotTerminal) {
		t.Errorf("Expected ErrNotTerminal, got %v", err)
	}
}

func TestOpenRejectsInvalidOption(t *testing.T) {
	_, err := Open("/dev/null", WithBaudRate(123456))
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestPortReadWriteOverPTY(t *testing.T) {
	pty := newPTY(t)

	p, err := Open(pty.slave, WithBaudRate(115200), WithReadTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", pty.slave, err)
	}
	defer p.Close()

	if p.Path() != pty.slave {
		t.Errorf("Path() = %q, want %q", p.Path(), pty.slave)
	}

	// Nothing sent yet: a read is not an error, just empty
	buf := make([]byte, 64)
	n, err := p.Read(buf)
	if err != nil || n != 0 {
		t.Fatalf("Read with no data = (%d, %v), want (0, nil)", n, err)
	}

	pty.write(t, []byte("hello"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err = p.ReadContext(ctx, buf)
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("read %q, want %q", buf[:n], "hello")
	}

	n, err = p.Write([]byte("AT\r\n"))
	if err != nil || n != 4 {
		t.Fatalf("Write = (%d, %v), want (4, nil)", n, err)
	}
	if got := pty.read(t, 4, 2*time.Second); string(got) != "AT\r\n" {
		t.Errorf("device received %q, want %q", got, "AT\r\n")
	}
}

func TestPortHangupIsDeviceGone(t *testing.T) {
	pty := newPTY(t)

	p, err := Open(pty.slave, WithReadTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", pty.slave, err)
	}
	defer p.Close()

	pty.hangup()

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err = p.Read(buf)
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrDeviceGone) {
		t.Errorf("Read after hangup = %v, want ErrDeviceGone", err)
	}
}

func TestPortCloseInterruptsRead(t *testing.T) {
	pty := newPTY(t)

	p, err := Open(pty.slave, WithReadTimeout(MaxReadTimeout))
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", pty.slave, err)
	}

	result := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 16))
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-result:
		if err != ErrPortClosed {
			t.Errorf("interrupted Read = %v, want ErrPortClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read was not interrupted by Close")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close took %v", elapsed)
	}

	if err := p.Close(); err != ErrPortClosed {
		t.Errorf("second Close = %v, want ErrPortClosed", err)
	}
	if _, err := p.Write([]byte("x")); err != ErrPortClosed {
		t.Errorf("Write after Close = %v, want ErrPortClosed", err)
	}
}

func TestOpenExclusive(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("TIOCEXCL does not apply to root")
	}
	pty := newPTY(t)

	p, err := Open(pty.slave)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", pty.slave, err)
	}
	defer p.Close()

	_, err = Open(pty.slave)
	if !errors.Is(err, ErrDeviceInUse) {
		t.Errorf("second Open = %v, want ErrDeviceInUse", err)
	}
}

func TestContextCancelledWrite(t *testing.T) {
	pty := newPTY(t)

	p, err := Open(pty.slave)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", pty.slave, err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.WriteContext(ctx, []byte("test")); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteContext with cancelled context = %v, want context.Canceled", err)
	}
	if _, err := p.ReadContext(ctx, make([]byte, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadContext with cancelled context = %v, want context.Canceled", err)
	}
}
