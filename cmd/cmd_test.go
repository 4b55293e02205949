package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/serterm"
)

func TestFilterPorts(t *testing.T) {
	ports := []serterm.PortDescriptor{
		{Name: "ttyUSB0"}, {Name: "ttyACM1"}, {Name: "ttyS0"}, {Name: "ttySAC0"}, {Name: "ttyAMA0"},
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"ttyUSB0", "ttyACM1", "ttyS0", "ttySAC0", "ttyAMA0"}},
		{"all", []string{"ttyUSB0", "ttyACM1", "ttyS0", "ttySAC0", "ttyAMA0"}},
		{"usb", []string{"ttyUSB0", "ttyACM1"}},
		{"USB", []string{"ttyUSB0", "ttyACM1"}},
		{"standard", []string{"ttyS0"}},
		{"arm", []string{"ttyAMA0"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := filterPorts(ports, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	_, err := filterPorts(ports, "bluetooth")
	assert.Error(t, err)
}

func TestGetPortType(t *testing.T) {
	assert.Equal(t, "USB Serial", getPortType("ttyUSB0"))
	assert.Equal(t, "USB CDC/ACM", getPortType("ttyACM0"))
	assert.Equal(t, "Samsung Serial", getPortType("ttySAC2"))
	assert.Equal(t, "Standard Serial", getPortType("ttyS1"))
	assert.Equal(t, "Serial Port", getPortType("rfcomm0"))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]serterm.PortDescriptor{
		{Name: "ttyUSB0", Path: "/dev/ttyUSB0", Description: "FT232R", VendorID: "0403", ProductID: "6001"},
	})
	assert.Contains(t, out, "Found 1 serial port(s)")
	assert.Contains(t, out, "0403:6001")
	assert.Contains(t, out, "FT232R")
}

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		hex     bool
		newline bool
		want    string
		wantErr bool
	}{
		{"text", "AT", false, false, "AT", false},
		{"newline", "AT", false, true, "AT\n", false},
		{"hex", "41 54 0d", true, false, "AT\r", false},
		{"hex ignores newline", "41", true, true, "A", false},
		{"bad hex", "4", true, false, "", true},
		{"empty", "", false, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPayload(tt.data, tt.hex, tt.newline)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestReadInputFromPipe(t *testing.T) {
	got, err := readInput(strings.NewReader("AT+GMR\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "AT+GMR", got)
}

func lineCommand(args ...string) *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().StringP("baud", "b", "", "")
	addLineFlags(c)
	_ = c.ParseFlags(args)
	return c
}

func TestLineOptions(t *testing.T) {
	opts, line, err := lineOptions(lineCommand())
	require.NoError(t, err)
	assert.Len(t, opts, 4)
	assert.Equal(t, "8N1", line.String())
	cfg := applyOptions(t, opts)
	assert.Equal(t, serterm.DefaultConfig().WriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, serterm.WriteModeBuffered, cfg.WriteMode)

	opts, _, err = lineOptions(lineCommand("--write-timeout", "500ms", "--sync"))
	require.NoError(t, err)
	cfg = applyOptions(t, opts)
	assert.Equal(t, 500*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, serterm.WriteModeSynced, cfg.WriteMode)

	_, _, err = lineOptions(lineCommand("--write-timeout=-1s"))
	assert.ErrorIs(t, err, serterm.ErrInvalidConfig)

	_, line, err = lineOptions(lineCommand("--data-bits", "7", "--parity", "even", "--stop-bits", "2"))
	require.NoError(t, err)
	assert.Equal(t, "7E2", line.String())

	_, _, err = lineOptions(lineCommand("--parity", "mark"))
	assert.ErrorIs(t, err, serterm.ErrInvalidConfig)

	_, _, err = lineOptions(lineCommand("--data-bits", "9"))
	assert.Error(t, err)
}

func applyOptions(t *testing.T, opts []serterm.Option) serterm.Config {
	t.Helper()
	cfg := serterm.DefaultConfig()
	for _, opt := range opts {
		require.NoError(t, opt(&cfg))
	}
	return cfg
}

func TestBaudFlag(t *testing.T) {
	baud, err := baudFlag(lineCommand(), serterm.Baud57600)
	require.NoError(t, err)
	assert.Equal(t, serterm.Baud57600, baud, "stored rate used when the flag is absent")

	baud, err = baudFlag(lineCommand("--baud", "9600"), serterm.Baud57600)
	require.NoError(t, err)
	assert.Equal(t, serterm.Baud9600, baud)

	_, err = baudFlag(lineCommand("--baud", "12345"), serterm.Baud57600)
	assert.ErrorIs(t, err, serterm.ErrUnknownBaudrate)
}

func TestHexWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &hexWriter{w: &buf}
	n, err := w.Write([]byte("OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "4F 4B 0D 0A  OK..\n", buf.String())
}

// scriptedPort plays back chunks, then reports the device as gone.
type scriptedPort struct {
	chunks chan []byte

	mu      sync.Mutex
	written []byte
	drained int // bytes written before the last Drain
	closed  bool
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	select {
	case data, ok := <-p.chunks:
		if !ok {
			return 0, serterm.ErrDeviceGone
		}
		return copy(buf, data), nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *scriptedPort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return p.Read(buf)
}

func (p *scriptedPort) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

func (p *scriptedPort) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, data...)
	return len(data), nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedPort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drained = len(p.written)
	return nil
}

func (p *scriptedPort) FlushInput() error  { return nil }
func (p *scriptedPort) FlushOutput() error { return nil }
func (p *scriptedPort) Path() string       { return "/dev/ttyUSB0" }

func scriptedSession(port *scriptedPort) *serterm.Session {
	return serterm.New(serterm.WithOpener(func(path string, opts ...serterm.Option) (serterm.Port, error) {
		return port, nil
	}))
}

func TestListenUntilDeviceGone(t *testing.T) {
	port := &scriptedPort{chunks: make(chan []byte, 4)}
	port.chunks <- []byte("boot ")
	port.chunks <- []byte("ok\n")
	close(port.chunks)

	session := scriptedSession(port)
	defer session.Close()

	var out bytes.Buffer
	err := listen(context.Background(), session, serterm.ConnectionConfig{Port: "/dev/ttyUSB0", Baudrate: serterm.Baud9600}, &out)
	assert.ErrorIs(t, err, serterm.ErrIOFault)
	assert.ErrorIs(t, err, serterm.ErrDeviceGone)
	assert.Equal(t, "boot ok\n", out.String())
}

func TestListenInterrupted(t *testing.T) {
	port := &scriptedPort{chunks: make(chan []byte, 1)}
	session := scriptedSession(port)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := listen(ctx, session, serterm.ConnectionConfig{Port: "/dev/ttyUSB0", Baudrate: serterm.Baud9600}, &out)
	assert.NoError(t, err)
}

func TestListenOpenFailure(t *testing.T) {
	session := serterm.New()
	defer session.Close()

	var out bytes.Buffer
	err := listen(context.Background(), session, serterm.ConnectionConfig{Baudrate: serterm.Baud9600}, &out)
	assert.ErrorIs(t, err, serterm.ErrEmptyPort)
}

func TestSendData(t *testing.T) {
	port := &scriptedPort{chunks: make(chan []byte)}
	session := scriptedSession(port)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := sendData(ctx, &out, session, serterm.ConnectionConfig{Port: "/dev/ttyUSB0", Baudrate: serterm.Baud115200}, []byte("AT\r\n"))
	require.NoError(t, err)

	port.mu.Lock()
	assert.Equal(t, "AT\r\n", string(port.written))
	assert.Equal(t, 4, port.drained, "the device drained the payload before the report")
	port.mu.Unlock()
	assert.Contains(t, out.String(), "Sent 4 bytes: AT..")
}

func TestSendDataOpenFailure(t *testing.T) {
	session := serterm.New(serterm.WithOpener(func(path string, opts ...serterm.Option) (serterm.Port, error) {
		return nil, serterm.ErrPermissionDenied
	}))
	defer session.Close()

	var out bytes.Buffer
	err := sendData(context.Background(), &out, session, serterm.ConnectionConfig{Port: "/dev/ttyUSB0", Baudrate: serterm.Baud115200}, []byte("AT"))
	assert.ErrorIs(t, err, serterm.ErrConnectionOpen)
	assert.ErrorIs(t, err, serterm.ErrPermissionDenied)
}

func TestStateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"state", "--state", path, "--log-file", "none"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "<none> @ 115200 baud")

	out.Reset()
	rootCmd.SetArgs([]string{"state", "--state", path, "--log-file", "none", "--reset"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Removed "+path)
}
