package serterm

import (
	"fmt"
	"time"
)

// WriteMode represents the write synchronization mode
type WriteMode int

const (
	WriteModeBuffered WriteMode = iota // Default: kernel buffers writes
	WriteModeSynced                    // O_SYNC: writes block until hardware transmission
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// MaxReadTimeout bounds how long a single Read may wait for data.
const MaxReadTimeout = 25500 * time.Millisecond

// Config holds the configuration for a serial port
type Config struct {
	BaudRate     int
	DataBits     int
	StopBits     int
	Parity       Parity
	ReadTimeout  time.Duration // how long Read polls before reporting no data
	WriteTimeout time.Duration // how long Write waits for the device to accept bytes, 0 = forever
	WriteMode    WriteMode     // Controls write synchronization behavior
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:     115200,
		DataBits:     8,
		StopBits:     1,
		Parity:       ParityNone,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 2 * time.Second,
		WriteMode:    WriteModeBuffered,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := termiosSpeed(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets how long a Read waits for data. Zero makes Read a
// pure non-blocking check.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > MaxReadTimeout {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout sets how long a Write waits for the device to become writable.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// WithWriteMode sets the write synchronization mode
func WithWriteMode(mode WriteMode) Option {
	return func(c *Config) error {
		c.WriteMode = mode
		return nil
	}
}

// WithSyncWrite enables synchronous writes (O_SYNC) for guaranteed transmission
func WithSyncWrite() Option {
	return WithWriteMode(WriteModeSynced)
}

// ConnectionConfig is the user's port and speed selection. It is what gets
// persisted between runs.
type ConnectionConfig struct {
	Port     string
	Baudrate Baudrate
}

// DefaultConnectionConfig is used when nothing has been stored yet.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{Baudrate: DefaultBaudrate}
}

// Validate checks only what can be known without touching the device.
func (c ConnectionConfig) Validate() error {
	if c.Port == "" {
		return ErrEmptyPort
	}
	if !c.Baudrate.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBaudrate, int(c.Baudrate))
	}
	return nil
}

// Options converts the selection into port options.
func (c ConnectionConfig) Options() []Option {
	return []Option{WithBaudRate(c.Baudrate.Int())}
}

func (c ConnectionConfig) String() string {
	port := c.Port
	if port == "" {
		port = "<none>"
	}
	return fmt.Sprintf("%s @ %s baud", port, c.Baudrate)
}
