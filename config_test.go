package serterm

import (
	"errors"
	"testing"
	"time"
)

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"150ms (valid)", 150 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestConnectionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ConnectionConfig
		wantErr error
	}{
		{"valid", ConnectionConfig{Port: "/dev/ttyUSB0", Baudrate: Baud9600}, nil},
		{"empty port", ConnectionConfig{Baudrate: Baud115200}, ErrEmptyPort},
		{"zero baudrate", ConnectionConfig{Port: "COM3"}, ErrUnknownBaudrate},
		{"out of range baudrate", ConnectionConfig{Port: "COM3", Baudrate: Baudrate(42)}, ErrUnknownBaudrate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConnectionConfig(t *testing.T) {
	c := DefaultConnectionConfig()
	if c.Port != "" {
		t.Errorf("Port = %q, want empty", c.Port)
	}
	if c.Baudrate != Baud115200 {
		t.Errorf("Baudrate = %v, want 115200", c.Baudrate)
	}
	if got := c.String(); got != "<none> @ 115200 baud" {
		t.Errorf("String() = %q", got)
	}
}

func TestConnectionConfigOptions(t *testing.T) {
	config := DefaultConfig()
	for _, opt := range (ConnectionConfig{Port: "COM1", Baudrate: Baud921600}).Options() {
		if err := opt(&config); err != nil {
			t.Fatalf("option failed: %v", err)
		}
	}
	if config.BaudRate != 921600 {
		t.Errorf("BaudRate = %d, want 921600", config.BaudRate)
	}
}
