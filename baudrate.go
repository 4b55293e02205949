package serterm

import (
	"fmt"
	"strconv"
	"strings"
)

// Baudrate is one of the link speeds offered by the terminal. The zero value
// is not a valid member.
type Baudrate int

const (
	Baud9600 Baudrate = iota + 1
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud460800
	Baud921600
	Baud1000000
)

// DefaultBaudrate is used whenever a stored or requested rate is unknown.
const DefaultBaudrate = Baud115200

var baudrateValues = [...]uint32{
	Baud9600:    9600,
	Baud19200:   19200,
	Baud38400:   38400,
	Baud57600:   57600,
	Baud115200:  115200,
	Baud230400:  230400,
	Baud460800:  460800,
	Baud921600:  921600,
	Baud1000000: 1000000,
}

// Baudrates returns every supported rate in ascending order.
func Baudrates() []Baudrate {
	rates := make([]Baudrate, 0, len(baudrateValues)-1)
	for b := Baud9600; b <= Baud1000000; b++ {
		rates = append(rates, b)
	}
	return rates
}

// Valid reports whether b is a member of the supported set.
func (b Baudrate) Valid() bool {
	return b >= Baud9600 && b <= Baud1000000
}

// Uint32 returns the canonical bits-per-second value, or 0 for an invalid member.
func (b Baudrate) Uint32() uint32 {
	if !b.Valid() {
		return 0
	}
	return baudrateValues[b]
}

// Int is Uint32 as an int, the form accepted by WithBaudRate.
func (b Baudrate) Int() int {
	return int(b.Uint32())
}

// String renders the rate as its decimal value, e.g. "115200".
func (b Baudrate) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Baudrate(%d)", int(b))
	}
	return strconv.FormatUint(uint64(b.Uint32()), 10)
}

// Name returns the member name, e.g. "Baud115200".
func (b Baudrate) Name() string {
	return "Baud" + b.String()
}

// Next returns the following rate, wrapping around to the slowest.
func (b Baudrate) Next() Baudrate {
	if !b.Valid() || b == Baud1000000 {
		return Baud9600
	}
	return b + 1
}

// Prev returns the preceding rate, wrapping around to the fastest.
func (b Baudrate) Prev() Baudrate {
	if !b.Valid() || b == Baud9600 {
		return Baud1000000
	}
	return b - 1
}

// MarshalText stores the rate in its decimal form.
func (b Baudrate) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBaudrate, int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText accepts the decimal form or the member name.
func (b *Baudrate) UnmarshalText(text []byte) error {
	parsed, err := ParseBaudrate(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBaudrate maps "115200" or "Baud115200" to its member.
func ParseBaudrate(s string) (Baudrate, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(s, "Baud")
	v, err := strconv.ParseUint(digits, 10, 32)
	if err == nil {
		if b, ok := BaudrateFromUint32(uint32(v)); ok {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBaudrate, s)
}

// BaudrateFromUint32 finds the member with the given canonical value.
func BaudrateFromUint32(v uint32) (Baudrate, bool) {
	for _, b := range Baudrates() {
		if b.Uint32() == v {
			return b, true
		}
	}
	return 0, false
}

// BaudrateOrDefault parses s and falls back to DefaultBaudrate.
func BaudrateOrDefault(s string) Baudrate {
	b, err := ParseBaudrate(s)
	if err != nil {
		return DefaultBaudrate
	}
	return b
}
