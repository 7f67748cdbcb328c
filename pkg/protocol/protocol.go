package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// AnglePrefix starts every telemetry line sent by the peripheral.
	AnglePrefix = "A:"
	// ResistancePrefix starts every resistance command sent to the peripheral.
	ResistancePrefix = "R:"

	// MinResistance and MaxResistance bound a resistance command.
	MinResistance = 0.0
	MaxResistance = 100.0
)

var (
	// ErrUnrecognized marks a line that is not valid telemetry.
	ErrUnrecognized = errors.New("unrecognized line")
	// ErrOutOfRange is returned when a resistance is outside [0, 100] or not finite.
	ErrOutOfRange = errors.New("resistance out of range")
)

// Kind classifies a decoded line.
type Kind int

const (
	// Unrecognized is any line that is not a valid angle report.
	Unrecognized Kind = iota
	// Angle is an "A:<degrees>" report.
	Angle
)

func (k Kind) String() string {
	switch k {
	case Angle:
		return "angle"
	default:
		return "unrecognized"
	}
}

// Message is a decoded peripheral line.
type Message struct {
	Kind  Kind
	Angle float64 // Shaft angle in degrees, valid when Kind == Angle
}

// Decode parses one raw line from the peripheral.
// Format: A:<angle>\n, e.g. "A:-37.25\n". Anything else is Unrecognized.
func Decode(line []byte) Message {
	line = bytes.TrimSpace(line)
	if !utf8.Valid(line) || !bytes.HasPrefix(line, []byte(AnglePrefix)) {
		return Message{Kind: Unrecognized}
	}

	v, err := strconv.ParseFloat(string(line[len(AnglePrefix):]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Message{Kind: Unrecognized}
	}

	return Message{Kind: Angle, Angle: v}
}

// FormatResistance formats a resistance with exactly one fractional digit.
func FormatResistance(r float64) string {
	return decimal.NewFromFloat(r).StringFixed(1)
}

// EncodeResistance builds the command line R:<resistance>\n.
// The value must already be validated; out of range input is still refused
// so that no malformed command can reach the wire.
func EncodeResistance(r float64) ([]byte, error) {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < MinResistance || r > MaxResistance {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, r)
	}

	buf := make([]byte, 0, len(ResistancePrefix)+6)
	buf = append(buf, ResistancePrefix...)
	buf = append(buf, FormatResistance(r)...)
	buf = append(buf, '\n')
	return buf, nil
}

// ParseResistance parses the payload of a command line produced by EncodeResistance.
// Used by the simulated peripheral.
func ParseResistance(line []byte) (float64, error) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, []byte(ResistancePrefix)) {
		return 0, ErrUnrecognized
	}
	v, err := strconv.ParseFloat(string(line[len(ResistancePrefix):]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	return v, nil
}
