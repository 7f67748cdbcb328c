package control

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/itohio/gowheel/pkg/protocol"
)

const rangeReason = "must be between 0 and 100"

var (
	minResistance = decimal.NewFromFloat(protocol.MinResistance)
	maxResistance = decimal.NewFromFloat(protocol.MaxResistance)
)

// Resistance is a validated resistance command in [0, 100] with one
// decimal place.
type Resistance struct {
	value decimal.Decimal
}

// NewResistance validates v and rounds it to one decimal place.
func NewResistance(v float64) (Resistance, error) {
	if math.IsNaN(v) || v < protocol.MinResistance || v > protocol.MaxResistance {
		return Resistance{}, &ValidationError{Input: strconv.FormatFloat(v, 'g', -1, 64), Reason: rangeReason}
	}
	return Resistance{value: decimal.NewFromFloat(v).Round(1)}, nil
}

// ParseResistance parses user text such as "42.5".
func ParseResistance(text string) (Resistance, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return Resistance{}, &ValidationError{Input: text, Reason: "not a number"}
	}
	if d.LessThan(minResistance) || d.GreaterThan(maxResistance) {
		return Resistance{}, &ValidationError{Input: text, Reason: rangeReason}
	}
	return Resistance{value: d.Round(1)}, nil
}

// Float64 returns the resistance as a float.
func (r Resistance) Float64() float64 {
	f, _ := r.value.Float64()
	return f
}

// String formats the resistance with one decimal place.
func (r Resistance) String() string {
	return r.value.StringFixed(1)
}
