package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
	}{
		{"negative angle", "A:-37.25\n", Message{Kind: Angle, Angle: -37.25}},
		{"zero", "A:0", Message{Kind: Angle, Angle: 0}},
		{"crlf", "A:12.5\r\n", Message{Kind: Angle, Angle: 12.5}},
		{"large angle", "A:720.00\n", Message{Kind: Angle, Angle: 720}},
		{"garbage", "XYZ\n", Message{Kind: Unrecognized}},
		{"empty", "", Message{Kind: Unrecognized}},
		{"only newline", "\n", Message{Kind: Unrecognized}},
		{"prefix only", "A:\n", Message{Kind: Unrecognized}},
		{"non numeric", "A:abc\n", Message{Kind: Unrecognized}},
		{"resistance echo", "R:42.5\n", Message{Kind: Unrecognized}},
		{"lowercase prefix", "a:10\n", Message{Kind: Unrecognized}},
		{"nan", "A:NaN\n", Message{Kind: Unrecognized}},
		{"inf", "A:+Inf\n", Message{Kind: Unrecognized}},
		{"trailing junk", "A:1.0x\n", Message{Kind: Unrecognized}},
		{"invalid utf8", "A:\xff\xfe\n", Message{Kind: Unrecognized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.line))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeResistance(t *testing.T) {
	tests := []struct {
		value   float64
		want    string
		wantErr bool
	}{
		{42.5, "R:42.5\n", false},
		{0, "R:0.0\n", false},
		{100, "R:100.0\n", false},
		{7, "R:7.0\n", false},
		{33.333, "R:33.3\n", false},
		{150, "", true},
		{-0.1, "", true},
		{math.NaN(), "", true},
		{math.Inf(1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := EncodeResistance(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeResistance_RoundTrip(t *testing.T) {
	for tenths := 0; tenths <= 1000; tenths++ {
		r := float64(tenths) / 10
		line, err := EncodeResistance(r)
		require.NoError(t, err)

		got, err := ParseResistance(line)
		require.NoError(t, err)
		assert.InDelta(t, r, got, 1e-9, "resistance %v", r)
	}
}

func TestParseResistance_Malformed(t *testing.T) {
	for _, line := range []string{"", "A:1.0", "R:", "R:x", "42.5"} {
		_, err := ParseResistance([]byte(line))
		assert.ErrorIs(t, err, ErrUnrecognized, "line %q", line)
	}
}
