package control

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/rotor"
)

var _ rotor.Channel = (*fakeChannel)(nil)

type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	lines     []string
}

func (f *fakeChannel) SendLine(_ context.Context, line []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lines = append(f.lines, string(line))
	return nil
}

func (f *fakeChannel) ReadLine(context.Context) ([]byte, error) { return nil, nil }

func (f *fakeChannel) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"manual", Manual, false},
		{"AUTO", Auto, false},
		{" auto ", Auto, false},
		{"", Manual, true},
		{"turbo", Manual, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Text(t *testing.T) {
	b, err := Auto.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "auto", string(b))

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("Auto")))
	assert.Equal(t, Auto, m)
	assert.Error(t, m.UnmarshalText([]byte("nope")))

	_, err = Mode(7).MarshalText()
	assert.Error(t, err)
}

func TestNewResistance(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		want    string
		wantErr bool
	}{
		{"zero", 0, "0.0", false},
		{"max", 100, "100.0", false},
		{"one decimal", 42.5, "42.5", false},
		{"rounds", 42.46, "42.5", false},
		{"negative", -0.1, "", true},
		{"too large", 150, "", true},
		{"nan", math.NaN(), "", true},
		{"infinity", math.Inf(1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResistance(tt.input)
			if tt.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
		})
	}
}

func TestParseResistance(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"42.5", 42.5, false},
		{" 7 ", 7, false},
		{"100", 100, false},
		{"0.04", 0, false},
		{"abc", 0, true},
		{"", 0, true},
		{"150", 0, true},
		{"-1", 0, true},
		{"NaN", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseResistance(tt.input)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.input, verr.Input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Float64())
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	ch := &fakeChannel{connected: true}
	d := NewDispatcher(ch, nil)

	_, ok := d.Last()
	assert.False(t, ok)

	r, err := d.Dispatch(context.Background(), 42.5)
	require.NoError(t, err)
	assert.Equal(t, "42.5", r.String())
	assert.Equal(t, []string{"R:42.5\n"}, ch.written())

	last, ok := d.Last()
	assert.True(t, ok)
	assert.Equal(t, r, last)
}

func TestDispatcher_RejectsOutOfRange(t *testing.T) {
	ch := &fakeChannel{connected: true}
	d := NewDispatcher(ch, nil)

	_, err := d.Dispatch(context.Background(), 150)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, ch.written(), "no bytes may be written")

	_, err = d.DispatchText(context.Background(), "abc")
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, ch.written())
}

func TestDispatcher_NotConnected(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDispatcher(ch, nil)

	_, err := d.DispatchText(context.Background(), "10")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, ch.written())

	// Validation comes first
	_, err = d.DispatchText(context.Background(), "500")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDispatcher_SendFailure(t *testing.T) {
	injected := &rotor.IoError{Op: "write", Err: errors.New("cable pulled")}
	ch := &fakeChannel{connected: true, sendErr: injected}
	d := NewDispatcher(ch, nil)

	_, err := d.Dispatch(context.Background(), 10)
	var ioErr *rotor.IoError
	assert.ErrorAs(t, err, &ioErr)

	_, ok := d.Last()
	assert.False(t, ok, "failed sends are not recorded")
}

func TestState(t *testing.T) {
	s := NewState(DefaultControls(&config.Default().ForceFeedback))

	c := s.Load()
	assert.Equal(t, Manual, c.Mode)
	assert.True(t, c.Enabled)
	assert.Equal(t, 1.0, c.Gain)
	assert.Equal(t, 5.0, c.Deadzone)

	require.NoError(t, s.SetMode(Auto))
	require.NoError(t, s.SetEnabled(false))
	require.NoError(t, s.SetTuning(1.5, 10))

	c = s.Load()
	assert.Equal(t, Controls{Mode: Auto, Enabled: false, Gain: 1.5, Deadzone: 10}, c)

	var verr *ValidationError
	assert.ErrorAs(t, s.SetTuning(5, 10), &verr)
	assert.ErrorAs(t, s.SetTuning(1, 50), &verr)
	assert.ErrorAs(t, s.SetMode(Mode(9)), &verr)
	assert.ErrorAs(t, s.Store(Controls{Mode: Auto, Gain: 0}), &verr)
	assert.Equal(t, c, s.Load(), "rejected updates leave state unchanged")
}

func TestState_ConsistentSnapshots(t *testing.T) {
	s := NewState(Controls{Mode: Manual, Enabled: false, Gain: 1, Deadzone: 5})

	// Writers flip mode and enabled together; readers must never see a mix
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		on := false
		for {
			select {
			case <-stop:
				return
			default:
			}
			on = !on
			mode := Manual
			if on {
				mode = Auto
			}
			assert.NoError(t, s.Store(Controls{Mode: mode, Enabled: on, Gain: 1, Deadzone: 5}))
		}
	}()

	for range 10000 {
		c := s.Load()
		assert.Equal(t, c.Mode == Auto, c.Enabled)
	}
	close(stop)
	wg.Wait()
}

func TestDefaultControls_BadMode(t *testing.T) {
	cfg := config.Default().ForceFeedback
	cfg.Mode = "???"
	assert.Equal(t, Manual, DefaultControls(&cfg).Mode)
}
