package rotor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/rotor/rotortest"
)

func newManager(t *testing.T) (*rotor.Manager, *rotortest.Port) {
	t.Helper()
	port := rotortest.NewPort()
	return rotor.NewManager(port.Opener(), 0, 0, nil), port
}

func TestManager_ConnectDisconnect(t *testing.T) {
	mgr, port := newManager(t)
	assert.False(t, mgr.IsConnected())

	require.NoError(t, mgr.Connect("COM7"))
	assert.True(t, mgr.IsConnected())
	assert.Equal(t, "COM7", mgr.PortName())

	require.NoError(t, mgr.Disconnect())
	assert.False(t, mgr.IsConnected())
	assert.True(t, port.Closed())
	assert.Empty(t, mgr.PortName())

	// Idempotent
	assert.NoError(t, mgr.Disconnect())
}

func TestManager_ConnectTwice(t *testing.T) {
	mgr, _ := newManager(t)
	require.NoError(t, mgr.Connect("COM7"))

	err := mgr.Connect("COM8")
	var ce *rotor.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, rotor.ErrAlreadyConnected)
	assert.Equal(t, "COM8", ce.Port)

	// State unchanged
	assert.True(t, mgr.IsConnected())
	assert.Equal(t, "COM7", mgr.PortName())
}

func TestManager_ConnectFailure(t *testing.T) {
	openErr := errors.New("no such device")
	mgr := rotor.NewManager(func(string, int) (rotor.Port, error) {
		return nil, openErr
	}, 0, 0, nil)

	err := mgr.Connect("/dev/ttyUSB9")
	var ce *rotor.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, openErr)
	assert.False(t, mgr.IsConnected())
}

func TestManager_ConnectBusy(t *testing.T) {
	mgr := rotor.NewManager(func(string, int) (rotor.Port, error) {
		return nil, rotor.ErrPortBusy
	}, 0, 0, nil)

	err := mgr.Connect("COM3")
	assert.ErrorIs(t, err, rotor.ErrPortBusy)
	assert.False(t, mgr.IsConnected())
}

func TestManager_OpensAtBaudRate(t *testing.T) {
	var gotBaud int
	port := rotortest.NewPort()
	mgr := rotor.NewManager(func(name string, baud int) (rotor.Port, error) {
		gotBaud = baud
		return port, nil
	}, 0, 0, nil)

	require.NoError(t, mgr.Connect("COM3"))
	assert.Equal(t, rotor.DefaultBaudRate, gotBaud)
}

func TestManager_SendLine(t *testing.T) {
	mgr, port := newManager(t)

	assert.ErrorIs(t, mgr.SendLine([]byte("R:1.0\n")), rotor.ErrNotConnected)
	assert.Empty(t, port.Written())

	require.NoError(t, mgr.Connect("COM3"))
	require.NoError(t, mgr.SendLine([]byte("R:42.5\n")))
	assert.Equal(t, "R:42.5\n", port.Written())

	port.FailWrites()
	err := mgr.SendLine([]byte("R:1.0\n"))
	var ioErr *rotor.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.ErrorIs(t, err, rotortest.ErrInjected)
	assert.True(t, mgr.IsConnected(), "write failure is not fatal")
}

func TestManager_ReadLine(t *testing.T) {
	tests := []struct {
		name  string
		feed  []string
		reads int
		want  []string
	}{
		{"single line", []string{"A:1.5\n"}, 1, []string{"A:1.5\n"}},
		{"timeout", nil, 1, []string{""}},
		{"split across reads", []string{"A:-3", "7.25\n"}, 2, []string{"", "A:-37.25\n"}},
		{"two lines in one read", []string{"A:1\nA:2\n"}, 2, []string{"A:1\n", "A:2\n"}},
		{"garbage then angle", []string{"XYZ\nA:3\n"}, 2, []string{"XYZ\n", "A:3\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, port := newManager(t)
			require.NoError(t, mgr.Connect("COM3"))
			port.Feed(tt.feed...)

			for i := range tt.reads {
				line, err := mgr.ReadLine()
				require.NoError(t, err)
				assert.Equal(t, tt.want[i], string(line), "read %d", i)
			}
		})
	}
}

func TestManager_ReadLine_Errors(t *testing.T) {
	mgr, port := newManager(t)

	_, err := mgr.ReadLine()
	assert.ErrorIs(t, err, rotor.ErrNotConnected)

	require.NoError(t, mgr.Connect("COM3"))
	port.FailReads()

	_, err = mgr.ReadLine()
	var ioErr *rotor.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.True(t, mgr.IsConnected(), "read failure is not fatal")
}

func TestManager_ReadLine_DropsUnterminatedNoise(t *testing.T) {
	mgr, port := newManager(t)
	require.NoError(t, mgr.Connect("COM3"))

	noise := make([]byte, 256)
	for i := range noise {
		noise[i] = 'x'
	}
	for range 20 {
		port.Feed(string(noise))
		line, err := mgr.ReadLine()
		require.NoError(t, err)
		assert.Nil(t, line)
	}

	port.Feed("\nA:9\n")
	line, err := mgr.ReadLine()
	require.NoError(t, err)
	// The remains of the noise are terminated first
	assert.NotEqual(t, "A:9\n", string(line))

	line, err = mgr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "A:9\n", string(line))
}

func TestManager_ReconnectClearsPending(t *testing.T) {
	mgr, port := newManager(t)
	require.NoError(t, mgr.Connect("COM3"))
	port.Feed("A:1")
	_, err := mgr.ReadLine()
	require.NoError(t, err)

	require.NoError(t, mgr.Disconnect())
	require.NoError(t, mgr.Connect("COM3"))
	port.Feed("A:2\n")

	line, err := mgr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "A:2\n", string(line))
}
