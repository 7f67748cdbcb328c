package rotor_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/rotor/rotortest"
)

func startLink(t *testing.T) (*rotor.Link, *rotortest.Port, context.CancelFunc) {
	t.Helper()
	port := rotortest.NewPort()
	link := rotor.NewLink(rotor.NewManager(port.Opener(), 0, 0, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go link.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-link.Done()
	})
	return link, port, cancel
}

func TestLink_Lifecycle(t *testing.T) {
	link, port, _ := startLink(t)
	ctx := context.Background()

	assert.ErrorIs(t, link.SendLine(ctx, []byte("R:1.0\n")), rotor.ErrNotConnected)

	require.NoError(t, link.Connect(ctx, "COM3"))
	assert.True(t, link.IsConnected())
	assert.Equal(t, "COM3", link.PortName())

	assert.ErrorIs(t, link.Connect(ctx, "COM4"), rotor.ErrAlreadyConnected)

	require.NoError(t, link.SendLine(ctx, []byte("R:42.5\n")))
	assert.Equal(t, "R:42.5\n", port.Written())

	port.Feed("A:-37.25\n")
	line, err := link.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A:-37.25\n", string(line))

	require.NoError(t, link.Disconnect(ctx))
	assert.False(t, link.IsConnected())
	require.NoError(t, link.Disconnect(ctx))
}

func TestLink_SerializesConcurrentSends(t *testing.T) {
	link, port, _ := startLink(t)
	ctx := context.Background()
	require.NoError(t, link.Connect(ctx, "COM3"))

	const writers, perWriter = 4, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				line := fmt.Sprintf("R:%d.%d\n", w, i%10)
				assert.NoError(t, link.SendLine(ctx, []byte(line)))
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(port.Written(), "\n"), "\n")
	assert.Len(t, lines, writers*perWriter)
	for _, l := range lines {
		assert.Regexp(t, `^R:\d\.\d$`, l, "lines must never interleave")
	}
}

func TestLink_ClosedAfterCancel(t *testing.T) {
	link, port, cancel := startLink(t)
	require.NoError(t, link.Connect(context.Background(), "COM3"))

	cancel()
	select {
	case <-link.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("link did not stop")
	}

	assert.True(t, port.Closed(), "connection is released on teardown")
	assert.False(t, link.IsConnected())
	assert.ErrorIs(t, link.SendLine(context.Background(), []byte("R:1.0\n")), rotor.ErrLinkClosed)
}

func TestLink_RequestHonorsContext(t *testing.T) {
	// Never started, so no request is ever served
	link := rotor.NewLink(rotor.NewManager(rotortest.NewPort().Opener(), 0, 0, nil), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := link.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
