package sensor

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cfoust/tiltrun/pkg/config"
	"github.com/cfoust/tiltrun/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLink(t *testing.T) (*Link, chan AngleSample) {
	t.Helper()
	samples := make(chan AngleSample, 64)
	link := NewLink(
		config.SensorSettings{Address: "127.0.0.1", Port: 0},
		SinkFunc(func(sample AngleSample) {
			samples <- sample
		}),
	)
	require.NoError(t, link.Listen())
	return link, samples
}

func serve(t *testing.T, link *Link) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- link.Serve(context.Background())
	}()
	t.Cleanup(link.Shutdown)
	return done
}

func expectState(t *testing.T, sub *utils.Subscriber[Status], state State) Status {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case status := <-sub.Recv():
			if status.State == state {
				return status
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", state)
		}
	}
}

func expectSample(t *testing.T, samples chan AngleSample) AngleSample {
	t.Helper()
	select {
	case sample := <-samples:
		return sample
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sample")
	}
	return AngleSample{}
}

func TestLinkForwardsSamples(t *testing.T) {
	link, samples := newTestLink(t)
	status := link.Status.Subscribe()
	defer status.Done()

	listening := expectState(t, status, StateListening)
	assert.Equal(t, link.Addr().(*net.TCPAddr).Port, listening.Port)

	serve(t, link)

	conn, err := net.Dial("tcp", link.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	expectState(t, status, StateConnected)

	_, err = fmt.Fprint(conn, "abc\n1,2\n\n4.5,0,0\nbad,0,0\n10,0.1,0.2\r\n")
	require.NoError(t, err)

	assert.Equal(t, 4.5, expectSample(t, samples).Degrees)
	assert.Equal(t, 10.0, expectSample(t, samples).Degrees)

	select {
	case sample := <-samples:
		t.Fatalf("unexpected sample %v", sample)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLinkDiscardsOversizedLines(t *testing.T) {
	link, samples := newTestLink(t)
	status := link.Status.Subscribe()
	defer status.Done()

	serve(t, link)

	conn, err := net.Dial("tcp", link.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	expectState(t, status, StateConnected)

	long := strings.Repeat("x", 70*1024)
	_, err = fmt.Fprintf(conn, "%s\n7,0,0\n", long)
	require.NoError(t, err)
	assert.Equal(t, 7.0, expectSample(t, samples).Degrees)

	// exactly one buffer of junk before the newline
	_, err = fmt.Fprintf(conn, "%s\n8,0,0\n", strings.Repeat("9", MAX_LINE_LENGTH))
	require.NoError(t, err)
	assert.Equal(t, 8.0, expectSample(t, samples).Degrees)

	garbage := []byte{0x00, 0xff, 0xfe, ',', 0x01, ',', 0x80, '\n'}
	_, err = conn.Write(append(garbage, []byte("9.5,1,1\n")...))
	require.NoError(t, err)
	assert.Equal(t, 9.5, expectSample(t, samples).Degrees)

	select {
	case s := <-status.Recv():
		t.Fatalf("unexpected status change %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLinkReconnect(t *testing.T) {
	link, samples := newTestLink(t)
	status := link.Status.Subscribe()
	defer status.Done()

	serve(t, link)

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", link.Addr().String())
		require.NoError(t, err)

		expectState(t, status, StateConnected)

		_, err = fmt.Fprintf(conn, "%d,0,0\n", i)
		require.NoError(t, err)
		assert.Equal(t, float64(i), expectSample(t, samples).Degrees)

		require.NoError(t, conn.Close())
		expectState(t, status, StateDisconnected)
	}
}

func TestLinkServesOneConnectionAtATime(t *testing.T) {
	link, samples := newTestLink(t)
	serve(t, link)

	first, err := net.Dial("tcp", link.Addr().String())
	require.NoError(t, err)
	defer first.Close()

	_, err = fmt.Fprint(first, "1,0,0\n")
	require.NoError(t, err)
	assert.Equal(t, 1.0, expectSample(t, samples).Degrees)

	// The second client waits in the backlog until the first leaves.
	second, err := net.Dial("tcp", link.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	_, err = fmt.Fprint(second, "2,0,0\n")
	require.NoError(t, err)

	select {
	case sample := <-samples:
		t.Fatalf("second client was served early: %v", sample)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, first.Close())
	assert.Equal(t, 2.0, expectSample(t, samples).Degrees)
}

func TestLinkShutdown(t *testing.T) {
	link, _ := newTestLink(t)
	status := link.Status.Subscribe()
	defer status.Done()

	done := serve(t, link)

	conn, err := net.Dial("tcp", link.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	expectState(t, status, StateConnected)

	link.Shutdown()
	link.Shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}

	// the active connection was closed from our side
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)

	_, err = net.Dial("tcp", link.Addr().String())
	assert.Error(t, err)
}

func TestLinkStopsOnContextCancel(t *testing.T) {
	link, _ := newTestLink(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- link.Serve(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestLinkBindFailure(t *testing.T) {
	link, _ := newTestLink(t)
	defer link.Shutdown()

	port := link.Addr().(*net.TCPAddr).Port
	other := NewLink(
		config.SensorSettings{Address: "127.0.0.1", Port: port},
		SinkFunc(func(AngleSample) {}),
	)
	assert.Error(t, other.Listen())
}

func TestServeWithoutListen(t *testing.T) {
	link := NewLink(config.SensorSettings{}, SinkFunc(func(AngleSample) {}))
	assert.Error(t, link.Serve(context.Background()))
	assert.Nil(t, link.Addr())
}
