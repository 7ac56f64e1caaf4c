package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/cfoust/tiltrun/pkg/config"
	"github.com/cfoust/tiltrun/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"
)

const (
	ACCEPT_BACKOFF = 100 * time.Millisecond
	// Longer lines are discarded without closing the connection.
	MAX_LINE_LENGTH = 4096
	// At most this many discarded lines are logged per second.
	DISCARD_LOG_RATE = 5
)

// Sink receives every sample parsed from the active connection.
type Sink interface {
	HandleSample(sample AngleSample)
}

type SinkFunc func(sample AngleSample)

func (f SinkFunc) HandleSample(sample AngleSample) {
	f(sample)
}

// Link accepts sensor connections one at a time and forwards the samples they
// send to a Sink. Transport errors never stop it; it goes back to accepting
// until Shutdown is called.
type Link struct {
	settings config.SensorSettings
	sink     Sink
	Status   *utils.Topic[Status]

	log      zerolog.Logger
	discards *rate.Limiter

	listener net.Listener
	closed   atomic.Bool
	stopCh   chan struct{}

	mutex  deadlock.Mutex
	active net.Conn
}

func NewLink(settings config.SensorSettings, sink Sink) *Link {
	return &Link{
		settings: settings,
		sink:     sink,
		Status:   utils.NewTopic[Status](),
		log:      log.With().Str("component", "sensor").Logger(),
		discards: rate.NewLimiter(rate.Every(time.Second/DISCARD_LOG_RATE), DISCARD_LOG_RATE),
		stopCh:   make(chan struct{}),
	}
}

// Listen binds the listening socket. Failing to bind is fatal to the caller;
// there is no retry.
func (l *Link) Listen() error {
	address := net.JoinHostPort(l.settings.Address, fmt.Sprint(l.settings.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to bind sensor port %s: %w", address, err)
	}

	l.listener = listener

	port := l.settings.Port
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	status := Listening(hostAddress(), port)
	l.log.Info().Str("address", listener.Addr().String()).Msg(status.String())
	l.Status.Publish(status)
	return nil
}

// Addr is the address the link is bound to, or nil before Listen.
func (l *Link) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Serve accepts and serves connections until ctx is cancelled or Shutdown is
// called.
func (l *Link) Serve(ctx context.Context) error {
	if l.listener == nil {
		return fmt.Errorf("sensor link is not listening")
	}

	go func() {
		select {
		case <-ctx.Done():
			l.Shutdown()
		case <-l.stopCh:
		}
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			l.log.Warn().Err(err).Msg("failed to accept sensor connection")
			select {
			case <-l.stopCh:
				return nil
			case <-time.After(ACCEPT_BACKOFF):
			}
			continue
		}

		l.handle(ctx, conn)
	}
}

func (l *Link) setActive(conn net.Conn) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if conn != nil && l.closed.Load() {
		return false
	}

	l.active = conn
	return true
}

// handle reads from one connection until it fails or is closed.
func (l *Link) handle(ctx context.Context, conn net.Conn) {
	if !l.setActive(conn) {
		conn.Close()
		return
	}

	session := utils.NewSession(ctx, conn.RemoteAddr().String())
	logger := l.log.With().Str("remote", session.Name()).Logger()

	defer func() {
		session.Cancel()
		conn.Close()
		l.setActive(nil)

		logger.Info().Dur("duration", session.Age()).Msg("sensor disconnected")
		l.Status.Publish(Disconnected())
	}()

	logger.Info().Msg("sensor connected")
	l.Status.Publish(Connected(session.Name()))

	reader := bufio.NewReaderSize(conn, MAX_LINE_LENGTH)
	tooLong := false
	for {
		line, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// drop the rest of the line once it overflows the buffer
			tooLong = true
			continue
		}

		if len(line) > 0 {
			if tooLong {
				l.discard(logger, fmt.Errorf(
					"%w: line longer than %d bytes",
					ErrMalformed,
					MAX_LINE_LENGTH,
				))
			} else {
				l.accept(logger, string(line))
			}
		}
		tooLong = false

		if err != nil {
			if !errors.Is(err, io.EOF) && !l.closed.Load() {
				logger.Warn().Err(err).Msg("sensor read failed")
			}
			return
		}
	}
}

func (l *Link) accept(logger zerolog.Logger, line string) {
	sample, err := ParseSample(line, time.Now())
	if err != nil {
		l.discard(logger, err)
		return
	}

	l.sink.HandleSample(sample)
}

func (l *Link) discard(logger zerolog.Logger, err error) {
	if l.discards.Allow() {
		logger.Debug().Err(err).Msg("discarded sensor line")
	}
}

// Shutdown stops accepting, closes the active connection and releases the
// listening socket. It is safe to call more than once and from any goroutine.
func (l *Link) Shutdown() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}

	close(l.stopCh)

	if l.listener != nil {
		l.listener.Close()
	}

	l.mutex.Lock()
	if l.active != nil {
		l.active.Close()
	}
	l.mutex.Unlock()
}
