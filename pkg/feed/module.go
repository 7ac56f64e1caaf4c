// Package feed streams game frames and sensor status to remote displays over
// websockets, and lets them request a restart.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cfoust/tiltrun/pkg/game"
	"github.com/cfoust/tiltrun/pkg/sensor"
	"github.com/cfoust/tiltrun/pkg/utils"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"nhooyr.io/websocket"
)

const (
	CLIENT_MESSAGE_LIMIT = 16
	WRITE_TIMEOUT        = 5 * time.Second
)

type client struct {
	host      string
	send      chan []byte
	closeSlow func()
	goAway    func()
}

type Feed struct {
	restart func()

	clients    map[*client]struct{}
	lastStatus []byte
	mutex      deadlock.Mutex

	listener   net.Listener
	httpServer *http.Server
	log        zerolog.Logger
}

// New returns a feed. onRestart is called whenever a display asks for a
// restart.
func New(onRestart func()) *Feed {
	return &Feed{
		restart: onRestart,
		clients: make(map[*client]struct{}),
		log:     log.With().Str("component", "feed").Logger(),
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func (f *Feed) addClient(c *client) {
	f.mutex.Lock()
	f.clients[c] = struct{}{}
	if f.lastStatus != nil {
		c.send <- f.lastStatus
	}
	f.mutex.Unlock()
}

func (f *Feed) removeClient(c *client) {
	f.mutex.Lock()
	delete(f.clients, c)
	f.mutex.Unlock()
}

func (f *Feed) NumClients() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.clients)
}

// Broadcast queues a message for every client. Clients that cannot keep up
// are disconnected.
func (f *Feed) Broadcast(msg []byte) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for client := range f.clients {
		select {
		case client.send <- msg:
		default:
			go client.closeSlow()
		}
	}
}

// Render implements game.Renderer.
func (f *Feed) Render(frame game.Frame) {
	if f.NumClients() == 0 {
		return
	}

	bytes, err := cbor.Marshal(NewFrameMessage(frame))
	if err != nil {
		f.log.Error().Err(err).Msg("could not encode frame")
		return
	}

	f.Broadcast(bytes)
}

func (f *Feed) PublishStatus(status sensor.Status) {
	bytes, err := cbor.Marshal(NewStatusMessage(status))
	if err != nil {
		f.log.Error().Err(err).Msg("could not encode status")
		return
	}

	f.mutex.Lock()
	f.lastStatus = bytes
	f.mutex.Unlock()

	f.Broadcast(bytes)
}

// WatchStatus forwards sensor status changes until ctx is done.
func (f *Feed) WatchStatus(ctx context.Context, topic *utils.Topic[sensor.Status]) {
	subscriber := topic.Subscribe()
	defer subscriber.Done()

	for {
		select {
		case status := <-subscriber.Recv():
			f.PublishStatus(status)
		case <-ctx.Done():
			return
		}
	}
}

func (f *Feed) handleMessage(logger zerolog.Logger, msg []byte) {
	var generic GenericMessage
	if err := cbor.Unmarshal(msg, &generic); err != nil {
		logger.Debug().Err(err).Msg("ignoring undecodable message")
		return
	}

	switch generic.Op {
	case RestartOp:
		logger.Info().Msg("display requested restart")
		if f.restart != nil {
			f.restart()
		}
	default:
		logger.Debug().Str("op", generic.Op).Msg("ignoring unknown message")
	}
}

func (f *Feed) HandleClient(ctx context.Context, c *websocket.Conn, host string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := &client{
		host: host,
		send: make(chan []byte, CLIENT_MESSAGE_LIMIT),
	}
	client.closeSlow = func() {
		c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
	}
	client.goAway = func() {
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}

	f.addClient(client)
	defer f.removeClient(client)

	logger := f.log.With().Str("host", host).Logger()
	logger.Info().Msg("display joined")

	receive := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			typ, message, err := c.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			if typ != websocket.MessageBinary {
				continue
			}

			select {
			case receive <- message:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case msg := <-receive:
			f.handleMessage(logger, msg)
		case msg := <-client.send:
			err := WriteTimeout(ctx, WRITE_TIMEOUT, c, msg)
			if err != nil {
				logger.Warn().Err(err).Msg("display missed write timeout; disconnecting")
				return err
			}
		case err := <-readErr:
			logger.Info().Msg("display left")
			return err
		case <-ctx.Done():
			logger.Info().Msg("display left")
			return ctx.Err()
		}
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})

	if err != nil {
		f.log.Error().Err(err).Msg("error accepting display connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during feed")

	hostname := r.RemoteAddr
	if original, ok := r.Header["X-Forwarded-For"]; ok {
		hostname = original[0]
	}

	err = f.HandleClient(r.Context(), c, hostname)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		f.log.Debug().Err(err).Msg("display connection closed")
	}
}

// Listen binds the feed's HTTP port.
func (f *Feed) Listen(address string, port int) error {
	listen, err := net.Listen("tcp", net.JoinHostPort(address, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("failed to bind feed port: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", f)

	f.listener = listen
	f.httpServer = &http.Server{
		Handler: mux,
	}

	f.log.Info().Msgf("feed listening on ws://%v/ws", listen.Addr())
	return nil
}

func (f *Feed) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Serve handles displays until Shutdown is called.
func (f *Feed) Serve() error {
	if f.httpServer == nil {
		return fmt.Errorf("feed is not listening")
	}

	err := f.httpServer.Serve(f.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting displays and disconnects the ones that are
// connected.
func (f *Feed) Shutdown(ctx context.Context) {
	if f.httpServer == nil {
		return
	}
	f.httpServer.Shutdown(ctx)

	f.mutex.Lock()
	for client := range f.clients {
		go client.goAway()
	}
	f.mutex.Unlock()
}
