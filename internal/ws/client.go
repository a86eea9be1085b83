package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

const (
	defaultPingPeriod = 25 * time.Second
	defaultWriteWait  = 10 * time.Second
	defaultQueueSize  = 64
)

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithHeader(header http.Header) Option {
	return func(c *Client) {
		c.header = header.Clone()
	}
}

// WithPingPeriod sets the keepalive interval. The read deadline is twice the
// period.
func WithPingPeriod(period time.Duration) Option {
	return func(c *Client) {
		if period > 0 {
			c.pingPeriod = period
		}
	}
}

// WithBackOff sets the reconnect policy. The factory is called once per
// Connect; returning backoff.Stop from NextBackOff gives up reconnecting.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

func WithQueueSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// Client owns the single live channel of a session. Inbound handlers run one
// at a time on the read goroutine, in the order the transport delivers
// frames. Handlers must not call Disconnect.
type Client struct {
	url        string
	dialer     *websocket.Dialer
	header     http.Header
	logger     *zap.Logger
	pingPeriod time.Duration
	writeWait  time.Duration
	queueSize  int
	newBackOff func() backoff.BackOff

	handlers *Registry

	mu         sync.Mutex
	state      State
	identity   *models.Identity
	info       ConnInfo
	send       chan []byte
	cancel     context.CancelFunc
	done       chan struct{}
	rooms      []string
	roomSet    map[string]struct{}
	stateHooks []func(State)
}

// NewClient builds a disconnected client for the websocket url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		dialer:     websocket.DefaultDialer,
		logger:     zap.NewNop(),
		pingPeriod: defaultPingPeriod,
		writeWait:  defaultWriteWait,
		queueSize:  defaultQueueSize,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
		roomSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "ws"))
	c.handlers = NewRegistry(c.logger)
	return c
}

// Connect opens the channel for identity and returns immediately; dialing,
// the setup handshake and reconnects happen in the background. Calling it
// again for the same identity while a channel is open is a no-op. A different
// identity replaces the current channel.
func (c *Client) Connect(ctx context.Context, identity models.Identity) error {
	if !identity.Valid() {
		return ErrInvalidIdentity
	}

	c.mu.Lock()
	if c.cancel != nil {
		same := c.identity != nil && c.identity.ID == identity.ID
		c.mu.Unlock()
		if same {
			return nil
		}
		if err := c.Disconnect(); err != nil {
			return err
		}
		c.mu.Lock()
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := identity
	c.identity = &id
	c.cancel = cancel
	c.done = make(chan struct{})
	c.send = make(chan []byte, c.queueSize)
	done, send := c.done, c.send
	c.mu.Unlock()

	c.setState(StateConnecting)
	go c.run(runCtx, identity, send, done)
	return nil
}

// Disconnect closes the channel and waits for its goroutines. Joined rooms are
// forgotten. Registered handlers stay registered; their owners remove them
// with Off.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	info := c.info
	c.cancel = nil
	c.done = nil
	c.identity = nil
	c.rooms = nil
	c.roomSet = make(map[string]struct{})
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	c.setState(StateDisconnected)
	publishLifecycle(info, "ws_disconnect", "client closed")
	c.logger.Info("channel closed", zap.String("conn_id", info.ConnID))
	return nil
}

// Emit sends an event without waiting for delivery. It returns false and
// drops the event when the channel is not connected or the outbound queue is
// full.
func (c *Client) Emit(event string, payload interface{}) bool {
	c.mu.Lock()
	state, send := c.state, c.send
	c.mu.Unlock()

	if state != StateConnected || send == nil {
		observability.IncWSDroppedEmit(event)
		c.logger.Debug("emit dropped", zap.String("event", event), zap.Stringer("state", state))
		return false
	}
	return c.enqueue(send, event, payload)
}

func (c *Client) enqueue(send chan []byte, event string, payload interface{}) bool {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		c.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	select {
	case send <- frame:
		observability.IncWSEvent("out", event)
		return true
	default:
		observability.IncWSDroppedEmit(event)
		c.logger.Warn("emit dropped, outbound queue full", zap.String("event", event))
		return false
	}
}

// Join subscribes the channel to a conversation room. The room is remembered
// and joined again after every reconnect handshake, so a join requested while
// connecting still takes effect.
func (c *Client) Join(conversationID string) bool {
	c.mu.Lock()
	if _, ok := c.roomSet[conversationID]; !ok && c.cancel != nil {
		c.roomSet[conversationID] = struct{}{}
		c.rooms = append(c.rooms, conversationID)
	}
	c.mu.Unlock()
	return c.Emit(models.EventJoinChat, conversationID)
}

// Rooms returns the rooms joined on the current channel.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

// On registers handler for an inbound event.
func (c *Client) On(event string, handler Handler) Subscription {
	return c.handlers.On(event, handler)
}

// Off removes a handler registered with On.
func (c *Client) Off(sub Subscription) bool {
	return c.handlers.Off(sub)
}

// HandlerCount reports how many handlers listen to event.
func (c *Client) HandlerCount(event string) int {
	return c.handlers.Count(event)
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Info describes the socket currently backing the channel.
func (c *Client) Info() ConnInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// OnStateChange registers a hook called after every state transition.
func (c *Client) OnStateChange(hook func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHooks = append(c.stateHooks, hook)
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	hooks := append([]func(State){}, c.stateHooks...)
	c.mu.Unlock()

	observability.SetWSState(int(state))
	for _, hook := range hooks {
		hook(state)
	}
}

func (c *Client) run(ctx context.Context, identity models.Identity, send chan []byte, done chan struct{}) {
	defer close(done)

	policy := backoff.WithContext(c.newBackOff(), ctx)
	dialed := false
	for {
		conn, err := c.dial(ctx, identity)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := policy.NextBackOff()
			if wait == backoff.Stop {
				c.logger.Error("giving up reconnecting", zap.Error(err))
				c.release(done)
				return
			}
			c.logger.Warn("channel unavailable, retrying", zap.Error(err), zap.Duration("retry_in", wait))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}

		policy.Reset()
		info := ConnInfo{ConnID: newConnID(), UserID: identity.ID, URL: c.url, ConnectedAt: time.Now()}
		c.mu.Lock()
		c.info = info
		c.mu.Unlock()
		if dialed {
			observability.IncWSReconnect()
			publishLifecycle(info, "ws_reconnect", "")
		} else {
			publishLifecycle(info, "ws_connect", "")
		}
		dialed = true

		err = c.serve(ctx, conn, send)
		if ctx.Err() != nil {
			return
		}
		connErr := &ConnectionError{Op: "read", Err: err}
		c.logger.Warn("channel dropped", zap.String("conn_id", info.ConnID), zap.Error(connErr))
		publishLifecycle(info, "ws_error", err.Error())
		c.setState(StateConnecting)
	}
}

// release drops the channel owned by done after run gave up, so the next
// Connect dials again. A channel that was already replaced is left alone.
func (c *Client) release(done chan struct{}) {
	c.mu.Lock()
	if c.done != done {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.cancel = nil
	c.done = nil
	c.identity = nil
	c.rooms = nil
	c.roomSet = make(map[string]struct{})
	c.mu.Unlock()

	cancel()
	c.setState(StateDisconnected)
}

// dial opens the socket and announces the identity. The state stays
// connecting until the server acknowledges with "connected".
func (c *Client) dial(ctx context.Context, identity models.Identity) (*websocket.Conn, error) {
	c.setState(StateConnecting)
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	frame, err := encodeFrame(models.EventSetup, identity)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return nil, &ConnectionError{Op: "setup", Err: err}
	}
	observability.IncWSEvent("out", models.EventSetup)
	return conn, nil
}

// serve pumps frames until the socket fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, send chan []byte) error {
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go c.writePump(conn, send, stop, writerDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	err := c.readPump(conn, send)
	close(stop)
	conn.Close()
	<-writerDone
	drain(send)
	if err == nil {
		err = errors.New("connection closed")
	}
	return err
}

func (c *Client) readPump(conn *websocket.Conn, send chan []byte) error {
	readWait := 2 * c.pingPeriod
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			c.logger.Debug("ignoring malformed frame", zap.ByteString("frame", data))
			continue
		}
		observability.IncWSEvent("in", frame.Event)
		if frame.Event == models.EventConnected {
			c.acknowledge(send)
		}
		c.handlers.Dispatch(frame.Event, frame.Data)
	}
}

// acknowledge completes the handshake and replays room joins.
func (c *Client) acknowledge(send chan []byte) {
	c.setState(StateConnected)
	for _, room := range c.Rooms() {
		c.enqueue(send, models.EventJoinChat, room)
	}
}

func (c *Client) writePump(conn *websocket.Conn, send chan []byte, stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		case frame := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn("websocket write error", zap.Error(err))
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func drain(send chan []byte) {
	for {
		select {
		case <-send:
		default:
			return
		}
	}
}
