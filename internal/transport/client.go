// Package transport owns the single long-lived STOMP-over-WebSocket
// connection to the campus message bus. It hides connect timing from
// callers: operations issued while the bus is unreachable are queued in
// submission order and replayed on the next successful handshake, and group
// subscriptions survive unplanned drops as pending intent.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusconnect/campuschat/internal/model"
	"github.com/campusconnect/campuschat/internal/stomp"
	"github.com/campusconnect/campuschat/internal/token"
)

const (
	destSendMessage      = "/app/chat.sendMessage"
	destSendGroupMessage = "/app/chat.sendGroupMessage"
	destMarkAsRead       = "/app/chat.markAsRead"

	inboxSubID = "sub-user"

	heartbeatInterval     = 4 * time.Second
	defaultReconnectDelay = 5 * time.Second
)

// MessageHandler receives inbound pushed messages.
type MessageHandler func(model.ChatMessage)

// Status is the coarse connection status surfaced to indicator UIs.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

// DirectMessage is the payload of a direct send.
type DirectMessage struct {
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

// GroupMessage is the payload of a group send.
type GroupMessage struct {
	Message      string         `json:"message"`
	DepartmentID int64          `json:"departmentId"`
	ChatType     model.ChatType `json:"chatType"`
}

// DialFunc opens the raw frame stream to the bus endpoint.
type DialFunc func(ctx context.Context, url string) (io.ReadWriteCloser, error)

// Options configures a Client.
type Options struct {
	// URL is the websocket bus endpoint.
	URL string
	// ReconnectDelay is the fixed wait between reconnect attempts.
	// Zero means the 5s default.
	ReconnectDelay time.Duration
	// Dial overrides the websocket dialer, mainly for tests.
	Dial DialFunc
	// OnStatus, when set, observes connection status changes.
	OnStatus func(Status)
	Logger   *zap.Logger
}

// Client is the message transport client. A zero Client is not usable; use
// NewClient. All exported methods are safe for concurrent use.
type Client struct {
	url            string
	dial           DialFunc
	reconnectDelay time.Duration
	onStatus       func(Status)
	logger         *zap.Logger

	// wmu serializes frame writes to the current connection.
	wmu    sync.Mutex
	frames *stomp.Writer

	mu          sync.Mutex
	active      bool
	connected   bool
	gen         uint64 // bumped on Connect/Disconnect to fence stale run loops
	bearer      string
	userID      int64
	conn        io.ReadWriteCloser
	queue       pendingQueue
	subs        *subscriptionTable
	onMessage   MessageHandler
	onConnected func()
}

// NewClient creates a transport client for the given bus endpoint.
func NewClient(opts Options) *Client {
	c := &Client{
		url:            opts.URL,
		dial:           opts.Dial,
		reconnectDelay: opts.ReconnectDelay,
		onStatus:       opts.OnStatus,
		logger:         opts.Logger,
		subs:           newSubscriptionTable(),
	}
	if c.dial == nil {
		c.dial = dialWebsocket
	}
	if c.reconnectDelay <= 0 {
		c.reconnectDelay = defaultReconnectDelay
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Connect activates the transport session. It is idempotent: if a session is
// already active it only re-invokes onConnected when the bus is currently
// reachable. The bearer token authenticates the STOMP handshake and supplies
// the user id for inbox routing; an undecodable token is the only error
// returned. Network failures are retried internally with a fixed delay and
// never surfaced here.
func (c *Client) Connect(ctx context.Context, bearer string, onMessage MessageHandler, onConnected func()) error {
	c.mu.Lock()
	if c.active {
		connected := c.connected
		c.mu.Unlock()
		c.logger.Info("bus connection already active")
		if connected && onConnected != nil {
			onConnected()
		}
		return nil
	}

	claims, err := token.Decode(bearer)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}

	c.active = true
	c.gen++
	gen := c.gen
	c.bearer = bearer
	c.userID = claims.UserID
	c.onMessage = onMessage
	c.onConnected = onConnected
	c.mu.Unlock()

	go c.run(ctx, gen)
	return nil
}

// Disconnect hard-resets the transport: the connection is closed and all
// queues and subscription bookkeeping are cleared. Nothing queued before an
// explicit Disconnect survives it.
func (c *Client) Disconnect() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.connected = false
	c.gen++
	conn := c.conn
	c.conn = nil
	c.queue.clear()
	c.subs.clear()
	c.mu.Unlock()

	c.setWriter(nil)
	if conn != nil {
		_ = conn.Close()
	}
	if wasActive {
		c.logger.Info("bus connection closed")
		c.notify(StatusDisconnected)
	}
}

// IsConnected reports whether the bus is currently reachable.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendDirect publishes a direct message, or queues it in submission order
// while the bus is unreachable.
func (c *Client) SendDirect(m DirectMessage) {
	c.mu.Lock()
	if !c.connected {
		c.queue.pushDirect(m)
		n := c.queue.len()
		c.mu.Unlock()
		c.logger.Info("queueing direct message", zap.Int("pending", n))
		return
	}
	c.mu.Unlock()
	c.publishJSON(destSendMessage, m)
}

// SendGroup publishes a group message, or queues it in submission order
// while the bus is unreachable. Direct and group sends share one queue.
func (c *Client) SendGroup(m GroupMessage) {
	c.mu.Lock()
	if !c.connected {
		c.queue.pushGroup(m)
		n := c.queue.len()
		c.mu.Unlock()
		c.logger.Info("queueing group message", zap.Int64("department_id", m.DepartmentID), zap.Int("pending", n))
		return
	}
	c.mu.Unlock()
	c.publishJSON(destSendGroupMessage, m)
}

// MarkRead publishes a best-effort read receipt. Dropped silently while
// disconnected: receipts are not worth preserving across reconnects because
// the REST mark-read call is the durable path.
func (c *Client) MarkRead(otherUserID int64) {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return
	}
	c.publishJSON(destMarkAsRead, otherUserID)
}

// SubscribeGroup subscribes handler to a department's group topic. While
// connected the subscription is established immediately, replacing any prior
// one for the same department so messages are never delivered twice. While
// disconnected the request is kept pending, last request per department wins.
func (c *Client) SubscribeGroup(departmentID int64, handler MessageHandler) {
	c.mu.Lock()
	if !c.connected {
		c.queue.pushSubscribe(departmentID, handler)
		c.mu.Unlock()
		c.logger.Info("queueing group subscription", zap.Int64("department_id", departmentID))
		return
	}

	var stale *subscription
	if prev, ok := c.subs.remove(departmentID); ok {
		stale = prev
	}
	sub := &subscription{
		id:           "sub-" + uuid.NewString(),
		departmentID: departmentID,
		handler:      handler,
	}
	c.subs.add(sub)
	c.mu.Unlock()

	if stale != nil {
		c.writeFrame(stomp.NewFrame(stomp.CmdUnsubscribe, stomp.HdrID, stale.id))
	}
	c.writeFrame(stomp.NewFrame(stomp.CmdSubscribe,
		stomp.HdrID, sub.id,
		stomp.HdrDestination, groupTopic(departmentID),
	))
}

// UnsubscribeGroup removes both the live subscription and any pending
// request for the department.
func (c *Client) UnsubscribeGroup(departmentID int64) {
	c.mu.Lock()
	c.queue.removeSubscribe(departmentID)
	sub, ok := c.subs.remove(departmentID)
	connected := c.connected
	c.mu.Unlock()

	if ok && connected {
		c.writeFrame(stomp.NewFrame(stomp.CmdUnsubscribe, stomp.HdrID, sub.id))
	}
}

// run owns the connection lifecycle for one activation: dial, handshake,
// drain, read until failure, then retry after the fixed delay.
func (c *Client) run(ctx context.Context, gen uint64) {
	for {
		err := c.runSession(ctx, gen)
		if !c.current(gen) || ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Warn("bus session ended", zap.Error(err))
		}
		c.notify(StatusReconnecting)

		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return
		}
		if !c.current(gen) {
			return
		}
	}
}

func (c *Client) runSession(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	bearer := c.bearer
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}

	writer := stomp.NewWriter(conn)
	reader := stomp.NewReader(conn)

	connect := stomp.NewFrame(stomp.CmdConnect,
		stomp.HdrAcceptVersion, "1.2",
		stomp.HdrHeartBeat, "4000,4000",
		stomp.HdrAuthorization, "Bearer "+bearer,
	)
	if err := writer.WriteFrame(connect); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send CONNECT: %w", err)
	}

	reply, err := reader.ReadFrame()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("read handshake reply: %w", err)
	}
	if reply.Command != stomp.CmdConnected {
		_ = conn.Close()
		return fmt.Errorf("handshake rejected: %s %s", reply.Command, reply.Header(stomp.HdrMessage))
	}

	// Install the writer before flipping connected so a send racing the
	// handshake is either queued and drained below, or written, never lost.
	c.setWriter(writer)
	c.mu.Lock()
	if !c.active || c.gen != gen {
		c.mu.Unlock()
		c.clearWriter(writer)
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	inbox := &subscription{id: inboxSubID, handler: c.onMessage}
	c.subs.add(inbox)
	ops := c.queue.drain()
	userID := c.userID
	onConnected := c.onConnected
	c.mu.Unlock()

	c.logger.Info("connected to bus", zap.Int64("user_id", userID))
	c.writeFrame(stomp.NewFrame(stomp.CmdSubscribe,
		stomp.HdrID, inboxSubID,
		stomp.HdrDestination, inboxQueue(userID),
	))
	c.replay(ops)
	c.notify(StatusConnected)
	if onConnected != nil {
		onConnected()
	}

	stopBeat := make(chan struct{})
	go c.heartbeatLoop(stopBeat)
	err = c.readLoop(reader)
	close(stopBeat)

	c.teardown(gen)
	_ = conn.Close()
	return err
}

// replay executes queued operations in exactly the order they were
// submitted, regardless of kind.
func (c *Client) replay(ops []pendingOp) {
	if len(ops) == 0 {
		return
	}
	c.logger.Info("replaying queued operations", zap.Int("count", len(ops)))
	for _, op := range ops {
		switch op.kind {
		case opDirect:
			c.publishJSON(destSendMessage, op.direct)
		case opGroup:
			c.publishJSON(destSendGroupMessage, op.group)
		case opSubscribe:
			c.SubscribeGroup(op.departmentID, op.handler)
		}
	}
}

func (c *Client) readLoop(reader *stomp.Reader) error {
	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			return err
		}
		switch frame.Command {
		case stomp.CmdMessage:
			c.dispatch(frame)
		case stomp.CmdError:
			c.logger.Warn("bus error frame",
				zap.String("message", frame.Header(stomp.HdrMessage)),
				zap.ByteString("body", frame.Body))
		case stomp.CmdReceipt:
			// Receipts are not requested; ignore.
		default:
			c.logger.Warn("unexpected frame", zap.String("command", frame.Command))
		}
	}
}

// dispatch routes a MESSAGE frame to the handler registered for its
// subscription. Malformed payloads are dropped with a warning; they must
// never take down the receive loop.
func (c *Client) dispatch(frame *stomp.Frame) {
	id := frame.Header(stomp.HdrSubscription)
	c.mu.Lock()
	handler, ok := c.subs.handlerFor(id)
	c.mu.Unlock()
	if !ok || handler == nil {
		c.logger.Warn("message for unknown subscription", zap.String("subscription", id))
		return
	}

	var msg model.ChatMessage
	if err := json.Unmarshal(frame.Body, &msg); err != nil {
		c.logger.Warn("dropping malformed message payload",
			zap.String("subscription", id), zap.Error(err))
		return
	}
	handler(msg)
}

// teardown records an unplanned connection loss: the connection state is
// cleared but intent is preserved, with live group subscriptions demoted to
// pending requests so the next session re-establishes them.
func (c *Client) teardown(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	for _, sub := range c.subs.groups() {
		c.queue.pushSubscribe(sub.departmentID, sub.handler)
	}
	c.subs.clear()
	c.mu.Unlock()

	c.setWriter(nil)
	c.notify(StatusDisconnected)
}

func (c *Client) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.wmu.Lock()
			if c.frames != nil {
				_ = c.frames.WriteHeartbeat()
			}
			c.wmu.Unlock()
		case <-stop:
			return
		}
	}
}

func (c *Client) publishJSON(destination string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("encode publish payload", zap.String("destination", destination), zap.Error(err))
		return
	}
	frame := stomp.NewFrame(stomp.CmdSend,
		stomp.HdrDestination, destination,
		stomp.HdrContentType, "application/json",
	)
	frame.Body = body
	c.writeFrame(frame)
}

// writeFrame sends a frame on the current connection. Write failures are
// logged, not returned: the read loop observes the broken connection and
// drives the reconnect path.
func (c *Client) writeFrame(frame *stomp.Frame) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.frames == nil {
		c.logger.Warn("dropping frame, no connection", zap.String("command", frame.Command))
		return
	}
	if err := c.frames.WriteFrame(frame); err != nil {
		c.logger.Warn("write frame", zap.String("command", frame.Command), zap.Error(err))
	}
}

func (c *Client) setWriter(w *stomp.Writer) {
	c.wmu.Lock()
	c.frames = w
	c.wmu.Unlock()
}

// clearWriter removes w only if it is still the current writer, so a stale
// session cannot clobber a newer session's connection.
func (c *Client) clearWriter(w *stomp.Writer) {
	c.wmu.Lock()
	if c.frames == w {
		c.frames = nil
	}
	c.wmu.Unlock()
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active && c.gen == gen
}

func (c *Client) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

func inboxQueue(userID int64) string {
	return "/user/" + strconv.FormatInt(userID, 10) + "/queue/messages"
}

func groupTopic(departmentID int64) string {
	return "/topic/department/" + strconv.FormatInt(departmentID, 10)
}
