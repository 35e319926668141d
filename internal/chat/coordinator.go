// Package chat is the stateful heart of the client: it owns the observable
// chat session state, decides which pushed messages apply to the current
// selection, reconciles REST-fetched history with live delivery, and issues
// read receipts. It bridges the transport and history clients into one
// coherent session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/campusconnect/campuschat/internal/events"
	"github.com/campusconnect/campuschat/internal/model"
	"github.com/campusconnect/campuschat/internal/store"
	"github.com/campusconnect/campuschat/internal/token"
	"github.com/campusconnect/campuschat/internal/transport"
)

// Precondition violations, rejected before any network call is made.
var (
	ErrNoDepartment  = errors.New("no department assigned: group chat requires a department")
	ErrNoActiveChat  = errors.New("no direct chat selected")
	ErrNoActiveGroup = errors.New("no group chat selected")
	ErrCannotPost    = errors.New("posting in this group is not permitted")
)

// Transport is the bus connection the coordinator multiplexes over.
// *transport.Client satisfies it; tests substitute a fake.
type Transport interface {
	Connect(ctx context.Context, bearer string, onMessage transport.MessageHandler, onConnected func()) error
	Disconnect()
	SendDirect(transport.DirectMessage)
	SendGroup(transport.GroupMessage)
	SubscribeGroup(departmentID int64, handler transport.MessageHandler)
	UnsubscribeGroup(departmentID int64)
	MarkRead(otherUserID int64)
}

// History is the REST side of the chat backend.
type History interface {
	Conversations(ctx context.Context) ([]model.Conversation, error)
	MessageHistory(ctx context.Context, otherUserID int64) ([]model.ChatMessage, error)
	ChatUsers(ctx context.Context) ([]model.User, error)
	MarkRead(ctx context.Context, otherUserID int64) error
	GroupMessages(ctx context.Context, departmentID int64, chatType model.ChatType) ([]model.ChatMessage, error)
	GroupPermissions(ctx context.Context, departmentID int64, chatType model.ChatType) (model.GroupPermissions, error)
	GroupParticipants(ctx context.Context, departmentID int64) ([]model.User, error)
}

// Cache is the optional local message cache. *store.DB satisfies it.
type Cache interface {
	InsertMessage(convKey string, m model.ChatMessage) error
	ReplaceHistory(convKey string, msgs []model.ChatMessage) error
	ListMessages(convKey string, limit int) ([]model.ChatMessage, error)
	MarkThreadRead(convKey string) error
	ReplaceConversations([]model.Conversation) error
	ListConversations() ([]model.Conversation, error)
}

// GroupSelection identifies the active group chat.
type GroupSelection struct {
	DepartmentID int64
	ChatType     model.ChatType
}

// Snapshot is a read-only copy of the coordinator state for the UI layer.
type Snapshot struct {
	Conversations []model.Conversation
	Users         []model.User
	ActiveChat    *model.User
	ActiveGroup   *GroupSelection
	Messages      []model.ChatMessage
	GroupMessages []model.ChatMessage
	Permissions   model.GroupPermissions
	Loading       bool
}

// Options configures a Coordinator.
type Options struct {
	Transport Transport
	History   History
	Cache     Cache        // optional
	Feed      *events.Feed // optional
	Logger    *zap.Logger
	Bearer    string
	Self      token.Claims
}

// Coordinator owns the chat session state. All exported methods are safe for
// concurrent use; state is exposed to the UI only through Snapshot copies.
type Coordinator struct {
	transport Transport
	history   History
	cache     Cache
	feed      *events.Feed
	logger    *zap.Logger
	bearer    string
	self      token.Claims

	mu            sync.Mutex
	conversations []model.Conversation
	users         []model.User
	activeChat    *model.User
	activeGroup   *GroupSelection
	messages      []model.ChatMessage
	groupMessages []model.ChatMessage
	permissions   model.GroupPermissions
	loading       bool
	// generation fences async fetch results: a result is applied only if
	// the selection that dispatched it is still current.
	generation uint64
}

// New creates a Coordinator around the given collaborators.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		transport: opts.Transport,
		history:   opts.History,
		cache:     opts.Cache,
		feed:      opts.Feed,
		logger:    opts.Logger,
		bearer:    opts.Bearer,
		self:      opts.Self,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Start connects the transport and primes the conversation list and roster
// once the bus is reachable. Reconnects re-prime automatically.
func (c *Coordinator) Start(ctx context.Context) error {
	return c.transport.Connect(ctx, c.bearer, c.handleDirectMessage, func() {
		c.publish(events.KindConnected, nil)
		c.refreshConversations(context.Background())
		c.refreshUsers(context.Background())
	})
}

// Stop tears down the transport session.
func (c *Coordinator) Stop() {
	c.transport.Disconnect()
	c.publish(events.KindDisconnected, nil)
}

// Snapshot returns a copy of the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Conversations: append([]model.Conversation(nil), c.conversations...),
		Users:         append([]model.User(nil), c.users...),
		Messages:      append([]model.ChatMessage(nil), c.messages...),
		GroupMessages: append([]model.ChatMessage(nil), c.groupMessages...),
		Permissions:   c.permissions,
		Loading:       c.loading,
	}
	if c.activeChat != nil {
		u := *c.activeChat
		s.ActiveChat = &u
	}
	if c.activeGroup != nil {
		g := *c.activeGroup
		s.ActiveGroup = &g
	}
	return s
}

// SelectChat opens the direct-message thread with user: the group selection
// is cleared, cached messages render immediately, and the full server
// history replaces them when the fetch resolves. A fetch that resolves after
// the user has moved on is discarded.
func (c *Coordinator) SelectChat(ctx context.Context, user model.User) error {
	key := store.DirectKey(user.ID)

	var cached []model.ChatMessage
	if c.cache != nil {
		var err error
		if cached, err = c.cache.ListMessages(key, 0); err != nil {
			c.logger.Warn("read cached thread", zap.Error(err))
		}
	}

	c.mu.Lock()
	u := user
	c.activeGroup = nil
	c.activeChat = &u
	c.generation++
	gen := c.generation
	c.loading = true
	c.messages = cached
	c.mu.Unlock()
	c.publish(events.KindSelection, u)
	c.publish(events.KindLoading, true)

	msgs, err := c.history.MessageHistory(ctx, user.ID)
	if err != nil {
		c.logger.Error("load message history", zap.Int64("other_user_id", user.ID), zap.Error(err))
		msgs = nil
	}

	c.mu.Lock()
	if c.generation != gen {
		// Superseded by a later selection; discard.
		c.mu.Unlock()
		return nil
	}
	c.messages = msgs
	c.loading = false
	c.mu.Unlock()
	c.publish(events.KindLoading, false)

	if err != nil {
		return fmt.Errorf("select chat: %w", err)
	}
	if c.cache != nil {
		if cerr := c.cache.ReplaceHistory(key, msgs); cerr != nil {
			c.logger.Warn("cache thread history", zap.Error(cerr))
		}
	}

	// Durable read state via REST, plus a best-effort bus receipt.
	if rerr := c.history.MarkRead(ctx, user.ID); rerr != nil {
		c.logger.Warn("mark read", zap.Int64("other_user_id", user.ID), zap.Error(rerr))
	} else if c.cache != nil {
		_ = c.cache.MarkThreadRead(key)
	}
	c.transport.MarkRead(user.ID)

	c.refreshConversations(ctx)
	return nil
}

// SelectGroup opens one of the caller's department group chats. The direct
// selection is cleared. History and permissions are fetched independently
// and both awaited; either failing falls back to an empty list and zeroed
// permissions rather than stale data. The group topic subscription persists
// across later selection changes.
func (c *Coordinator) SelectGroup(ctx context.Context, departmentID int64, chatType model.ChatType) error {
	if c.self.DepartmentID == 0 {
		return ErrNoDepartment
	}

	key := store.GroupKey(departmentID, chatType)

	var cached []model.ChatMessage
	if c.cache != nil {
		var err error
		if cached, err = c.cache.ListMessages(key, 0); err != nil {
			c.logger.Warn("read cached group thread", zap.Error(err))
		}
	}

	c.mu.Lock()
	c.activeChat = nil
	c.activeGroup = &GroupSelection{DepartmentID: departmentID, ChatType: chatType}
	c.generation++
	gen := c.generation
	c.loading = true
	c.groupMessages = cached
	c.permissions = model.GroupPermissions{}
	c.mu.Unlock()
	c.publish(events.KindSelection, GroupSelection{DepartmentID: departmentID, ChatType: chatType})
	c.publish(events.KindLoading, true)

	var (
		wg       sync.WaitGroup
		msgs     []model.ChatMessage
		perms    model.GroupPermissions
		msgsErr  error
		permsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		msgs, msgsErr = c.history.GroupMessages(ctx, departmentID, chatType)
	}()
	go func() {
		defer wg.Done()
		perms, permsErr = c.history.GroupPermissions(ctx, departmentID, chatType)
	}()
	wg.Wait()

	if msgsErr != nil {
		c.logger.Error("load group history", zap.Int64("department_id", departmentID), zap.Error(msgsErr))
		msgs = nil
	}
	if permsErr != nil {
		c.logger.Error("load group permissions", zap.Int64("department_id", departmentID), zap.Error(permsErr))
		perms = model.GroupPermissions{}
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil
	}
	c.groupMessages = msgs
	c.permissions = perms
	c.loading = false
	c.mu.Unlock()
	c.publish(events.KindLoading, false)

	if msgsErr == nil && c.cache != nil {
		if cerr := c.cache.ReplaceHistory(key, msgs); cerr != nil {
			c.logger.Warn("cache group history", zap.Error(cerr))
		}
	}

	// Subscribe even when the fetches failed: live traffic should still
	// flow while the user looks at the group.
	c.transport.SubscribeGroup(departmentID, c.handleGroupMessage)

	return errors.Join(msgsErr, permsErr)
}

// SendMessage publishes a direct message to the active counterpart. Blank
// text is silently ignored. The message is not appended locally: it shows up
// when the server echoes it back through the inbox subscription.
func (c *Coordinator) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	active := c.activeChat
	c.mu.Unlock()
	if active == nil {
		return ErrNoActiveChat
	}
	c.transport.SendDirect(transport.DirectMessage{ReceiverID: active.ID, Message: text})
	return nil
}

// SendGroupMessage publishes to the active group. Blank text is silently
// ignored; posting without server-granted permission is rejected before any
// publish is attempted.
func (c *Coordinator) SendGroupMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	active := c.activeGroup
	canPost := c.permissions.CanPost
	c.mu.Unlock()
	if active == nil {
		return ErrNoActiveGroup
	}
	if !canPost {
		return ErrCannotPost
	}
	c.transport.SendGroup(transport.GroupMessage{
		Message:      text,
		DepartmentID: active.DepartmentID,
		ChatType:     active.ChatType,
	})
	return nil
}

// RefreshConversations re-fetches the conversation list on demand.
func (c *Coordinator) RefreshConversations(ctx context.Context) {
	c.refreshConversations(ctx)
}

// handleDirectMessage is the inbox delivery path. The message joins the
// visible list only when it belongs to the active direct thread, but the
// conversation list refreshes either way so unread badges stay current.
func (c *Coordinator) handleDirectMessage(msg model.ChatMessage) {
	c.mu.Lock()
	applied := false
	if c.activeChat != nil && (msg.SenderID == c.activeChat.ID || msg.ReceiverID == c.activeChat.ID) {
		c.messages = append(c.messages, msg)
		applied = true
	}
	c.mu.Unlock()

	if c.cache != nil {
		counterpart := msg.SenderID
		if counterpart == c.self.UserID {
			counterpart = msg.ReceiverID
		}
		if err := c.cache.InsertMessage(store.DirectKey(counterpart), msg); err != nil {
			c.logger.Warn("cache inbound message", zap.Error(err))
		}
	}
	if applied {
		c.publish(events.KindMessage, msg)
	}
	go c.refreshConversations(context.Background())
}

// handleGroupMessage filters group deliveries against the group that is
// active right now, not the one active at subscribe time: the subscription
// outlives selection changes.
func (c *Coordinator) handleGroupMessage(msg model.ChatMessage) {
	c.mu.Lock()
	var key string
	applied := false
	if c.activeGroup != nil && msg.DepartmentID == c.activeGroup.DepartmentID {
		c.groupMessages = append(c.groupMessages, msg)
		chatType := msg.ChatType
		if chatType == "" {
			chatType = c.activeGroup.ChatType
		}
		key = store.GroupKey(msg.DepartmentID, chatType)
		applied = true
	}
	c.mu.Unlock()

	if !applied {
		return
	}
	if c.cache != nil {
		if err := c.cache.InsertMessage(key, msg); err != nil {
			c.logger.Warn("cache group message", zap.Error(err))
		}
	}
	c.publish(events.KindGroupMessage, msg)
}

func (c *Coordinator) refreshConversations(ctx context.Context) {
	convs, err := c.history.Conversations(ctx)
	if err != nil {
		c.logger.Warn("refresh conversations", zap.Error(err))
		if c.cache == nil {
			return
		}
		// Offline fallback: show the cached list rather than nothing.
		cached, cerr := c.cache.ListConversations()
		if cerr != nil {
			return
		}
		convs = cached
	} else if c.cache != nil {
		if cerr := c.cache.ReplaceConversations(convs); cerr != nil {
			c.logger.Warn("cache conversations", zap.Error(cerr))
		}
	}

	c.mu.Lock()
	c.conversations = convs
	c.mu.Unlock()
	c.publish(events.KindConversations, len(convs))
}

func (c *Coordinator) refreshUsers(ctx context.Context) {
	users, err := c.history.ChatUsers(ctx)
	if err != nil {
		c.logger.Warn("refresh chat roster", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.users = users
	c.mu.Unlock()
}

func (c *Coordinator) publish(kind events.Kind, payload any) {
	if c.feed != nil {
		c.feed.Publish(events.Event{Kind: kind, Payload: payload})
	}
}
