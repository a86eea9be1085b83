package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-client/internal/conversations"
	"chat-client/internal/messages"
	"chat-client/internal/models"
	"chat-client/internal/notifications"
	"chat-client/internal/observability"
	"chat-client/internal/presence"
	"chat-client/internal/typing"
	"chat-client/internal/ws"
)

var tracer = otel.Tracer("chat-client/internal/session")

// API is the request/response collaborator, bound to one identity's token.
type API interface {
	FetchConversations(ctx context.Context) ([]models.Conversation, error)
	FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (models.Message, error)
	AccessChat(ctx context.Context, userID string) (models.Conversation, error)
	CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error)
	RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error)
	AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error)
	RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error)
	PublicRooms(ctx context.Context) ([]models.Conversation, error)
	CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// Conn is the live channel. *ws.Client satisfies it.
type Conn interface {
	Connect(ctx context.Context, identity models.Identity) error
	Disconnect() error
	Emit(event string, payload interface{}) bool
	Join(conversationID string) bool
	On(event string, handler ws.Handler) ws.Subscription
	Off(sub ws.Subscription) bool
	State() ws.State
}

// Auditor records session lifecycle events. *telemetry.AuditEmitter
// satisfies it.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, string, string, string, *string) {}

type Deps struct {
	NewAPI      func(token string) API
	Conn        Conn
	Logger      *zap.Logger
	Audit       Auditor
	TypingQuiet time.Duration
}

// Session is the state container for one signed-in user: identity,
// selection pointer, chat list, message buffer, notifications, presence
// and typing. Push handlers and user actions are serialized by mu; network
// round trips happen outside it.
type Session struct {
	newAPI func(token string) API
	conn   Conn
	logger *zap.Logger
	audit  Auditor

	conversations *conversations.Store
	stream        *messages.Stream
	ledger        *notifications.Ledger
	presence      *presence.Tracker
	typing        *typing.Signal

	mu            sync.Mutex
	started       bool
	epoch         uint64
	identity      *models.Identity
	api           API
	selected      string
	favoritesOnly bool
	subs          []ws.Subscription
}

func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var audit Auditor = nopAuditor{}
	if deps.Audit != nil {
		audit = deps.Audit
	}
	return &Session{
		newAPI:        deps.NewAPI,
		conn:          deps.Conn,
		logger:        logger.With(zap.String("component", "session")),
		audit:         audit,
		conversations: conversations.NewStore(),
		stream:        messages.NewStream(),
		ledger:        notifications.NewLedger(),
		presence:      presence.NewTracker(),
		typing:        typing.NewSignal(deps.Conn, deps.TypingQuiet),
	}
}

// SetIdentity is the auth collaborator hook. nil signs out, the same user id
// swaps the identity in place (profile update) and a new user id restarts
// the session.
func (s *Session) SetIdentity(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		s.Close()
		return nil
	}
	s.mu.Lock()
	if s.started && s.identity.ID == identity.ID && identity.Valid() {
		updated := *identity
		s.identity = &updated
		s.api = s.newAPI(updated.Token)
		s.mu.Unlock()
		s.logger.Info("identity updated", zap.String("user_id", updated.ID))
		return nil
	}
	s.mu.Unlock()
	return s.Start(ctx, *identity)
}

// Start signs identity in: registers push handlers, opens the live channel
// and loads the chat list. A failed list fetch is returned as *FetchError
// but leaves the session started.
func (s *Session) Start(ctx context.Context, identity models.Identity) error {
	if !identity.Valid() {
		return ErrNoIdentity
	}
	s.Close()

	s.mu.Lock()
	s.started = true
	s.epoch++
	s.identity = &identity
	s.api = s.newAPI(identity.Token)
	s.subs = []ws.Subscription{
		s.conn.On(models.EventConnectedUsers, s.onConnectedUsers),
		s.conn.On(models.EventMessageReceived, s.onMessageReceived),
		s.conn.On(models.EventTyping, s.onRemoteTyping(true)),
		s.conn.On(models.EventStopTyping, s.onRemoteTyping(false)),
	}
	s.mu.Unlock()

	if err := s.conn.Connect(ctx, identity); err != nil {
		s.Close()
		return err
	}
	userID := identity.ID
	s.audit.Emit(ctx, "INFO", "session_start", "", &userID)
	s.logger.Info("session started", zap.String("user_id", identity.ID))

	return s.RefreshConversations(ctx)
}

// Close signs out: handlers are removed, typing stops, the channel is
// released and all state is cleared. Safe to call when not started.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	subs := s.subs
	userID := s.identity.ID
	s.subs = nil
	s.started = false
	s.epoch++
	s.identity = nil
	s.api = nil
	s.selected = ""
	s.favoritesOnly = false
	s.typing.StopAll()
	s.typing.ResetRemote()
	s.stream.Reset()
	s.ledger.Reset()
	s.presence.Reset()
	s.conversations.Reset()
	observability.SetNotificationsPending(0)
	observability.SetPresenceOnline(0)
	s.mu.Unlock()

	// Handlers take mu on the read goroutine, so the channel is released
	// without holding it.
	for _, sub := range subs {
		s.conn.Off(sub)
	}
	if err := s.conn.Disconnect(); err != nil {
		s.logger.Warn("disconnect failed", zap.Error(err))
	}
	s.audit.Emit(context.Background(), "INFO", "session_end", "", &userID)
	s.logger.Info("session closed", zap.String("user_id", userID))
}

// Identity returns the signed-in identity.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

// Selected returns the selection pointer, "" when nothing is open.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// active returns what an action needs to call the API outside the lock.
func (s *Session) active() (API, models.Identity, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, models.Identity{}, 0, ErrNoIdentity
	}
	return s.api, *s.identity, s.epoch, nil
}
