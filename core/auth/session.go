package auth

import (
	"context"
	"time"

	"educontrol/core/store"
	"educontrol/core/utils"

	"github.com/gofrs/uuid/v5"
)

// Session is the resolved identity attached to a request.
type Session struct {
	ID        string
	UserID    int64
	Name      string
	Role      string
	ExpiresAt time.Time
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

type SessionManager struct {
	sessions store.SessionsStore
	users    store.UsersStore
	ttl      time.Duration
	logger   *utils.Logger
}

func NewSessionManager(sessions store.SessionsStore, users store.UsersStore, ttl time.Duration, logger *utils.Logger) *SessionManager {
	return &SessionManager{sessions: sessions, users: users, ttl: ttl, logger: logger}
}

func (m *SessionManager) Open(ctx context.Context, user *store.User, ip, userAgent string) (*Session, error) {
	now := utils.NowUTC()
	rec := &store.SessionRecord{
		ID:         uuid.Must(uuid.NewV4()).String(),
		UserID:     user.ID,
		Role:       user.Role,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.sessions.Insert(ctx, rec); err != nil {
		return nil, err
	}
	m.logger.Printf("session open user=%d role=%s", user.ID, user.Role)
	return &Session{ID: rec.ID, UserID: user.ID, Name: user.Name, Role: user.Role, ExpiresAt: rec.ExpiresAt}, nil
}

// Resolve looks a token up and returns nil for unknown or expired
// sessions. Expired rows are removed on sight.
func (m *SessionManager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	rec, err := m.sessions.Get(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	now := utils.NowUTC()
	if now.After(rec.ExpiresAt) {
		_ = m.sessions.Delete(ctx, id)
		return nil, nil
	}
	user, err := m.users.Get(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		_ = m.sessions.Delete(ctx, id)
		return nil, nil
	}
	if err := m.sessions.Touch(ctx, id, now); err != nil {
		m.logger.Errorf("session touch: %v", err)
	}
	return &Session{ID: rec.ID, UserID: user.ID, Name: user.Name, Role: user.Role, ExpiresAt: rec.ExpiresAt}, nil
}

func (m *SessionManager) Close(ctx context.Context, id string) error {
	return m.sessions.Delete(ctx, id)
}

func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, utils.NowUTC())
}
