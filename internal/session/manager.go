// Package session はログインセッションの発行・参照・破棄を提供する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// Manager はセッションのライフサイクルを管理する。
// 保存先はrepository.SessionRepositoryの実装（PostgreSQLまたはRedis）に委ねる。
type Manager struct {
	store  repository.SessionRepository
	maxAge time.Duration
	now    func() time.Time
}

// NewManager はManagerを生成する。maxAgeはセッションの有効期間。
func NewManager(store repository.SessionRepository, maxAge time.Duration) *Manager {
	return &Manager{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// MaxAge はセッションの有効期間を返す。Cookieの Max-Age に使用する。
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Start はuserIDのセッションを新たに発行する。
// currentIDが指定されている場合は既存セッションを破棄し、常に新しいIDを払い出す。
func (m *Manager) Start(ctx context.Context, currentID string, userID int64) (*model.Session, error) {
	if currentID != "" {
		if err := m.store.DeleteByID(ctx, currentID); err != nil {
			return nil, fmt.Errorf("failed to end previous session: %w", err)
		}
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := m.now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(m.maxAge),
		CreatedAt: now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// CurrentUserID はセッションIDに紐づくユーザーIDを返す。
// IDが空、存在しない、または期限切れの場合はfalseを返す。
func (m *Manager) CurrentUserID(ctx context.Context, id string) (int64, bool, error) {
	if id == "" {
		return 0, false, nil
	}

	session, err := m.store.FindByID(ctx, id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(m.now()) {
		return 0, false, nil
	}

	return session.UserID, true, nil
}

// End はセッションを破棄する。存在しないIDに対してもエラーにしない。
func (m *Manager) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
