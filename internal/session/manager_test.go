package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// --- モック定義 ---

type mockSessionRepo struct {
	sessions     map[string]*model.Session
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
	deleted      []string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*model.Session{}}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return m.sessions[id], nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	delete(m.sessions, id)
	return nil
}

var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// --- テスト ---

func TestManager_Start_IssuesSession(t *testing.T) {
	repo := newMockSessionRepo()
	mgr := NewManager(repo, time.Hour)
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return fixed }

	session, err := mgr.Start(context.Background(), "", 7)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if session.UserID != 7 {
		t.Errorf("UserID = %d, want 7", session.UserID)
	}
	if !session.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", session.ExpiresAt, fixed.Add(time.Hour))
	}
	if len(repo.deleted) != 0 {
		t.Errorf("既存セッションがないのに削除が呼ばれた: %v", repo.deleted)
	}
}

func TestManager_Start_RotatesExistingSession(t *testing.T) {
	repo := newMockSessionRepo()
	mgr := NewManager(repo, time.Hour)

	first, err := mgr.Start(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	second, err := mgr.Start(context.Background(), first.ID, 2)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if second.ID == first.ID {
		t.Error("ログインのたびに新しいセッションIDが発行されるべき")
	}
	if _, ok := repo.sessions[first.ID]; ok {
		t.Error("以前のセッションが破棄されていない")
	}

	userID, ok, err := mgr.CurrentUserID(context.Background(), second.ID)
	if err != nil || !ok || userID != 2 {
		t.Errorf("CurrentUserID = (%d, %v, %v), want (2, true, nil)", userID, ok, err)
	}
}

func TestManager_Start_StoreError(t *testing.T) {
	repo := newMockSessionRepo()
	repo.createFn = func(_ context.Context, _ *model.Session) error {
		return errors.New("db error")
	}
	mgr := NewManager(repo, time.Hour)

	if _, err := mgr.Start(context.Background(), "", 1); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestManager_Start_DeletePreviousError(t *testing.T) {
	repo := newMockSessionRepo()
	repo.deleteByIDFn = func(_ context.Context, _ string) error {
		return errors.New("db error")
	}
	mgr := NewManager(repo, time.Hour)

	if _, err := mgr.Start(context.Background(), "old", 1); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestManager_CurrentUserID(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := newMockSessionRepo()
	repo.sessions["live"] = &model.Session{ID: "live", UserID: 3, ExpiresAt: now.Add(time.Minute)}
	repo.sessions["expired"] = &model.Session{ID: "expired", UserID: 4, ExpiresAt: now}
	mgr := NewManager(repo, time.Hour)
	mgr.now = func() time.Time { return now }

	tests := []struct {
		name       string
		id         string
		wantUserID int64
		wantOK     bool
	}{
		{name: "有効なセッション", id: "live", wantUserID: 3, wantOK: true},
		{name: "期限切れ", id: "expired", wantOK: false},
		{name: "存在しないID", id: "unknown", wantOK: false},
		{name: "空のID", id: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok, err := mgr.CurrentUserID(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || userID != tt.wantUserID {
				t.Errorf("CurrentUserID(%q) = (%d, %v), want (%d, %v)", tt.id, userID, ok, tt.wantUserID, tt.wantOK)
			}
		})
	}
}

func TestManager_CurrentUserID_StoreError(t *testing.T) {
	repo := newMockSessionRepo()
	repo.findByIDFn = func(_ context.Context, _ string) (*model.Session, error) {
		return nil, errors.New("db error")
	}
	mgr := NewManager(repo, time.Hour)

	if _, _, err := mgr.CurrentUserID(context.Background(), "x"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestManager_End_IsIdempotent(t *testing.T) {
	repo := newMockSessionRepo()
	mgr := NewManager(repo, time.Hour)

	session, err := mgr.Start(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := mgr.End(context.Background(), session.ID); err != nil {
		t.Fatalf("End error: %v", err)
	}
	if err := mgr.End(context.Background(), session.ID); err != nil {
		t.Fatalf("second End error: %v", err)
	}
	if err := mgr.End(context.Background(), ""); err != nil {
		t.Fatalf("End with empty id error: %v", err)
	}

	_, ok, _ := mgr.CurrentUserID(context.Background(), session.ID)
	if ok {
		t.Error("破棄したセッションが有効と判定された")
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session ID: %s", id)
		}
		seen[id] = true
	}
}
