// Package auth はユーザー登録・ログイン・ログアウトとパスワード照合を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
	"github.com/hitoshi/recipebook/internal/security"
)

// SessionManager はセッションの発行と破棄を行うインターフェース。
// *session.Managerがこれを満たす。
type SessionManager interface {
	Start(ctx context.Context, currentID string, userID int64) (*model.Session, error)
	End(ctx context.Context, id string) error
}

// SignupInput はユーザー登録の入力値。
type SignupInput struct {
	Username string
	Password string
	ImageURL *string
	Bio      *string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	creds     *Credentials
	sessions  SessionManager
	imageURLs security.URLPolicy
	metrics   metrics.MetricsCollector

	dummyOnce sync.Once
	dummyUser *model.User
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	creds *Credentials,
	sessions SessionManager,
	imageURLs security.URLPolicy,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		userRepo:  userRepo,
		creds:     creds,
		sessions:  sessions,
		imageURLs: imageURLs,
		metrics:   collector,
	}
}

// Signup はユーザーを登録し、そのユーザーのセッションを発行する。
// username、password、image_urlの検証エラーはまとめて*model.ValidationErrorとして返す。
// ユーザー名重複はmodel.ErrDuplicateUsername、それ以外の保存失敗は*model.PersistenceErrorを返す。
// セッションを発行できなかった場合は作成したユーザーを削除し、登録をなかったことにする。
func (s *Service) Signup(ctx context.Context, in SignupInput, currentSessionID string) (*model.User, *model.Session, error) {
	fields := model.FieldErrors{}
	if strings.TrimSpace(in.Username) == "" {
		fields.Add("username", model.MsgUsernameRequired)
	}
	if in.Password == "" {
		fields.Add("password", model.MsgPasswordRequired)
	}
	if in.ImageURL != nil && *in.ImageURL != "" && !s.imageURLs.Allowed(*in.ImageURL) {
		fields.Add("image_url", model.MsgImageURLInvalid)
	}
	if !fields.Empty() {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeFailure)
		return nil, nil, model.NewValidationError(fields)
	}

	user := &model.User{
		Username: in.Username,
		ImageURL: in.ImageURL,
		Bio:      in.Bio,
	}
	if err := s.creds.SetPassword(user, in.Password); err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeFailure)
		return nil, nil, model.NewPersistenceError("hash password", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeFailure)
		return nil, nil, err
	}

	session, err := s.sessions.Start(ctx, currentSessionID, user.ID)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeFailure)
		s.rollbackUser(ctx, user.ID)
		return nil, nil, model.NewPersistenceError("start session", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventSignup, metrics.OutcomeSuccess)
	slog.Info("user signed up",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, session, nil
}

// rollbackUser はセッション発行に失敗したユーザーを削除する。
// リクエストがキャンセルされていても削除は実行する。
func (s *Service) rollbackUser(ctx context.Context, userID int64) {
	if err := s.userRepo.DeleteByID(context.WithoutCancel(ctx), userID); err != nil {
		slog.Error("failed to roll back user after session failure",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Login はユーザー名とパスワードを照合し、セッションを発行する。
// ユーザーが存在しない場合とパスワードが一致しない場合はどちらもmodel.ErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, username, password, currentSessionID string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 応答時間からユーザー名の存在を推測されないよう、ダミーハッシュとも照合する
		s.creds.CheckPassword(s.dummy(), password)
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeFailure)
		slog.Warn("login failed", slog.String("reason", "unknown username"))
		return nil, nil, model.ErrInvalidCredentials
	}

	if !s.creds.CheckPassword(user, password) {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeFailure)
		slog.Warn("login failed",
			slog.String("reason", "password mismatch"),
			slog.Int64("user_id", user.ID),
		)
		return nil, nil, model.ErrInvalidCredentials
	}

	session, err := s.sessions.Start(ctx, currentSessionID, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeSuccess)
	slog.Info("user logged in", slog.Int64("user_id", user.ID))

	return user, session, nil
}

// Logout はセッションを破棄する。
// セッションIDが空の場合はmodel.ErrUnauthenticatedを返す。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.ErrUnauthenticated
	}

	if err := s.sessions.End(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventLogout, metrics.OutcomeSuccess)
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッションに紐づくユーザーを取得する。
// セッション発行後にユーザーが削除されていた場合はmodel.ErrUnauthenticatedを返す。
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUnauthenticated
	}
	return user, nil
}

// dummy はタイミング均一化用のダミーユーザーを返す。初回呼び出し時にハッシュを生成する。
func (s *Service) dummy() *model.User {
	s.dummyOnce.Do(func() {
		u := &model.User{}
		b := make([]byte, 16)
		if _, err := rand.Read(b); err == nil {
			if err := s.creds.SetPassword(u, hex.EncodeToString(b)); err != nil {
				slog.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
			}
		}
		s.dummyUser = u
	})
	return s.dummyUser
}
