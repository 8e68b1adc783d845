// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/recipebook/internal/auth"
	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput, currentSessionID string) (*model.User, *model.Session, error)
	Login(ctx context.Context, username, password, currentSessionID string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, userID int64) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインアップ・ログイン・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type signupRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	ImageURL *string `json:"image_url"`
	Bio      *string `json:"bio"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup はユーザーを作成し、そのままログイン状態にする。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewInvalidBodyError())
		return
	}

	user, session, err := h.service.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Password: req.Password,
		ImageURL: req.ImageURL,
		Bio:      req.Bio,
	}, middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		// 想定外の失敗はフィールドに紐づかない作成失敗メッセージで返す
		handleServiceError(w, r, err, model.NewUserCreateFailedError())
		return
	}

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusCreated, newUserResponse(user.Profile()))
}

// CheckSession は現在のログインユーザーのプロフィールを返す。
// GET /check_session
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, model.MsgNotLoggedIn)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user.Profile()))
}

// Login はユーザー名とパスワードで認証し、新しいセッションを開始する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewInvalidBodyError())
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Username, req.Password,
		middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusOK, newUserResponse(user.Profile()))
}

// Logout はセッションを破棄してCookieをクリアする。
// DELETE /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r, model.MsgNotLoggedIn); !ok {
		return
	}

	if err := h.service.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
		// 破棄に失敗してもCookieはクリアする
		slog.Error("failed to logout",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
