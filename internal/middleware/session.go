// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
	sessionIDContextKey = contextKey("session_id")
	// sessionErrContextKey はセッション解決に失敗したことを示すエラーを格納するためのキー。
	sessionErrContextKey = contextKey("session_error")
)

var (
	// ErrNoSession はコンテキストに有効なセッションのユーザーがいないことを示す。
	ErrNoSession = errors.New("user ID not found in context")
	// ErrSessionUnavailable はセッションストアの障害でユーザーを解決できなかったことを示す。
	ErrSessionUnavailable = errors.New("session store unavailable")
)

// SessionResolver はセッションIDからユーザーIDを解決するインターフェース。
// *session.Managerがこれを満たす。
type SessionResolver interface {
	CurrentUserID(ctx context.Context, id string) (int64, bool, error)
}

// NewSessionMiddleware はHTTP Only CookieからセッションIDを読み取り、
// セッションIDと（有効な場合は）ユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証のリクエストも拒否せずに次へ渡す。401の判定とメッセージは各ハンドラーが行う。
// セッションストアのエラーはコンテキストに記録し、UserIDFromContextがErrSessionUnavailableを返す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDContextKey, cookie.Value)

			userID, ok, err := resolver.CurrentUserID(ctx, cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
					slog.String("request_id", RequestIDFromContext(ctx)),
				)
				ctx = context.WithValue(ctx, sessionErrContextKey, err)
			}
			if ok {
				ctx = context.WithValue(ctx, userIDContextKey, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 有効なセッションがない場合はErrNoSession、セッションストアの障害時は
// ErrSessionUnavailableをラップしたエラーを返す。
func UserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	if ok && userID != 0 {
		return userID, nil
	}
	if cause, _ := ctx.Value(sessionErrContextKey).(error); cause != nil {
		return 0, errors.Join(ErrSessionUnavailable, cause)
	}
	return 0, ErrNoSession
}

// SessionIDFromContext はリクエストのCookieに含まれていたセッションIDを返す。
// セッションが無効でもCookieがあれば値を返す。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSession はコンテキストにセッションIDとユーザーIDを注入する。
func ContextWithSession(ctx context.Context, sessionID string, userID int64) context.Context {
	ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	return ContextWithUserID(ctx, userID)
}
