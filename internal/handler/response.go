package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/recipebook/internal/middleware"
	"github.com/hitoshi/recipebook/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// userResponse はユーザーの公開プロフィールのJSON表現。
// password_hashは含めない。
type userResponse struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	ImageURL *string `json:"image_url"`
	Bio      *string `json:"bio"`
}

func newUserResponse(p model.UserProfile) userResponse {
	return userResponse{
		ID:       p.ID,
		Username: p.Username,
		ImageURL: p.ImageURL,
		Bio:      p.Bio,
	}
}

// recipeResponse はレシピのJSON表現。所有ユーザーをuserとして埋め込む。
type recipeResponse struct {
	ID                int64        `json:"id"`
	Title             string       `json:"title"`
	Instructions      string       `json:"instructions"`
	MinutesToComplete *int         `json:"minutes_to_complete"`
	User              userResponse `json:"user"`
}

func newRecipeResponse(r *model.Recipe) recipeResponse {
	return recipeResponse{
		ID:                r.ID,
		Title:             r.Title,
		Instructions:      r.Instructions,
		MinutesToComplete: r.MinutesToComplete,
		User:              newUserResponse(r.Owner),
	}
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをdstにデコードする。
// 空ボディ、不正なJSON、型の不一致はいずれもエラーになる。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeAPIErrorResponse はAPIErrorを {"errors": {...}} 形式で書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// requireUserID はセッションのユーザーIDを返す。
// 未ログインならmsgを持つ401を、セッションストア障害なら500を書き込み、falseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err == nil {
		return userID, true
	}

	if errors.Is(err, middleware.ErrSessionUnavailable) {
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return 0, false
	}

	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotLoggedInError(msg))
	return 0, false
}

// handleServiceError はサービス層から返されたエラーをAPIErrorに変換してレスポンスを書き込む。
// fallbackは想定外のエラー時に返すAPIError。nilの場合は500を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback *model.APIError) {
	apiErr := toAPIError(err)
	if apiErr == nil {
		slog.Error("unexpected service error",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if fallback == nil {
			fallback = model.NewInternalError()
		}
		apiErr = fallback
	}

	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// toAPIError はドメインエラーを対応するAPIErrorに変換する。
// 対応するものがない場合はnilを返す。
func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return model.NewFieldAPIError(validationErr.Fields)
	}

	switch {
	case errors.Is(err, model.ErrDuplicateUsername):
		return model.NewDuplicateUsernameError()
	case errors.Is(err, model.ErrInvalidCredentials):
		return model.NewInvalidCredentialsError()
	case errors.Is(err, model.ErrUnauthenticated):
		return model.NewNotLoggedInError(model.MsgNotLoggedIn)
	}

	return nil
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation,
		model.ErrCodeDuplicateUsername,
		model.ErrCodeUserCreateFailed,
		model.ErrCodeRecipeCreateFailed,
		model.ErrCodeInvalidBody:
		return http.StatusUnprocessableEntity
	case model.ErrCodeNotLoggedIn, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
