package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ドメイン層のセンチネルエラー。呼び出し側はerrors.Isで判定する。
var (
	// ErrDuplicateUsername はユーザー名の一意制約違反を表す。
	ErrDuplicateUsername = errors.New("username is already taken")
	// ErrInvalidCredentials はユーザー名またはパスワードの不一致を表す。
	// どちらが誤っているかは区別しない。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated は有効なセッションが存在しないことを表す。
	ErrUnauthenticated = errors.New("not logged in")
)

// FieldErrors はフィールド名をキーとしたエラーメッセージの一覧。
type FieldErrors map[string][]string

// Add は指定フィールドにエラーメッセージを追加する。
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty はエラーが1件も登録されていない場合にtrueを返す。
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// fieldNames はフィールド名をソートして返す。
func (f FieldErrors) fieldNames() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError はフィールド単位の入力検証エラー。
// 複数フィールドのエラーを1つにまとめて保持する。
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.fieldNames(), ", ")
}

// PersistenceError は永続化層の想定外の失敗を表す。
// フィールドに紐づかない汎用エラーとしてクライアントに返される。
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError はPersistenceErrorを生成する。
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// Error はerrorインターフェースを実装する。
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s): %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// APIError はクライアントに返すエラーを表す。
// Fieldsが空でない場合はフィールド単位のエラー、それ以外はMessageのみを返す。
type APIError struct {
	Code    string // エラーコード（ログ・ステータス判定用）
	Message string // フィールドに紐づかないメッセージ
	Fields  FieldErrors
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if !e.Fields.Empty() {
		return fmt.Sprintf("[%s] %s", e.Code, strings.Join(e.Fields.fieldNames(), ", "))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Body はレスポンスボディの errors 配下に入れる値を返す。
func (e *APIError) Body() map[string]any {
	if !e.Fields.Empty() {
		body := make(map[string]any, len(e.Fields))
		for field, messages := range e.Fields {
			body[field] = messages
		}
		return body
	}
	return map[string]any{"message": e.Message}
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeUserCreateFailed   = "USER_CREATE_FAILED"
	ErrCodeRecipeCreateFailed = "RECIPE_CREATE_FAILED"
	ErrCodeInvalidBody        = "INVALID_BODY"
	ErrCodeNotLoggedIn        = "NOT_LOGGED_IN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// クライアント向けメッセージ
const (
	MsgUsernameTaken        = "Username is already taken."
	MsgUsernameRequired     = "Username is required."
	MsgPasswordRequired     = "Password is required."
	MsgImageURLInvalid      = "Image URL must be an http or https URL."
	MsgTitleRequired        = "Title is required."
	MsgInstructionsTooShort = "Instructions must be at least 50 characters."
	MsgUserCreateFailed     = "An error occurred while creating the user."
	MsgRecipeCreateFailed   = "An error occurred while creating the recipe."
	MsgInvalidBody          = "Invalid request body."
	MsgNotLoggedIn          = "You are not logged in."
	MsgInvalidCredentials   = "Invalid username or password."
	MsgViewRecipesLogin     = "You must be logged in to view recipes."
	MsgCreateRecipeLogin    = "You must be logged in to create a recipe."
	MsgRateLimited          = "Too many requests. Please try again later."
	MsgInternal             = "An unexpected error occurred."
)

// NewFieldAPIError はフィールド単位のエラーレスポンスを生成する。
func NewFieldAPIError(fields FieldErrors) *APIError {
	return &APIError{Code: ErrCodeValidation, Fields: fields}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError() *APIError {
	return &APIError{
		Code:   ErrCodeDuplicateUsername,
		Fields: FieldErrors{"username": {MsgUsernameTaken}},
	}
}

// NewUserCreateFailedError はユーザー作成時の汎用エラーを生成する。
func NewUserCreateFailedError() *APIError {
	return &APIError{Code: ErrCodeUserCreateFailed, Message: MsgUserCreateFailed}
}

// NewRecipeCreateFailedError はレシピ作成時の汎用エラーを生成する。
func NewRecipeCreateFailedError() *APIError {
	return &APIError{Code: ErrCodeRecipeCreateFailed, Message: MsgRecipeCreateFailed}
}

// NewInvalidBodyError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidBodyError() *APIError {
	return &APIError{Code: ErrCodeInvalidBody, Message: MsgInvalidBody}
}

// NewNotLoggedInError は未ログインエラーを生成する。
// messageは呼び出し元のエンドポイントごとに異なる。
func NewNotLoggedInError(message string) *APIError {
	return &APIError{Code: ErrCodeNotLoggedIn, Message: message}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Code: ErrCodeInvalidCredentials, Message: MsgInvalidCredentials}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Code: ErrCodeRateLimited, Message: MsgRateLimited}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{Code: ErrCodeInternal, Message: MsgInternal}
}
