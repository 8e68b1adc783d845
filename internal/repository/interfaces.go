// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/recipebook/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに設定する。
	// ユーザー名が既に存在する場合はmodel.ErrDuplicateUsernameを返す。
	// それ以外の失敗は*model.PersistenceErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。レシピとセッションはCASCADEで削除される。
	// 存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id int64) error
}

// RecipeRepository はレシピデータの永続化インターフェース。
type RecipeRepository interface {
	// Create はレシピを作成し、ID・作成日時・所有者プロフィールをrecipeに設定する。
	// DBの制約違反はフィールド単位の*model.ValidationErrorに変換する。
	Create(ctx context.Context, recipe *model.Recipe) error

	// ListByOwner は指定ユーザーが所有するレシピを登録順に返す。
	// 各レシピには所有者のプロフィールが含まれる。
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Recipe, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}
