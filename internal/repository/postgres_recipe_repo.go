package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/recipebook/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

// Create はレシピを作成する。
// INSERTとusersのJOINを1つのクエリで実行し、所有者プロフィールも同時に取得する。
// 所有ユーザーが存在しない場合はmodel.ErrUnauthenticatedを返す。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe) error {
	err := r.db.QueryRowContext(ctx,
		`WITH inserted AS (
			INSERT INTO recipes (title, instructions, minutes_to_complete, user_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, created_at
		)
		SELECT i.id, i.created_at, u.id, u.username, u.image_url, u.bio
		FROM inserted i
		JOIN users u ON u.id = i.user_id`,
		recipe.Title, recipe.Instructions, recipe.MinutesToComplete, recipe.UserID,
	).Scan(
		&recipe.ID, &recipe.CreatedAt,
		&recipe.Owner.ID, &recipe.Owner.Username, &recipe.Owner.ImageURL, &recipe.Owner.Bio,
	)
	if err == nil {
		return nil
	}

	if fields := constraintFieldErrors(err); fields != nil {
		return model.NewValidationError(fields)
	}

	// 所有ユーザーがセッション確認後に削除されていた
	if pqErr, ok := asPQError(err); ok &&
		pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == constraintRecipeOwner {
		return model.ErrUnauthenticated
	}

	return model.NewPersistenceError("insert recipe", err)
}

// ListByOwner は指定ユーザーが所有するレシピを登録順（id昇順）に返す。
// 該当がない場合は空スライスを返す。
func (r *PostgresRecipeRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Recipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.title, r.instructions, r.minutes_to_complete, r.user_id, r.created_at,
		        u.id, u.username, u.image_url, u.bio
		 FROM recipes r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.user_id = $1
		 ORDER BY r.id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.Recipe{}
	for rows.Next() {
		var rc model.Recipe
		if err := rows.Scan(
			&rc.ID, &rc.Title, &rc.Instructions, &rc.MinutesToComplete, &rc.UserID, &rc.CreatedAt,
			&rc.Owner.ID, &rc.Owner.Username, &rc.Owner.ImageURL, &rc.Owner.Bio,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

// constraintFieldErrors はrecipesテーブルの制約違反をフィールド単位のエラーに変換する。
// 対応する制約でない場合はnilを返す。
func constraintFieldErrors(err error) model.FieldErrors {
	pqErr, ok := asPQError(err)
	if !ok {
		return nil
	}

	fields := model.FieldErrors{}
	switch pqErr.Code {
	case pqCheckViolation:
		switch pqErr.Constraint {
		case constraintRecipeTitle:
			fields.Add("title", model.MsgTitleRequired)
		case constraintRecipeInstructions:
			fields.Add("instructions", model.MsgInstructionsTooShort)
		}
	case pqNotNullViolation:
		switch pqErr.Column {
		case "title":
			fields.Add("title", model.MsgTitleRequired)
		case "instructions":
			fields.Add("instructions", model.MsgInstructionsTooShort)
		}
	}

	if fields.Empty() {
		return nil
	}
	return fields
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
