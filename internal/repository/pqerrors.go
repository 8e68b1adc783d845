package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	pqNotNullViolation    = "23502"
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
)

// 制約名。マイグレーションで定義した名前と一致させること。
const (
	constraintUsernameUnique     = "users_username_key"
	constraintRecipeTitle        = "recipes_title_check"
	constraintRecipeInstructions = "recipes_instructions_check"
	constraintRecipeOwner        = "recipes_user_id_fkey"
)

// asPQError はerrがPostgreSQLのエラーであれば*pq.Errorを返す。
func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}
