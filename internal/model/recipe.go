package model

import "time"

// RecipeInstructionsMinLength はレシピ手順の最小文字数（rune単位）。
const RecipeInstructionsMinLength = 50

// Recipe はユーザーが投稿したレシピを表す。
// Ownerは取得時に所有ユーザーのプロフィールをJOINして埋める。
type Recipe struct {
	ID                int64
	Title             string
	Instructions      string
	MinutesToComplete *int
	UserID            int64
	Owner             UserProfile
	CreatedAt         time.Time
}
