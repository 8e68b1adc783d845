// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはレスポンスに含めてはならない。公開時はProfileを使用する。
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	ImageURL     *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile はユーザーの公開プロフィール（id, username, image_url, bio）を表す。
type UserProfile struct {
	ID       int64
	Username string
	ImageURL *string
	Bio      *string
}

// Profile はユーザーの公開プロフィールを返す。
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
		ImageURL: u.ImageURL,
		Bio:      u.Bio,
	}
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
