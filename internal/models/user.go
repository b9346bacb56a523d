// Package models содержит доменные структуры: пользователей, курсы, уроки,
// подписки и платежи, а также типы запросов, приходящих из JSON.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Avatar       *string    `json:"avatar"`
	Phone        *string    `json:"phone"`
	City         *string    `json:"city"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"-"`
	IsStaff      bool       `json:"-"`
	Groups       []string   `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
	DateJoined   time.Time  `json:"date_joined"`
}

// Profile — полное представление пользователя, доступное только ему самому.
type Profile struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	Avatar   *string    `json:"avatar"`
	Phone    *string    `json:"phone"`
	City     *string    `json:"city"`
	Payments []*Payment `json:"payments"`
}

// PublicProfile — ограниченное представление пользователя для остальных.
type PublicProfile struct {
	ID     int64   `json:"id"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
	Phone  *string `json:"phone"`
	City   *string `json:"city"`
}

// PublicProfileOf возвращает ограниченное представление пользователя.
func PublicProfileOf(u *User) *PublicProfile {
	return &PublicProfile{
		ID:     u.ID,
		Email:  u.Email,
		Avatar: u.Avatar,
		Phone:  u.Phone,
		City:   u.City,
	}
}

// DummyUser используется для приёма данных регистрации из JSON-запроса.
type DummyUser struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=6,max=128"`
	Phone    *string `json:"phone" validate:"omitempty,max=35"`
	City     *string `json:"city" validate:"omitempty,max=50"`
}

// UserPatch — частичное обновление профиля; nil-поля не изменяются.
type UserPatch struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	Phone    *string `json:"phone" validate:"omitempty,max=35"`
	City     *string `json:"city" validate:"omitempty,max=50"`
}

// Credentials — тело запроса на выдачу токенов.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair — пара access/refresh токенов.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
