package models

import "time"

// Subscription — подписка пользователя на обновления курса.
// Для пары (UserID, CourseID) существует не более одной записи.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user"`
	CourseID  int64     `json:"course"`
	CreatedAt time.Time `json:"created_at"`
}

// DummySubscription — тело запроса на переключение подписки.
type DummySubscription struct {
	CourseID int64 `json:"course" validate:"required,gt=0"`
}

// ToggleResult — итог переключения подписки.
type ToggleResult string

const (
	// SubscriptionAdded — подписка оформлена.
	SubscriptionAdded ToggleResult = "added"
	// SubscriptionRemoved — подписка удалена.
	SubscriptionRemoved ToggleResult = "removed"
)

// Message возвращает текст ответа для клиента.
func (r ToggleResult) Message() string {
	if r == SubscriptionAdded {
		return "subscription added"
	}
	return "subscription removed"
}
