package models

import "time"

// PaymentStage — этап оформления платёжной сессии у провайдера.
// Этапы сохраняются в записи платежа, чтобы после сбоя можно было продолжить с последнего успешного.
type PaymentStage string

const (
	StageCreated      PaymentStage = "created"
	StageProductReady PaymentStage = "product_ready"
	StagePriceReady   PaymentStage = "price_ready"
	StageSessionReady PaymentStage = "session_ready"
	StageFailed       PaymentStage = "failed"
)

// Payment — запись об оплате курса или урока.
type Payment struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user"`
	PayDate       time.Time    `json:"pay_date"`
	PaidCourseID  *int64       `json:"paid_course"`
	PaidLessonID  *int64       `json:"paid_lesson"`
	Amount        int          `json:"pay_sum"`
	PayTransfer   bool         `json:"pay_transfer"`
	SessionID     *string      `json:"session_id"`
	PaymentLink   *string      `json:"payment_link"`
	PaymentStatus *string      `json:"payment_status"`
	Stage         PaymentStage `json:"gateway_stage"`
	ProductID     *string      `json:"-"`
	PriceID       *string      `json:"-"`
	GatewayError  *string      `json:"gateway_error,omitempty"`
	// Attempt — число отказов провайдера, входит в ключи идемпотентности.
	Attempt int `json:"-"`
}

// DummyPayment используется для приёма данных платежа из JSON-запроса.
type DummyPayment struct {
	PaidCourseID *int64 `json:"paid_course" validate:"omitempty,gt=0"`
	PaidLessonID *int64 `json:"paid_lesson" validate:"omitempty,gt=0"`
	Amount       int    `json:"pay_sum" validate:"required,gt=0"`
	PayTransfer  *bool  `json:"pay_transfer"`
}

// PaymentPatch — частичное обновление платежа.
type PaymentPatch struct {
	PaidCourseID *int64 `json:"paid_course" validate:"omitempty,gt=0"`
	PaidLessonID *int64 `json:"paid_lesson" validate:"omitempty,gt=0"`
	Amount       *int   `json:"pay_sum" validate:"omitempty,gt=0"`
	PayTransfer  *bool  `json:"pay_transfer"`
}

// Empty сообщает, что патч не содержит изменений.
func (p PaymentPatch) Empty() bool {
	return p.PaidCourseID == nil && p.PaidLessonID == nil && p.Amount == nil && p.PayTransfer == nil
}
