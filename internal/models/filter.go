package models

// PaymentFilter представляет параметры фильтрации списка платежей,
// которые передаются в слой доступа к данным.
type PaymentFilter struct {
	UserID       *int64 // Владелец платежа (nil — все платежи, для администраторов)
	PaidCourseID *int64 // Оплаченный курс
	PaidLessonID *int64 // Оплаченный урок
	PayTransfer  *bool  // Оплата переводом
	OrderDesc    bool   // Сортировка по дате оплаты по убыванию
	Page
}
