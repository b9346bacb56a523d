package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound — запрошенная запись отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated — запрос выполнен без валидной учётной записи.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	// ErrInvalidToken — переданный токен не разобран, просрочен, отозван или принадлежит неактивной учётной записи.
	ErrInvalidToken = errors.New("given token is invalid or expired")
	// ErrForbidden — учётная запись опознана, но прав на действие нет.
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrInvalidCredentials — неверная пара email/пароль или неактивная учётная запись.
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	// ErrEmailTaken — email уже занят другим пользователем.
	ErrEmailTaken = errors.New("user with this email already exists")
)

// ValidationError содержит ошибки по полям в формате {"field": ["message"]}.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError создаёт ошибку валидации с одним сообщением для поля.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// Add добавляет сообщение к полю.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// GatewayError — платёжный провайдер недоступен или отклонил запрос.
// PaymentID указывает на сохранённую запись платежа, Stage — этап, на котором произошёл сбой.
type GatewayError struct {
	PaymentID int64
	Stage     PaymentStage
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway failed at stage %s: %v", e.Stage, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
