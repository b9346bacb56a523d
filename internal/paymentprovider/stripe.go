// Package paymentprovider — клиент платёжного провайдера Stripe:
// продукт, цена и checkout-сессия для оплаты курса или урока.
package paymentprovider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/magabrotheeeer/materials-api/internal/config"
)

// Session — созданная checkout-сессия.
type Session struct {
	ID     string
	URL    string
	Status string
}

// Stripe реализует вызовы Stripe API.
type Stripe struct {
	api        *client.API
	currency   string
	successURL string
	cancelURL  string
}

// New создаёт клиент с ключом из конфига. backends == nil означает боевые адреса Stripe.
func New(cfg config.Stripe, backends *stripe.Backends) *Stripe {
	return &Stripe{
		api:        client.New(cfg.SecretKey, backends),
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// IdempotencyKey детерминированно выводит ключ идемпотентности для этапа оплаты.
// Повтор с тем же attempt не создаёт дубликатов у провайдера. Stripe сутки отдаёт
// сохранённый ответ на ключ, в том числе ошибку 5xx, поэтому после отказа провайдера
// attempt увеличивается.
func IdempotencyKey(paymentID int64, stage string, attempt int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "payment:%d:%s:%d", paymentID, stage, attempt)).String()
}

// CreateProduct создаёт продукт с названием name и возвращает его ID.
func (s *Stripe) CreateProduct(ctx context.Context, name, idempotencyKey string) (string, error) {
	const op = "paymentprovider.CreateProduct"
	params := &stripe.ProductParams{Name: stripe.String(name)}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	p, err := s.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return p.ID, nil
}

// CreatePrice создаёт цену продукта. amount задаётся в основных единицах валюты.
func (s *Stripe) CreatePrice(ctx context.Context, productID string, amount int64, idempotencyKey string) (string, error) {
	const op = "paymentprovider.CreatePrice"
	params := &stripe.PriceParams{
		Currency:   stripe.String(s.currency),
		UnitAmount: stripe.Int64(amount * 100),
		Product:    stripe.String(productID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	p, err := s.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return p.ID, nil
}

// CreateSession создаёт checkout-сессию на одну позицию с ценой priceID.
func (s *Stripe) CreateSession(ctx context.Context, priceID, idempotencyKey string) (*Session, error) {
	const op = "paymentprovider.CreateSession"
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL, Status: string(sess.PaymentStatus)}, nil
}

// SessionStatus возвращает текущий статус оплаты сессии.
func (s *Stripe) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	const op = "paymentprovider.SessionStatus"
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(sess.PaymentStatus), nil
}
