package paymentstatus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/materials-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context, p *policy.Principal, id int64) (string, error) {
	args := m.Called(ctx, p, id)
	return args.String(0), args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	principal := &policy.Principal{UserID: 1}

	tests := []struct {
		name           string
		status         string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"оплачено", "paid", nil, http.StatusOK, `{"payment_status":"paid"}`},
		{"сессия не создана", "", models.NewValidationError("session_id", "Payment has no checkout session."), http.StatusBadRequest, `"session_id"`},
		{"провайдер недоступен", "", &models.GatewayError{PaymentID: 2, Stage: models.StageSessionReady, Err: errors.New("timeout")}, http.StatusBadGateway, `"payment_id":2`},
		{"чужой платеж", "", models.ErrForbidden, http.StatusForbidden, `"status":"Error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockService.On("Status", mock.Anything, principal, int64(2)).Return(tt.status, tt.err).Once()
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/payments/2/status/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "2")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, principal)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req.WithContext(ctx))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
