package toggle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/materials-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Toggle(ctx context.Context, p *policy.Principal, courseID int64) (models.ToggleResult, error) {
	args := m.Called(ctx, p, courseID)
	return args.Get(0).(models.ToggleResult), args.Error(1)
}

func TestToggleHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	principal := &policy.Principal{UserID: 1}

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "подписка оформлена",
			body: `{"course":3}`,
			setupMock: func(m *MockService) {
				m.On("Toggle", mock.Anything, principal, int64(3)).Return(models.SubscriptionAdded, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"subscription added"}`,
		},
		{
			name: "подписка удалена",
			body: `{"course":3}`,
			setupMock: func(m *MockService) {
				m.On("Toggle", mock.Anything, principal, int64(3)).Return(models.SubscriptionRemoved, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"subscription removed"}`,
		},
		{
			name: "курс не найден",
			body: `{"course":42}`,
			setupMock: func(m *MockService) {
				m.On("Toggle", mock.Anything, principal, int64(42)).Return(models.ToggleResult(""), models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "курс не указан",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"course"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subs/create/", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.PrincipalKey, principal))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
