package lessonremove

import (
	"context"
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

func (m *MockService) DeleteLesson(ctx context.Context, p *policy.Principal, id int64) error {
	return m.Called(ctx, p, id).Error(0)
}

func TestRemoveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	principal := &policy.Principal{UserID: 1}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"успешное удаление", nil, http.StatusNoContent},
		{"нет прав", models.ErrForbidden, http.StatusForbidden},
		{"урок не найден", models.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockService.On("DeleteLesson", mock.Anything, principal, int64(4)).Return(tt.err).Once()
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodDelete, "/lesson/delete/4/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "4")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, principal)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req.WithContext(ctx))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				assert.Empty(t, w.Body.String())
			}
			mockService.AssertExpectations(t)
		})
	}
}
