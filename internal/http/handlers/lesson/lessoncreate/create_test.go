package lessoncreate

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

func (m *MockService) CreateLesson(ctx context.Context, p *policy.Principal, req models.DummyLesson) (*models.Lesson, error) {
	args := m.Called(ctx, p, req)
	if res := args.Get(0); res != nil {
		return res.(*models.Lesson), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateHandler(t *testing.T) {
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
			name: "ссылка на youtube принимается",
			body: `{"name":"Intro","video":"https://www.youtube.com/123","course":5}`,
			setupMock: func(m *MockService) {
				m.On("CreateLesson", mock.Anything, principal, models.DummyLesson{
					Name: "Intro", Video: "https://www.youtube.com/123", CourseID: 5,
				}).Return(&models.Lesson{ID: 8, Name: "Intro", Video: "https://www.youtube.com/123", CourseID: 5}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"video":"https://www.youtube.com/123"`,
		},
		{
			name:           "ссылка на другой хост отклоняется",
			body:           `{"name":"Intro","video":"https://www.test.com/54321","course":5}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"video":["Incorrect YouTube URL"]}`,
		},
		{
			name: "курс не существует",
			body: `{"name":"Intro","video":"https://youtu.be/x","course":99}`,
			setupMock: func(m *MockService) {
				m.On("CreateLesson", mock.Anything, principal, mock.Anything).
					Return(nil, models.NewValidationError("course", "Invalid pk - object does not exist.")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"course":["Invalid pk - object does not exist."]`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"name":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `non_field_errors`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/lesson/create/", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.PrincipalKey, principal))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
