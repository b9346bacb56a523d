package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/materials-api/internal/lib/validation"
	"github.com/magabrotheeeer/materials-api/internal/models"
)

func TestID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			id, err := ID(req, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		query   string
		want    models.Page
		wantErr bool
	}{
		{"", models.Page{Limit: DefaultLimit}, false},
		{"limit=5&offset=10", models.Page{Limit: 5, Offset: 10}, false},
		{"limit=1000", models.Page{Limit: MaxLimit}, false},
		{"limit=0", models.Page{}, true},
		{"offset=-1", models.Page{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, err := Page(req)
			if tt.wantErr {
				var verr *models.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, page)
		})
	}
}

func TestOptionalParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?paid_course=3&pay_transfer=false&bad=x", nil)

	course, err := OptionalInt64(req, "paid_course")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *course)

	lesson, err := OptionalInt64(req, "paid_lesson")
	require.NoError(t, err)
	assert.Nil(t, lesson)

	transfer, err := OptionalBool(req, "pay_transfer")
	require.NoError(t, err)
	assert.False(t, *transfer)

	_, err = OptionalInt64(req, "bad")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	v := validation.New()

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Go"}`))
		var dst models.DummyCourse
		require.NoError(t, Decode(req, v, &dst))
		assert.Equal(t, "Go", dst.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var dst models.DummyCourse
		var verr *models.ValidationError
		require.ErrorAs(t, Decode(req, v, &dst), &verr)
		assert.Contains(t, verr.Fields, "non_field_errors")
	})

	t.Run("missing required field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		var dst models.DummyCourse
		var verr *models.ValidationError
		require.ErrorAs(t, Decode(req, v, &dst), &verr)
		assert.Equal(t, []string{"This field is required."}, verr.Fields["name"])
	})
}
