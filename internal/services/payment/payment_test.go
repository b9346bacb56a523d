package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/materials-api/internal/metrics"
	"github.com/magabrotheeeer/materials-api/internal/models"
	"github.com/magabrotheeeer/materials-api/internal/paymentprovider"
	"github.com/magabrotheeeer/materials-api/internal/policy"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *RepoMock) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *RepoMock) ListPayments(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}
func (m *RepoMock) UpdatePayment(ctx context.Context, id int64, patch models.PaymentPatch) (*models.Payment, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *RepoMock) SavePaymentGatewayState(ctx context.Context, p *models.Payment) error {
	return m.Called(ctx, p).Error(0)
}
func (m *RepoMock) DeletePayment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *RepoMock) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}
func (m *RepoMock) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateProduct(ctx context.Context, name, key string) (string, error) {
	args := m.Called(ctx, name, key)
	return args.String(0), args.Error(1)
}
func (m *GatewayMock) CreatePrice(ctx context.Context, productID string, amount int64, key string) (string, error) {
	args := m.Called(ctx, productID, amount, key)
	return args.String(0), args.Error(1)
}
func (m *GatewayMock) CreateSession(ctx context.Context, priceID, key string) (*paymentprovider.Session, error) {
	args := m.Called(ctx, priceID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Session), args.Error(1)
}
func (m *GatewayMock) SessionStatus(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func ptr[T any](v T) *T { return &v }

func stageIs(stage models.PaymentStage) any {
	return mock.MatchedBy(func(p *models.Payment) bool { return p.Stage == stage })
}

var (
	buyer    = &policy.Principal{UserID: 1}
	stranger = &policy.Principal{UserID: 2}
	admin    = &policy.Principal{UserID: 3, Role: policy.RoleAdministrator}
)

func newPayment() *models.Payment {
	return &models.Payment{
		ID:           10,
		UserID:       1,
		PayDate:      time.Now(),
		PaidCourseID: ptr(int64(5)),
		Amount:       1500,
		PayTransfer:  true,
		Stage:        models.StageCreated,
	}
}

func TestPaymentService_Create_Success(t *testing.T) {
	r, g := new(RepoMock), new(GatewayMock)
	met := metrics.New(prometheus.NewRegistry())
	s := New(r, g, met.PaymentsCreatedTotal, newNoopLogger())

	r.On("GetCourse", mock.Anything, int64(5)).Return(&models.Course{ID: 5, Name: "Go"}, nil).Once()
	r.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.UserID == 1 && p.Amount == 1500 && p.PayTransfer
	})).Return(newPayment(), nil).Once()
	g.On("CreateProduct", mock.Anything, "Go", paymentprovider.IdempotencyKey(10, "product", 0)).Return("prod_1", nil).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StageProductReady)).Return(nil).Once()
	g.On("CreatePrice", mock.Anything, "prod_1", int64(1500), paymentprovider.IdempotencyKey(10, "price", 0)).Return("price_1", nil).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StagePriceReady)).Return(nil).Once()
	g.On("CreateSession", mock.Anything, "price_1", paymentprovider.IdempotencyKey(10, "session", 0)).
		Return(&paymentprovider.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1", Status: "unpaid"}, nil).Once()
	g.On("SessionStatus", mock.Anything, "cs_1").Return("unpaid", nil).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StageSessionReady)).Return(nil).Once()

	pay, err := s.Create(context.Background(), buyer, models.DummyPayment{PaidCourseID: ptr(int64(5)), Amount: 1500})
	require.NoError(t, err)
	require.NotNil(t, pay.SessionID)
	require.NotNil(t, pay.PaymentLink)
	assert.Equal(t, "cs_1", *pay.SessionID)
	assert.Equal(t, "unpaid", *pay.PaymentStatus)
	assert.Equal(t, models.StageSessionReady, pay.Stage)
	assert.Nil(t, pay.GatewayError)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.PaymentsCreatedTotal.WithLabelValues("session_ready")))
	r.AssertExpectations(t)
	g.AssertExpectations(t)
}

func TestPaymentService_Create_GatewayFailureKeepsRecord(t *testing.T) {
	r, g := new(RepoMock), new(GatewayMock)
	s := New(r, g, nil, newNoopLogger())

	r.On("GetCourse", mock.Anything, int64(5)).Return(&models.Course{ID: 5, Name: "Go"}, nil).Once()
	r.On("CreatePayment", mock.Anything, mock.Anything).Return(newPayment(), nil).Once()
	g.On("CreateProduct", mock.Anything, "Go", mock.Anything).Return("prod_1", nil).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StageProductReady)).Return(nil).Once()
	g.On("CreatePrice", mock.Anything, "prod_1", int64(1500), mock.Anything).Return("", errors.New("stripe unavailable")).Once()
	r.On("SavePaymentGatewayState", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.Stage == models.StageFailed && p.GatewayError != nil && p.ProductID != nil && *p.ProductID == "prod_1" &&
			p.Attempt == 1
	})).Return(nil).Once()

	pay, err := s.Create(context.Background(), buyer, models.DummyPayment{PaidCourseID: ptr(int64(5)), Amount: 1500})
	var gerr *models.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, int64(10), gerr.PaymentID)
	assert.Equal(t, models.StageProductReady, gerr.Stage)
	require.NotNil(t, pay)
	assert.Nil(t, pay.SessionID)
	r.AssertExpectations(t)
}

func TestPaymentService_Checkout_ResumesFromLastStage(t *testing.T) {
	r, g := new(RepoMock), new(GatewayMock)
	s := New(r, g, nil, newNoopLogger())

	failed := newPayment()
	failed.Stage = models.StageFailed
	failed.ProductID = ptr("prod_1")
	failed.GatewayError = ptr("stripe unavailable")
	failed.Attempt = 1

	r.On("GetPayment", mock.Anything, int64(10)).Return(failed, nil).Once()
	r.On("GetCourse", mock.Anything, int64(5)).Return(&models.Course{ID: 5, Name: "Go"}, nil).Once()
	g.On("CreatePrice", mock.Anything, "prod_1", int64(1500), paymentprovider.IdempotencyKey(10, "price", 1)).Return("price_1", nil).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StagePriceReady)).Return(nil).Once()
	g.On("CreateSession", mock.Anything, "price_1", mock.Anything).
		Return(&paymentprovider.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1", Status: "unpaid"}, nil).Once()
	g.On("SessionStatus", mock.Anything, "cs_1").Return("", errors.New("timeout")).Once()
	r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StageSessionReady)).Return(nil).Once()

	pay, err := s.Checkout(context.Background(), buyer, 10)
	require.NoError(t, err)
	assert.Equal(t, "unpaid", *pay.PaymentStatus)
	assert.Nil(t, pay.GatewayError)
	g.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything)
	r.AssertExpectations(t)
}

func TestPaymentService_Checkout_ReadySessionIsNoop(t *testing.T) {
	r, g := new(RepoMock), new(GatewayMock)
	s := New(r, g, nil, newNoopLogger())

	ready := newPayment()
	ready.Stage = models.StageSessionReady
	ready.SessionID = ptr("cs_1")
	r.On("GetPayment", mock.Anything, int64(10)).Return(ready, nil).Once()

	pay, err := s.Checkout(context.Background(), buyer, 10)
	require.NoError(t, err)
	assert.Equal(t, ready, pay)
	g.AssertExpectations(t)
}

func TestPaymentService_Create_Validation(t *testing.T) {
	tests := []struct {
		name       string
		req        models.DummyPayment
		setupMocks func(r *RepoMock)
		wantField  string
	}{
		{
			name:       "course and lesson together",
			req:        models.DummyPayment{PaidCourseID: ptr(int64(5)), PaidLessonID: ptr(int64(6)), Amount: 100},
			setupMocks: func(_ *RepoMock) {},
			wantField:  "non_field_errors",
		},
		{
			name: "unknown lesson",
			req:  models.DummyPayment{PaidLessonID: ptr(int64(6)), Amount: 100},
			setupMocks: func(r *RepoMock) {
				r.On("GetLesson", mock.Anything, int64(6)).Return(nil, models.ErrNotFound).Once()
			},
			wantField: "paid_lesson",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			tt.setupMocks(r)
			s := New(r, new(GatewayMock), nil, newNoopLogger())

			_, err := s.Create(context.Background(), buyer, tt.req)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
			r.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentService_Get_Access(t *testing.T) {
	tests := []struct {
		name    string
		p       *policy.Principal
		wantErr error
	}{
		{"owner", buyer, nil},
		{"admin", admin, nil},
		{"stranger", stranger, models.ErrForbidden},
		{"anonymous", nil, models.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			r.On("GetPayment", mock.Anything, int64(10)).Return(newPayment(), nil).Maybe()
			s := New(r, new(GatewayMock), nil, newNoopLogger())

			_, err := s.Get(context.Background(), tt.p, 10)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPaymentService_List_Scope(t *testing.T) {
	t.Run("regular user sees own payments", func(t *testing.T) {
		r := new(RepoMock)
		r.On("ListPayments", mock.Anything, mock.MatchedBy(func(f models.PaymentFilter) bool {
			return f.UserID != nil && *f.UserID == 1 && f.OrderDesc
		})).Return(nil, nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		got, err := s.List(context.Background(), buyer, models.PaymentFilter{UserID: ptr(int64(99)), OrderDesc: true})
		require.NoError(t, err)
		assert.NotNil(t, got)
		r.AssertExpectations(t)
	})

	t.Run("admin sees all", func(t *testing.T) {
		r := new(RepoMock)
		r.On("ListPayments", mock.Anything, mock.MatchedBy(func(f models.PaymentFilter) bool {
			return f.UserID == nil
		})).Return([]*models.Payment{newPayment()}, nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		got, err := s.List(context.Background(), admin, models.PaymentFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestPaymentService_Status_DoesNotMutate(t *testing.T) {
	r, g := new(RepoMock), new(GatewayMock)
	s := New(r, g, nil, newNoopLogger())

	stored := newPayment()
	stored.Stage = models.StageSessionReady
	stored.SessionID = ptr("cs_1")
	stored.PaymentStatus = ptr("unpaid")
	r.On("GetPayment", mock.Anything, int64(10)).Return(stored, nil).Once()
	g.On("SessionStatus", mock.Anything, "cs_1").Return("paid", nil).Once()

	status, err := s.Status(context.Background(), buyer, 10)
	require.NoError(t, err)
	assert.Equal(t, "paid", status)
	assert.Equal(t, "unpaid", *stored.PaymentStatus)
	r.AssertNotCalled(t, "SavePaymentGatewayState", mock.Anything, mock.Anything)
	r.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Status_Errors(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		r := new(RepoMock)
		r.On("GetPayment", mock.Anything, int64(10)).Return(newPayment(), nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		_, err := s.Status(context.Background(), buyer, 10)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("gateway failure", func(t *testing.T) {
		r, g := new(RepoMock), new(GatewayMock)
		stored := newPayment()
		stored.SessionID = ptr("cs_1")
		r.On("GetPayment", mock.Anything, int64(10)).Return(stored, nil).Once()
		g.On("SessionStatus", mock.Anything, "cs_1").Return("", errors.New("down")).Once()
		s := New(r, g, nil, newNoopLogger())

		_, err := s.Status(context.Background(), buyer, 10)
		var gerr *models.GatewayError
		assert.ErrorAs(t, err, &gerr)
	})
}

func TestPaymentService_Update(t *testing.T) {
	t.Run("switching to lesson while course set is rejected", func(t *testing.T) {
		r := new(RepoMock)
		r.On("GetPayment", mock.Anything, int64(10)).Return(newPayment(), nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		_, err := s.Update(context.Background(), buyer, 10, models.PaymentPatch{PaidLessonID: ptr(int64(6))})
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("amount change", func(t *testing.T) {
		r := new(RepoMock)
		patch := models.PaymentPatch{Amount: ptr(2000)}
		updated := newPayment()
		updated.Amount = 2000
		r.On("GetPayment", mock.Anything, int64(10)).Return(newPayment(), nil).Once()
		r.On("UpdatePayment", mock.Anything, int64(10), patch).Return(updated, nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		got, err := s.Update(context.Background(), buyer, 10, patch)
		require.NoError(t, err)
		assert.Equal(t, 2000, got.Amount)
	})
}

func TestPaymentService_Update_LockedAfterCheckoutStarted(t *testing.T) {
	started := func() *models.Payment {
		pay := newPayment()
		pay.Stage = models.StageFailed
		pay.ProductID = ptr("prod_1")
		pay.PriceID = ptr("price_1")
		pay.GatewayError = ptr("stripe unavailable")
		return pay
	}

	tests := []struct {
		name      string
		patch     models.PaymentPatch
		wantField string
	}{
		{"amount", models.PaymentPatch{Amount: ptr(500)}, "pay_sum"},
		{"course", models.PaymentPatch{PaidCourseID: ptr(int64(6))}, "paid_course"},
		{"lesson", models.PaymentPatch{PaidLessonID: ptr(int64(7))}, "paid_lesson"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			r.On("GetPayment", mock.Anything, int64(10)).Return(started(), nil).Once()
			s := New(r, new(GatewayMock), nil, newNoopLogger())

			_, err := s.Update(context.Background(), buyer, 10, tt.patch)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
			r.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("transfer flag and unchanged amount are allowed", func(t *testing.T) {
		r := new(RepoMock)
		patch := models.PaymentPatch{Amount: ptr(1500), PayTransfer: ptr(false)}
		updated := started()
		updated.PayTransfer = false
		r.On("GetPayment", mock.Anything, int64(10)).Return(started(), nil).Once()
		r.On("GetCourse", mock.Anything, int64(5)).Return(&models.Course{ID: 5, Name: "Go"}, nil).Maybe()
		r.On("UpdatePayment", mock.Anything, int64(10), patch).Return(updated, nil).Once()
		s := New(r, new(GatewayMock), nil, newNoopLogger())

		got, err := s.Update(context.Background(), buyer, 10, patch)
		require.NoError(t, err)
		assert.False(t, got.PayTransfer)
	})

	t.Run("checkout charges the stored amount", func(t *testing.T) {
		r, g := new(RepoMock), new(GatewayMock)
		r.On("GetPayment", mock.Anything, int64(10)).Return(started(), nil).Twice()
		r.On("GetCourse", mock.Anything, int64(5)).Return(&models.Course{ID: 5, Name: "Go"}, nil).Once()
		g.On("CreateSession", mock.Anything, "price_1", mock.Anything).
			Return(&paymentprovider.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1", Status: "unpaid"}, nil).Once()
		g.On("SessionStatus", mock.Anything, "cs_1").Return("unpaid", nil).Once()
		r.On("SavePaymentGatewayState", mock.Anything, stageIs(models.StageSessionReady)).Return(nil).Once()
		s := New(r, g, nil, newNoopLogger())

		_, err := s.Update(context.Background(), buyer, 10, models.PaymentPatch{Amount: ptr(500)})
		require.Error(t, err)

		pay, err := s.Checkout(context.Background(), buyer, 10)
		require.NoError(t, err)
		assert.Equal(t, 1500, pay.Amount)
		g.AssertNotCalled(t, "CreatePrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Delete(t *testing.T) {
	r := new(RepoMock)
	r.On("GetPayment", mock.Anything, int64(10)).Return(newPayment(), nil).Twice()
	r.On("DeletePayment", mock.Anything, int64(10)).Return(nil).Once()
	s := New(r, new(GatewayMock), nil, newNoopLogger())

	assert.ErrorIs(t, s.Delete(context.Background(), stranger, 10), models.ErrForbidden)
	assert.NoError(t, s.Delete(context.Background(), buyer, 10))
	r.AssertExpectations(t)
}
