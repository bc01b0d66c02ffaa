package handler

import (
	"context"
	"io"
	"net/http"

	"coursecart/internal/auth"
	"coursecart/internal/form"
	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

// withURLParam sets a chi URL parameter on the request, as the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser attaches an authenticated principal to the request.
func asUser(r *http.Request, id int64, roles ...string) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{UserID: id, Username: "user", Roles: roles}))
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) view(args mock.Arguments) (*model.CartView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartView), args.Error(1)
}

func (m *MockCartService) Cart(ctx context.Context, userID int64) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID))
}

func (m *MockCartService) AddCourse(ctx context.Context, userID int64, courseID string) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID, courseID))
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, userID, itemID int64, qty int) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID, itemID, qty))
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID int64) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID, itemID))
}

func (m *MockCartService) Clear(ctx context.Context, userID int64) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID))
}

func (m *MockCartService) ResetRedemptions(ctx context.Context, userID int64) (*model.CartView, error) {
	return m.view(m.Called(ctx, userID))
}

func (m *MockCartService) UseCode(ctx context.Context, userID int64, code string) (*model.CodeResult, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CodeResult), args.Error(1)
}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, userID int64, billing model.BillingInfo) (*model.PaymentInfo, error) {
	args := m.Called(ctx, userID, billing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentInfo), args.Error(1)
}

func (m *MockCheckoutService) CompletePayment(ctx context.Context, params map[string]string) (*model.Order, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockCheckoutService) Donate(ctx context.Context, userID int64, amount, courseID string) (*model.PaymentInfo, error) {
	args := m.Called(ctx, userID, amount, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentInfo), args.Error(1)
}

func (m *MockCheckoutService) DonationsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCheckoutService) Receipt(ctx context.Context, userID, orderID int64) (*model.Receipt, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Receipt), args.Error(1)
}

func (m *MockCheckoutService) Refund(ctx context.Context, itemID int64) (*model.OrderItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderItem), args.Error(1)
}

// MockSimulator is a mock implementation of PaymentSimulator.
type MockSimulator struct {
	mock.Mock
}

func (m *MockSimulator) Simulate(request map[string]string, decision string) (map[string]string, error) {
	args := m.Called(request, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// MockRedemptionService is a mock implementation of RedemptionService.
type MockRedemptionService struct {
	mock.Mock
}

func (m *MockRedemptionService) Describe(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedeemInfo), args.Error(1)
}

func (m *MockRedemptionService) Redeem(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedeemInfo), args.Error(1)
}

// MockReportService is a mock implementation of ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Generate(ctx context.Context, w io.Writer, req service.ReportRequest) error {
	args := m.Called(ctx, w, req)
	if out := args.String(1); out != "" {
		_, _ = io.WriteString(w, out)
	}
	return args.Error(0)
}

// MockAccountService is a mock implementation of AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) LoginForm() *form.Description {
	return m.Called().Get(0).(*form.Description)
}

func (m *MockAccountService) PasswordResetForm() *form.Description {
	return m.Called().Get(0).(*form.Description)
}

func (m *MockAccountService) RegistrationForm(ctx context.Context, pipelineToken string) (*form.Description, error) {
	args := m.Called(ctx, pipelineToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*form.Description), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, login, password string) (*model.Session, error) {
	args := m.Called(ctx, login, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAccountService) Register(ctx context.Context, req *model.RegistrationRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) ExchangeAccessToken(ctx context.Context, backend, accessToken, clientID string) (*model.TokenExchange, error) {
	args := m.Called(ctx, backend, accessToken, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenExchange), args.Error(1)
}

func (m *MockAccountService) SetEmailOptIn(ctx context.Context, userID int64, courseID, optIn string) error {
	return m.Called(ctx, userID, courseID, optIn).Error(0)
}

// MockAdminService is a mock implementation of AdminService.
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) CreateCoupon(ctx context.Context, userID int64, req *service.CouponRequest) (*model.Coupon, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockAdminService) ListCoupons(ctx context.Context, courseID string) ([]model.Coupon, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockAdminService) DeactivateCoupon(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminService) ImportCoupons(ctx context.Context, userID int64, files []string) (*service.ImportSummary, error) {
	args := m.Called(ctx, userID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSummary), args.Error(1)
}

func (m *MockAdminService) DonationConfiguration(ctx context.Context) (*model.DonationConfiguration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationConfiguration), args.Error(1)
}

func (m *MockAdminService) SetDonationsEnabled(ctx context.Context, userID int64, enabled bool) (*model.DonationConfiguration, error) {
	args := m.Called(ctx, userID, enabled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DonationConfiguration), args.Error(1)
}

func (m *MockAdminService) MintCodes(ctx context.Context, userID int64, courseID, mode string, count int) ([]model.RegistrationCode, error) {
	args := m.Called(ctx, userID, courseID, mode, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RegistrationCode), args.Error(1)
}

// MockMasqueradeService is a mock implementation of MasqueradeService.
type MockMasqueradeService struct {
	mock.Mock
}

func (m *MockMasqueradeService) View(userID int64, courseID string) (*model.MasqueradeView, error) {
	args := m.Called(userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MasqueradeView), args.Error(1)
}

func (m *MockMasqueradeService) SetRole(userID int64, courseID, role string) (*model.MasqueradeView, error) {
	args := m.Called(userID, courseID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MasqueradeView), args.Error(1)
}

// MockCourseService is a mock implementation of CourseService.
type MockCourseService struct {
	mock.Mock
}

func (m *MockCourseService) List(ctx context.Context, limit, offset int) ([]model.Course, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Course), args.Error(1)
}

func (m *MockCourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Course), args.Error(1)
}
