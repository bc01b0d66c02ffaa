package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_CreateCoupon(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Created",
			body:           `{"code": "SAVE10", "course_id": "MITx/6.002x/2026", "percentage_discount": 10}`,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Duplicate code",
			body:           `{"code": "SAVE10", "course_id": "MITx/6.002x/2026", "percentage_discount": 10}`,
			mockError:      model.Conflict(model.ErrCodeCouponExists, "coupon with the coupon code (SAVE10) already exist"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Invalid JSON",
			body:           `{"code": `,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAdmin := new(MockAdminService)
			handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

			if tt.expectService {
				var created *model.Coupon
				if tt.mockError == nil {
					created = &model.Coupon{ID: 7, Code: "SAVE10", CourseID: "MITx/6.002x/2026", PercentageDiscount: 10, IsActive: true}
				}
				mockAdmin.On("CreateCoupon", mock.Anything, int64(9), mock.MatchedBy(func(req *service.CouponRequest) bool {
					return req.Code == "SAVE10" && req.PercentageDiscount == 10
				})).Return(created, tt.mockError)
			}

			r := asUser(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/coupons", strings.NewReader(tt.body)), 9, model.RoleStaff)
			w := httptest.NewRecorder()

			handler.CreateCoupon(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				var c model.Coupon
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
				assert.Equal(t, int64(7), c.ID)
				assert.True(t, c.IsActive)
			}
			mockAdmin.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_ListCoupons(t *testing.T) {
	logger := zerolog.Nop()
	mockAdmin := new(MockAdminService)
	handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

	mockAdmin.On("ListCoupons", mock.Anything, "MITx/6.002x/2026").Return(nil, nil)

	r := httptest.NewRequest(http.MethodGet, "/shoppingcart/admin/coupons?course_id=MITx/6.002x/2026", nil)
	w := httptest.NewRecorder()
	handler.ListCoupons(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	mockAdmin.AssertExpectations(t)
}

func TestAdminHandler_DeactivateCoupon(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		couponID       string
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Deactivated", couponID: "3", expectedStatus: http.StatusOK, expectService: true},
		{
			name:           "Unknown coupon",
			couponID:       "99",
			mockError:      model.NotFound(model.ErrCodeCouponNotFound, "coupon with id (%d) DoesNotExist", 99),
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{name: "Bad ID", couponID: "abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAdmin := new(MockAdminService)
			handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

			if tt.expectService {
				mockAdmin.On("DeactivateCoupon", mock.Anything, mock.AnythingOfType("int64")).Return(tt.mockError)
			}

			r := httptest.NewRequest(http.MethodDelete, "/shoppingcart/admin/coupons/"+tt.couponID, nil)
			r = withURLParam(r, "couponID", tt.couponID)
			w := httptest.NewRecorder()

			handler.DeactivateCoupon(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockAdmin.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_ImportCoupons(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Imported", func(t *testing.T) {
		mockAdmin := new(MockAdminService)
		handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

		files := []string{"couponbase1.gz", "couponbase2.gz"}
		mockAdmin.On("ImportCoupons", mock.Anything, int64(9), files).
			Return(&service.ImportSummary{Files: 2, Parsed: 5, Imported: 4, Skipped: 1}, nil)

		body := `{"files": ["couponbase1.gz", "couponbase2.gz"]}`
		r := asUser(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/coupons/import", strings.NewReader(body)), 9, model.RoleStaff)
		w := httptest.NewRecorder()
		handler.ImportCoupons(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"files": 2, "parsed": 5, "imported": 4, "skipped": 1}`, w.Body.String())
		mockAdmin.AssertExpectations(t)
	})

	t.Run("No files", func(t *testing.T) {
		mockAdmin := new(MockAdminService)
		handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

		r := asUser(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/coupons/import", strings.NewReader(`{"files": []}`)), 9, model.RoleStaff)
		w := httptest.NewRecorder()
		handler.ImportCoupons(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, model.ErrCodeMissingField, decodeError(t, w).Error)
		mockAdmin.AssertExpectations(t)
	})
}

func TestAdminHandler_DonationConfiguration(t *testing.T) {
	logger := zerolog.Nop()
	mockAdmin := new(MockAdminService)
	handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

	changed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	staff := int64(9)
	mockAdmin.On("DonationConfiguration", mock.Anything).
		Return(&model.DonationConfiguration{Enabled: false}, nil)
	mockAdmin.On("SetDonationsEnabled", mock.Anything, staff, true).
		Return(&model.DonationConfiguration{ID: 1, Enabled: true, ChangedBy: &staff, ChangeDate: changed}, nil)

	w := httptest.NewRecorder()
	handler.DonationConfiguration(w, httptest.NewRequest(http.MethodGet, "/shoppingcart/admin/donation_configuration", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cfg model.DonationConfiguration
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.False(t, cfg.Enabled)

	r := asUser(httptest.NewRequest(http.MethodPut, "/shoppingcart/admin/donation_configuration", strings.NewReader(`{"enabled": true}`)), staff, model.RoleStaff)
	w = httptest.NewRecorder()
	handler.SetDonationConfiguration(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.True(t, cfg.Enabled)
	require.NotNil(t, cfg.ChangedBy)
	assert.Equal(t, staff, *cfg.ChangedBy)

	mockAdmin.AssertExpectations(t)
}

func TestAdminHandler_MintCodes(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		body           string
		mockCodes      []model.RegistrationCode
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name: "Minted",
			body: `{"course_id": "MITx/6.002x/2026", "mode": "verified", "count": 2}`,
			mockCodes: []model.RegistrationCode{
				{ID: 1, Code: "A1B2C3D", CourseID: "MITx/6.002x/2026", ModeSlug: "verified"},
				{ID: 2, Code: "E4F5G6H", CourseID: "MITx/6.002x/2026", ModeSlug: "verified"},
			},
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Unknown course",
			body:           `{"course_id": "nope", "mode": "verified", "count": 2}`,
			mockError:      model.ErrCourseNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Missing course",
			body:           `{"mode": "verified", "count": 2}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAdmin := new(MockAdminService)
			handler := NewAdminHandler(mockAdmin, new(MockCheckoutService), logger)

			if tt.expectService {
				var req MintCodesRequest
				require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
				mockAdmin.On("MintCodes", mock.Anything, int64(5), req.CourseID, req.Mode, req.Count).
					Return(tt.mockCodes, tt.mockError)
			}

			r := asUser(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/registration_codes", strings.NewReader(tt.body)), 5, model.RoleSalesAdmin)
			w := httptest.NewRecorder()

			handler.MintCodes(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				var codes []model.RegistrationCode
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
				assert.Len(t, codes, len(tt.mockCodes))
			}
			mockAdmin.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_RefundItem(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Refunded", func(t *testing.T) {
		mockCheckout := new(MockCheckoutService)
		handler := NewAdminHandler(new(MockAdminService), mockCheckout, logger)

		mockCheckout.On("Refund", mock.Anything, int64(12)).Return(&model.OrderItem{
			ID:       12,
			OrderID:  4,
			Status:   model.StatusRefunded,
			UnitCost: decimal.NewFromInt(40),
		}, nil)

		r := withURLParam(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/items/12/refund", nil), "itemID", "12")
		w := httptest.NewRecorder()
		handler.RefundItem(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"item_id": 12, "order_id": 4, "status": "refunded"}`, w.Body.String())
		mockCheckout.AssertExpectations(t)
	})

	t.Run("Unexpected failure", func(t *testing.T) {
		mockCheckout := new(MockCheckoutService)
		handler := NewAdminHandler(new(MockAdminService), mockCheckout, logger)

		mockCheckout.On("Refund", mock.Anything, int64(12)).Return(nil, errors.New("connection reset"))

		r := withURLParam(httptest.NewRequest(http.MethodPost, "/shoppingcart/admin/items/12/refund", nil), "itemID", "12")
		w := httptest.NewRecorder()
		handler.RefundItem(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, model.ErrCodeInternalError, decodeError(t, w).Error)
	})
}
