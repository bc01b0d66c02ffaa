package router

import (
	"net/http"
	"net/netip"

	"coursecart/internal/handler"
	"coursecart/internal/middleware"
	"coursecart/internal/model"
	"coursecart/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Course     *handler.CourseHandler
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	Redemption *handler.RedemptionHandler
	Report     *handler.ReportHandler
	Account    *handler.AccountHandler
	Admin      *handler.AdminHandler
	Masquerade *handler.MasqueradeHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	tokens middleware.TokenParser,
	redeemLimiter ratelimit.Limiter,
	trustedProxies []netip.Prefix,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> RealIP -> Logging -> CORS -> Authenticate
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(trustedProxies))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Authenticate(tokens, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// course IDs may contain slashes, so they are matched as wildcards
	r.Get("/courses", h.Course.List)
	r.Get("/courses/*", h.Course.Get)

	r.Route("/shoppingcart", func(r chi.Router) {
		r.Get("/", h.Cart.Show)
		r.Post("/add/course/*", h.Cart.AddCourse)
		r.Post("/use_code", h.Cart.UseCode)
		r.Post("/update_user_cart", h.Cart.UpdateQuantity)
		r.Post("/remove_item", h.Cart.RemoveItem)
		r.Post("/clear", h.Cart.Clear)
		r.Post("/reset_code_redemption", h.Cart.ResetRedemptions)

		r.Post("/checkout", h.Checkout.Checkout)
		r.Post("/postpay_callback", h.Checkout.PostpayCallback)
		r.Post("/payment_fake", h.Checkout.PaymentFake)
		r.Get("/receipt/{orderID}", h.Checkout.Receipt)
		r.HandleFunc("/donation", h.Checkout.Donation)
		r.HandleFunc("/payment_csv_report", h.Report.PaymentCSVReport)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(redeemLimiter, logger))
			r.Get("/register/redeem/{code}", h.Redemption.Show)
			r.Post("/register/redeem/{code}", h.Redemption.Redeem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleStaff, logger))
				r.Post("/coupons", h.Admin.CreateCoupon)
				r.Get("/coupons", h.Admin.ListCoupons)
				r.Delete("/coupons/{couponID}", h.Admin.DeactivateCoupon)
				r.Post("/coupons/import", h.Admin.ImportCoupons)
				r.Get("/donation_configuration", h.Admin.DonationConfiguration)
				r.Put("/donation_configuration", h.Admin.SetDonationConfiguration)
				r.Post("/items/{itemID}/refund", h.Admin.RefundItem)
			})
			r.With(middleware.RequireRole(model.RoleSalesAdmin, logger)).
				Post("/registration_codes", h.Admin.MintCodes)
		})
	})

	r.Route("/user_api/v1", func(r chi.Router) {
		r.Get("/account/login_session", h.Account.LoginForm)
		r.Post("/account/login_session", h.Account.Login)
		r.Get("/account/registration", h.Account.RegistrationForm)
		r.Post("/account/registration", h.Account.Register)
		r.Get("/account/password_reset", h.Account.PasswordResetForm)
		r.Post("/preferences/email_opt_in", h.Account.EmailOptIn)
	})

	r.Post("/oauth2/exchange_access_token/{backend}", h.Account.ExchangeAccessToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(model.RoleStaff, logger))
		r.Get("/masquerade/*", h.Masquerade.Get)
		r.Put("/masquerade/*", h.Masquerade.Set)
	})

	return r
}
