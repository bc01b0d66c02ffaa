package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"coursecart/internal/model"
	"coursecart/internal/pricing"
	"coursecart/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Banner shown when a registration code names a mode the course lacks.
const redeemModeBanner = "There was an error processing your redeem code."

// cartService implements CartService.
type cartService struct {
	store    Store
	currency string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store Store, currency string, logger zerolog.Logger) CartService {
	return &cartService{
		store:    store,
		currency: currency,
		now:      time.Now,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// ParseQuantity parses a submitted quantity.
func ParseQuantity(raw string) (int, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ErrQuantityNotInteger
	}
	if !model.ValidQuantity(qty) {
		return 0, model.ErrQuantityRange
	}
	return qty, nil
}

func (s *cartService) Cart(ctx context.Context, userID int64) (*model.CartView, error) {
	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) AddCourse(ctx context.Context, userID int64, courseID string) (*model.CartView, error) {
	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		course, err := s.store.Courses.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return model.ErrCourseNotFound
		}

		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}

		items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		for i := range items {
			if items[i].CourseID == courseID && isRegistration(items[i].Kind) {
				return model.ErrAlreadyInCart(courseID)
			}
		}

		enrolled, err := s.store.Courses.IsEnrolled(ctx, tx, userID, courseID)
		if err != nil {
			return err
		}
		if enrolled {
			return model.ErrAlreadyRegistered(courseID)
		}

		if !course.EnrollmentOpen(s.now()) {
			return model.BadRequest(model.ErrCodeEnrollmentClosed,
				"Enrollment is closed for course %s.", courseID)
		}

		mode, ok := course.DefaultMode()
		if !ok {
			return model.BadRequest(model.ErrCodeNoPurchasableMode,
				"The course %s does not offer a purchasable mode.", courseID)
		}

		item := &model.OrderItem{
			OrderID:  cart.ID,
			UserID:   userID,
			Kind:     model.KindCourseRegistration,
			CourseID: courseID,
			Mode:     mode.Slug,
			Status:   model.StatusCart,
			Qty:      1,
			UnitCost: mode.MinPrice,
			LineDesc: "Registration for Course: " + course.DisplayName,
			Currency: cart.Currency,
		}
		if err := s.store.Orders.AddItem(ctx, tx, item); err != nil {
			return err
		}

		s.logger.Info().
			Int64("order_id", cart.ID).
			Str("course_id", courseID).
			Str("mode", mode.Slug).
			Msg("course added to cart")

		if err := refreshOrderType(ctx, s.store, tx, cart, append(items, *item)); err != nil {
			return err
		}

		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID int64, qty int) (*model.CartView, error) {
	if !model.ValidQuantity(qty) {
		return nil, model.ErrQuantityRange
	}

	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, item, err := s.cartItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return model.ErrItemNotFound
		}

		if qty > 1 {
			red, err := s.store.Codes.RedemptionForItem(ctx, tx, item.ID)
			if err != nil {
				return err
			}
			if red != nil {
				return model.ErrRedeemQuantity
			}
		}

		item.SetQuantity(qty)
		if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if err := refreshOrderType(ctx, s.store, tx, cart, items); err != nil {
			return err
		}

		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) (*model.CartView, error) {
	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, item, err := s.cartItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		if item == nil {
			s.logger.Info().Msgf("Cannot remove cart OrderItem id=%d. DoesNotExist or item is already purchased", itemID)
		} else {
			if err := removeItem(ctx, s.store, tx, cart, item); err != nil {
				return err
			}
			items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
			if err != nil {
				return err
			}
			if err := refreshOrderType(ctx, s.store, tx, cart, items); err != nil {
				return err
			}
		}

		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) Clear(ctx context.Context, userID int64) (*model.CartView, error) {
	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		if err := clearCart(ctx, s.store, tx, cart); err != nil {
			return err
		}

		s.logger.Info().Int64("order_id", cart.ID).Msg("cart cleared")

		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) ResetRedemptions(ctx context.Context, userID int64) (*model.CartView, error) {
	var view *model.CartView
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}

		redemptions, err := s.store.Coupons.ListRedemptions(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if _, err := s.store.Coupons.DeleteRedemptions(ctx, tx, cart.ID); err != nil {
			return err
		}

		discounted := make(map[string]bool, len(redemptions))
		for _, r := range redemptions {
			discounted[r.CourseID] = true
		}

		items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			if !discounted[item.CourseID] || item.ListPrice == nil {
				continue
			}
			item.UnitCost = *item.ListPrice
			item.ListPrice = nil
			if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
				return err
			}
		}

		view, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	return view, err
}

func (s *cartService) UseCode(ctx context.Context, userID int64, code string) (*model.CodeResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, model.BadRequest(model.ErrCodeMissingField, "A discount code is required.")
	}

	var result *model.CodeResult
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}

		regCode, err := s.store.Codes.GetByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if regCode != nil {
			result, err = s.useRegistrationCode(ctx, tx, cart, items, regCode)
		} else {
			result, err = s.useCoupon(ctx, tx, cart, items, code)
		}
		if err != nil {
			return err
		}

		result.Cart, err = cartView(ctx, s.store, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *cartService) useRegistrationCode(ctx context.Context, tx repository.DBTX, cart *model.Order,
	items []model.OrderItem, regCode *model.RegistrationCode) (*model.CodeResult, error) {
	if regCode.Redeemed {
		return nil, model.ErrInvalidOrExpiredCode(regCode.Code)
	}

	var item *model.OrderItem
	for i := range items {
		if items[i].CourseID == regCode.CourseID && isRegistration(items[i].Kind) {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, model.ErrNotInCart(regCode.Code)
	}
	if item.Qty > 1 {
		return nil, model.ErrRedeemQuantity
	}

	// one seat takes one code
	existing, err := s.store.Codes.RedemptionForItem(ctx, tx, item.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.ErrItemAlreadyRedeemed(item.CourseID)
	}

	result := &model.CodeResult{Code: regCode.Code, Kind: "registration_code", ItemIDs: []int64{item.ID}}

	course, err := s.store.Courses.GetByID(ctx, tx, regCode.CourseID)
	if err != nil {
		return nil, err
	}
	if course != nil {
		if _, ok := course.Mode(regCode.ModeSlug); ok {
			item.Mode = regCode.ModeSlug
		} else {
			result.Banner = redeemModeBanner
		}
	} else {
		result.Banner = redeemModeBanner
	}

	if !item.Discounted() {
		listPrice := item.UnitCost
		item.ListPrice = &listPrice
	}
	item.UnitCost = decimal.Zero
	if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
		return nil, err
	}

	orderID, itemID := cart.ID, item.ID
	err = s.store.Codes.CreateRedemption(ctx, tx, &model.RegistrationCodeRedemption{
		RegistrationCodeID: regCode.ID,
		OrderID:            &orderID,
		ItemID:             &itemID,
		RedeemedBy:         cart.UserID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", cart.ID).
		Str("code", regCode.Code).
		Str("course_id", regCode.CourseID).
		Msg("registration code applied to cart")

	return result, nil
}

func (s *cartService) useCoupon(ctx context.Context, tx repository.DBTX, cart *model.Order,
	items []model.OrderItem, code string) (*model.CodeResult, error) {
	coupons, err := s.store.Coupons.ListActiveByCode(ctx, tx, code, s.now())
	if err != nil {
		return nil, err
	}
	if len(coupons) == 0 {
		return nil, model.ErrDiscountNotFound(code)
	}

	redemptions, err := s.store.Coupons.ListRedemptions(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range redemptions {
		if r.Code != code {
			return nil, model.ErrMultipleCoupons
		}
		for _, c := range coupons {
			if c.ID == r.CouponID {
				return nil, model.ErrMultipleCoupons
			}
		}
	}

	result := &model.CodeResult{Code: code, Kind: "coupon", ItemIDs: []int64{}}
	for _, c := range coupons {
		applied := false
		for i := range items {
			item := &items[i]
			if item.CourseID != c.CourseID || item.Status != model.StatusCart || item.Discounted() {
				continue
			}
			listPrice := item.UnitCost
			item.ListPrice = &listPrice
			item.UnitCost = pricing.ApplyPercentage(item.UnitCost, c.PercentageDiscount)
			if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
				return nil, err
			}
			result.ItemIDs = append(result.ItemIDs, item.ID)
			applied = true
		}
		if !applied {
			continue
		}

		err := s.store.Coupons.CreateRedemption(ctx, tx, &model.CouponRedemption{
			OrderID:  cart.ID,
			UserID:   cart.UserID,
			CouponID: c.ID,
		})
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Int64("order_id", cart.ID).
			Str("code", code).
			Str("course_id", c.CourseID).
			Int("percentage", c.PercentageDiscount).
			Msg("coupon applied to cart")
	}

	if len(result.ItemIDs) == 0 {
		return nil, model.ErrDiscountNotFound(code)
	}
	return result, nil
}

// cartItem locks the user's cart and returns the requested item when it is
// still a cart item of that cart.
func (s *cartService) cartItem(ctx context.Context, tx repository.DBTX, userID, itemID int64) (*model.Order, *model.OrderItem, error) {
	cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.store.Orders.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.OrderID != cart.ID || item.Status != model.StatusCart {
		return cart, nil, nil
	}
	return cart, item, nil
}

// removeItem deletes a cart item together with the discounts applied to it.
func removeItem(ctx context.Context, store Store, tx repository.DBTX, cart *model.Order, item *model.OrderItem) error {
	if item.Discounted() && item.CourseID != "" {
		if _, err := store.Coupons.DeleteRedemptionsForCourse(ctx, tx, cart.ID, item.CourseID); err != nil {
			return err
		}
	}
	if _, err := store.Codes.DeleteRedemptionsForItem(ctx, tx, item.ID); err != nil {
		return err
	}
	if _, err := store.Orders.DeleteItem(ctx, tx, cart.ID, item.ID); err != nil {
		return err
	}
	return nil
}

// clearCart deletes every item and redemption of a cart.
func clearCart(ctx context.Context, store Store, tx repository.DBTX, cart *model.Order) error {
	if _, err := store.Coupons.DeleteRedemptions(ctx, tx, cart.ID); err != nil {
		return err
	}
	if _, err := store.Codes.DeleteRedemptionsForOrder(ctx, tx, cart.ID); err != nil {
		return err
	}
	if err := store.Orders.DeleteItems(ctx, tx, cart.ID); err != nil {
		return err
	}
	return refreshOrderType(ctx, store, tx, cart, nil)
}

// refreshOrderType recomputes the order type from items and saves it when it changed.
func refreshOrderType(ctx context.Context, store Store, tx repository.DBTX, order *model.Order, items []model.OrderItem) error {
	orderType := model.DetermineOrderType(items)
	if orderType == order.OrderType {
		return nil
	}
	order.OrderType = orderType
	return store.Orders.UpdateOrder(ctx, tx, order)
}

func cartView(ctx context.Context, store Store, q repository.DBTX, cart *model.Order) (*model.CartView, error) {
	items, err := store.Orders.ListItems(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}
	redemptions, err := store.Coupons.ListRedemptions(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}

	var codes []string
	seen := make(map[string]bool)
	for _, r := range redemptions {
		if !seen[r.Code] {
			seen[r.Code] = true
			codes = append(codes, r.Code)
		}
	}

	return model.NewCartView(cart, items, codes), nil
}

func isRegistration(kind model.ItemKind) bool {
	return kind == model.KindCourseRegistration || kind == model.KindRegCodeBundle
}
