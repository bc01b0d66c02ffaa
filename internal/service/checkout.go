package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"coursecart/internal/codegen"
	"coursecart/internal/events"
	"coursecart/internal/model"
	"coursecart/internal/payment"
	"coursecart/internal/pricing"
	"coursecart/internal/repository"

	"github.com/rs/zerolog"
)

// Values of merchant_defined_data2 for donations.
const (
	DonationCourse  = "donation_course"
	DonationGeneral = "donation_general"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	store        Store
	processor    payment.Processor
	publisher    events.Publisher
	codes        codegen.Generator
	currency     string
	platformName string
	now          func() time.Time
	logger       zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	store Store,
	processor payment.Processor,
	publisher events.Publisher,
	codes codegen.Generator,
	currency, platformName string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		store:        store,
		processor:    processor,
		publisher:    publisher,
		codes:        codes,
		currency:     currency,
		platformName: platformName,
		now:          time.Now,
		logger:       logger.With().Str("service", "checkout").Logger(),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, userID int64, billing model.BillingInfo) (*model.PaymentInfo, error) {
	var info *model.PaymentInfo
	var purchased *purchase
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		items, err := s.store.Orders.ListItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return model.ErrEmptyCart
		}

		var messages []string
		kept := items[:0]
		for i := range items {
			item := items[i]
			closed, name, err := s.enrollmentClosed(ctx, tx, &item)
			if err != nil {
				return err
			}
			if !closed {
				kept = append(kept, item)
				continue
			}
			if err := removeItem(ctx, s.store, tx, cart, &item); err != nil {
				return err
			}
			messages = append(messages, name+" has been removed because the enrollment period has closed.")
			s.logger.Info().Int64("order_id", cart.ID).Str("course_id", item.CourseID).Msg("removed item with closed enrollment")
		}
		if len(kept) == 0 {
			return model.ErrEmptyCart
		}

		cart.Billing = billing
		info, purchased, err = s.startPayment(ctx, tx, cart, kept, "", "")
		if err != nil {
			return err
		}
		info.Messages = messages
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPurchase(ctx, purchased)
	return info, nil
}

// enrollmentClosed reports whether a course item can no longer be bought.
func (s *checkoutService) enrollmentClosed(ctx context.Context, tx repository.DBTX, item *model.OrderItem) (bool, string, error) {
	if item.CourseID == "" || item.Kind == model.KindDonation {
		return false, "", nil
	}
	course, err := s.store.Courses.GetByID(ctx, tx, item.CourseID)
	if err != nil {
		return false, "", err
	}
	if course == nil {
		return true, item.CourseID, nil
	}
	return !course.EnrollmentOpen(s.now()), course.DisplayName, nil
}

// purchase is an order fulfilled inside a transaction, published after commit.
type purchase struct {
	order *model.Order
	items []model.OrderItem
}

// startPayment moves the cart to paying and builds the processor request.
// A free cart is purchased on the spot.
func (s *checkoutService) startPayment(ctx context.Context, tx repository.DBTX, cart *model.Order,
	items []model.OrderItem, data1, data2 string) (*model.PaymentInfo, *purchase, error) {
	defunct, err := s.store.Orders.MarkDefunct(ctx, tx, cart.UserID, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	if defunct > 0 {
		s.logger.Info().Int64("user_id", cart.UserID).Int64("orders", defunct).Msg("superseded paying orders marked defunct")
	}

	total := model.TotalCost(model.StatusCart, items)

	cart.Status = model.StatusPaying
	cart.OrderType = model.DetermineOrderType(items)
	if err := s.store.Orders.UpdateOrder(ctx, tx, cart); err != nil {
		return nil, nil, err
	}
	if err := s.store.Orders.UpdateItemStatuses(ctx, tx, cart.ID, model.StatusPaying); err != nil {
		return nil, nil, err
	}
	for i := range items {
		items[i].Status = model.StatusPaying
	}

	if total.IsZero() {
		if err := s.fulfil(ctx, tx, cart, items); err != nil {
			return nil, nil, err
		}
		return &model.PaymentInfo{
			OrderID:       cart.ID,
			PaymentURL:    "/shoppingcart/receipt/" + strconv.FormatInt(cart.ID, 10),
			PaymentParams: map[string]string{},
		}, &purchase{order: cart, items: items}, nil
	}

	params := s.processor.Params(payment.Request{
		OrderID:  cart.ID,
		Amount:   total,
		Currency: cart.Currency,
		Data1:    data1,
		Data2:    data2,
	})

	s.logger.Info().
		Int64("order_id", cart.ID).
		Str("total", total.StringFixed(2)).
		Str("order_type", string(cart.OrderType)).
		Msg("checkout started")

	return &model.PaymentInfo{
		OrderID:       cart.ID,
		PaymentURL:    s.processor.URL(),
		PaymentParams: params,
	}, nil, nil
}

func (s *checkoutService) CompletePayment(ctx context.Context, params map[string]string) (*model.Order, error) {
	result, err := s.processor.Verify(params)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_number", params[payment.ParamOrderNumber]).Msg("payment response rejected")
		if errors.Is(err, payment.ErrDeclined) {
			return nil, model.BadRequest(model.ErrCodePaymentRejected, "The payment was declined.")
		}
		return nil, model.BadRequest(model.ErrCodePaymentRejected, "The payment response could not be verified.")
	}

	var purchased *purchase
	err = withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		order, err := s.store.Orders.GetByID(ctx, tx, result.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if order.Status != model.StatusPaying {
			return model.BadRequest(model.ErrCodeInvalidOrderState, "Order %d is not awaiting payment.", order.ID)
		}

		items, err := s.store.Orders.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		total := model.TotalCost(model.StatusPaying, items)
		if !total.Equal(result.Amount) || result.Currency != order.Currency {
			s.logger.Warn().
				Int64("order_id", order.ID).
				Str("expected", total.StringFixed(2)).
				Str("charged", result.Amount.StringFixed(2)).
				Msg("payment amount mismatch")
			return model.BadRequest(model.ErrCodePaymentRejected,
				"The amount charged does not match the order total.")
		}

		paying := items[:0]
		for i := range items {
			if items[i].Status == model.StatusPaying {
				paying = append(paying, items[i])
			}
		}

		if err := s.fulfil(ctx, tx, order, paying); err != nil {
			return err
		}
		purchased = &purchase{order: order, items: paying}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPurchase(ctx, purchased)
	return purchased.order, nil
}

// fulfil grants what each item bought and marks the order purchased.
func (s *checkoutService) fulfil(ctx context.Context, tx repository.DBTX, order *model.Order, items []model.OrderItem) error {
	now := s.now().UTC()
	for i := range items {
		item := &items[i]
		switch item.Kind {
		case model.KindCourseRegistration, model.KindCertificate:
			err := s.store.Courses.Enroll(ctx, tx, &model.Enrollment{
				UserID:   order.UserID,
				CourseID: item.CourseID,
				Mode:     item.Mode,
			})
			if err != nil {
				return err
			}
		case model.KindRegCodeBundle:
			orderID := order.ID
			_, err := mintCodes(ctx, s.store.Codes, tx, s.codes, model.RegistrationCode{
				CourseID:  item.CourseID,
				ModeSlug:  item.Mode,
				CreatedBy: order.UserID,
				OrderID:   &orderID,
			}, item.Qty)
			if err != nil {
				return err
			}
		}

		item.Status = model.StatusPurchased
		item.FulfilledTime = &now
		if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
	}

	order.Status = model.StatusPurchased
	order.PurchaseTime = &now
	order.OrderType = model.DetermineOrderType(items)
	if err := s.store.Orders.UpdateOrder(ctx, tx, order); err != nil {
		return err
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Int("item_count", len(items)).
		Msg("order purchased")

	return nil
}

func (s *checkoutService) publishPurchase(ctx context.Context, p *purchase) {
	if p == nil {
		return
	}

	payload := events.OrderPurchased{
		OrderID:   p.order.ID,
		UserID:    p.order.UserID,
		OrderType: string(p.order.OrderType),
		Currency:  p.order.Currency,
		Total:     model.TotalCost(model.StatusPurchased, p.items).StringFixed(2),
	}
	for _, item := range p.items {
		payload.Items = append(payload.Items, events.PurchaseLine{
			ItemID:   item.ID,
			Kind:     string(item.Kind),
			CourseID: item.CourseID,
			Mode:     item.Mode,
			Qty:      item.Qty,
			UnitCost: item.UnitCost.StringFixed(2),
		})
	}

	key := strconv.FormatInt(p.order.ID, 10)
	if err := publishCommitted(ctx, s.publisher, events.New(events.TypeOrderPurchased, key, payload)); err != nil {
		s.logger.Error().Err(err).Int64("order_id", p.order.ID).Msg("failed to publish purchase event")
	}
}

func (s *checkoutService) DonationsEnabled(ctx context.Context) (bool, error) {
	cfg, err := s.store.Settings.DonationConfiguration(ctx, s.store.DB)
	if err != nil {
		return false, err
	}
	return cfg.Enabled, nil
}

func (s *checkoutService) Donate(ctx context.Context, userID int64, rawAmount, courseID string) (*model.PaymentInfo, error) {
	enabled, err := s.DonationsEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, model.ErrDonationsDisabled
	}

	amount, ok := pricing.ParseDonationAmount(rawAmount)
	if !ok {
		return nil, model.ErrInvalidAmount
	}

	var info *model.PaymentInfo
	err = withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		desc := "Donation for " + s.platformName
		data2 := DonationGeneral
		if courseID != "" {
			course, err := s.store.Courses.GetByID(ctx, tx, courseID)
			if err != nil {
				return err
			}
			if course == nil {
				return model.BadRequest(model.ErrCodeInvalidCourse, "Could not find a course with the ID %s", courseID)
			}
			desc = "Donation for " + course.DisplayName
			data2 = DonationCourse
		}

		cart, err := s.store.Orders.GetOrCreateCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		if err := clearCart(ctx, s.store, tx, cart); err != nil {
			return err
		}

		item := model.OrderItem{
			OrderID:  cart.ID,
			UserID:   userID,
			Kind:     model.KindDonation,
			CourseID: courseID,
			Status:   model.StatusCart,
			Qty:      1,
			UnitCost: amount,
			LineDesc: desc,
			Currency: cart.Currency,
		}
		if err := s.store.Orders.AddItem(ctx, tx, &item); err != nil {
			return err
		}

		s.logger.Info().Int64("order_id", cart.ID).Str("amount", amount.StringFixed(2)).Str("course_id", courseID).Msg("donation added")

		info, _, err = s.startPayment(ctx, tx, cart, []model.OrderItem{item}, courseID, data2)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *checkoutService) Receipt(ctx context.Context, userID, orderID int64) (*model.Receipt, error) {
	order, err := s.store.Orders.GetByID(ctx, s.store.DB, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.StatusPurchased && order.Status != model.StatusRefunded {
		return nil, model.ErrOrderNotFound
	}

	items, err := s.store.Orders.ListItems(ctx, s.store.DB, order.ID)
	if err != nil {
		return nil, err
	}

	var codes []model.RegistrationCode
	if order.OrderType == model.OrderTypeBusiness {
		codes, err = s.store.Codes.ListByOrder(ctx, s.store.DB, order.ID)
		if err != nil {
			return nil, err
		}
	}

	return model.NewReceipt(order, items, codes), nil
}

func (s *checkoutService) Refund(ctx context.Context, itemID int64) (*model.OrderItem, error) {
	var refunded *model.OrderItem
	var order *model.Order
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		item, err := s.store.Orders.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return model.ErrItemNotFound
		}
		if item.Status != model.StatusPurchased {
			return model.BadRequest(model.ErrCodeInvalidOrderState, "Only purchased items can be refunded.")
		}

		now := s.now().UTC()
		item.Status = model.StatusRefunded
		item.RefundRequestedTime = &now
		if err := s.store.Orders.UpdateItem(ctx, tx, item); err != nil {
			return err
		}

		if item.Kind == model.KindCourseRegistration || item.Kind == model.KindCertificate {
			if err := s.store.Courses.Unenroll(ctx, tx, item.UserID, item.CourseID); err != nil {
				return err
			}
		}

		order, err = s.store.Orders.GetByID(ctx, tx, item.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		items, err := s.store.Orders.ListItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		remaining := false
		for i := range items {
			if items[i].Status == model.StatusPurchased {
				remaining = true
				break
			}
		}
		if !remaining && order.Status.CanTransitionTo(model.StatusRefunded) {
			order.Status = model.StatusRefunded
			order.RefundedTime = &now
			if err := s.store.Orders.UpdateOrder(ctx, tx, order); err != nil {
				return err
			}
		}

		s.logger.Info().Int64("order_id", item.OrderID).Int64("item_id", item.ID).Msg("item refunded")

		refunded = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := events.ItemRefunded{
		OrderID:  refunded.OrderID,
		ItemID:   refunded.ID,
		UserID:   refunded.UserID,
		CourseID: refunded.CourseID,
		Amount:   refunded.LineCost().StringFixed(2),
		Currency: order.Currency,
	}
	key := strconv.FormatInt(refunded.OrderID, 10)
	if err := publishCommitted(ctx, s.publisher, events.New(events.TypeItemRefunded, key, payload)); err != nil {
		s.logger.Error().Err(err).Int64("item_id", refunded.ID).Msg("failed to publish refund event")
	}

	return refunded, nil
}
