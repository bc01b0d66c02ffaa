package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptTimeLayout formats purchase times on receipts.
const ReceiptTimeLayout = "Jan 02, 2006 at 15:04 UTC"

// Amount renders a decimal as a bare JSON number.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// CartView is the client representation of a cart.
type CartView struct {
	OrderID     int64       `json:"order_id"`
	Status      OrderStatus `json:"status"`
	OrderType   OrderType   `json:"order_type"`
	Currency    string      `json:"currency"`
	TotalCost   json.Number `json:"total_cost"`
	Items       []CartLine  `json:"items"`
	CouponCodes []string    `json:"coupon_codes"`
	Messages    []string    `json:"messages,omitempty"`
}

// CartLine is one item of a cart view.
type CartLine struct {
	ID        int64        `json:"id"`
	Kind      ItemKind     `json:"kind"`
	CourseID  string       `json:"course_id,omitempty"`
	Mode      string       `json:"mode,omitempty"`
	Qty       int          `json:"qty"`
	UnitCost  json.Number  `json:"unit_cost"`
	ListPrice *json.Number `json:"list_price,omitempty"`
	LineCost  json.Number  `json:"line_cost"`
	LineDesc  string       `json:"line_desc"`
}

// NewCartView builds a cart view from an order and its items.
func NewCartView(order *Order, items []OrderItem, couponCodes []string) *CartView {
	view := &CartView{
		OrderID:     order.ID,
		Status:      order.Status,
		OrderType:   order.OrderType,
		Currency:    order.Currency,
		TotalCost:   Amount(TotalCost(order.Status, items)),
		Items:       make([]CartLine, 0, len(items)),
		CouponCodes: couponCodes,
	}
	if view.CouponCodes == nil {
		view.CouponCodes = []string{}
	}

	for i := range items {
		item := &items[i]
		line := CartLine{
			ID:       item.ID,
			Kind:     item.Kind,
			CourseID: item.CourseID,
			Mode:     item.Mode,
			Qty:      item.Qty,
			UnitCost: Amount(item.UnitCost),
			LineCost: Amount(item.LineCost()),
			LineDesc: item.LineDesc,
		}
		if item.ListPrice != nil {
			lp := Amount(*item.ListPrice)
			line.ListPrice = &lp
		}
		view.Items = append(view.Items, line)
	}

	return view
}

// CodeResult describes the outcome of applying a discount code to a cart.
type CodeResult struct {
	Code    string    `json:"code"`
	Kind    string    `json:"kind"` // "coupon" or "registration_code"
	ItemIDs []int64   `json:"item_ids"`
	Banner  string    `json:"banner,omitempty"`
	Cart    *CartView `json:"cart"`
}

// PaymentInfo is what the client needs to hand the order to the processor.
type PaymentInfo struct {
	OrderID       int64             `json:"order_id"`
	PaymentURL    string            `json:"payment_url"`
	PaymentParams map[string]string `json:"payment_params"`
	Messages      []string          `json:"messages,omitempty"`
}

// Receipt is the JSON receipt of a purchased order.
type Receipt struct {
	OrderID           int64         `json:"order_id"`
	Currency          string        `json:"currency"`
	PurchaseDatetime  string        `json:"purchase_datetime"`
	TotalCost         json.Number   `json:"total_cost"`
	Status            OrderStatus   `json:"status"`
	BilledTo          ReceiptBilled `json:"billed_to"`
	Items             []ReceiptItem `json:"items"`
	RegistrationCodes []string      `json:"registration_codes,omitempty"`
}

// ReceiptBilled is the billing block of a receipt.
type ReceiptBilled struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	UnitCost json.Number `json:"unit_cost"`
	Quantity int         `json:"quantity"`
	LineCost json.Number `json:"line_cost"`
	LineDesc string      `json:"line_desc"`
}

// NewReceipt builds the receipt of a purchased or refunded order.
func NewReceipt(order *Order, items []OrderItem, codes []RegistrationCode) *Receipt {
	receipt := &Receipt{
		OrderID:   order.ID,
		Currency:  order.Currency,
		TotalCost: Amount(TotalCost(order.Status, items)),
		Status:    order.Status,
		BilledTo: ReceiptBilled{
			FirstName:  order.Billing.FirstName,
			LastName:   order.Billing.LastName,
			Street1:    order.Billing.Street1,
			Street2:    order.Billing.Street2,
			City:       order.Billing.City,
			State:      order.Billing.State,
			PostalCode: order.Billing.PostalCode,
			Country:    order.Billing.Country,
		},
		Items: make([]ReceiptItem, 0, len(items)),
	}
	if order.PurchaseTime != nil {
		receipt.PurchaseDatetime = order.PurchaseTime.UTC().Format(ReceiptTimeLayout)
	}

	for i := range items {
		item := &items[i]
		if item.Status != StatusPurchased && item.Status != StatusRefunded {
			continue
		}
		receipt.Items = append(receipt.Items, ReceiptItem{
			UnitCost: Amount(item.UnitCost),
			Quantity: item.Qty,
			LineCost: Amount(item.LineCost()),
			LineDesc: item.LineDesc,
		})
	}

	for _, c := range codes {
		receipt.RegistrationCodes = append(receipt.RegistrationCodes, c.Code)
	}

	return receipt
}

// RedeemInfo describes a registration code on its redemption page.
type RedeemInfo struct {
	Code            string `json:"code"`
	CourseID        string `json:"course_id"`
	CourseName      string `json:"course_name"`
	Mode            string `json:"mode"`
	AlreadyUsed     bool   `json:"already_used"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
	Enrolled        bool   `json:"enrolled"`
	Message         string `json:"message,omitempty"`
}

// ReportItem is a purchased or refunded item joined with its order.
type ReportItem struct {
	OrderID             int64
	ItemID              int64
	CourseID            string
	Kind                ItemKind
	Status              OrderStatus
	Qty                 int
	UnitCost            decimal.Decimal
	ServiceFee          decimal.Decimal
	Currency            string
	LineDesc            string
	ReportComments      string
	PurchaseTime        time.Time
	RefundRequestedTime *time.Time
	CustomerName        string
}

// LineCost is unit cost times quantity.
func (r *ReportItem) LineCost() decimal.Decimal {
	return r.UnitCost.Mul(decimal.NewFromInt(int64(r.Qty)))
}
