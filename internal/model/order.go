package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quantity bounds for a single order item.
const (
	MinQuantity = 1
	MaxQuantity = 1000
)

// OrderStatus is the lifecycle state shared by an order and its items.
type OrderStatus string

const (
	StatusCart      OrderStatus = "cart"
	StatusPaying    OrderStatus = "paying"
	StatusPurchased OrderStatus = "purchased"
	StatusRefunded  OrderStatus = "refunded"
	StatusDefunct   OrderStatus = "defunct"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusCart:      {StatusPaying},
	StatusPaying:    {StatusPurchased, StatusDefunct},
	StatusPurchased: {StatusRefunded},
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderType distinguishes single-seat purchases from bulk ones.
type OrderType string

const (
	OrderTypePersonal OrderType = "personal"
	OrderTypeBusiness OrderType = "business"
)

// ItemKind identifies what an order item buys.
type ItemKind string

const (
	KindCourseRegistration ItemKind = "paid_course_registration"
	KindRegCodeBundle      ItemKind = "course_reg_code_item"
	KindCertificate        ItemKind = "certificate_item"
	KindDonation           ItemKind = "donation"
)

// BillingInfo is the billing snapshot taken at checkout.
type BillingInfo struct {
	FirstName               string `json:"first_name"`
	LastName                string `json:"last_name"`
	Street1                 string `json:"street1"`
	Street2                 string `json:"street2"`
	City                    string `json:"city"`
	State                   string `json:"state"`
	PostalCode              string `json:"postal_code"`
	Country                 string `json:"country"`
	CompanyName             string `json:"company_name,omitempty"`
	CompanyContactName      string `json:"company_contact_name,omitempty"`
	CompanyContactEmail     string `json:"company_contact_email,omitempty"`
	RecipientName           string `json:"recipient_name,omitempty"`
	RecipientEmail          string `json:"recipient_email,omitempty"`
	CustomerReferenceNumber string `json:"customer_reference_number,omitempty"`
}

// FullName joins the billing first and last name.
func (b BillingInfo) FullName() string {
	switch {
	case b.FirstName == "":
		return b.LastName
	case b.LastName == "":
		return b.FirstName
	}
	return b.FirstName + " " + b.LastName
}

// Order represents a user's cart and, after checkout, their purchase.
type Order struct {
	ID           int64
	UserID       int64
	Status       OrderStatus
	OrderType    OrderType
	Currency     string
	Billing      BillingInfo
	PurchaseTime *time.Time
	RefundedTime *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID                  int64
	OrderID             int64
	UserID              int64
	Kind                ItemKind
	CourseID            string
	Mode                string
	Status              OrderStatus
	Qty                 int
	UnitCost            decimal.Decimal
	ListPrice           *decimal.Decimal
	LineDesc            string
	Currency            string
	FulfilledTime       *time.Time
	RefundRequestedTime *time.Time
	ServiceFee          decimal.Decimal
	ReportComments      string
	CreatedAt           time.Time
}

// LineCost is unit cost times quantity.
func (i *OrderItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Discounted reports whether a discount has already replaced the unit cost.
func (i *OrderItem) Discounted() bool {
	return i.ListPrice != nil
}

// SetQuantity changes the quantity and keeps registration items and
// registration code bundles consistent with it.
func (i *OrderItem) SetQuantity(qty int) {
	i.Qty = qty
	switch {
	case i.Kind == KindCourseRegistration && qty > 1:
		i.Kind = KindRegCodeBundle
	case i.Kind == KindRegCodeBundle && qty == 1:
		i.Kind = KindCourseRegistration
	}
}

// TotalCost sums the line costs of items whose status equals status.
func TotalCost(status OrderStatus, items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		if items[i].Status == status {
			total = total.Add(items[i].LineCost())
		}
	}
	return total
}

// DetermineOrderType returns business if any item has more than one seat.
func DetermineOrderType(items []OrderItem) OrderType {
	for i := range items {
		if items[i].Qty > 1 {
			return OrderTypeBusiness
		}
	}
	return OrderTypePersonal
}

// ValidQuantity reports whether qty is within the allowed range.
func ValidQuantity(qty int) bool {
	return qty >= MinQuantity && qty <= MaxQuantity
}
