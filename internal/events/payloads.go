package events

// OrderPurchased is published once an order is paid and fulfilled.
type OrderPurchased struct {
	OrderID   int64          `json:"order_id"`
	UserID    int64          `json:"user_id"`
	OrderType string         `json:"order_type"`
	Currency  string         `json:"currency"`
	Total     string         `json:"total"`
	Items     []PurchaseLine `json:"items"`
}

// PurchaseLine is one purchased item.
type PurchaseLine struct {
	ItemID   int64  `json:"item_id"`
	Kind     string `json:"kind"`
	CourseID string `json:"course_id,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Qty      int    `json:"qty"`
	UnitCost string `json:"unit_cost"`
}

// ItemRefunded is published when staff refund an item.
type ItemRefunded struct {
	OrderID  int64  `json:"order_id"`
	ItemID   int64  `json:"item_id"`
	UserID   int64  `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// CodeRedeemed is published when a registration code enrols a user.
type CodeRedeemed struct {
	Code     string `json:"code"`
	CourseID string `json:"course_id"`
	Mode     string `json:"mode"`
	UserID   int64  `json:"user_id"`
}
