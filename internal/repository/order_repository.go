package repository

import (
	"context"
	"fmt"
	"time"

	"coursecart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const orderColumns = `id, user_id, status, order_type, currency,
	bill_to_first, bill_to_last, bill_to_street1, bill_to_street2, bill_to_city,
	bill_to_state, bill_to_postalcode, bill_to_country, company_name,
	company_contact_name, company_contact_email, recipient_name, recipient_email,
	customer_reference_number, purchase_time, refunded_time, created_at, updated_at`

const itemColumns = `id, order_id, user_id, kind, course_id, mode, status, qty,
	unit_cost, list_price, line_desc, currency, fulfilled_time,
	refund_requested_time, service_fee, report_comments, created_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	b := &o.Billing
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.OrderType, &o.Currency,
		&b.FirstName, &b.LastName, &b.Street1, &b.Street2, &b.City,
		&b.State, &b.PostalCode, &b.Country, &b.CompanyName,
		&b.CompanyContactName, &b.CompanyContactEmail, &b.RecipientName, &b.RecipientEmail,
		&b.CustomerReferenceNumber, &o.PurchaseTime, &o.RefundedTime, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanItem(row pgx.Row) (*model.OrderItem, error) {
	var i model.OrderItem
	err := row.Scan(
		&i.ID, &i.OrderID, &i.UserID, &i.Kind, &i.CourseID, &i.Mode, &i.Status, &i.Qty,
		&i.UnitCost, &i.ListPrice, &i.LineDesc, &i.Currency, &i.FulfilledTime,
		&i.RefundRequestedTime, &i.ServiceFee, &i.ReportComments, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// GetOrCreateCart returns the user's cart, creating it when missing, and locks it.
func (r *orderRepository) GetOrCreateCart(ctx context.Context, q DBTX, userID int64, currency string) (*model.Order, error) {
	insert := `
		INSERT INTO orders (user_id, status, currency)
		VALUES ($1, 'cart', $2)
		ON CONFLICT (user_id) WHERE status = 'cart' DO NOTHING
	`

	if _, err := q.Exec(ctx, insert, userID, currency); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status = 'cart'
		FOR UPDATE`

	order, err := scanOrder(q.QueryRow(ctx, query, userID))
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	return order, nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, q DBTX, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			r.logger.Debug().Int64("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// UpdateOrder persists status, type, billing and timestamps of an order.
func (r *orderRepository) UpdateOrder(ctx context.Context, q DBTX, o *model.Order) error {
	query := `
		UPDATE orders SET
			status = $2, order_type = $3, currency = $4,
			bill_to_first = $5, bill_to_last = $6, bill_to_street1 = $7, bill_to_street2 = $8,
			bill_to_city = $9, bill_to_state = $10, bill_to_postalcode = $11, bill_to_country = $12,
			company_name = $13, company_contact_name = $14, company_contact_email = $15,
			recipient_name = $16, recipient_email = $17, customer_reference_number = $18,
			purchase_time = $19, refunded_time = $20, updated_at = NOW()
		WHERE id = $1
	`

	b := o.Billing
	tag, err := q.Exec(ctx, query,
		o.ID, o.Status, o.OrderType, o.Currency,
		b.FirstName, b.LastName, b.Street1, b.Street2,
		b.City, b.State, b.PostalCode, b.Country,
		b.CompanyName, b.CompanyContactName, b.CompanyContactEmail,
		b.RecipientName, b.RecipientEmail, b.CustomerReferenceNumber,
		o.PurchaseTime, o.RefundedTime,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", o.ID).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().Int64("order_id", o.ID).Str("status", string(o.Status)).Msg("order updated")

	return nil
}

// MarkDefunct moves the user's other paying orders and their items to
// defunct. It returns the number of orders moved.
func (r *orderRepository) MarkDefunct(ctx context.Context, q DBTX, userID, exceptOrderID int64) (int64, error) {
	query := `
		WITH defunct AS (
			UPDATE orders SET status = 'defunct', updated_at = NOW()
			WHERE user_id = $1 AND status = 'paying' AND id <> $2
			RETURNING id
		), defunct_items AS (
			UPDATE order_items SET status = 'defunct'
			WHERE order_id IN (SELECT id FROM defunct)
		)
		SELECT count(*) FROM defunct
	`

	var orders int64
	if err := q.QueryRow(ctx, query, userID, exceptOrderID).Scan(&orders); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to mark orders defunct")
		return 0, fmt.Errorf("failed to mark orders defunct: %w", err)
	}

	return orders, nil
}

// ListItems returns the items of an order ordered by ID.
func (r *orderRepository) ListItems(ctx context.Context, q DBTX, orderID int64) ([]model.OrderItem, error) {
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// GetItem retrieves an item by ID.
func (r *orderRepository) GetItem(ctx context.Context, q DBTX, itemID int64) (*model.OrderItem, error) {
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE id = $1`

	item, err := scanItem(q.QueryRow(ctx, query, itemID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to query order item")
		return nil, fmt.Errorf("failed to query order item: %w", err)
	}

	return item, nil
}

// AddItem inserts an item and fills in its ID and creation time.
func (r *orderRepository) AddItem(ctx context.Context, q DBTX, item *model.OrderItem) error {
	query := `
		INSERT INTO order_items (
			order_id, user_id, kind, course_id, mode, status, qty,
			unit_cost, list_price, line_desc, currency, service_fee, report_comments
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		item.OrderID, item.UserID, item.Kind, item.CourseID, item.Mode, item.Status, item.Qty,
		item.UnitCost, item.ListPrice, item.LineDesc, item.Currency, item.ServiceFee, item.ReportComments,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", item.OrderID).
			Str("course_id", item.CourseID).
			Msg("failed to add order item")
		return fmt.Errorf("failed to add order item: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", item.OrderID).
		Int64("item_id", item.ID).
		Str("kind", string(item.Kind)).
		Msg("order item added")

	return nil
}

// UpdateItem persists the mutable fields of an item.
func (r *orderRepository) UpdateItem(ctx context.Context, q DBTX, item *model.OrderItem) error {
	query := `
		UPDATE order_items SET
			kind = $2, mode = $3, status = $4, qty = $5, unit_cost = $6, list_price = $7,
			line_desc = $8, fulfilled_time = $9, refund_requested_time = $10,
			service_fee = $11, report_comments = $12
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		item.ID, item.Kind, item.Mode, item.Status, item.Qty, item.UnitCost, item.ListPrice,
		item.LineDesc, item.FulfilledTime, item.RefundRequestedTime,
		item.ServiceFee, item.ReportComments,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("item_id", item.ID).Msg("failed to update order item")
		return fmt.Errorf("failed to update order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}

	return nil
}

// UpdateItemStatuses sets the status of every item in an order.
func (r *orderRepository) UpdateItemStatuses(ctx context.Context, q DBTX, orderID int64, status model.OrderStatus) error {
	query := `UPDATE order_items SET status = $2 WHERE order_id = $1`

	if _, err := q.Exec(ctx, query, orderID, status); err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to update order item statuses")
		return fmt.Errorf("failed to update order item statuses: %w", err)
	}

	return nil
}

// DeleteItem removes a cart item of an order and reports whether it existed.
func (r *orderRepository) DeleteItem(ctx context.Context, q DBTX, orderID, itemID int64) (bool, error) {
	query := `DELETE FROM order_items WHERE id = $1 AND order_id = $2 AND status = 'cart'`

	tag, err := q.Exec(ctx, query, itemID, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("failed to delete order item")
		return false, fmt.Errorf("failed to delete order item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteItems removes every item of an order.
func (r *orderRepository) DeleteItems(ctx context.Context, q DBTX, orderID int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to clear order items")
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	return nil
}

// ReportItems returns purchased and refunded items whose purchase or refund
// time falls in [start, end).
func (r *orderRepository) ReportItems(ctx context.Context, q DBTX, start, end time.Time) ([]model.ReportItem, error) {
	query := `
		SELECT o.id, i.id, i.course_id, i.kind, i.status, i.qty, i.unit_cost, i.service_fee,
			i.currency, i.line_desc, i.report_comments, o.purchase_time, i.refund_requested_time,
			o.bill_to_first, o.bill_to_last
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.status IN ('purchased', 'refunded')
			AND o.purchase_time IS NOT NULL
			AND ((o.purchase_time >= $1 AND o.purchase_time < $2)
				OR (i.refund_requested_time >= $1 AND i.refund_requested_time < $2))
		ORDER BY o.purchase_time, i.id
	`

	rows, err := q.Query(ctx, query, start, end)
	if err != nil {
		r.logger.Error().Err(err).Time("start", start).Time("end", end).Msg("failed to query report items")
		return nil, fmt.Errorf("failed to query report items: %w", err)
	}
	defer rows.Close()

	var items []model.ReportItem
	for rows.Next() {
		var it model.ReportItem
		var billing model.BillingInfo
		err := rows.Scan(
			&it.OrderID, &it.ItemID, &it.CourseID, &it.Kind, &it.Status, &it.Qty, &it.UnitCost, &it.ServiceFee,
			&it.Currency, &it.LineDesc, &it.ReportComments, &it.PurchaseTime, &it.RefundRequestedTime,
			&billing.FirstName, &billing.LastName,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan report item row")
			return nil, fmt.Errorf("failed to scan report item: %w", err)
		}
		it.CustomerName = billing.FullName()
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating report item rows")
		return nil, fmt.Errorf("error iterating report items: %w", err)
	}

	return items, nil
}
