package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopfront-labs/shopfront/internal/domain"
	"github.com/shopfront-labs/shopfront/internal/pricing"
)

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// CouponRejectedError carries the evaluator verdict out of the order
// transaction so handlers can surface the rejection message.
type CouponRejectedError struct {
	Result pricing.CouponResult
}

func (e *CouponRejectedError) Error() string {
	return e.Result.Message
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// --- carts ---

func (r *Repository) CreateCart(ctx context.Context) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:        uuid.New().String(),
		Items:     []domain.LineItem{},
		CreatedAt: time.Now().UTC(),
	}
	cart.UpdatedAt = cart.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, created_at, updated_at)
		VALUES ($1, $2, $2)
	`, cart.ID, cart.CreatedAt)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *Repository) GetCart(ctx context.Context, id string) (*domain.Cart, error) {
	cart := &domain.Cart{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at
		FROM carts
		WHERE id = $1
	`, id).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, size, color, quantity, price, image
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY product_id, size, color
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cart.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Size, &item.Color,
			&item.Quantity, &item.Price, &item.Image); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *Repository) UpsertCartItem(ctx context.Context, cartID string, item domain.LineItem) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, name, size, color, quantity, price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cart_id, product_id, size, color)
		DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price,
			name = EXCLUDED.name, image = EXCLUDED.image
	`, cartID, item.ProductID, item.Name, item.Size, item.Color,
		item.Quantity, item.Price, item.Image)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCartNotFound
		}
		return err
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	return err
}

func (r *Repository) RemoveCartItem(ctx context.Context, cartID string, key domain.LineKey) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND size = $3 AND color = $4
	`, cartID, key.ProductID, key.Size, key.Color)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	return err
}

func (r *Repository) DeleteCart(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// --- coupons ---

func (r *Repository) CreateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	coupon.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_order,
			max_discount, usage_limit, used_count, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
	`, coupon.ID, coupon.Code, coupon.DiscountType, coupon.DiscountValue,
		coupon.MinOrder, coupon.MaxDiscount, coupon.UsageLimit, coupon.IsActive,
		nullableTime(coupon.ExpiresAt), coupon.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}

	return nil
}

func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return scanCoupon(r.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, min_order, max_discount,
			usage_limit, used_count, is_active, expires_at, created_at
		FROM coupons
		WHERE code = $1
	`, code))
}

func (r *Repository) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, discount_type, discount_value, min_order, max_discount,
			usage_limit, used_count, is_active, expires_at, created_at
		FROM coupons
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	coupons := []domain.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return coupons, nil
}

// ListCouponCodes feeds the startup bloom screen.
func (r *Repository) ListCouponCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code FROM coupons`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

func (r *Repository) UpdateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET discount_type = $2, discount_value = $3, min_order = $4,
			max_discount = $5, usage_limit = $6, is_active = $7, expires_at = $8
		WHERE code = $1
	`, coupon.Code, coupon.DiscountType, coupon.DiscountValue, coupon.MinOrder,
		coupon.MaxDiscount, coupon.UsageLimit, coupon.IsActive, nullableTime(coupon.ExpiresAt))
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetCouponByCode(ctx, coupon.Code)
}

func (r *Repository) DeleteCoupon(ctx context.Context, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE code = $1`, code)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// --- orders ---

// CreateOrder persists the order, evaluating the coupon and incrementing its
// usage count inside the same transaction. The order's subtotal and delivery
// fee must be set by the caller; discount and total are computed here.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.Discount = 0
	if order.CouponCode != "" {
		coupon, err := scanCoupon(tx.QueryRowContext(ctx, `
			SELECT id, code, discount_type, discount_value, min_order, max_discount,
				usage_limit, used_count, is_active, expires_at, created_at
			FROM coupons
			WHERE code = $1
			FOR UPDATE
		`, order.CouponCode))
		if err != nil {
			return err
		}

		result := pricing.EvaluateCoupon(coupon, order.Subtotal, time.Now().UTC())
		if !result.Valid {
			return &CouponRejectedError{Result: result}
		}
		order.Discount = result.Discount

		if _, err := tx.ExecContext(ctx, `
			UPDATE coupons SET used_count = used_count + 1 WHERE code = $1
		`, order.CouponCode); err != nil {
			return err
		}
	}

	order.ID = uuid.New().String()
	order.Total = order.Subtotal - order.Discount + order.DeliveryFee

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, customer_email, customer_phone,
			shipping_address, subtotal, discount, delivery_fee, total, coupon_code,
			status, payment_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', $12, $12)
	`, order.ID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.ShippingAddress, order.Subtotal, order.Discount, order.DeliveryFee,
		order.Total, order.CouponCode, order.Status, order.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, size, color, quantity, price, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, order.ID, item.ProductID, item.Name, item.Size, item.Color,
			item.Quantity, item.Price, item.Image); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_email, customer_phone, shipping_address,
			subtotal, discount, delivery_fee, total, coupon_code, status,
			payment_note, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerName, &order.CustomerEmail,
		&order.CustomerPhone, &order.ShippingAddress, &order.Subtotal,
		&order.Discount, &order.DeliveryFee, &order.Total, &order.CouponCode,
		&order.Status, &order.PaymentNote, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, size, color, quantity, price, image
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id, size, color
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Size, &item.Color,
			&item.Quantity, &item.Price, &item.Image); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `
		SELECT id, customer_name, customer_email, customer_phone, shipping_address,
			subtotal, discount, delivery_fee, total, coupon_code, status,
			payment_note, created_at, updated_at
		FROM orders
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.CustomerEmail,
			&order.CustomerPhone, &order.ShippingAddress, &order.Subtotal,
			&order.Discount, &order.DeliveryFee, &order.Total, &order.CouponCode,
			&order.Status, &order.PaymentNote, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.LineItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, size, color, quantity, price, image
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.LineItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Size,
			&item.Color, &item.Quantity, &item.Price, &item.Image); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetOrder(ctx, id)
}

// ConfirmPayment records a manual bank-transfer confirmation. It only
// succeeds while the order is awaiting payment.
func (r *Repository) ConfirmPayment(ctx context.Context, id, note string) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, payment_note = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, domain.OrderStatusPaid, note, id, domain.OrderStatusAwaitingPayment)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetOrder(ctx, id)
}

// ApplyItemOperations replays a reconciliation plan against the persisted
// order items and recomputes the order totals in one transaction. The
// existing discount is kept but clamped to the new subtotal.
func (r *Repository) ApplyItemOperations(ctx context.Context, orderID string, ops []pricing.Operation) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range ops {
		switch op.Op {
		case pricing.OpRemove:
			_, err = tx.ExecContext(ctx, `
				DELETE FROM order_items
				WHERE order_id = $1 AND product_id = $2 AND size = $3 AND color = $4
			`, orderID, op.ProductID, op.Size, op.Color)
		case pricing.OpAdd:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, name, size, color, quantity, price, image)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, orderID, op.ProductID, op.Name, op.Size, op.Color, op.Quantity, op.Price, op.Image)
		case pricing.OpUpdate:
			_, err = tx.ExecContext(ctx, `
				UPDATE order_items
				SET name = $5, quantity = $6, price = $7, image = $8
				WHERE order_id = $1 AND product_id = $2 AND size = $3 AND color = $4
			`, orderID, op.ProductID, op.Size, op.Color, op.Name, op.Quantity, op.Price, op.Image)
		}
		if err != nil {
			return nil, err
		}
	}

	var subtotal int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity * price), 0)
		FROM order_items
		WHERE order_id = $1
	`, orderID).Scan(&subtotal); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET subtotal = $2,
			discount = LEAST(discount, $2),
			total = $2 - LEAST(discount, $2) + delivery_fee,
			updated_at = NOW()
		WHERE id = $1
	`, orderID, subtotal); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetOrder(ctx, orderID)
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	coupon := &domain.Coupon{}
	var expiresAt sql.NullTime

	err := row.Scan(&coupon.ID, &coupon.Code, &coupon.DiscountType,
		&coupon.DiscountValue, &coupon.MinOrder, &coupon.MaxDiscount,
		&coupon.UsageLimit, &coupon.UsedCount, &coupon.IsActive,
		&expiresAt, &coupon.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if expiresAt.Valid {
		coupon.ExpiresAt = expiresAt.Time
	}

	return coupon, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
