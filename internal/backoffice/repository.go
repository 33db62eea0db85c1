package backoffice

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

const (
	settingCompanyInfo = "company_info"
	settingPromoModal  = "promo_modal"
	settingDelivery    = "delivery"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// --- settings ---

// Settings are stored as one JSONB document per key so the shapes can
// evolve without migrations.
func (r *Repository) getSetting(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = $1
	`, key).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	return true, json.Unmarshal(raw, out)
}

func (r *Repository) putSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, raw)
	return err
}

func (r *Repository) GetCompanyInfo(ctx context.Context) (*domain.CompanyInfo, error) {
	info := &domain.CompanyInfo{}
	found, err := r.getSetting(ctx, settingCompanyInfo, info)
	if err != nil {
		return nil, err
	}
	if !found {
		return &domain.CompanyInfo{}, nil
	}
	return info, nil
}

func (r *Repository) SaveCompanyInfo(ctx context.Context, info *domain.CompanyInfo) error {
	return r.putSetting(ctx, settingCompanyInfo, info)
}

func (r *Repository) GetPromoModal(ctx context.Context) (*domain.PromoModal, error) {
	modal := &domain.PromoModal{}
	found, err := r.getSetting(ctx, settingPromoModal, modal)
	if err != nil {
		return nil, err
	}
	if !found {
		return &domain.PromoModal{}, nil
	}
	return modal, nil
}

func (r *Repository) SavePromoModal(ctx context.Context, modal *domain.PromoModal) error {
	return r.putSetting(ctx, settingPromoModal, modal)
}

func (r *Repository) GetDeliverySettings(ctx context.Context) (*domain.DeliverySettings, error) {
	settings := &domain.DeliverySettings{}
	found, err := r.getSetting(ctx, settingDelivery, settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return &domain.DeliverySettings{}, nil
	}
	return settings, nil
}

func (r *Repository) SaveDeliverySettings(ctx context.Context, settings *domain.DeliverySettings) error {
	return r.putSetting(ctx, settingDelivery, settings)
}

// --- founders ---

func (r *Repository) ListFounders(ctx context.Context) ([]domain.Founder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, bio, image, created_at
		FROM founders
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	founders := []domain.Founder{}
	for rows.Next() {
		var f domain.Founder
		if err := rows.Scan(&f.ID, &f.Name, &f.Role, &f.Bio, &f.Image, &f.CreatedAt); err != nil {
			return nil, err
		}
		founders = append(founders, f)
	}

	return founders, rows.Err()
}

func (r *Repository) CreateFounder(ctx context.Context, f *domain.Founder) error {
	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO founders (id, name, role, bio, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.Name, f.Role, f.Bio, f.Image, f.CreatedAt)
	return err
}

func (r *Repository) UpdateFounder(ctx context.Context, f *domain.Founder) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE founders SET name = $2, role = $3, bio = $4, image = $5
		WHERE id = $1
	`, f.ID, f.Name, f.Role, f.Bio, f.Image)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *Repository) DeleteFounder(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM founders WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// --- analytics ---

// AnalyticsSummary aggregates the last N days of orders. It reads the
// checkout schema directly instead of paging through the checkout API;
// cancelled orders count towards status totals but not revenue.
func (r *Repository) AnalyticsSummary(ctx context.Context, days int) (*domain.AnalyticsSummary, error) {
	summary := &domain.AnalyticsSummary{
		Days:         days,
		StatusCounts: map[string]int{},
		TopProducts:  []domain.ProductSales{},
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM checkout.orders
		WHERE created_at >= NOW() - make_interval(days => $1)
		GROUP BY status
	`, days)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0),
			COUNT(*) FILTER (WHERE coupon_code <> '')
		FROM checkout.orders
		WHERE created_at >= NOW() - make_interval(days => $1)
			AND status <> 'cancelled'
	`, days).Scan(&summary.OrderCount, &summary.Revenue, &summary.CouponedCount)
	if err != nil {
		return nil, err
	}

	if summary.OrderCount > 0 {
		summary.AverageOrder = summary.Revenue / int64(summary.OrderCount)
	}

	productRows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, oi.name, SUM(oi.quantity), SUM(oi.quantity * oi.price)
		FROM checkout.order_items oi
		JOIN checkout.orders o ON o.id = oi.order_id
		WHERE o.created_at >= NOW() - make_interval(days => $1)
			AND o.status <> 'cancelled'
		GROUP BY oi.product_id, oi.name
		ORDER BY SUM(oi.quantity) DESC, oi.product_id
		LIMIT 5
	`, days)
	if err != nil {
		return nil, err
	}
	defer func() { _ = productRows.Close() }()

	for productRows.Next() {
		var sales domain.ProductSales
		if err := productRows.Scan(&sales.ProductID, &sales.Name, &sales.Quantity, &sales.Revenue); err != nil {
			return nil, err
		}
		summary.TopProducts = append(summary.TopProducts, sales)
	}

	return summary, productRows.Err()
}
