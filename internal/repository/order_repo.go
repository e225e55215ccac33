package repository

import (
	"context"
	"errors"
	"time"

	"distribuidora/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository persists the order aggregate. Lines are only written through Create and ReplaceLines.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	ReplaceLines(ctx context.Context, order *model.Order, lines []model.OrderLine) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error)
	LatestNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	Statistics(ctx context.Context, rng model.DateRange) (model.OrderStatistics, error)
	CountByCreator(ctx context.Context, userID uint) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	db := GetDB(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	return r.insertLines(db, order)
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) ReplaceLines(ctx context.Context, order *model.Order, lines []model.OrderLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", order.ID).Delete(&model.OrderLine{}).Error; err != nil {
		return err
	}
	order.Lines = lines
	return r.insertLines(db, order)
}

func (r *orderRepository) insertLines(db *gorm.DB, order *model.Order) error {
	if len(order.Lines) == 0 {
		return nil
	}
	for i := range order.Lines {
		order.Lines[i].ID = 0
		order.Lines[i].OrderID = order.ID
	}
	return db.Omit(clause.Associations).Create(&order.Lines).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderLine{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Order{}).Error
}

func (r *orderRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("CreatedBy").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Lines.Product")
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preload(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LatestNumberWithPrefix returns the number of the most recently inserted order whose number
// starts with prefix, or "" when none does.
func (r *orderRepository) LatestNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var order model.Order
	err := GetDB(ctx, r.db).Select("id", "order_number").
		Where("order_number LIKE ?", prefix+"%").
		Order("id desc").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return order.OrderNumber, nil
}

func (r *orderRepository) filtered(ctx context.Context, filter OrderFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.Order{})
	if filter.CustomerID != nil {
		db = db.Where("orders.customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		db = db.Where("orders.status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("orders.ordered_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("orders.ordered_at < ?", *filter.To)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Joins("JOIN customers ON customers.id = orders.customer_id").
			Where("orders.order_number ILIKE ? OR customers.name ILIKE ?", pattern, pattern)
	}
	return db
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.preload(filter.Page.scope(r.filtered(ctx, filter))).Select("orders.*")
	if err := query.Order("orders.ordered_at desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.preload(GetDB(ctx, r.db)).
		Where("ordered_at >= ? AND ordered_at < ?", from, to).
		Order("customer_id asc, ordered_at asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Statistics(ctx context.Context, rng model.DateRange) (model.OrderStatistics, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount string
	}
	db := GetDB(ctx, r.db).Model(&model.Order{})
	if rng.From != nil {
		db = db.Where("ordered_at >= ?", *rng.From)
	}
	if rng.To != nil {
		db = db.Where("ordered_at < ?", *rng.To)
	}
	if err := db.Select("status, COUNT(*) AS count, COALESCE(CAST(SUM(total) AS TEXT), '0') AS amount").
		Group("status").
		Scan(&rows).Error; err != nil {
		return model.OrderStatistics{}, err
	}

	stats := model.OrderStatistics{DeliveredTotal: decimal.Zero}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.OrderStatusPending:
			stats.Pending = row.Count
		case model.OrderStatusDelivered:
			stats.Delivered = row.Count
			stats.DeliveredTotal = parseDecimal(row.Amount)
		case model.OrderStatusCancelled:
			stats.Cancelled = row.Count
		}
	}
	return stats, nil
}

func (r *orderRepository) CountByCreator(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).Where("created_by_id = ?", userID).Count(&count).Error
	return count, err
}
