package repository

import (
	"context"
	"errors"

	"distribuidora/internal/model"

	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Customer, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	List(ctx context.Context, filter CustomerFilter) ([]model.Customer, int64, error)
	ListActive(ctx context.Context) ([]model.Customer, error)
	Zones(ctx context.Context) ([]string, error)
	Cities(ctx context.Context) ([]string, error)
	Counts(ctx context.Context) (model.CustomerCounts, error)
	Statistics(ctx context.Context, id uint) (model.CustomerStatistics, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Customer{}).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Customer{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		db = db.Where("name ILIKE ? OR mobile ILIKE ? OR address ILIKE ?", pattern, pattern, pattern)
	}
	if filter.Zone != "" {
		db = db.Where("zone = ?", filter.Zone)
	}
	if filter.City != "" {
		db = db.Where("city = ?", filter.City)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.Page.scope(db).Order("name asc").Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) ListActive(ctx context.Context) ([]model.Customer, error) {
	var customers []model.Customer
	if err := GetDB(ctx, r.db).Where("active = ?", true).Order("name asc").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) Zones(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "zone")
}

func (r *customerRepository) Cities(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "city")
}

func (r *customerRepository) distinct(ctx context.Context, column string) ([]string, error) {
	var values []string
	if err := GetDB(ctx, r.db).Model(&model.Customer{}).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (r *customerRepository) Counts(ctx context.Context) (model.CustomerCounts, error) {
	var counts model.CustomerCounts
	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if err := db.Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := GetDB(ctx, r.db).Model(&model.Customer{}).Where("active = ?", true).Count(&counts.Active).Error; err != nil {
		return counts, err
	}
	counts.Inactive = counts.Total - counts.Active
	return counts, nil
}

func (r *customerRepository) Statistics(ctx context.Context, id uint) (model.CustomerStatistics, error) {
	var stats model.CustomerStatistics
	db := GetDB(ctx, r.db)

	if err := db.Model(&model.Order{}).Where("customer_id = ?", id).Count(&stats.Orders).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&model.Return{}).Where("customer_id = ?", id).Count(&stats.Returns).Error; err != nil {
		return stats, err
	}

	var delivered string
	if err := db.Model(&model.Order{}).
		Select("COALESCE(CAST(SUM(total) AS TEXT), '0')").
		Where("customer_id = ? AND status = ?", id, model.OrderStatusDelivered).
		Scan(&delivered).Error; err != nil {
		return stats, err
	}
	stats.DeliveredTotal = parseDecimal(delivered)

	var last model.Order
	err := db.Where("customer_id = ?", id).Order("ordered_at desc").First(&last).Error
	switch {
	case err == nil:
		stats.LastOrder = &last
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return stats, err
	}

	return stats, nil
}
