package repository

import (
	"context"

	"distribuidora/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error)
	ExistsByCode(ctx context.Context, code string, excludeID uint) (bool, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	ListActive(ctx context.Context) ([]model.Product, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
	UpdateStock(ctx context.Context, id uint, stock int) error
	CountReferences(ctx context.Context, id uint) (int64, error)
	TopSelling(ctx context.Context, limit int) ([]model.ProductSales, error)
	Sales(ctx context.Context, id uint) (model.ProductSales, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ExistsByCode(ctx context.Context, code string, excludeID uint) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("code = ?", code)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if filter.Search != "" {
		db = db.Where("name ILIKE ? OR code ILIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.Unit != "" {
		db = db.Where("unit = ?", filter.Unit)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.LowStock {
		db = db.Where("stock_on_hand <= stock_minimum")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.Page.scope(db).Order("name asc").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Where("active = ?", true).Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).
		Where("active = ? AND stock_on_hand <= stock_minimum", true).
		Order("stock_on_hand asc").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uint, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("stock_on_hand", stock).Error
}

// CountReferences counts order and return lines pointing at the product.
func (r *productRepository) CountReferences(ctx context.Context, id uint) (int64, error) {
	var orderLines, returnLines int64
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.OrderLine{}).Where("product_id = ?", id).Count(&orderLines).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.ReturnLine{}).
		Where("product_id = ? OR replacement_product_id = ?", id, id).
		Count(&returnLines).Error; err != nil {
		return 0, err
	}
	return orderLines + returnLines, nil
}

func (r *productRepository) TopSelling(ctx context.Context, limit int) ([]model.ProductSales, error) {
	var rows []struct {
		ProductID     uint
		TotalQuantity string
		TotalValue    string
	}
	if err := GetDB(ctx, r.db).Table("order_lines").
		Select("order_lines.product_id, CAST(SUM(order_lines.quantity) AS TEXT) AS total_quantity, CAST(SUM(order_lines.subtotal) AS TEXT) AS total_value").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.status <> ?", model.OrderStatusCancelled).
		Group("order_lines.product_id").
		Order("SUM(order_lines.quantity) DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]model.ProductSales, 0, len(rows))
	for _, row := range rows {
		product, err := r.FindByID(ctx, row.ProductID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.ProductSales{
			Product:       *product,
			TotalQuantity: parseDecimal(row.TotalQuantity),
			TotalValue:    parseDecimal(row.TotalValue),
		})
	}
	return out, nil
}

// Sales sums the quantity and value of the product on orders that were not cancelled.
func (r *productRepository) Sales(ctx context.Context, id uint) (model.ProductSales, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return model.ProductSales{}, err
	}

	var row struct {
		TotalQuantity string
		TotalValue    string
	}
	if err := GetDB(ctx, r.db).Table("order_lines").
		Select("COALESCE(CAST(SUM(order_lines.quantity) AS TEXT), '0') AS total_quantity, COALESCE(CAST(SUM(order_lines.subtotal) AS TEXT), '0') AS total_value").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("order_lines.product_id = ? AND orders.status <> ?", id, model.OrderStatusCancelled).
		Scan(&row).Error; err != nil {
		return model.ProductSales{}, err
	}

	return model.ProductSales{
		Product:       *product,
		TotalQuantity: parseDecimal(row.TotalQuantity),
		TotalValue:    parseDecimal(row.TotalValue),
	}, nil
}
