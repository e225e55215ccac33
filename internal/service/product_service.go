package service

import (
	"context"
	"fmt"
	"strings"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/shopspring/decimal"
)

// DTOs
type CreateProductRequest struct {
	Code         string          `json:"code" binding:"omitempty,max=20"`
	Name         string          `json:"name" binding:"required,max=150"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit" binding:"omitempty,unit"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Stock        int             `json:"stock" binding:"min=0"`
	StockMinimum *int            `json:"stock_minimum" binding:"omitempty,min=0"`
}

type UpdateProductRequest struct {
	Code         string          `json:"code" binding:"omitempty,max=20"`
	Name         string          `json:"name" binding:"required,max=150"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit" binding:"required,unit"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	StockMinimum int             `json:"stock_minimum" binding:"min=0"`
}

const (
	AdjustAdd      = "add"
	AdjustSubtract = "subtract"
)

type AdjustStockRequest struct {
	Operation string `json:"operation" binding:"required,oneof=add subtract"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Reason    string `json:"reason"`
}

// ProductDetail is a product with its accumulated sales.
type ProductDetail struct {
	Product model.Product      `json:"product"`
	Sales   model.ProductSales `json:"sales"`
}

const defaultTopSellingLimit = 10

type ProductService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	ListActive(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*ProductDetail, error)
	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id uint, req UpdateProductRequest) (*model.Product, error)
	AdjustStock(ctx context.Context, actor Actor, id uint, req AdjustStockRequest) (*model.Product, error)
	ToggleActive(ctx context.Context, actor Actor, id uint) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id uint) error
	LowStock(ctx context.Context) ([]model.Product, error)
	Units() []string
	TopSelling(ctx context.Context, limit int) ([]model.ProductSales, error)
	Movements(ctx context.Context, id uint, page repository.Page) ([]model.StockMovement, int64, error)
}

type productService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	txManager repository.TransactionManager
	ledger    *StockLedger
	audit     auditor
	notifier  StockNotifier
}

func NewProductService(d Dependencies) ProductService {
	return &productService{
		products:  d.Products,
		movements: d.Movements,
		txManager: d.TxManager,
		ledger:    d.ledger(),
		audit:     d.auditor(),
		notifier:  d.Notifier,
	}
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	if filter.Unit != "" && !model.IsValidUnit(filter.Unit) {
		return nil, 0, newError(ErrValidation, "invalid unit %q", filter.Unit)
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (s *productService) ListActive(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*ProductDetail, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "product", id)
	}
	sales, err := s.products.Sales(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales of product %d: %w", id, err)
	}
	return &ProductDetail{Product: *product, Sales: sales}, nil
}

func (s *productService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*model.Product, error) {
	unit := req.Unit
	if unit == "" {
		unit = model.UnitPiece
	}
	minimum := model.DefaultStockMinimum
	if req.StockMinimum != nil {
		minimum = *req.StockMinimum
	}
	if err := validateProduct(req.Name, unit, req.SalePrice, minimum); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, newError(ErrValidation, "initial stock cannot be negative")
	}

	product := &model.Product{
		Code:         optionalCode(req.Code),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Unit:         unit,
		SalePrice:    req.SalePrice.Round(2),
		StockMinimum: minimum,
		Active:       true,
	}

	changes := newStockChanges()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, product, 0); err != nil {
			return err
		}
		if err := s.products.Create(txCtx, product); err != nil {
			return saveErr(err, "create product")
		}

		if req.Stock > 0 {
			stocked, err := s.ledger.Increase(txCtx, product.ID, req.Stock, StockRef{
				Source:    model.MovementManual,
				Reference: "initial",
				UserID:    actor.ref(),
			})
			if err != nil {
				return err
			}
			product.StockOnHand = stocked.StockOnHand
			changes.add(*stocked)
		}

		return s.audit.record(txCtx, actor, model.ActionCreateProduct, product.ID, product.Name, map[string]interface{}{
			"unit":       product.Unit,
			"sale_price": product.SalePrice,
			"stock":      product.StockOnHand,
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return product, nil
}

// UpdateProduct edits the catalogue fields. Stock is only changed through AdjustStock.
func (s *productService) UpdateProduct(ctx context.Context, actor Actor, id uint, req UpdateProductRequest) (*model.Product, error) {
	if err := validateProduct(req.Name, req.Unit, req.SalePrice, req.StockMinimum); err != nil {
		return nil, err
	}

	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "product", id)
		}

		product.Code = optionalCode(req.Code)
		product.Name = strings.TrimSpace(req.Name)
		product.Description = req.Description
		product.Unit = req.Unit
		product.SalePrice = req.SalePrice.Round(2)
		product.StockMinimum = req.StockMinimum

		if err := s.ensureUnique(txCtx, product, product.ID); err != nil {
			return err
		}
		if err := s.products.Update(txCtx, product); err != nil {
			return saveErr(err, "update product")
		}

		return s.audit.record(txCtx, actor, model.ActionUpdateProduct, product.ID, product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) AdjustStock(ctx context.Context, actor Actor, id uint, req AdjustStockRequest) (*model.Product, error) {
	if req.Quantity <= 0 {
		return nil, newError(ErrValidation, "quantity must be greater than zero")
	}
	direction := model.StockIn
	switch req.Operation {
	case AdjustAdd:
	case AdjustSubtract:
		direction = model.StockOut
	default:
		return nil, newError(ErrValidation, "invalid stock operation %q, expected add or subtract", req.Operation)
	}

	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.ledger.Adjust(txCtx, id, req.Quantity, direction, StockRef{
			Source: model.MovementManual,
			UserID: actor.ref(),
		})
		if err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, model.ActionAdjustStock, product.ID, product.Name, map[string]interface{}{
			"operation": req.Operation,
			"quantity":  req.Quantity,
			"reason":    req.Reason,
			"stock":     product.StockOnHand,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.PublishStock([]model.Product{*product})
	}
	return product, nil
}

func (s *productService) ToggleActive(ctx context.Context, actor Actor, id uint) (*model.Product, error) {
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "product", id)
		}
		product.Active = !product.Active
		if err := s.products.Update(txCtx, product); err != nil {
			return saveErr(err, "update product")
		}
		return s.audit.record(txCtx, actor, model.ActionToggleProduct, product.ID, product.Name, map[string]interface{}{
			"active": product.Active,
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, actor Actor, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "product", id)
		}

		refs, err := s.products.CountReferences(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count references of product %d: %w", id, err)
		}
		if refs > 0 {
			return newError(ErrIntegrityConflict, "product %q is used by %d order or return lines; deactivate it instead", product.Name, refs)
		}

		if err := s.products.Delete(txCtx, id); err != nil {
			return saveErr(err, "delete product")
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteProduct, product.ID, product.Name, nil)
	})
}

func (s *productService) LowStock(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func (s *productService) Units() []string {
	out := make([]string, len(model.Units))
	copy(out, model.Units)
	return out
}

func (s *productService) TopSelling(ctx context.Context, limit int) ([]model.ProductSales, error) {
	if limit <= 0 {
		limit = defaultTopSellingLimit
	}
	sales, err := s.products.TopSelling(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank products: %w", err)
	}
	return sales, nil
}

func (s *productService) Movements(ctx context.Context, id uint, page repository.Page) ([]model.StockMovement, int64, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, 0, loadErr(err, "product", id)
	}
	movements, total, err := s.movements.ListByProduct(ctx, id, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, total, nil
}

func (s *productService) ensureUnique(ctx context.Context, product *model.Product, excludeID uint) error {
	if product.Code != nil {
		taken, err := s.products.ExistsByCode(ctx, *product.Code, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check product code: %w", err)
		}
		if taken {
			return newError(ErrIntegrityConflict, "product code %q already exists", *product.Code)
		}
	}
	taken, err := s.products.ExistsByName(ctx, product.Name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check product name: %w", err)
	}
	if taken {
		return newError(ErrIntegrityConflict, "product %q already exists", product.Name)
	}
	return nil
}

func validateProduct(name, unit string, price decimal.Decimal, minimum int) error {
	if strings.TrimSpace(name) == "" {
		return newError(ErrValidation, "product name is required")
	}
	if !model.IsValidUnit(unit) {
		return newError(ErrValidation, "invalid unit %q", unit)
	}
	if !price.IsPositive() {
		return newError(ErrValidation, "sale price must be greater than zero")
	}
	if err := checkAmount("sale price", price); err != nil {
		return err
	}
	if minimum < 0 {
		return newError(ErrValidation, "stock minimum cannot be negative")
	}
	return nil
}

func optionalCode(code string) *string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	return &code
}
