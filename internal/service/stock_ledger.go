package service

import (
	"context"
	"fmt"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRef describes why a ledger adjustment happens.
type StockRef struct {
	Source    string
	Reference string
	UserID    *uint
}

// LineQuantity is a product demand taken from an order or return line.
type LineQuantity struct {
	ProductID uint
	Quantity  decimal.Decimal
}

// Units converts a line quantity to whole stock units. Fractions are truncated, so 2.9 kg moves 2 units.
func Units(q decimal.Decimal) int {
	return int(q.IntPart())
}

func orderQuantities(lines []model.OrderLine) []LineQuantity {
	out := make([]LineQuantity, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineQuantity{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func returnQuantities(lines []model.ReturnLine) []LineQuantity {
	out := make([]LineQuantity, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineQuantity{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// StockLedger applies stock adjustments to products and records each one as a movement.
// All methods must run inside the caller's transaction.
type StockLedger struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	clock     Clock
}

func NewStockLedger(products repository.ProductRepository, movements repository.StockMovementRepository, clock Clock) *StockLedger {
	return &StockLedger{products: products, movements: movements, clock: clock}
}

// Adjust moves quantity units in or out of a product. A decrease larger than the stock on hand
// fails with InsufficientStockError and leaves the product untouched. A zero quantity is a no-op.
func (l *StockLedger) Adjust(ctx context.Context, productID uint, quantity int, direction string, ref StockRef) (*model.Product, error) {
	if quantity < 0 {
		return nil, newError(ErrValidation, "stock quantity must be positive, got %d", quantity)
	}
	if direction != model.StockIn && direction != model.StockOut {
		return nil, newError(ErrValidation, "unknown stock direction %q", direction)
	}

	product, err := l.products.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return nil, loadErr(err, "product", productID)
	}
	if quantity == 0 {
		return product, nil
	}

	before := product.StockOnHand
	if direction == model.StockOut {
		if quantity > product.StockOnHand {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.StockOnHand,
				Requested:   quantity,
			}
		}
		product.StockOnHand -= quantity
	} else {
		product.StockOnHand += quantity
	}

	if err := l.products.UpdateStock(ctx, product.ID, product.StockOnHand); err != nil {
		return nil, fmt.Errorf("failed to update stock of product %d: %w", product.ID, err)
	}

	movement := &model.StockMovement{
		ID:          uuid.New(),
		ProductID:   product.ID,
		Direction:   direction,
		Quantity:    quantity,
		StockBefore: before,
		StockAfter:  product.StockOnHand,
		Source:      ref.Source,
		Reference:   ref.Reference,
		UserID:      ref.UserID,
		CreatedAt:   l.clock.Now(),
	}
	if err := l.movements.Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	return product, nil
}

// Increase adds quantity units to the product.
func (l *StockLedger) Increase(ctx context.Context, productID uint, quantity int, ref StockRef) (*model.Product, error) {
	return l.Adjust(ctx, productID, quantity, model.StockIn, ref)
}

// Decrease removes quantity units from the product.
func (l *StockLedger) Decrease(ctx context.Context, productID uint, quantity int, ref StockRef) (*model.Product, error) {
	return l.Adjust(ctx, productID, quantity, model.StockOut, ref)
}

// AdjustLines applies one adjustment per line, stopping at the first failure.
func (l *StockLedger) AdjustLines(ctx context.Context, lines []LineQuantity, direction string, ref StockRef) ([]model.Product, error) {
	touched := make([]model.Product, 0, len(lines))
	for _, line := range lines {
		product, err := l.Adjust(ctx, line.ProductID, Units(line.Quantity), direction, ref)
		if err != nil {
			return nil, err
		}
		touched = append(touched, *product)
	}
	return touched, nil
}

// EnsureAvailable checks that every demand can be taken out of stock before anything is
// decreased. Demands on the same product are added up.
func (l *StockLedger) EnsureAvailable(ctx context.Context, lines []LineQuantity) error {
	totals := make(map[uint]int, len(lines))
	var order []uint
	for _, line := range lines {
		if _, seen := totals[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		totals[line.ProductID] += Units(line.Quantity)
	}

	for _, productID := range order {
		product, err := l.products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return loadErr(err, "product", productID)
		}
		if requested := totals[productID]; requested > product.StockOnHand {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.StockOnHand,
				Requested:   requested,
			}
		}
	}
	return nil
}

// StockNotifier receives products whose stock changed, after the change is committed.
type StockNotifier interface {
	PublishStock(products []model.Product)
}

// stockChanges collects the latest state of every product touched during an operation.
type stockChanges struct {
	byID  map[uint]model.Product
	order []uint
}

func newStockChanges() *stockChanges {
	return &stockChanges{byID: make(map[uint]model.Product)}
}

func (c *stockChanges) add(products ...model.Product) {
	for _, p := range products {
		if _, ok := c.byID[p.ID]; !ok {
			c.order = append(c.order, p.ID)
		}
		c.byID[p.ID] = p
	}
}

func (c *stockChanges) reset() {
	c.byID = make(map[uint]model.Product)
	c.order = nil
}

func (c *stockChanges) publish(n StockNotifier) {
	if n == nil || len(c.order) == 0 {
		return
	}
	out := make([]model.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	n.PublishStock(out)
}
