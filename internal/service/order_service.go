package service

import (
	"context"
	"fmt"
	"time"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type OrderLineInput struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"` // defaults to the product's sale price
}

type CreateOrderRequest struct {
	CustomerID   uint             `json:"customer_id" binding:"required"`
	Lines        []OrderLineInput `json:"lines" binding:"required,min=1,dive"`
	Discount     decimal.Decimal  `json:"discount"`
	Notes        string           `json:"notes"`
	DeliveryDate *string          `json:"delivery_date"` // YYYY-MM-DD
}

// UpdateOrderRequest changes only the fields that are present. A non-nil Lines replaces every line.
type UpdateOrderRequest struct {
	Notes        *string          `json:"notes"`
	DeliveryDate *string          `json:"delivery_date"`
	Discount     *decimal.Decimal `json:"discount"`
	Lines        []OrderLineInput `json:"lines" binding:"omitempty,dive"`
}

type ChangeOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderDetail is an order together with the pending returns of its customer.
type OrderDetail struct {
	Order          *model.Order   `json:"order"`
	PendingReturns []model.Return `json:"pending_returns"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, id uint) (*OrderDetail, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateOrder(ctx context.Context, actor Actor, id uint, req UpdateOrderRequest) (*model.Order, error)
	ChangeStatus(ctx context.Context, actor Actor, id uint, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, actor Actor, id uint) error
	Statistics(ctx context.Context, rng model.DateRange) (model.OrderStatistics, error)
}

type orderService struct {
	orders    repository.OrderRepository
	returns   repository.ReturnRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	txManager repository.TransactionManager
	ledger    *StockLedger
	audit     auditor
	numbers   *numberAllocator
	clock     Clock
	notifier  StockNotifier
}

func NewOrderService(d Dependencies) OrderService {
	return &orderService{
		orders:    d.Orders,
		returns:   d.Returns,
		customers: d.Customers,
		products:  d.Products,
		txManager: d.TxManager,
		ledger:    d.ledger(),
		audit:     d.auditor(),
		numbers:   newNumberAllocator(d.Locker, d.Clock),
		clock:     d.Clock,
		notifier:  d.Notifier,
	}
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, actor Actor, req CreateOrderRequest) (*model.Order, error) {
	if len(req.Lines) == 0 {
		return nil, newError(ErrValidation, "an order needs at least one line")
	}
	if err := checkAmount("discount", req.Discount); err != nil {
		return nil, err
	}
	deliveryDate, err := parseOptionalDate(req.DeliveryDate, s.clock.Location())
	if err != nil {
		return nil, err
	}

	var orderID uint
	changes := newStockChanges()
	err = s.numbers.run(ctx, model.OrderNumberPrefix, func(now time.Time) error {
		changes.reset()
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			customer, err := s.customers.FindByID(txCtx, req.CustomerID)
			if err != nil {
				return loadErr(err, "customer", req.CustomerID)
			}
			if !customer.Active {
				return newError(ErrValidation, "customer %q is inactive", customer.Name)
			}

			lines, err := s.buildLines(txCtx, req.Lines)
			if err != nil {
				return err
			}

			number, err := NextDocumentNumber(txCtx, s.orders, model.OrderNumberPrefix, now)
			if err != nil {
				return err
			}

			order := &model.Order{
				OrderNumber:  number,
				CustomerID:   customer.ID,
				CreatedByID:  actor.UserID,
				OrderedAt:    now,
				Discount:     req.Discount.Round(2),
				Status:       model.OrderStatusPending,
				Notes:        req.Notes,
				DeliveryDate: deliveryDate,
				Lines:        lines,
			}
			order.RecalculateTotals()
			if err := checkTotals(order); err != nil {
				return err
			}

			if err := createErr(s.orders.Create(txCtx, order), number); err != nil {
				return err
			}

			touched, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockOut, s.ref(actor, model.MovementOrderCreate, order))
			if err != nil {
				return err
			}
			changes.add(touched...)

			orderID = order.ID
			return s.audit.record(txCtx, actor, model.ActionCreateOrder, order.ID, order.OrderNumber, map[string]interface{}{
				"customer_id": order.CustomerID,
				"lines":       len(order.Lines),
				"total":       order.Total.StringFixed(2),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return s.reload(ctx, orderID)
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (*OrderDetail, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "order", id)
	}
	pending, err := s.returns.ListPending(ctx, &order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending returns: %w", err)
	}
	return &OrderDetail{Order: order, PendingReturns: pending}, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	if filter.Status != "" && !model.IsValidOrderStatus(filter.Status) {
		return nil, 0, newError(ErrValidation, "invalid order status %q", filter.Status)
	}
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, actor Actor, id uint, req UpdateOrderRequest) (*model.Order, error) {
	if req.Lines != nil && len(req.Lines) == 0 {
		return nil, newError(ErrValidation, "an order needs at least one line")
	}
	deliveryDate, err := parseOptionalDate(req.DeliveryDate, s.clock.Location())
	if err != nil {
		return nil, err
	}

	changes := newStockChanges()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "order", id)
		}
		if !order.IsEditable() {
			return newError(ErrInvalidState, "order %s is %s; only pending orders can be edited", order.OrderNumber, order.Status)
		}

		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if req.DeliveryDate != nil {
			order.DeliveryDate = deliveryDate
		}
		if req.Discount != nil {
			if err := checkAmount("discount", *req.Discount); err != nil {
				return err
			}
			order.Discount = req.Discount.Round(2)
		}

		if req.Lines != nil {
			ref := s.ref(actor, model.MovementOrderEdit, order)
			restored, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockIn, ref)
			if err != nil {
				return err
			}
			changes.add(restored...)

			lines, err := s.buildLines(txCtx, req.Lines)
			if err != nil {
				return err
			}
			if err := s.orders.ReplaceLines(txCtx, order, lines); err != nil {
				return saveErr(err, "replace order lines")
			}

			taken, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockOut, ref)
			if err != nil {
				return err
			}
			changes.add(taken...)
		}

		order.RecalculateTotals()
		if err := checkTotals(order); err != nil {
			return err
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return saveErr(err, "update order")
		}

		return s.audit.record(txCtx, actor, model.ActionUpdateOrder, order.ID, order.OrderNumber, map[string]interface{}{
			"lines_replaced": req.Lines != nil,
			"discount":       order.Discount.StringFixed(2),
			"total":          order.Total.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return s.reload(ctx, id)
}

// ChangeStatus assigns a new status. Entering cancelled puts every line back in stock; leaving
// cancelled takes it out again only if every line can be covered.
func (s *orderService) ChangeStatus(ctx context.Context, actor Actor, id uint, status string) (*model.Order, error) {
	if !model.IsValidOrderStatus(status) {
		return nil, newError(ErrValidation, "invalid order status %q", status)
	}

	changes := newStockChanges()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "order", id)
		}

		from := order.Status
		if from == status {
			return nil
		}

		switch {
		case status == model.OrderStatusCancelled:
			restored, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockIn, s.ref(actor, model.MovementOrderCancel, order))
			if err != nil {
				return err
			}
			changes.add(restored...)
		case from == model.OrderStatusCancelled:
			if err := s.ledger.EnsureAvailable(txCtx, orderQuantities(order.Lines)); err != nil {
				return err
			}
			taken, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockOut, s.ref(actor, model.MovementOrderReactivate, order))
			if err != nil {
				return err
			}
			changes.add(taken...)
		}

		order.Status = status
		if err := s.orders.Update(txCtx, order); err != nil {
			return saveErr(err, "update order status")
		}

		return s.audit.record(txCtx, actor, model.ActionChangeOrderStatus, order.ID, order.OrderNumber, map[string]string{
			"from": from,
			"to":   status,
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return s.reload(ctx, id)
}

func (s *orderService) DeleteOrder(ctx context.Context, actor Actor, id uint) error {
	changes := newStockChanges()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "order", id)
		}
		if !order.IsEditable() {
			return newError(ErrInvalidState, "order %s is %s; only pending orders can be deleted", order.OrderNumber, order.Status)
		}

		refs, err := s.returns.CountByOrder(txCtx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to check returns of order %s: %w", order.OrderNumber, err)
		}
		if refs > 0 {
			return newError(ErrIntegrityConflict, "order %s is referenced by %d return(s)", order.OrderNumber, refs)
		}

		restored, err := s.ledger.AdjustLines(txCtx, orderQuantities(order.Lines), model.StockIn, s.ref(actor, model.MovementOrderDelete, order))
		if err != nil {
			return err
		}
		changes.add(restored...)

		if err := s.orders.Delete(txCtx, order.ID); err != nil {
			return saveErr(err, "delete order")
		}

		return s.audit.record(txCtx, actor, model.ActionDeleteOrder, order.ID, order.OrderNumber, map[string]interface{}{
			"lines": len(order.Lines),
		})
	})
	if err != nil {
		return err
	}

	changes.publish(s.notifier)
	return nil
}

func (s *orderService) Statistics(ctx context.Context, rng model.DateRange) (model.OrderStatistics, error) {
	stats, err := s.orders.Statistics(ctx, rng)
	if err != nil {
		return model.OrderStatistics{}, fmt.Errorf("failed to compute order statistics: %w", err)
	}
	return stats, nil
}

// buildLines validates line inputs and snapshots unit prices.
func (s *orderService) buildLines(ctx context.Context, inputs []OrderLineInput) ([]model.OrderLine, error) {
	lines := make([]model.OrderLine, 0, len(inputs))
	for i, in := range inputs {
		quantity := in.Quantity.Round(2)
		if !quantity.IsPositive() {
			return nil, newError(ErrValidation, "line %d: quantity must be greater than zero", i+1)
		}
		if err := checkAmount(fmt.Sprintf("line %d: quantity", i+1), quantity); err != nil {
			return nil, err
		}

		product, err := s.products.FindByID(ctx, in.ProductID)
		if err != nil {
			return nil, loadErr(err, "product", in.ProductID)
		}
		if !product.Active {
			return nil, newError(ErrValidation, "line %d: product %q is inactive", i+1, product.Name)
		}

		price := product.SalePrice
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return nil, newError(ErrValidation, "line %d: unit price cannot be negative", i+1)
			}
			price = *in.UnitPrice
		}
		if err := checkAmount(fmt.Sprintf("line %d: unit price", i+1), price); err != nil {
			return nil, err
		}

		line := model.NewOrderLine(product.ID, quantity, price.Round(2))
		if err := checkAmount(fmt.Sprintf("line %d: subtotal", i+1), line.Subtotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// checkAmount rejects values that do not fit a decimal(10,2) column.
func checkAmount(field string, v decimal.Decimal) error {
	if !model.FitsAmount(v.Round(2)) {
		return newError(ErrValidation, "%s must not exceed %s", field, model.MaxAmount.StringFixed(2))
	}
	return nil
}

func checkTotals(order *model.Order) error {
	if err := checkAmount("order subtotal", order.Subtotal); err != nil {
		return err
	}
	return checkAmount("order total", order.Total)
}

func (s *orderService) ref(actor Actor, source string, order *model.Order) StockRef {
	return StockRef{Source: source, Reference: order.OrderNumber, UserID: actor.ref()}
}

func (s *orderService) reload(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "order", id)
	}
	return order, nil
}
