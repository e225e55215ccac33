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

type ReturnLineInput struct {
	ProductID            uint            `json:"product_id" binding:"required"`
	Quantity             decimal.Decimal `json:"quantity"`
	ReplacementProductID *uint           `json:"replacement_product_id"`
	Note                 string          `json:"note"`
}

type CreateReturnRequest struct {
	CustomerID    uint              `json:"customer_id" binding:"required"`
	OriginOrderID *uint             `json:"origin_order_id"`
	Reason        string            `json:"reason" binding:"required,return_reason"`
	ReasonDetail  string            `json:"reason_detail"`
	Notes         string            `json:"notes"`
	Lines         []ReturnLineInput `json:"lines" binding:"required,min=1,dive"`
}

// UpdateReturnRequest changes only the fields that are present. A non-nil Lines replaces every line.
type UpdateReturnRequest struct {
	Reason       *string           `json:"reason" binding:"omitempty,return_reason"`
	ReasonDetail *string           `json:"reason_detail"`
	Notes        *string           `json:"notes"`
	Lines        []ReturnLineInput `json:"lines" binding:"omitempty,dive"`
}

type CompensateReturnRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// PendingReturnAlert tells the seller a customer still has unsettled returns.
type PendingReturnAlert struct {
	HasPending bool           `json:"has_pending"`
	Count      int            `json:"count"`
	Returns    []model.Return `json:"returns"`
}

// --- Interface ---

type ReturnService interface {
	CreateReturn(ctx context.Context, actor Actor, req CreateReturnRequest) (*model.Return, error)
	GetReturn(ctx context.Context, id uint) (*model.Return, error)
	ListReturns(ctx context.Context, filter repository.ReturnFilter) ([]model.Return, int64, error)
	ListPending(ctx context.Context, customerID *uint) ([]model.Return, error)
	UpdateReturn(ctx context.Context, actor Actor, id uint, req UpdateReturnRequest) (*model.Return, error)
	MarkCompensated(ctx context.Context, actor Actor, id uint, orderID uint) (*model.Return, error)
	DeleteReturn(ctx context.Context, actor Actor, id uint) error
	PendingAlert(ctx context.Context, customerID uint) (*PendingReturnAlert, error)
	Statistics(ctx context.Context, rng model.DateRange) (model.ReturnStatistics, error)
	Reasons() []model.ReturnReason
}

type returnService struct {
	returns   repository.ReturnRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	txManager repository.TransactionManager
	ledger    *StockLedger
	audit     auditor
	numbers   *numberAllocator
	clock     Clock
	notifier  StockNotifier
}

func NewReturnService(d Dependencies) ReturnService {
	return &returnService{
		returns:   d.Returns,
		orders:    d.Orders,
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

func (s *returnService) CreateReturn(ctx context.Context, actor Actor, req CreateReturnRequest) (*model.Return, error) {
	if !model.IsValidReturnReason(req.Reason) {
		return nil, newError(ErrValidation, "invalid return reason %q", req.Reason)
	}
	if len(req.Lines) == 0 {
		return nil, newError(ErrValidation, "a return needs at least one line")
	}

	var returnID uint
	changes := newStockChanges()
	err := s.numbers.run(ctx, model.ReturnNumberPrefix, func(now time.Time) error {
		changes.reset()
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			customer, err := s.customers.FindByID(txCtx, req.CustomerID)
			if err != nil {
				return loadErr(err, "customer", req.CustomerID)
			}
			if !customer.Active {
				return newError(ErrValidation, "customer %q is inactive", customer.Name)
			}

			if req.OriginOrderID != nil {
				origin, err := s.orders.FindByID(txCtx, *req.OriginOrderID)
				if err != nil {
					return loadErr(err, "order", *req.OriginOrderID)
				}
				if origin.CustomerID != customer.ID {
					return newError(ErrValidation, "order %s belongs to another customer", origin.OrderNumber)
				}
			}

			lines, err := s.buildLines(txCtx, req.Lines)
			if err != nil {
				return err
			}

			number, err := NextDocumentNumber(txCtx, s.returns, model.ReturnNumberPrefix, now)
			if err != nil {
				return err
			}

			ret := &model.Return{
				ReturnNumber:  number,
				OriginOrderID: req.OriginOrderID,
				CustomerID:    customer.ID,
				CreatedByID:   actor.UserID,
				ReturnedAt:    now,
				Reason:        req.Reason,
				ReasonDetail:  req.ReasonDetail,
				Status:        model.ReturnStatusPending,
				Notes:         req.Notes,
				Lines:         lines,
			}
			if err := createErr(s.returns.Create(txCtx, ret), number); err != nil {
				return err
			}

			restocked, err := s.ledger.AdjustLines(txCtx, returnQuantities(ret.Lines), model.StockIn, s.ref(actor, model.MovementReturnCreate, ret))
			if err != nil {
				return err
			}
			changes.add(restocked...)

			returnID = ret.ID
			return s.audit.record(txCtx, actor, model.ActionCreateReturn, ret.ID, ret.ReturnNumber, map[string]interface{}{
				"customer_id": ret.CustomerID,
				"reason":      ret.Reason,
				"lines":       len(ret.Lines),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return s.GetReturn(ctx, returnID)
}

func (s *returnService) GetReturn(ctx context.Context, id uint) (*model.Return, error) {
	ret, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "return", id)
	}
	return ret, nil
}

func (s *returnService) ListReturns(ctx context.Context, filter repository.ReturnFilter) ([]model.Return, int64, error) {
	if filter.Reason != "" && !model.IsValidReturnReason(filter.Reason) {
		return nil, 0, newError(ErrValidation, "invalid return reason %q", filter.Reason)
	}
	if filter.Status != "" && filter.Status != model.ReturnStatusPending && filter.Status != model.ReturnStatusCompensated {
		return nil, 0, newError(ErrValidation, "invalid return status %q", filter.Status)
	}
	returns, total, err := s.returns.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list returns: %w", err)
	}
	return returns, total, nil
}

func (s *returnService) ListPending(ctx context.Context, customerID *uint) ([]model.Return, error) {
	returns, err := s.returns.ListPending(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending returns: %w", err)
	}
	return returns, nil
}

func (s *returnService) UpdateReturn(ctx context.Context, actor Actor, id uint, req UpdateReturnRequest) (*model.Return, error) {
	if req.Reason != nil && !model.IsValidReturnReason(*req.Reason) {
		return nil, newError(ErrValidation, "invalid return reason %q", *req.Reason)
	}
	if req.Lines != nil && len(req.Lines) == 0 {
		return nil, newError(ErrValidation, "a return needs at least one line")
	}

	changes := newStockChanges()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ret, err := s.returns.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "return", id)
		}
		if !ret.IsEditable() {
			return newError(ErrInvalidState, "return %s is %s; only pending returns can be edited", ret.ReturnNumber, ret.Status)
		}

		if req.Reason != nil {
			ret.Reason = *req.Reason
		}
		if req.ReasonDetail != nil {
			ret.ReasonDetail = *req.ReasonDetail
		}
		if req.Notes != nil {
			ret.Notes = *req.Notes
		}

		if req.Lines != nil {
			ref := s.ref(actor, model.MovementReturnEdit, ret)
			withdrawn, err := s.ledger.AdjustLines(txCtx, returnQuantities(ret.Lines), model.StockOut, ref)
			if err != nil {
				return err
			}
			changes.add(withdrawn...)

			lines, err := s.buildLines(txCtx, req.Lines)
			if err != nil {
				return err
			}
			if err := s.returns.ReplaceLines(txCtx, ret, lines); err != nil {
				return saveErr(err, "replace return lines")
			}

			restocked, err := s.ledger.AdjustLines(txCtx, returnQuantities(ret.Lines), model.StockIn, ref)
			if err != nil {
				return err
			}
			changes.add(restocked...)
		}

		if err := s.returns.Update(txCtx, ret); err != nil {
			return saveErr(err, "update return")
		}

		return s.audit.record(txCtx, actor, model.ActionUpdateReturn, ret.ID, ret.ReturnNumber, map[string]interface{}{
			"lines_replaced": req.Lines != nil,
			"reason":         ret.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	changes.publish(s.notifier)
	return s.GetReturn(ctx, id)
}

// MarkCompensated settles a pending return with an order of the same customer.
func (s *returnService) MarkCompensated(ctx context.Context, actor Actor, id uint, orderID uint) (*model.Return, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ret, err := s.returns.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "return", id)
		}
		if ret.Status != model.ReturnStatusPending {
			return newError(ErrInvalidState, "return %s is already %s", ret.ReturnNumber, ret.Status)
		}

		order, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return loadErr(err, "order", orderID)
		}
		if order.CustomerID != ret.CustomerID {
			return newError(ErrValidation, "order %s belongs to another customer than return %s", order.OrderNumber, ret.ReturnNumber)
		}

		now := s.clock.Now()
		ret.Status = model.ReturnStatusCompensated
		ret.CompensationOrderID = &order.ID
		ret.CompensatedAt = &now
		if err := s.returns.Update(txCtx, ret); err != nil {
			return saveErr(err, "update return")
		}

		return s.audit.record(txCtx, actor, model.ActionCompensateReturn, ret.ID, ret.ReturnNumber, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetReturn(ctx, id)
}

func (s *returnService) DeleteReturn(ctx context.Context, actor Actor, id uint) error {
	changes := newStockChanges()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ret, err := s.returns.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return loadErr(err, "return", id)
		}
		if !ret.IsEditable() {
			return newError(ErrInvalidState, "return %s is %s; only pending returns can be deleted", ret.ReturnNumber, ret.Status)
		}

		withdrawn, err := s.ledger.AdjustLines(txCtx, returnQuantities(ret.Lines), model.StockOut, s.ref(actor, model.MovementReturnDelete, ret))
		if err != nil {
			return err
		}
		changes.add(withdrawn...)

		if err := s.returns.Delete(txCtx, ret.ID); err != nil {
			return saveErr(err, "delete return")
		}

		return s.audit.record(txCtx, actor, model.ActionDeleteReturn, ret.ID, ret.ReturnNumber, map[string]interface{}{
			"lines": len(ret.Lines),
		})
	})
	if err != nil {
		return err
	}

	changes.publish(s.notifier)
	return nil
}

func (s *returnService) PendingAlert(ctx context.Context, customerID uint) (*PendingReturnAlert, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, loadErr(err, "customer", customerID)
	}
	pending, err := s.ListPending(ctx, &customerID)
	if err != nil {
		return nil, err
	}
	return &PendingReturnAlert{
		HasPending: len(pending) > 0,
		Count:      len(pending),
		Returns:    pending,
	}, nil
}

func (s *returnService) Statistics(ctx context.Context, rng model.DateRange) (model.ReturnStatistics, error) {
	stats, err := s.returns.Statistics(ctx, rng)
	if err != nil {
		return model.ReturnStatistics{}, fmt.Errorf("failed to compute return statistics: %w", err)
	}
	return stats, nil
}

func (s *returnService) Reasons() []model.ReturnReason {
	out := make([]model.ReturnReason, len(model.ReturnReasons))
	copy(out, model.ReturnReasons)
	return out
}

func (s *returnService) buildLines(ctx context.Context, inputs []ReturnLineInput) ([]model.ReturnLine, error) {
	lines := make([]model.ReturnLine, 0, len(inputs))
	for i, in := range inputs {
		quantity := in.Quantity.Round(2)
		if !quantity.IsPositive() {
			return nil, newError(ErrValidation, "line %d: quantity must be greater than zero", i+1)
		}
		if err := checkAmount(fmt.Sprintf("line %d: quantity", i+1), quantity); err != nil {
			return nil, err
		}

		if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
			return nil, loadErr(err, "product", in.ProductID)
		}

		if in.ReplacementProductID != nil {
			replacement, err := s.products.FindByID(ctx, *in.ReplacementProductID)
			if err != nil {
				return nil, loadErr(err, "replacement product", *in.ReplacementProductID)
			}
			if !replacement.Active {
				return nil, newError(ErrValidation, "line %d: replacement product %q is inactive", i+1, replacement.Name)
			}
		}

		lines = append(lines, model.ReturnLine{
			ProductID:            in.ProductID,
			Quantity:             quantity,
			ReplacementProductID: in.ReplacementProductID,
			Note:                 in.Note,
		})
	}
	return lines, nil
}

func (s *returnService) ref(actor Actor, source string, ret *model.Return) StockRef {
	return StockRef{Source: source, Reference: ret.ReturnNumber, UserID: actor.ref()}
}
