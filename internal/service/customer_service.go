package service

import (
	"context"
	"fmt"
	"strings"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"
)

// DTOs
type CustomerRequest struct {
	Name    string `json:"name" binding:"required,max=150"`
	Mobile  string `json:"mobile" binding:"omitempty,bo_mobile"`
	Address string `json:"address"`
	Zone    string `json:"zone" binding:"max=100"`
	City    string `json:"city" binding:"max=100"`
}

// CustomerDetail is a customer together with its activity summary.
type CustomerDetail struct {
	Customer   model.Customer           `json:"customer"`
	Statistics model.CustomerStatistics `json:"statistics"`
}

type CustomerService interface {
	ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]model.Customer, int64, error)
	ListActive(ctx context.Context) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id uint) (*CustomerDetail, error)
	CreateCustomer(ctx context.Context, actor Actor, req CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, actor Actor, id uint, req CustomerRequest) (*model.Customer, error)
	ToggleActive(ctx context.Context, actor Actor, id uint) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, actor Actor, id uint) error
	OrderHistory(ctx context.Context, id uint, page repository.Page) ([]model.Order, int64, error)
	ReturnHistory(ctx context.Context, id uint, page repository.Page) ([]model.Return, int64, error)
	Zones(ctx context.Context) ([]string, error)
	Cities(ctx context.Context) ([]string, error)
	Counts(ctx context.Context) (model.CustomerCounts, error)
}

type customerService struct {
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	returns   repository.ReturnRepository
	txManager repository.TransactionManager
	audit     auditor
}

func NewCustomerService(d Dependencies) CustomerService {
	return &customerService{
		customers: d.Customers,
		orders:    d.Orders,
		returns:   d.Returns,
		txManager: d.TxManager,
		audit:     d.auditor(),
	}
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter) ([]model.Customer, int64, error) {
	customers, total, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, total, nil
}

func (s *customerService) ListActive(ctx context.Context) ([]model.Customer, error) {
	customers, err := s.customers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active customers: %w", err)
	}
	return customers, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uint) (*CustomerDetail, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "customer", id)
	}
	stats, err := s.customers.Statistics(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics of customer %d: %w", id, err)
	}
	return &CustomerDetail{Customer: *customer, Statistics: stats}, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, actor Actor, req CustomerRequest) (*model.Customer, error) {
	customer := &model.Customer{Active: true}
	if err := applyCustomer(customer, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUniqueName(txCtx, customer.Name, 0); err != nil {
			return err
		}
		if err := s.customers.Create(txCtx, customer); err != nil {
			return saveErr(err, "create customer")
		}
		return s.audit.record(txCtx, actor, model.ActionCreateCustomer, customer.ID, customer.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, actor Actor, id uint, req CustomerRequest) (*model.Customer, error) {
	var customer *model.Customer
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		customer, err = s.customers.FindByID(txCtx, id)
		if err != nil {
			return loadErr(err, "customer", id)
		}
		if err := applyCustomer(customer, req); err != nil {
			return err
		}
		if err := s.ensureUniqueName(txCtx, customer.Name, customer.ID); err != nil {
			return err
		}
		if err := s.customers.Update(txCtx, customer); err != nil {
			return saveErr(err, "update customer")
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateCustomer, customer.ID, customer.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) ToggleActive(ctx context.Context, actor Actor, id uint) (*model.Customer, error) {
	var customer *model.Customer
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		customer, err = s.customers.FindByID(txCtx, id)
		if err != nil {
			return loadErr(err, "customer", id)
		}
		customer.Active = !customer.Active
		if err := s.customers.Update(txCtx, customer); err != nil {
			return saveErr(err, "update customer")
		}
		return s.audit.record(txCtx, actor, model.ActionToggleCustomer, customer.ID, customer.Name, map[string]interface{}{
			"active": customer.Active,
		})
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer without history. Customers with orders or returns can only be deactivated.
func (s *customerService) DeleteCustomer(ctx context.Context, actor Actor, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customers.FindByID(txCtx, id)
		if err != nil {
			return loadErr(err, "customer", id)
		}

		stats, err := s.customers.Statistics(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load statistics of customer %d: %w", id, err)
		}
		if stats.Orders > 0 || stats.Returns > 0 {
			return newError(ErrIntegrityConflict, "customer %q has %d orders and %d returns; deactivate it instead",
				customer.Name, stats.Orders, stats.Returns)
		}

		if err := s.customers.Delete(txCtx, id); err != nil {
			return saveErr(err, "delete customer")
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteCustomer, customer.ID, customer.Name, nil)
	})
}

func (s *customerService) OrderHistory(ctx context.Context, id uint, page repository.Page) ([]model.Order, int64, error) {
	if _, err := s.customers.FindByID(ctx, id); err != nil {
		return nil, 0, loadErr(err, "customer", id)
	}
	orders, total, err := s.orders.List(ctx, repository.OrderFilter{Page: page, CustomerID: &id})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders of customer %d: %w", id, err)
	}
	return orders, total, nil
}

func (s *customerService) ReturnHistory(ctx context.Context, id uint, page repository.Page) ([]model.Return, int64, error) {
	if _, err := s.customers.FindByID(ctx, id); err != nil {
		return nil, 0, loadErr(err, "customer", id)
	}
	returns, total, err := s.returns.List(ctx, repository.ReturnFilter{Page: page, CustomerID: &id})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list returns of customer %d: %w", id, err)
	}
	return returns, total, nil
}

func (s *customerService) Zones(ctx context.Context) ([]string, error) {
	zones, err := s.customers.Zones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

func (s *customerService) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.customers.Cities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}

func (s *customerService) Counts(ctx context.Context) (model.CustomerCounts, error) {
	counts, err := s.customers.Counts(ctx)
	if err != nil {
		return model.CustomerCounts{}, fmt.Errorf("failed to count customers: %w", err)
	}
	return counts, nil
}

func (s *customerService) ensureUniqueName(ctx context.Context, name string, excludeID uint) error {
	taken, err := s.customers.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check customer name: %w", err)
	}
	if taken {
		return newError(ErrIntegrityConflict, "customer %q already exists", name)
	}
	return nil
}

func applyCustomer(c *model.Customer, req CustomerRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return newError(ErrValidation, "customer name is required")
	}
	mobile := strings.TrimSpace(req.Mobile)
	if mobile != "" && !model.IsValidMobile(mobile) {
		return newError(ErrValidation, "mobile %q must have 8 digits and start with 6 or 7", mobile)
	}
	city := strings.TrimSpace(req.City)
	if city == "" {
		city = model.DefaultCity
	}

	c.Name = name
	c.Mobile = mobile
	c.Address = strings.TrimSpace(req.Address)
	c.Zone = strings.TrimSpace(req.Zone)
	c.City = city
	return nil
}
