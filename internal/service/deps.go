package service

import (
	"time"

	"distribuidora/internal/lock"
	"distribuidora/internal/repository"
	"distribuidora/pkg/token"
)

// Dependencies groups the collaborators shared by the services.
type Dependencies struct {
	TxManager repository.TransactionManager
	Users     repository.UserRepository
	Customers repository.CustomerRepository
	Products  repository.ProductRepository
	Orders    repository.OrderRepository
	Returns   repository.ReturnRepository
	Movements repository.StockMovementRepository
	Audit     repository.AuditRepository

	Locker   lock.Locker
	Clock    Clock
	Notifier StockNotifier

	Tokens          *token.Issuer
	RefreshTokenTTL time.Duration
}

func (d Dependencies) ledger() *StockLedger {
	return NewStockLedger(d.Products, d.Movements, d.Clock)
}

func (d Dependencies) auditor() auditor {
	return auditor{repo: d.Audit, clock: d.Clock}
}
