package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"

	"github.com/google/uuid"
)

type AuditService interface {
	GetAuditLogs(ctx context.Context, page repository.Page, action string) ([]model.AuditLog, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, page repository.Page, action string) ([]model.AuditLog, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, page, action)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

// auditor writes audit rows inside the caller's transaction.
type auditor struct {
	repo  repository.AuditRepository
	clock Clock
}

func (a auditor) record(ctx context.Context, actor Actor, action string, entityID uint, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     actor.ref(),
		Action:     action,
		EntityID:   strconv.FormatUint(uint64(entityID), 10),
		EntityName: entityName,
		Details:    string(payload),
		CreatedAt:  a.clock.Now(),
	}
	if err := a.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
