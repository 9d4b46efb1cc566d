package service

import (
	"context"

	"backoffice/internal/model"
	"backoffice/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Before     any    `json:"before"`
	After      any    `json:"after"`
	Extra      any    `json:"extra"`
	CreatedAt  string `json:"created_at"`
}

type AuditFilter struct {
	EntityKind string
	EntityID   string
	Page       int
	Limit      int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, caller model.Caller, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns the newest audit rows first, optionally narrowed to one entity.
func (s *auditService) GetAuditLogs(ctx context.Context, caller model.Caller, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.auditRepo.List(ctx, filter.EntityKind, filter.EntityID, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fail(ctx, "list audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Action:     l.Action,
			EntityKind: l.EntityKind,
			EntityID:   l.EntityID,
			Before:     l.Before,
			After:      l.After,
			Extra:      l.Extra,
			CreatedAt:  l.CreatedAt.Format(timeLayout),
		})
	}

	return res, total, nil
}
