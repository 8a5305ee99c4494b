package service

import (
	"context"

	"zentari/internal/domain"
	"zentari/internal/logger"
)

// AuditSink persists audit entries.
type AuditSink interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// AuditService handles audit logging. Failures are logged and swallowed: an
// audit write never fails the operation it describes.
type AuditService struct {
	repo AuditSink
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditSink) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID, action, category string, details map[string]any) {
	s.write(ctx, &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	})
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID, action, category, ip, userAgent string, details map[string]any) {
	s.write(ctx, &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func (s *AuditService) write(ctx context.Context, log *domain.AuditLog) {
	if s == nil || s.repo == nil {
		return
	}
	// the request may already be cancelled; the entry must still land
	if err := s.repo.Create(context.WithoutCancel(ctx), log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", log.Action, "user_id", log.UserID)
	}
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// LogRegister logs a new account and its referral edge
func (s *AuditService) LogRegister(ctx context.Context, userID, username, inviter string) {
	details := map[string]any{"username": username}
	if inviter != "" {
		details["inviter"] = inviter
	}
	s.Log(ctx, userID, domain.AuditActionRegister, domain.AuditCategoryAccount, details)
}

// LogStarSpend logs a premium currency spend
func (s *AuditService) LogStarSpend(ctx context.Context, userID, action string, stars int64, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	details["stars"] = stars

	s.Log(ctx, userID, action, domain.AuditCategoryPayment, details)
}

// LogTierClaim logs a referral tier reward
func (s *AuditService) LogTierClaim(ctx context.Context, userID string, required int, reward int64) {
	details := map[string]any{
		"referrals_required": required,
		"reward":             reward,
	}

	s.Log(ctx, userID, domain.AuditActionTierClaim, domain.AuditCategoryReferral, details)
}

// LogViolation records a broken account invariant together with the
// operation and phase that hit it.
func (s *AuditService) LogViolation(ctx context.Context, userID, operation, phase string, err error) {
	details := map[string]any{
		"operation": operation,
		"phase":     phase,
		"error":     err.Error(),
	}

	s.Log(ctx, userID, domain.AuditActionViolation, domain.AuditCategoryInvariant, details)
}
