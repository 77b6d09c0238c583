package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
	"expert-crm/internal/repository"
	"expert-crm/pkg/apierror"
)

// expirySweepLockID names the single exclusion domain "expiry sweep". One
// well-known id, threaded explicitly into every acquisition call.
const expirySweepLockID int64 = 0x4578706972794C6B // "ExpiryLk"

// ReclaimService is the ownership lease & reclamation engine. Every mutating
// entry point runs as one database transaction: advisory lock, candidate row
// locks, state change, audit trail, and notifications all commit or roll back
// together.
type ReclaimService struct {
	pool          *pgxpool.Pool
	locks         *repository.LockRepository
	experts       *repository.ExpertRepository
	audits        *repository.AuditRepository
	notifications *repository.NotificationRepository
	settings      *repository.SettingsRepository
	users         *repository.UserRepository
	batchLimit    int
}

func NewReclaimService(
	pool *pgxpool.Pool,
	locks *repository.LockRepository,
	experts *repository.ExpertRepository,
	audits *repository.AuditRepository,
	notifications *repository.NotificationRepository,
	settings *repository.SettingsRepository,
	users *repository.UserRepository,
	batchLimit int,
) *ReclaimService {
	if batchLimit <= 0 {
		batchLimit = 500
	}

	return &ReclaimService{
		pool:          pool,
		locks:         locks,
		experts:       experts,
		audits:        audits,
		notifications: notifications,
		settings:      settings,
		users:         users,
		batchLimit:    batchLimit,
	}
}

// Sweep scans all privately owned experts whose lease has expired without a
// verified contact and moves them to the global pool. Concurrent invocations
// are serialized by a transaction-scoped advisory lock: the loser observes
// Acquired=false and makes zero writes. In dry-run mode the selection runs
// and is reported but the transaction is rolled back, so the run is
// observably a no-op.
func (s *ReclaimService) Sweep(ctx context.Context, opts model.SweepOptions) (model.SweepResult, error) {
	result := model.SweepResult{ExpertIDs: []string{}, DryRun: opts.DryRun}

	batchLimit := opts.BatchLimit
	if batchLimit <= 0 {
		batchLimit = s.batchLimit
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin sweep transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acquired, err := s.locks.TryAdvisoryXactLock(ctx, tx, expirySweepLockID)
	if err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}
	if !acquired {
		slog.Info("expiry sweep skipped", "reason", "lock held by another worker")
		return result, nil
	}
	result.Acquired = true

	leaseDays, err := s.settings.LeaseDaysTx(ctx, tx)
	if err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}

	candidates, err := s.experts.SelectAndLockExpiredCandidates(ctx, tx, leaseDays, batchLimit)
	if err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}

	result.Expired = len(candidates)
	for _, c := range candidates {
		result.ExpertIDs = append(result.ExpertIDs, c.ID)
	}

	if opts.DryRun || len(candidates) == 0 {
		// Deferred rollback releases the row locks and the mutex.
		slog.Info("expiry sweep finished", "expired", result.Expired, "dry_run", opts.DryRun, "lease_days", leaseDays)
		return result, nil
	}

	if err := s.experts.TransitionToGlobalPool(ctx, tx, result.ExpertIDs); err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}

	teamLeadIDs, err := s.users.ListTeamLeadIDsTx(ctx, tx)
	if err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}

	audits := make([]model.AuditEntry, 0, len(candidates))
	notifications := make([]model.Notification, 0, len(candidates))
	for _, c := range candidates {
		audits = append(audits, model.AuditEntry{
			ActorID:  nil,
			TargetID: c.ID,
			Action:   model.AuditActionAutoExpiry,
			Metadata: map[string]any{
				"reason":            fmt.Sprintf("no verified contact within %d days", leaseDays),
				"expert_name":       c.Name,
				"previous_owner_id": ownerOrEmpty(c.OwnerID),
			},
		})
		notifications = append(notifications, buildExpiryNotifications(c, teamLeadIDs)...)
	}

	if err := s.audits.InsertBatch(ctx, tx, audits); err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}
	if err := s.notifications.InsertBatch(ctx, tx, notifications); err != nil {
		return result, fmt.Errorf("expiry sweep: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit sweep transaction: %w", err)
	}

	slog.Info("expiry sweep finished", "expired", result.Expired, "lease_days", leaseDays,
		"notifications", len(notifications))
	return result, nil
}

// ForceExpire pushes a single expert through the global-pool transition,
// bypassing the lease timing but not the verified-contact exemption unless
// overrideExemption is set. The override is recorded in the audit metadata.
func (s *ReclaimService) ForceExpire(ctx context.Context, expertID string, actorID string, overrideExemption bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin force-expire transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	expert, visibility, exempt, err := s.experts.LockByID(ctx, tx, expertID)
	if err != nil {
		return err
	}
	if visibility == model.VisibilityGlobalPool {
		return model.ErrAlreadyInPool
	}
	if exempt && !overrideExemption {
		return model.ErrExpertExempt
	}

	if err := s.experts.TransitionToGlobalPool(ctx, tx, []string{expertID}); err != nil {
		return fmt.Errorf("force expire: %w", err)
	}

	metadata := map[string]any{
		"manual_override":   true,
		"expert_name":       expert.Name,
		"previous_owner_id": ownerOrEmpty(expert.OwnerID),
	}
	if overrideExemption {
		metadata["override_exemption"] = true
	}

	err = s.audits.InsertBatch(ctx, tx, []model.AuditEntry{{
		ActorID:  &actorID,
		TargetID: expertID,
		Action:   model.AuditActionForceExpire,
		Metadata: metadata,
	}})
	if err != nil {
		return fmt.Errorf("force expire: %w", err)
	}

	if expert.OwnerID != nil {
		err = s.notifications.InsertBatch(ctx, tx, []model.Notification{{
			UserID: *expert.OwnerID,
			Type:   model.NotificationExpertExpired,
			Title:  "Expert moved to Global Pool",
			Body:   fmt.Sprintf("%s was moved to the Global Pool by an administrator.", expert.Name),
		}})
		if err != nil {
			return fmt.Errorf("force expire: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit force-expire transaction: %w", err)
	}

	slog.Info("expert force-expired", "expert_id", expertID, "actor_id", actorID,
		"override_exemption", overrideExemption)
	return nil
}

// BulkReclaim reassigns global-pool experts to a new private owner with a
// fresh lease. Ids that are unknown or not in the pool are skipped; the
// returned count is the number actually reassigned.
func (s *ReclaimService) BulkReclaim(ctx context.Context, expertIDs []string, newOwnerID string, actorID string) (int, error) {
	if len(expertIDs) == 0 || len(expertIDs) > 500 {
		return 0, apierror.BadRequest("expert_ids must contain between 1 and 500 ids", "")
	}

	exists, err := s.users.ExistsByID(ctx, newOwnerID)
	if err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}
	if !exists {
		return 0, apierror.NotFound("new owner not found", newOwnerID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk-reclaim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	experts, err := s.experts.LockPoolExpertsByIDs(ctx, tx, expertIDs)
	if err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}
	if len(experts) == 0 {
		return 0, nil
	}

	leaseDays, err := s.settings.LeaseDaysTx(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}

	ids := make([]string, 0, len(experts))
	audits := make([]model.AuditEntry, 0, len(experts))
	for _, e := range experts {
		ids = append(ids, e.ID)
		audits = append(audits, model.AuditEntry{
			ActorID:  &actorID,
			TargetID: e.ID,
			Action:   model.AuditActionBulkReclaim,
			Metadata: map[string]any{
				"expert_name":  e.Name,
				"new_owner_id": newOwnerID,
			},
		})
	}

	if err := s.experts.ReassignToOwner(ctx, tx, ids, newOwnerID, leaseDays); err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}
	if err := s.audits.InsertBatch(ctx, tx, audits); err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}

	err = s.notifications.InsertBatch(ctx, tx, []model.Notification{{
		UserID: newOwnerID,
		Type:   model.NotificationExpertReassigned,
		Title:  "Experts assigned to you",
		Body:   fmt.Sprintf("%d experts were reassigned to you with a %d-day lease.", len(ids), leaseDays),
	}})
	if err != nil {
		return 0, fmt.Errorf("bulk reclaim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk-reclaim transaction: %w", err)
	}

	slog.Info("bulk reclaim finished", "reclaimed", len(ids), "new_owner_id", newOwnerID, "actor_id", actorID)
	return len(ids), nil
}

// buildExpiryNotifications produces the previous-owner notice plus one notice
// per team lead (excluding the previous owner) so reclaimed experts are
// discoverable for re-acquisition.
func buildExpiryNotifications(c model.Candidate, teamLeadIDs []string) []model.Notification {
	notifications := make([]model.Notification, 0, len(teamLeadIDs)+1)

	if c.OwnerID != nil {
		notifications = append(notifications, model.Notification{
			UserID: *c.OwnerID,
			Type:   model.NotificationExpertExpired,
			Title:  "Expert moved to Global Pool",
			Body:   fmt.Sprintf("%s was moved to the Global Pool due to inactivity. High priority for re-acquisition.", c.Name),
		})
	}

	for _, leadID := range teamLeadIDs {
		if c.OwnerID != nil && leadID == *c.OwnerID {
			continue
		}
		notifications = append(notifications, model.Notification{
			UserID: leadID,
			Type:   model.NotificationGlobalPoolTransition,
			Title:  "Expert available in Global Pool",
			Body:   fmt.Sprintf("%s is now in the Global Pool and flagged high priority for re-acquisition.", c.Name),
		})
	}

	return notifications
}

func ownerOrEmpty(ownerID *string) string {
	if ownerID == nil {
		return ""
	}
	return *ownerID
}
