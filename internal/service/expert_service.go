package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"expert-crm/internal/model"
	"expert-crm/internal/repository"
	"expert-crm/pkg/apierror"
)

// ExpertService covers the ingestion-side lifecycle: creating private
// experts, reading them, and attaching contact channels. Contact verification
// is the exemption event that permanently shields an expert from automatic
// reclamation.
type ExpertService struct {
	pool        *pgxpool.Pool
	experts     *repository.ExpertRepository
	contacts    *repository.ContactRepository
	idempotency *repository.IdempotencyRepository
}

func NewExpertService(
	pool *pgxpool.Pool,
	experts *repository.ExpertRepository,
	contacts *repository.ContactRepository,
	idempotency *repository.IdempotencyRepository,
) *ExpertService {
	return &ExpertService{
		pool:        pool,
		experts:     experts,
		contacts:    contacts,
		idempotency: idempotency,
	}
}

// Create ingests a new expert as PRIVATE under the given owner.
// private_expires_at stays NULL: the lease is implicit, measured from
// created_at against the lease-days setting current at sweep time, so a
// configuration change applies to existing experts too. An explicit expiry is
// reserved for per-expert overrides.
func (s *ExpertService) Create(ctx context.Context, name string, ownerID string) (model.Expert, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Expert{}, apierror.BadRequest("name is required", "name")
	}

	now := time.Now().UTC()
	expert := model.Expert{
		ID:               uuid.NewString(),
		Name:             name,
		OwnerID:          &ownerID,
		VisibilityStatus: model.VisibilityPrivate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.experts.Create(ctx, expert); err != nil {
		return model.Expert{}, err
	}

	return expert, nil
}

func (s *ExpertService) Get(ctx context.Context, id string) (model.Expert, error) {
	return s.experts.FindByID(ctx, id)
}

func (s *ExpertService) List(ctx context.Context, query model.ExpertQuery) ([]model.Expert, model.Meta, error) {
	return s.experts.List(ctx, query)
}

func (s *ExpertService) AddContact(ctx context.Context, expertID string, channel string, value string, verified bool) (model.ExpertContact, error) {
	channel = strings.TrimSpace(channel)
	value = strings.TrimSpace(value)
	if channel == "" || value == "" {
		return model.ExpertContact{}, apierror.BadRequest("channel and value are required", "")
	}

	exists, err := s.contacts.ExpertExists(ctx, expertID)
	if err != nil {
		return model.ExpertContact{}, err
	}
	if !exists {
		return model.ExpertContact{}, model.ErrExpertNotFound
	}

	contact := model.ExpertContact{
		ID:         uuid.NewString(),
		ExpertID:   expertID,
		Channel:    channel,
		Value:      value,
		IsVerified: verified,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return model.ExpertContact{}, err
	}

	return contact, nil
}

func (s *ExpertService) ListContacts(ctx context.Context, expertID string) ([]model.ExpertContact, error) {
	exists, err := s.contacts.ExpertExists(ctx, expertID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrExpertNotFound
	}

	return s.contacts.ListForExpert(ctx, expertID)
}

// VerifyContact handles the at-least-once webhook: when requestID has been
// seen before the call is a no-op reporting duplicate=true. Token record and
// verification share one transaction, so a retried delivery either finds the
// token (and skips) or replays an insert that lost its transaction (and
// succeeds exactly once).
func (s *ExpertService) VerifyContact(ctx context.Context, requestID string, expertID string, contactID string) (bool, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID != "" {
		processed, err := s.idempotency.IsProcessed(ctx, requestID)
		if err != nil {
			return false, fmt.Errorf("verify contact: %w", err)
		}
		if processed {
			return true, nil
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin verify-contact transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if requestID != "" {
		// The insert result is the authoritative duplicate check: two
		// concurrent deliveries can both pass the pool-level read above, but
		// only one insert claims the token.
		claimed, err := s.idempotency.MarkProcessed(ctx, tx, requestID)
		if err != nil {
			return false, fmt.Errorf("verify contact: %w", err)
		}
		if !claimed {
			return true, nil
		}
	}

	if err := s.contacts.VerifyTx(ctx, tx, expertID, contactID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit verify-contact transaction: %w", err)
	}

	slog.Info("contact verified", "expert_id", expertID, "contact_id", contactID)
	return false, nil
}
