package usecases

import (
	"context"
	"fmt"
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/domain/ticket"
	"atendo/internal/shared/keylock"
	"atendo/internal/shared/logger"
)

// ResolveTicketCommand asks for the ticket a new message belongs to.
type ResolveTicketCommand struct {
	TenantID  uint
	ContactID uint
	AccountID uint
	// RequestingUserID identifies the agent asking for the ticket. Zero means
	// the system (message ingestion), which never contends for ownership.
	RequestingUserID uint
	IsGroup          bool
	// Body and Unread update the denormalized conversation preview.
	Body   string
	Unread bool
	// Imported is set when the message comes from the historical backfill;
	// it stamps new or reopened tickets for the post-import sweep.
	Imported *time.Time
}

// ResolveTicketResult carries the resolved ticket and whether it was created
// by this call.
type ResolveTicketResult struct {
	Ticket  *ticket.Ticket
	Created bool
}

// ResolveTicketUseCase finds or creates the single active ticket for a
// (contact, account) pair. The whole find-then-create sequence runs under a
// per-pair mutex, which is what upholds the one-active-ticket invariant when
// two messages for the same contact arrive concurrently.
type ResolveTicketUseCase struct {
	tickets  ticket.Repository
	accounts account.Repository
	notifier ticket.Notifier
	locks    *keylock.KeyLock
	logger   logger.Interface
}

// NewResolveTicketUseCase creates a ResolveTicketUseCase.
func NewResolveTicketUseCase(
	tickets ticket.Repository,
	accounts account.Repository,
	notifier ticket.Notifier,
	locks *keylock.KeyLock,
	log logger.Interface,
) *ResolveTicketUseCase {
	return &ResolveTicketUseCase{
		tickets:  tickets,
		accounts: accounts,
		notifier: notifier,
		locks:    locks,
		logger:   log,
	}
}

// Execute resolves the ticket for one inbound message.
func (uc *ResolveTicketUseCase) Execute(ctx context.Context, cmd ResolveTicketCommand) (*ResolveTicketResult, error) {
	key := fmt.Sprintf("%d:%d", cmd.ContactID, cmd.AccountID)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	accountID := cmd.AccountID
	existing, err := uc.tickets.FindActiveByContact(ctx, cmd.TenantID, cmd.ContactID, &accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active ticket: %w", err)
	}
	if existing != nil {
		if cmd.RequestingUserID != 0 && existing.AssignedToOther(cmd.RequestingUserID) {
			// Another agent owns this conversation. Hand the ticket back
			// untouched so the caller can surface the conflict instead of
			// silently taking it over.
			return &ResolveTicketResult{Ticket: existing}, nil
		}
		return uc.touch(ctx, existing, cmd)
	}

	// During backfill a closed ticket for the pair is reopened rather than
	// duplicated, so replayed history threads into the original conversation.
	if cmd.Imported != nil {
		reopened, err := uc.reopenClosed(ctx, cmd)
		if err != nil {
			return nil, err
		}
		if reopened != nil {
			return &ResolveTicketResult{Ticket: reopened}, nil
		}
	}

	return uc.create(ctx, cmd)
}

func (uc *ResolveTicketUseCase) touch(ctx context.Context, t *ticket.Ticket, cmd ResolveTicketCommand) (*ResolveTicketResult, error) {
	t.RecordMessage(cmd.Body, cmd.Unread)
	if cmd.Imported != nil && t.Imported() == nil {
		t.MarkImported(*cmd.Imported)
	}
	if err := uc.tickets.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	uc.publish(ctx, cmd.TenantID, ticket.EventActionUpdate, t)
	return &ResolveTicketResult{Ticket: t}, nil
}

func (uc *ResolveTicketUseCase) reopenClosed(ctx context.Context, cmd ResolveTicketCommand) (*ticket.Ticket, error) {
	accountID := cmd.AccountID
	closed, err := uc.tickets.FindRecentClosed(ctx, cmd.TenantID, cmd.ContactID, &accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up closed ticket: %w", err)
	}
	if closed == nil {
		return nil, nil
	}

	if err := closed.ReopenForBackfill(); err != nil {
		return nil, err
	}
	closed.RecordMessage(cmd.Body, cmd.Unread)
	closed.MarkImported(*cmd.Imported)
	if err := uc.tickets.Update(ctx, closed); err != nil {
		return nil, fmt.Errorf("failed to reopen ticket: %w", err)
	}

	uc.logger.Infow("reopened closed ticket for backfill",
		"ticket_id", closed.ID(),
		"contact_id", cmd.ContactID,
		"account_id", cmd.AccountID,
	)
	uc.publish(ctx, cmd.TenantID, ticket.EventActionUpdate, closed)
	return closed, nil
}

func (uc *ResolveTicketUseCase) create(ctx context.Context, cmd ResolveTicketCommand) (*ResolveTicketResult, error) {
	// Group contacts land in pending or group depending on the account's
	// policy; direct contacts open immediately.
	status := ticket.StatusOpen
	if cmd.IsGroup {
		status = ticket.StatusPending
		acc, err := uc.accounts.FindByID(ctx, cmd.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		if acc.AllowGroup() {
			status = ticket.StatusGroup
		}
	}

	t, err := ticket.NewTicket(cmd.TenantID, cmd.ContactID, cmd.AccountID, status)
	if err != nil {
		return nil, err
	}
	if cmd.RequestingUserID != 0 {
		if err := t.AssignTo(cmd.RequestingUserID); err != nil {
			return nil, err
		}
	}
	t.RecordMessage(cmd.Body, cmd.Unread)
	if cmd.Imported != nil {
		t.MarkImported(*cmd.Imported)
	}

	if err := uc.tickets.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	// Reload hydrated so event consumers never see a partial entity.
	hydrated, err := uc.tickets.GetByIDWithRelations(ctx, t.ID())
	if err != nil {
		uc.logger.Warnw("failed to reload created ticket", "ticket_id", t.ID(), "error", err)
		hydrated = t
	}

	uc.logger.Infow("ticket created",
		"ticket_id", hydrated.ID(),
		"contact_id", cmd.ContactID,
		"account_id", cmd.AccountID,
		"status", status.String(),
	)
	uc.publish(ctx, cmd.TenantID, ticket.EventActionCreate, hydrated)
	return &ResolveTicketResult{Ticket: hydrated, Created: true}, nil
}

func (uc *ResolveTicketUseCase) publish(ctx context.Context, tenantID uint, action string, t *ticket.Ticket) {
	ev := ticket.Event{Action: action, Ticket: ticket.Summarize(t)}
	if err := uc.notifier.PublishTicketEvent(ctx, tenantID, ev); err != nil {
		uc.logger.Warnw("failed to publish ticket event",
			"ticket_id", t.ID(),
			"action", action,
			"error", err,
		)
	}
}
