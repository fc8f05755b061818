package usecases

import (
	"context"
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/domain/ticket"
	"atendo/internal/shared/logger"
)

// Sweep defaults: imported tickets younger than the grace window are left
// alone so live conversation can continue on them, and closes are paced so a
// large backfill does not flood the event channel.
const (
	DefaultCloseGrace  = 5 * time.Hour
	DefaultClosePacing = 100 * time.Millisecond
)

// CloseImportedTicketsUseCase closes tickets created by the historical
// backfill that are still sitting in pending. It runs from two places: right
// after a drain for accounts with auto-close enabled, and periodically from
// the scheduler for accounts left with the manual-close sentinel.
type CloseImportedTicketsUseCase struct {
	tickets  ticket.Repository
	accounts account.Repository
	notifier ticket.Notifier
	logger   logger.Interface

	grace  time.Duration
	pacing time.Duration
}

// NewCloseImportedTicketsUseCase creates the sweep. Zero durations fall back
// to the defaults.
func NewCloseImportedTicketsUseCase(
	tickets ticket.Repository,
	accounts account.Repository,
	notifier ticket.Notifier,
	log logger.Interface,
	grace, pacing time.Duration,
) *CloseImportedTicketsUseCase {
	if grace <= 0 {
		grace = DefaultCloseGrace
	}
	if pacing < 0 {
		pacing = DefaultClosePacing
	}
	return &CloseImportedTicketsUseCase{
		tickets:  tickets,
		accounts: accounts,
		notifier: notifier,
		logger:   log,
		grace:    grace,
		pacing:   pacing,
	}
}

// ExecuteForAccount closes eligible imported tickets for one account and
// returns how many it closed. Per-ticket failures are logged and skipped.
func (uc *CloseImportedTicketsUseCase) ExecuteForAccount(ctx context.Context, accountID uint) (int, error) {
	cutoff := time.Now().Add(-uc.grace)
	pending, err := uc.tickets.FindPendingImported(ctx, accountID, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, t := range pending {
		select {
		case <-ctx.Done():
			return closed, ctx.Err()
		default:
		}

		t.Close()
		if err := uc.tickets.Update(ctx, t); err != nil {
			uc.logger.Warnw("failed to close imported ticket",
				"ticket_id", t.ID(),
				"account_id", accountID,
				"error", err,
			)
			continue
		}
		closed++

		ev := ticket.Event{Action: ticket.EventActionUpdate, Ticket: ticket.Summarize(t)}
		if err := uc.notifier.PublishTicketEvent(ctx, t.TenantID(), ev); err != nil {
			uc.logger.Warnw("failed to publish ticket close event",
				"ticket_id", t.ID(),
				"error", err,
			)
		}

		if uc.pacing > 0 {
			select {
			case <-ctx.Done():
				return closed, ctx.Err()
			case <-time.After(uc.pacing):
			}
		}
	}

	if closed > 0 {
		uc.logger.Infow("imported tickets closed",
			"account_id", accountID,
			"count", closed,
		)
	}
	return closed, nil
}

// CloseImportedForAccount adapts ExecuteForAccount to the import pipeline's
// post-drain hook.
func (uc *CloseImportedTicketsUseCase) CloseImportedForAccount(ctx context.Context, accountID uint) (int, error) {
	return uc.ExecuteForAccount(ctx, accountID)
}

// Execute runs the scheduled sweep over every account whose import finished
// with tickets awaiting close. Accounts with nothing left get their sentinel
// cleared so the UI stops offering the close action.
func (uc *CloseImportedTicketsUseCase) Execute(ctx context.Context) (int, error) {
	accounts, err := uc.accounts.FindPendingTicketClose(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, acc := range accounts {
		closed, err := uc.ExecuteForAccount(ctx, acc.ID())
		if err != nil {
			uc.logger.Warnw("sweep failed for account",
				"account_id", acc.ID(),
				"error", err,
			)
			continue
		}
		total += closed

		if closed == 0 {
			acc.SetStatusImportMessages("")
			if err := uc.accounts.Update(ctx, acc); err != nil {
				uc.logger.Warnw("failed to clear import sentinel",
					"account_id", acc.ID(),
					"error", err,
				)
			}
		}
	}
	return total, nil
}
