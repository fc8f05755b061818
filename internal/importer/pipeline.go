package importer

import (
	"context"
	"sort"
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/domain/message"
	apperrors "atendo/internal/shared/errors"
	"atendo/internal/shared/logger"
)

// Default drain policy knobs.
const (
	DefaultQuiescence    = 45 * time.Second
	DefaultYieldEvery    = 10
	DefaultYield         = 100 * time.Millisecond
	DefaultProgressEvery = 10
)

// Config holds the drain policy.
type Config struct {
	// Quiescence is how long the buffer must stay silent before a drain
	// is triggered automatically.
	Quiescence time.Duration
	// YieldEvery/Yield pace the replay loop so one account's backfill does
	// not starve the others.
	YieldEvery int
	Yield      time.Duration
	// ProgressEvery is how many messages between progress events.
	ProgressEvery int
}

func (c Config) withDefaults() Config {
	if c.Quiescence <= 0 {
		c.Quiescence = DefaultQuiescence
	}
	if c.YieldEvery <= 0 {
		c.YieldEvery = DefaultYieldEvery
	}
	if c.Yield <= 0 {
		c.Yield = DefaultYield
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	return c
}

// Progress is pushed to the tenant's UI channel during replay.
type Progress struct {
	AccountID     uint      `json:"accountId"`
	Processed     int       `json:"processed"`
	Total         int       `json:"total"`
	LastTimestamp time.Time `json:"lastTimestamp"`
	Done          bool      `json:"done"`
}

// ProgressNotifier publishes import progress to the tenant's UI channel.
type ProgressNotifier interface {
	PublishImportProgress(ctx context.Context, tenantID uint, p Progress) error
}

// SessionChecker verifies a live connection exists before a drain starts.
type SessionChecker interface {
	IsConnected(accountID uint) bool
}

// DrainLock guarantees at most one in-flight drain per account.
type DrainLock interface {
	Acquire(ctx context.Context, accountID uint) (bool, error)
	Release(ctx context.Context, accountID uint) error
}

// TicketCloser is the post-import sweep: closing pending imported tickets
// older than the grace window.
type TicketCloser interface {
	CloseImportedForAccount(ctx context.Context, accountID uint) (int, error)
}

// ReplayError records a single message that failed during replay. One bad
// record never aborts the whole backfill.
type ReplayError struct {
	Index     int
	MessageID string
	Err       error
}

// Result summarizes one drain run.
type Result struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
	Errors    []ReplayError
}

// Pipeline drains an import buffer: dedup, chronological sort, window
// filter, then strictly sequential replay into the ingestion entrypoint.
type Pipeline struct {
	accounts account.Repository
	ingestor message.Ingestor
	sessions SessionChecker
	locks    DrainLock
	notifier ProgressNotifier
	closer   TicketCloser
	logger   logger.Interface
	cfg      Config
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	accounts account.Repository,
	ingestor message.Ingestor,
	sessions SessionChecker,
	locks DrainLock,
	notifier ProgressNotifier,
	closer TicketCloser,
	log logger.Interface,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		accounts: accounts,
		ingestor: ingestor,
		sessions: sessions,
		locks:    locks,
		notifier: notifier,
		closer:   closer,
		logger:   log,
		cfg:      cfg.withDefaults(),
	}
}

// Quiescence returns the configured quiescence window.
func (p *Pipeline) Quiescence() time.Duration {
	return p.cfg.Quiescence
}

// Drain runs the import for one account. Preconditions (drain lock held,
// live connection, import window configured) are checked before the buffer
// is touched; a failure there aborts the whole run with ImportAborted and
// leaves the account's import flags untouched for manual retry. Once the
// loop starts, per-message failures are recorded and replay continues.
func (p *Pipeline) Drain(ctx context.Context, buf *Buffer, acc *account.Account) (*Result, error) {
	accountID := acc.ID()

	ok, err := p.locks.Acquire(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewImportAborted(accountID, "drain lock unavailable", err)
	}
	if !ok {
		return nil, apperrors.NewImportAborted(accountID, "drain already in flight", nil)
	}
	defer func() {
		if err := p.locks.Release(context.WithoutCancel(ctx), accountID); err != nil {
			p.logger.Warnw("failed to release drain lock", "account_id", accountID, "error", err)
		}
	}()

	if !p.sessions.IsConnected(accountID) {
		return nil, apperrors.NewImportAborted(accountID, "no live connection", nil)
	}
	if !acc.HasImportWindow() {
		return nil, apperrors.NewImportAborted(accountID, "no import window configured", nil)
	}

	entries := buf.Swap()
	msgs := p.prepare(entries, acc)

	result := &Result{
		Total:   len(msgs),
		Skipped: len(entries) - len(msgs),
	}

	p.logger.Infow("import drain started",
		"account_id", accountID,
		"buffered", len(entries),
		"replayable", len(msgs),
	)

	acc.SetStatusImportMessages(account.ImportStatusRunning)
	if err := p.accounts.Update(ctx, acc); err != nil {
		p.logger.Warnw("failed to persist import status", "account_id", accountID, "error", err)
	}

	if err := p.replay(ctx, acc, msgs, result); err != nil {
		return result, err
	}

	if err := p.complete(ctx, acc, result); err != nil {
		return result, err
	}

	return result, nil
}

// prepare applies steps 1-3 of the drain algorithm: dedup by transport key
// keeping the first occurrence in buffer order, ascending timestamp sort,
// and window plus group-policy filtering.
func (p *Pipeline) prepare(entries []message.RawMessage, acc *account.Account) []message.RawMessage {
	seen := make(map[string]struct{}, len(entries))
	deduped := entries[:0:0]
	for _, m := range entries {
		if _, dup := seen[m.Key.ID]; dup {
			continue
		}
		seen[m.Key.ID] = struct{}{}
		deduped = append(deduped, m)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Timestamp.Before(deduped[j].Timestamp)
	})

	filtered := deduped[:0:0]
	for _, m := range deduped {
		if !acc.InImportWindow(m.Timestamp) {
			continue
		}
		if m.IsGroup && !acc.ImportGroupMessages() {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// replay is step 4: strictly sequential ingestion in chronological order.
// Later steps assume monotonic ticket/message state, so no reordering and no
// concurrency here.
func (p *Pipeline) replay(ctx context.Context, acc *account.Account, msgs []message.RawMessage, result *Result) error {
	accountID := acc.ID()

	for i, m := range msgs {
		select {
		case <-ctx.Done():
			p.logger.Infow("import drain cancelled",
				"account_id", accountID,
				"processed", result.Processed,
				"total", result.Total,
			)
			return ctx.Err()
		default:
		}

		if err := p.ingestor.Ingest(ctx, m, accountID, acc.TenantID(), true); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ReplayError{
				Index:     i,
				MessageID: m.Key.ID,
				Err:       err,
			})
			p.logger.Warnw("message replay failed, continuing",
				"account_id", accountID,
				"message_id", m.Key.ID,
				"index", i,
				"error", err,
			)
			continue
		}
		result.Processed++

		if result.Processed%p.cfg.ProgressEvery == 0 || i == len(msgs)-1 {
			p.publishProgress(ctx, acc, Progress{
				AccountID:     accountID,
				Processed:     result.Processed,
				Total:         result.Total,
				LastTimestamp: m.Timestamp,
			})
		}

		// Yield periodically so other accounts' event handling keeps moving.
		if (i+1)%p.cfg.YieldEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.Yield):
			}
		}
	}
	return nil
}

// complete is steps 5-6: final progress event, optional post-import ticket
// sweep, and persisting the import sentinel the UI keys off.
func (p *Pipeline) complete(ctx context.Context, acc *account.Account, result *Result) error {
	accountID := acc.ID()

	if acc.ClosedTicketsPostImported() {
		closed, err := p.closer.CloseImportedForAccount(ctx, accountID)
		if err != nil {
			p.logger.Errorw("post-import ticket close failed",
				"account_id", accountID,
				"error", err,
			)
		} else if closed > 0 {
			p.logger.Infow("post-import tickets closed",
				"account_id", accountID,
				"count", closed,
			)
		}
		acc.SetStatusImportMessages("")
	} else {
		// The UI renders a manual close-tickets action off this sentinel.
		acc.SetStatusImportMessages(account.ImportStatusPendingClose)
	}

	if err := p.accounts.Update(ctx, acc); err != nil {
		p.logger.Errorw("failed to persist import completion",
			"account_id", accountID,
			"error", err,
		)
		return err
	}

	p.publishProgress(ctx, acc, Progress{
		AccountID: accountID,
		Processed: result.Processed,
		Total:     result.Total,
		Done:      true,
	})

	p.logger.Infow("import drain completed",
		"account_id", accountID,
		"processed", result.Processed,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return nil
}

func (p *Pipeline) publishProgress(ctx context.Context, acc *account.Account, progress Progress) {
	if err := p.notifier.PublishImportProgress(ctx, acc.TenantID(), progress); err != nil {
		p.logger.Warnw("failed to publish import progress",
			"account_id", acc.ID(),
			"error", err,
		)
	}
}
