// Package services holds the message ingestion path shared by the live event
// stream and the historical import pipeline.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	ticketusecases "atendo/internal/application/ticket/usecases"
	"atendo/internal/domain/contact"
	"atendo/internal/domain/message"
	"atendo/internal/shared/logger"
)

// TransactionRunner executes fn inside a database transaction; writes made
// through the context-aware repositories commit or roll back together.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IngestionService projects raw transport messages into contact, ticket, and
// message rows. It is the single entrypoint for both the live path and the
// import replay; idempotency comes from the message store keyed by the
// transport-side message id.
type IngestionService struct {
	contacts contact.Repository
	messages message.Repository
	resolver *ticketusecases.ResolveTicketUseCase
	tx       TransactionRunner
	logger   logger.Interface
}

// NewIngestionService creates an IngestionService.
func NewIngestionService(
	contacts contact.Repository,
	messages message.Repository,
	resolver *ticketusecases.ResolveTicketUseCase,
	tx TransactionRunner,
	log logger.Interface,
) *IngestionService {
	return &IngestionService{
		contacts: contacts,
		messages: messages,
		resolver: resolver,
		tx:       tx,
		logger:   log,
	}
}

// Ingest projects one raw message. Replaying an already-stored message is a
// no-op, which is what makes import replay after partial failure safe.
func (s *IngestionService) Ingest(ctx context.Context, msg message.RawMessage, accountID, tenantID uint, imported bool) error {
	exists, err := s.messages.Exists(ctx, msg.Key.ID)
	if err != nil {
		return fmt.Errorf("failed to check message existence: %w", err)
	}
	if exists {
		s.logger.Debugw("duplicate message skipped", "message_id", msg.Key.ID)
		return nil
	}

	// Contact, ticket, and message rows land atomically; a failure partway
	// leaves no orphan rows and the replay retries the whole message.
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.resolveContact(ctx, msg, tenantID)
		if err != nil {
			return err
		}

		var importedAt *time.Time
		if imported {
			now := time.Now()
			importedAt = &now
		}

		res, err := s.resolver.Execute(ctx, ticketusecases.ResolveTicketCommand{
			TenantID:  tenantID,
			ContactID: c.ID(),
			AccountID: accountID,
			IsGroup:   msg.IsGroup,
			Body:      msg.Body,
			Unread:    !msg.Key.FromMe && !imported,
			Imported:  importedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve ticket: %w", err)
		}

		m, err := message.NewMessage(
			msg.Key.ID,
			tenantID,
			res.Ticket.ID(),
			c.ID(),
			msg.Body,
			msg.Payload,
			msg.Key.FromMe,
			imported,
			msg.Timestamp,
		)
		if err != nil {
			return err
		}
		if err := s.messages.Save(ctx, m); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		return nil
	})
}

// resolveContact finds or creates the counterparty for a message.
func (s *IngestionService) resolveContact(ctx context.Context, msg message.RawMessage, tenantID uint) (*contact.Contact, error) {
	number := numberFromJID(msg.Key.RemoteJID)
	if number == "" {
		return nil, fmt.Errorf("message %s has no usable remote JID", msg.Key.ID)
	}

	c, err := s.contacts.FindByNumber(ctx, tenantID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to look up contact: %w", err)
	}
	if c != nil {
		return c, nil
	}

	name := msg.PushName
	if name == "" {
		name = number
	}
	c, err = contact.NewContact(tenantID, name, number, msg.IsGroup)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.logger.Infow("contact created",
		"contact_id", c.ID(),
		"number", number,
		"is_group", msg.IsGroup,
	)
	return c, nil
}

// numberFromJID strips the server suffix from a transport JID.
func numberFromJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
