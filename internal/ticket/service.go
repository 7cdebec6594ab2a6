// Package ticket implements the massage-ticket feature: redeemable
// vouchers with usage counters, CSV bulk import, and printable PDF
// rendering with scannable codes.
package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/store"
)

// EventPublisher publishes domain events. May be nil (events disabled).
type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Service provides ticket operations over the document store.
type Service struct {
	store  *store.Store
	events EventPublisher
	logger *zap.Logger
}

// NewService creates a ticket service. events may be nil.
func NewService(st *store.Store, events EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, events: events, logger: logger}
}

// Issue creates a new ticket with its full usage count remaining.
func (s *Service) Issue(ctx context.Context, t *Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validating ticket: %w", err)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Remaining = t.TotalUses
	t.CreatedAt = time.Now().UTC()

	var expiresAt any
	if t.ExpiresAt != nil {
		expiresAt = t.ExpiresAt.UTC()
	}

	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO tickets (id, holder, total_uses, remaining, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Holder, t.TotalUses, t.Remaining, expiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}

	s.logger.Info("Ticket issued",
		zap.String("id", t.ID),
		zap.String("holder", t.Holder),
		zap.Int("total_uses", t.TotalUses))
	return nil
}

// Get returns a ticket by ID.
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	return s.get(ctx, s.store.DB().QueryRowContext, id)
}

type rowQuerier func(ctx context.Context, query string, args ...any) *sql.Row

func (s *Service) get(ctx context.Context, queryRow rowQuerier, id string) (*Ticket, error) {
	var (
		t         Ticket
		expiresAt sql.NullTime
	)
	err := queryRow(ctx,
		"SELECT id, holder, total_uses, remaining, expires_at, created_at FROM tickets WHERE id = ?", id).
		Scan(&t.ID, &t.Holder, &t.TotalUses, &t.Remaining, &expiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	if expiresAt.Valid {
		at := expiresAt.Time
		t.ExpiresAt = &at
	}
	return &t, nil
}

// List returns all tickets, newest first.
func (s *Service) List(ctx context.Context) ([]*Ticket, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		"SELECT id, holder, total_uses, remaining, expires_at, created_at FROM tickets ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var (
			t         Ticket
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Holder, &t.TotalUses, &t.Remaining, &expiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		if expiresAt.Valid {
			at := expiresAt.Time
			t.ExpiresAt = &at
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

// Redeem consumes one use of the ticket. The counter decrement and the
// redemption record land in a single transaction; remaining never goes
// negative.
func (s *Service) Redeem(ctx context.Context, id, note string) (*Ticket, error) {
	now := time.Now().UTC()
	var redeemed *Ticket

	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := s.get(ctx, tx.QueryRowContext, id)
		if err != nil {
			return err
		}
		if t.Expired(now) {
			return ErrExpired
		}
		if t.Remaining == 0 {
			return ErrExhausted
		}

		// remaining > 0 guard makes the decrement safe against races.
		res, err := tx.ExecContext(ctx,
			"UPDATE tickets SET remaining = remaining - 1 WHERE id = ? AND remaining > 0", id)
		if err != nil {
			return fmt.Errorf("decrementing ticket: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrExhausted
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO ticket_uses (ticket_id, used_at, note) VALUES (?, ?, ?)", id, now, note); err != nil {
			return fmt.Errorf("recording redemption: %w", err)
		}

		t.Remaining--
		redeemed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ticket redeemed",
		zap.String("id", id),
		zap.Int("remaining", redeemed.Remaining))

	if s.events != nil {
		if err := s.events.Publish(ctx, "ticket.redeemed", redeemed); err != nil {
			s.logger.Warn("Failed to publish ticket.redeemed", zap.String("id", id), zap.Error(err))
		}
	}
	return redeemed, nil
}

// History returns the redemption records for a ticket, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]*Use, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.store.DB().QueryContext(ctx,
		"SELECT id, ticket_id, used_at, note FROM ticket_uses WHERE ticket_id = ? ORDER BY used_at ASC, id ASC", id)
	if err != nil {
		return nil, fmt.Errorf("listing redemptions: %w", err)
	}
	defer rows.Close()

	var uses []*Use
	for rows.Next() {
		var u Use
		if err := rows.Scan(&u.ID, &u.TicketID, &u.UsedAt, &u.Note); err != nil {
			return nil, fmt.Errorf("scanning redemption: %w", err)
		}
		uses = append(uses, &u)
	}
	return uses, rows.Err()
}

// Delete removes a ticket and its redemption history.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.store.DB().ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
