package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned by the service.
var (
	ErrNotFound  = errors.New("ticket not found")
	ErrExhausted = errors.New("ticket has no remaining uses")
	ErrExpired   = errors.New("ticket has expired")
)

// Ticket is a redeemable massage voucher with a usage counter.
type Ticket struct {
	ID        string     `json:"id"`
	Holder    string     `json:"holder"`
	TotalUses int        `json:"total_uses"`
	Remaining int        `json:"remaining"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks required fields.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.Holder) == "" {
		return fmt.Errorf("holder is required")
	}
	if t.TotalUses < 1 {
		return fmt.Errorf("total_uses must be >= 1, got %d", t.TotalUses)
	}
	return nil
}

// Expired reports whether the ticket is past its expiry at now. Tickets
// without an expiry never expire.
func (t *Ticket) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Use is one redemption record.
type Use struct {
	ID       int64     `json:"id"`
	TicketID string    `json:"ticket_id"`
	UsedAt   time.Time `json:"used_at"`
	Note     string    `json:"note,omitempty"`
}

// ImportResult reports the outcome of a CSV bulk import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Tickets  []*Ticket     `json:"tickets,omitempty"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError locates one rejected CSV line.
type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}
