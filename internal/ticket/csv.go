package ticket

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// csvHeader is the required header line for bulk imports.
var csvHeader = []string{"holder", "uses", "expires_at"}

// ImportCSV bulk-creates tickets from CSV input. The expected format is a
// header line `holder,uses,expires_at` followed by one ticket per line;
// expires_at is RFC 3339 or empty for no expiry.
//
// Lines that fail validation are reported in the result and skipped;
// valid lines are still imported (partial success).
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Line: line, Message: err.Error()})
			continue
		}

		t, err := parseRecord(record)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Line: line, Message: err.Error()})
			continue
		}
		if err := s.Issue(ctx, t); err != nil {
			result.Errors = append(result.Errors, ImportError{Line: line, Message: err.Error()})
			continue
		}
		result.Imported++
		result.Tickets = append(result.Tickets, t)
	}
	return result, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("expected header %q, got %d columns", strings.Join(csvHeader, ","), len(header))
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("expected header %q, got %q", strings.Join(csvHeader, ","), strings.Join(header, ","))
		}
	}
	return nil
}

func parseRecord(record []string) (*Ticket, error) {
	if len(record) != 3 {
		return nil, fmt.Errorf("expected 3 columns, got %d", len(record))
	}

	holder := strings.TrimSpace(record[0])
	if holder == "" {
		return nil, fmt.Errorf("holder is required")
	}

	uses, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid uses %q: %w", record[1], err)
	}
	if uses < 1 {
		return nil, fmt.Errorf("uses must be >= 1, got %d", uses)
	}

	t := &Ticket{Holder: holder, TotalUses: uses}
	if raw := strings.TrimSpace(record[2]); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at %q: %w", raw, err)
		}
		t.ExpiresAt = &expiresAt
	}
	return t, nil
}
