// Package todo implements the calendar/tracker feature: todos, their
// categories, and the statistics derived from them.
package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/store"
)

// EventPublisher publishes domain events. May be nil (events disabled).
type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Service provides todo and category operations over the document store.
type Service struct {
	store  *store.Store
	events EventPublisher
	logger *zap.Logger
}

// NewService creates a todo service. events may be nil.
func NewService(st *store.Store, events EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, events: events, logger: logger}
}

// Create stores a new todo. An ID is generated if not provided.
func (s *Service) Create(ctx context.Context, t *Todo) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validating todo: %w", err)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.DueOn = dateOnly(t.DueOn)

	if t.CategoryID != "" {
		if _, err := s.GetCategory(ctx, t.CategoryID); err != nil {
			return err
		}
	}

	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO todos (id, title, note, category_id, due_on, done, done_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		t.ID, t.Title, t.Note, nullString(t.CategoryID), t.DueOn, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}

	s.logger.Debug("Todo created", zap.String("id", t.ID), zap.String("title", t.Title))
	return nil
}

// Get returns a todo by ID.
func (s *Service) Get(ctx context.Context, id string) (*Todo, error) {
	row := s.store.DB().QueryRowContext(ctx, `
		SELECT id, title, note, category_id, due_on, done, done_at, created_at, updated_at
		FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying todo: %w", err)
	}
	return t, nil
}

// List returns todos matching the filter, ordered by due date then creation
// time.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Todo, error) {
	var (
		where []string
		args  []any
	)
	if !filter.From.IsZero() {
		where = append(where, "due_on >= ?")
		args = append(args, dateOnly(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "due_on <= ?")
		args = append(args, dateOnly(filter.To))
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Done != nil {
		where = append(where, "done = ?")
		args = append(args, boolInt(*filter.Done))
	}

	query := "SELECT id, title, note, category_id, due_on, done, done_at, created_at, updated_at FROM todos"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_on ASC, created_at ASC"

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	var todos []*Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// Update replaces a todo's mutable fields (title, note, category, due date).
func (s *Service) Update(ctx context.Context, t *Todo) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validating todo: %w", err)
	}
	if t.CategoryID != "" {
		if _, err := s.GetCategory(ctx, t.CategoryID); err != nil {
			return err
		}
	}
	t.UpdatedAt = time.Now().UTC()

	res, err := s.store.DB().ExecContext(ctx, `
		UPDATE todos SET title = ?, note = ?, category_id = ?, due_on = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Note, nullString(t.CategoryID), dateOnly(t.DueOn), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("updating todo: %w", err)
	}
	return requireRow(res)
}

// SetDone marks a todo done or open. Completing a todo publishes a
// todo.completed event.
func (s *Service) SetDone(ctx context.Context, id string, done bool) (*Todo, error) {
	now := time.Now().UTC()
	var doneAt any
	if done {
		doneAt = now
	}

	res, err := s.store.DB().ExecContext(ctx,
		"UPDATE todos SET done = ?, done_at = ?, updated_at = ? WHERE id = ?",
		boolInt(done), doneAt, now, id)
	if err != nil {
		return nil, fmt.Errorf("updating todo done flag: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if done && s.events != nil {
		if err := s.events.Publish(ctx, "todo.completed", t); err != nil {
			// Event delivery is best-effort; the write has already landed.
			s.logger.Warn("Failed to publish todo.completed", zap.String("id", id), zap.Error(err))
		}
	}
	return t, nil
}

// Delete removes a todo.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.store.DB().ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}
	return requireRow(res)
}

// CreateCategory stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating category: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.store.DB().ExecContext(ctx,
		"INSERT INTO categories (id, name, color, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.Color, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// GetCategory returns a category by ID.
func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := s.store.DB().QueryRowContext(ctx,
		"SELECT id, name, color, created_at FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		"SELECT id, name, color, created_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// RenameCategory updates a category's name and color.
func (s *Service) RenameCategory(ctx context.Context, id, name, color string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	res, err := s.store.DB().ExecContext(ctx,
		"UPDATE categories SET name = ?, color = ? WHERE id = ?", name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("renaming category: %w", err)
	}
	if err := requireRow(res); err != nil {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category. Todos keep existing with their
// category cleared (ON DELETE SET NULL).
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.store.DB().ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if err := requireRow(res); err != nil {
		return ErrCategoryNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(sc scanner) (*Todo, error) {
	var (
		t          Todo
		categoryID sql.NullString
		doneAt     sql.NullTime
		done       int
	)
	if err := sc.Scan(&t.ID, &t.Title, &t.Note, &categoryID, &t.DueOn, &done, &doneAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.CategoryID = categoryID.String
	t.Done = done != 0
	if doneAt.Valid {
		at := doneAt.Time
		t.DoneAt = &at
	}
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dateOnly truncates a time to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
