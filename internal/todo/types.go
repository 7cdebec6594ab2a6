package todo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned by the service.
var (
	ErrNotFound         = errors.New("todo not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateName    = errors.New("category name already exists")
)

// Todo is a single task scheduled on a calendar day.
type Todo struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Note       string     `json:"note,omitempty"`
	CategoryID string     `json:"category_id,omitempty"`
	DueOn      time.Time  `json:"due_on"`
	Done       bool       `json:"done"`
	DoneAt     *time.Time `json:"done_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate checks required fields.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if t.DueOn.IsZero() {
		return fmt.Errorf("due_on is required")
	}
	return nil
}

// Category groups todos in the calendar view.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	// From and To bound DueOn inclusively (date precision).
	From time.Time
	To   time.Time
	// CategoryID restricts to one category.
	CategoryID string
	// Done restricts to done (true) or open (false) todos when non-nil.
	Done *bool
}
