package quiz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned by the service.
var (
	ErrNotFound = errors.New("question not found")
)

// Question is one study item in the tech-quiz feature.
type Question struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	if strings.TrimSpace(q.Answer) == "" {
		return fmt.Errorf("answer is required")
	}
	return nil
}

// Progress tracks one user's mastery of one question.
type Progress struct {
	UserID     string     `json:"user_id"`
	QuestionID string     `json:"question_id"`
	// Repetition counts every review, understood or not.
	Repetition int `json:"repetition"`
	// Rung is the current position on the interval ladder.
	Rung int `json:"rung"`
	// Understood is the result of the most recent review.
	Understood bool `json:"understood"`
	// Answered and Correct accumulate over all reviews.
	Answered   int        `json:"answered"`
	Correct    int        `json:"correct"`
	LastReview *time.Time `json:"last_review,omitempty"`
	NextReview *time.Time `json:"next_review,omitempty"`
}

// DueQuestion pairs a due question with its progress, for review sessions.
type DueQuestion struct {
	Question *Question `json:"question"`
	Progress *Progress `json:"progress"`
}

// UserStats is the per-user mastery summary.
type UserStats struct {
	Answered    int        `json:"answered"`
	Correct     int        `json:"correct"`
	AccuracyPct float64    `json:"accuracy_pct"`
	Mastered    int        `json:"mastered"`
	Tracked     int        `json:"tracked"`
	ByTag       []TagStats `json:"by_tag,omitempty"`
}

// TagStats is per-tag accuracy.
type TagStats struct {
	Tag         string  `json:"tag"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// joinTags serializes tags for storage; splitTags reverses it.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
