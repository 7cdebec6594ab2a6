// Package quiz implements the spaced-repetition tech-quiz feature:
// question content, per-user progress, the review-interval policy, and
// mastery statistics.
package quiz

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

// Service provides quiz operations over the document store.
type Service struct {
	store  *store.Store
	policy *Policy
	logger *zap.Logger
}

// NewService creates a quiz service. A nil policy falls back to the
// default ladder.
func NewService(st *store.Store, policy *Policy, logger *zap.Logger) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, policy: policy, logger: logger}
}

// Policy returns the active review policy.
func (s *Service) Policy() *Policy {
	return s.policy
}

// CreateQuestion stores a new question.
func (s *Service) CreateQuestion(ctx context.Context, q *Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validating question: %w", err)
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO quiz_questions (id, prompt, answer, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Prompt, q.Answer, joinTags(q.Tags), q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

// GetQuestion returns a question by ID.
func (s *Service) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var (
		q    Question
		tags string
	)
	err := s.store.DB().QueryRowContext(ctx,
		"SELECT id, prompt, answer, tags, created_at, updated_at FROM quiz_questions WHERE id = ?", id).
		Scan(&q.ID, &q.Prompt, &q.Answer, &tags, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying question: %w", err)
	}
	q.Tags = splitTags(tags)
	return &q, nil
}

// ListQuestions returns all questions, newest first.
func (s *Service) ListQuestions(ctx context.Context) ([]*Question, error) {
	rows, err := s.store.DB().QueryContext(ctx,
		"SELECT id, prompt, answer, tags, created_at, updated_at FROM quiz_questions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		var (
			q    Question
			tags string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Answer, &tags, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		q.Tags = splitTags(tags)
		questions = append(questions, &q)
	}
	return questions, rows.Err()
}

// UpdateQuestion replaces a question's content.
func (s *Service) UpdateQuestion(ctx context.Context, q *Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validating question: %w", err)
	}
	q.UpdatedAt = time.Now().UTC()

	res, err := s.store.DB().ExecContext(ctx,
		"UPDATE quiz_questions SET prompt = ?, answer = ?, tags = ?, updated_at = ? WHERE id = ?",
		q.Prompt, q.Answer, joinTags(q.Tags), q.UpdatedAt, q.ID)
	if err != nil {
		return fmt.Errorf("updating question: %w", err)
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

// DeleteQuestion removes a question and, via cascade, all progress rows.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.store.DB().ExecContext(ctx, "DELETE FROM quiz_questions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting question: %w", err)
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

// Review records one review result for a user/question pair, applying the
// interval policy and returning the updated progress.
func (s *Service) Review(ctx context.Context, userID, questionID string, understood bool) (*Progress, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if _, err := s.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	prog, err := s.GetProgress(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		prog = &Progress{UserID: userID, QuestionID: questionID}
	}

	s.policy.Review(prog, understood, time.Now().UTC())

	_, err = s.store.DB().ExecContext(ctx, `
		INSERT INTO quiz_progress (user_id, question_id, repetition, rung, understood, answered, correct, last_review, next_review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			repetition = excluded.repetition,
			rung = excluded.rung,
			understood = excluded.understood,
			answered = excluded.answered,
			correct = excluded.correct,
			last_review = excluded.last_review,
			next_review = excluded.next_review`,
		prog.UserID, prog.QuestionID, prog.Repetition, prog.Rung, boolInt(prog.Understood),
		prog.Answered, prog.Correct, prog.LastReview, prog.NextReview)
	if err != nil {
		return nil, fmt.Errorf("upserting progress: %w", err)
	}

	s.logger.Debug("Review recorded",
		zap.String("user_id", userID),
		zap.String("question_id", questionID),
		zap.Bool("understood", understood),
		zap.Int("rung", prog.Rung))
	return prog, nil
}

// GetProgress returns progress for a user/question pair, or nil if the
// user has never reviewed the question.
func (s *Service) GetProgress(ctx context.Context, userID, questionID string) (*Progress, error) {
	var (
		prog       Progress
		understood int
		lastReview sql.NullTime
		nextReview sql.NullTime
	)
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT user_id, question_id, repetition, rung, understood, answered, correct, last_review, next_review
		FROM quiz_progress WHERE user_id = ? AND question_id = ?`, userID, questionID).
		Scan(&prog.UserID, &prog.QuestionID, &prog.Repetition, &prog.Rung, &understood,
			&prog.Answered, &prog.Correct, &lastReview, &nextReview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	prog.Understood = understood != 0
	if lastReview.Valid {
		t := lastReview.Time
		prog.LastReview = &t
	}
	if nextReview.Valid {
		t := nextReview.Time
		prog.NextReview = &t
	}
	return &prog, nil
}

// Due returns questions whose next review is at or before now, oldest
// first, plus questions the user has never reviewed (due immediately),
// capped at limit (0 means no cap).
func (s *Service) Due(ctx context.Context, userID string, now time.Time, limit int) ([]*DueQuestion, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT q.id, q.prompt, q.answer, q.tags, q.created_at, q.updated_at,
		       p.repetition, p.rung, p.understood, p.answered, p.correct, p.last_review, p.next_review
		FROM quiz_questions q
		LEFT JOIN quiz_progress p ON p.question_id = q.id AND p.user_id = ?
		WHERE p.next_review IS NULL OR p.next_review <= ?
		ORDER BY p.next_review IS NOT NULL, p.next_review ASC, q.created_at ASC`
	args := []any{userID, now.UTC()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying due questions: %w", err)
	}
	defer rows.Close()

	var due []*DueQuestion
	for rows.Next() {
		var (
			q          Question
			tags       string
			repetition sql.NullInt64
			rung       sql.NullInt64
			understood sql.NullInt64
			answered   sql.NullInt64
			correct    sql.NullInt64
			lastReview sql.NullTime
			nextReview sql.NullTime
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Answer, &tags, &q.CreatedAt, &q.UpdatedAt,
			&repetition, &rung, &understood, &answered, &correct, &lastReview, &nextReview); err != nil {
			return nil, fmt.Errorf("scanning due question: %w", err)
		}
		q.Tags = splitTags(tags)

		dq := &DueQuestion{Question: &q}
		if repetition.Valid {
			prog := &Progress{
				UserID:     userID,
				QuestionID: q.ID,
				Repetition: int(repetition.Int64),
				Rung:       int(rung.Int64),
				Understood: understood.Int64 != 0,
				Answered:   int(answered.Int64),
				Correct:    int(correct.Int64),
			}
			if lastReview.Valid {
				t := lastReview.Time
				prog.LastReview = &t
			}
			if nextReview.Valid {
				t := nextReview.Time
				prog.NextReview = &t
			}
			dq.Progress = prog
		}
		due = append(due, dq)
	}
	return due, rows.Err()
}

// Stats computes the per-user mastery summary across all tracked
// questions.
func (s *Service) Stats(ctx context.Context, userID string) (*UserStats, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT q.tags, p.rung, p.understood, p.answered, p.correct
		FROM quiz_progress p
		JOIN quiz_questions q ON q.id = p.question_id
		WHERE p.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying progress rows: %w", err)
	}
	defer rows.Close()

	stats := &UserStats{}
	type tagBucket struct{ answered, correct int }
	tagBuckets := make(map[string]*tagBucket)
	var tagOrder []string

	for rows.Next() {
		var (
			tags       string
			rung       int
			understood int
			answered   int
			correct    int
		)
		if err := rows.Scan(&tags, &rung, &understood, &answered, &correct); err != nil {
			return nil, fmt.Errorf("scanning progress row: %w", err)
		}
		stats.Tracked++
		stats.Answered += answered
		stats.Correct += correct
		if s.policy.Mastered(&Progress{Rung: rung, Understood: understood != 0}) {
			stats.Mastered++
		}
		for _, tag := range splitTags(tags) {
			b, ok := tagBuckets[tag]
			if !ok {
				b = &tagBucket{}
				tagBuckets[tag] = b
				tagOrder = append(tagOrder, tag)
			}
			b.answered += answered
			b.correct += correct
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Answered > 0 {
		stats.AccuracyPct = float64(stats.Correct) / float64(stats.Answered) * 100
	}
	for _, tag := range tagOrder {
		b := tagBuckets[tag]
		ts := TagStats{Tag: tag, Answered: b.answered, Correct: b.correct}
		if b.answered > 0 {
			ts.AccuracyPct = float64(b.correct) / float64(b.answered) * 100
		}
		stats.ByTag = append(stats.ByTag, ts)
	}
	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
