package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hikarilabs/sited/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenInMemory(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, nil, nil)
}

func addQuestion(t *testing.T, svc *Service, prompt string, tags ...string) *Question {
	t.Helper()
	q := &Question{Prompt: prompt, Answer: "because", Tags: tags}
	require.NoError(t, svc.CreateQuestion(context.Background(), q))
	return q
}

func TestQuestionLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	q := addQuestion(t, svc, "what is a goroutine?", "go", "concurrency")

	got, err := svc.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "what is a goroutine?", got.Prompt)
	assert.Equal(t, []string{"go", "concurrency"}, got.Tags)

	got.Prompt = "explain goroutines"
	require.NoError(t, svc.UpdateQuestion(ctx, got))

	list, err := svc.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "explain goroutines", list[0].Prompt)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
	_, err = svc.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.CreateQuestion(ctx, &Question{Answer: "x"})
	assert.ErrorContains(t, err, "prompt is required")

	err = svc.CreateQuestion(ctx, &Question{Prompt: "x"})
	assert.ErrorContains(t, err, "answer is required")
}

func TestReviewPersistsProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	q := addQuestion(t, svc, "q1")

	prog, err := svc.Review(ctx, "u1", q.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Repetition)
	assert.Equal(t, 1, prog.Rung)
	require.NotNil(t, prog.NextReview)

	// Second review climbs again and persists.
	prog, err = svc.Review(ctx, "u1", q.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Rung)

	stored, err := svc.GetProgress(ctx, "u1", q.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.Repetition)
	assert.Equal(t, 2, stored.Rung)
	assert.True(t, stored.Understood)

	// Not-understood resets the stored rung.
	prog, err = svc.Review(ctx, "u1", q.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.Rung)
	assert.Equal(t, 3, prog.Repetition)
}

func TestReviewUnknownQuestion(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Review(context.Background(), "u1", "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewRequiresUser(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Review(context.Background(), "", "q", true)
	assert.ErrorContains(t, err, "user_id is required")
}

func TestDueOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	q1 := addQuestion(t, svc, "never reviewed")
	q2 := addQuestion(t, svc, "reviewed, due")
	q3 := addQuestion(t, svc, "reviewed, not due")

	// q2 reviewed and not understood: next review tomorrow.
	_, err := svc.Review(ctx, "u1", q2.ID, false)
	require.NoError(t, err)
	// q3 understood: due in 3 days.
	_, err = svc.Review(ctx, "u1", q3.ID, true)
	require.NoError(t, err)

	// At now, only q1 (never reviewed) is due.
	due, err := svc.Due(ctx, "u1", now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, q1.ID, due[0].Question.ID)
	assert.Nil(t, due[0].Progress)

	// Two days out, q2 is also due; reviewed questions come after
	// never-reviewed ones, oldest next_review first.
	due, err = svc.Due(ctx, "u1", now.AddDate(0, 0, 2), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, q1.ID, due[0].Question.ID)
	assert.Equal(t, q2.ID, due[1].Question.ID)
	require.NotNil(t, due[1].Progress)
	assert.Equal(t, 0, due[1].Progress.Rung)

	// Limit caps the session size.
	due, err = svc.Due(ctx, "u1", now.AddDate(0, 0, 2), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	q1 := addQuestion(t, svc, "q1", "go")
	q2 := addQuestion(t, svc, "q2", "go", "db")

	_, err := svc.Review(ctx, "u1", q1.ID, true)
	require.NoError(t, err)
	_, err = svc.Review(ctx, "u1", q2.ID, false)
	require.NoError(t, err)
	_, err = svc.Review(ctx, "u1", q2.ID, true)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tracked)
	assert.Equal(t, 3, stats.Answered)
	assert.Equal(t, 2, stats.Correct)
	assert.InDelta(t, 66.67, stats.AccuracyPct, 0.01)
	assert.Equal(t, 0, stats.Mastered)

	require.Len(t, stats.ByTag, 2)
	assert.Equal(t, "go", stats.ByTag[0].Tag)
	assert.Equal(t, 3, stats.ByTag[0].Answered)
	assert.Equal(t, "db", stats.ByTag[1].Tag)
	assert.Equal(t, 2, stats.ByTag[1].Answered)

	// Unknown user: zero-valued stats.
	stats, err = svc.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Tracked)
	assert.Equal(t, 0.0, stats.AccuracyPct)
}
