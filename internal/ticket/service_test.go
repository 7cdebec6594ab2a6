package ticket

import (
	"bytes"
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

func TestIssueAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tk := &Ticket{Holder: "Hanako", TotalUses: 5}
	require.NoError(t, svc.Issue(ctx, tk))
	require.NotEmpty(t, tk.ID)
	assert.Equal(t, 5, tk.Remaining)

	got, err := svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hanako", got.Holder)
	assert.Equal(t, 5, got.Remaining)
	assert.Nil(t, got.ExpiresAt)
}

func TestIssueValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorContains(t, svc.Issue(ctx, &Ticket{TotalUses: 3}), "holder is required")
	assert.ErrorContains(t, svc.Issue(ctx, &Ticket{Holder: "x", TotalUses: 0}), "total_uses")
}

func TestRedeemDecrementsToExhaustion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tk := &Ticket{Holder: "Hanako", TotalUses: 2}
	require.NoError(t, svc.Issue(ctx, tk))

	got, err := svc.Redeem(ctx, tk.ID, "first visit")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Remaining)

	got, err = svc.Redeem(ctx, tk.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Remaining)

	_, err = svc.Redeem(ctx, tk.ID, "")
	assert.ErrorIs(t, err, ErrExhausted)

	// History has exactly the two successful redemptions.
	uses, err := svc.History(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, uses, 2)
	assert.Equal(t, "first visit", uses[0].Note)
}

func TestRedeemExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	tk := &Ticket{Holder: "Hanako", TotalUses: 3, ExpiresAt: &past}
	require.NoError(t, svc.Issue(ctx, tk))

	_, err := svc.Redeem(ctx, tk.ID, "")
	assert.ErrorIs(t, err, ErrExpired)

	// No history row for the failed redemption.
	uses, err := svc.History(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, uses)
}

func TestRedeemNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Redeem(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tk := &Ticket{Holder: "Hanako", TotalUses: 1}
	require.NoError(t, svc.Issue(ctx, tk))
	require.NoError(t, svc.Delete(ctx, tk.ID))
	assert.ErrorIs(t, svc.Delete(ctx, tk.ID), ErrNotFound)
}

func TestImportCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	input := `holder,uses,expires_at
Hanako,5,
Taro,3,2030-01-01T00:00:00Z
,2,
Jiro,zero,
Saburo,1,not-a-date
`
	result, err := svc.ImportCSV(ctx, bytes.NewBufferString(input))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Tickets, 2)
	assert.Equal(t, "Hanako", result.Tickets[0].Holder)
	require.NotNil(t, result.Tickets[1].ExpiresAt)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "holder is required")
	assert.Contains(t, result.Errors[1].Message, "invalid uses")
	assert.Contains(t, result.Errors[2].Message, "invalid expires_at")

	// Imported tickets landed in the store.
	tickets, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestImportCSVBadHeader(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ImportCSV(context.Background(), bytes.NewBufferString("name,count\nx,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected header")

	_, err = svc.ImportCSV(context.Background(), bytes.NewBufferString(""))
	assert.ErrorContains(t, err, "empty CSV")
}

func TestRenderPDF(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tk := &Ticket{Holder: "Hanako", TotalUses: 3}
	require.NoError(t, svc.Issue(ctx, tk))
	_, err := svc.Redeem(ctx, tk.ID, "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, tk.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, []*Ticket{got}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is a PDF document")
}

func TestRenderPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, RenderPDF(&buf, nil), "no tickets")
}
