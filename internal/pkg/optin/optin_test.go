package optin

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/mx-space/comments/internal/database/dbtest"
	"github.com/mx-space/comments/internal/pkg/mail/mailtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *mailtest.Recorder, *clock) {
	t.Helper()
	rec := &mailtest.Recorder{}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(dbtest.New(t), rec, WithClock(c.now)), rec, c
}

func TestCreateAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tok, err := svc.Create(ctx, "com", "a@example.com", map[string][]string{"tl_comments_notify": {"42"}})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^com-[0-9a-f]{24}$`), tok.Identifier())

	found, err := svc.Find(ctx, tok.Identifier())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a@example.com", found.Email())
	assert.Equal(t, map[string][]string{"tl_comments_notify": {"42"}}, found.RelatedRecords())
	assert.True(t, found.IsValid())
	assert.False(t, found.IsConfirmed())

	missing, err := svc.Find(ctx, "com-doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreate_RejectsBadPrefix(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	for _, prefix := range []string{"", "COM", "toolong", "a-b"} {
		_, err := svc.Create(context.Background(), prefix, "a@example.com", nil)
		assert.ErrorIs(t, err, ErrInvalidPrefix, prefix)
	}
}

func TestConfirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tok, err := svc.Create(ctx, "com", "a@example.com", nil)
	require.NoError(t, err)
	require.NoError(t, tok.Confirm(ctx))
	assert.True(t, tok.IsConfirmed())
	assert.ErrorIs(t, tok.Confirm(ctx), ErrAlreadyConfirmed)

	reloaded, err := svc.Find(ctx, tok.Identifier())
	require.NoError(t, err)
	assert.True(t, reloaded.IsConfirmed())
}

func TestConfirm_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, c := newTestService(t)

	tok, err := svc.Create(ctx, "com", "a@example.com", nil)
	require.NoError(t, err)

	c.t = c.t.Add(DefaultValidity + time.Minute)
	assert.False(t, tok.IsValid())
	assert.ErrorIs(t, tok.Confirm(ctx), ErrExpired)
}

func TestSend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, rec, _ := newTestService(t)

	tok, err := svc.Create(ctx, "com", "a@example.com", nil)
	require.NoError(t, err)
	require.NoError(t, tok.Send(ctx, "Confirm", "click "+tok.Identifier()))

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"a@example.com"}, msgs[0].To)
	assert.Equal(t, "Confirm", msgs[0].Subject)

	reloaded, err := svc.Find(ctx, tok.Identifier())
	require.NoError(t, err)
	assert.Equal(t, "Confirm", reloaded.model.EmailSubject)
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, c := newTestService(t)

	stale, err := svc.Create(ctx, "com", "stale@example.com", nil)
	require.NoError(t, err)
	confirmed, err := svc.Create(ctx, "com", "kept@example.com", nil)
	require.NoError(t, err)
	require.NoError(t, confirmed.Confirm(ctx))

	c.t = c.t.Add(48 * time.Hour)
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := svc.Find(ctx, stale.Identifier())
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := svc.Find(ctx, confirmed.Identifier())
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
