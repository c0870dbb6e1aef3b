package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mx-space/comments/internal/database/dbtest"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	event     string
	signature string
	body      []byte
}

type receiver struct {
	mu   sync.Mutex
	got  []received
	code int
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.got = append(r.got, received{
		event:     req.Header.Get("X-Webhook-Event"),
		signature: req.Header.Get("X-Webhook-Signature256"),
		body:      body,
	})
	code := r.code
	r.mu.Unlock()
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (r *receiver) all() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]received(nil), r.got...)
}

func TestNormalizeWebhookEvents(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"COMMENT_CREATE"}, normalizeWebhookEvents([]string{" comment_create ", "COMMENT_CREATE", "POST_CREATE"}))
	assert.Equal(t, []string{"all"}, normalizeWebhookEvents([]string{"COMMENT_CREATE", "ALL"}))
	assert.Empty(t, normalizeWebhookEvents(nil))
	assert.True(t, webhookContainsEvent([]string{"all"}, EventCommentPublish))
	assert.False(t, webhookContainsEvent([]string{EventCommentCreate}, EventCommentPublish))
}

func TestService_CreateAndUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(dbtest.New(t), zap.NewNop())

	_, err := svc.Create(ctx, &CreateWebhookDTO{PayloadURL: "https://hooks.example/x", Events: []string{"nope"}})
	assert.ErrorIs(t, err, ErrNoEvents)

	disabled := false
	w, err := svc.Create(ctx, &CreateWebhookDTO{PayloadURL: "https://hooks.example/x", Events: []string{"comment_create"}, Enabled: &disabled})
	require.NoError(t, err)
	assert.Len(t, w.Secret, 40)

	stored, err := svc.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
	assert.Equal(t, models.StringArray{"COMMENT_CREATE"}, stored.Events)

	enabled := true
	updated, err := svc.Update(ctx, w.ID, &UpdateWebhookDTO{Enabled: &enabled, Events: []string{"comment_publish"}})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, models.StringArray{"COMMENT_PUBLISH"}, updated.Events)

	missing, err := svc.Update(ctx, "missing", &UpdateWebhookDTO{Enabled: &enabled})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestService_DispatchSignsAndRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewService(db, zap.NewNop())

	rcv := &receiver{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	hook, err := svc.Create(ctx, &CreateWebhookDTO{PayloadURL: srv.URL, Events: []string{EventCommentCreate}, Secret: "s3cret"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateWebhookDTO{PayloadURL: srv.URL, Events: []string{EventCommentPublish}})
	require.NoError(t, err)
	off := false
	_, err = svc.Create(ctx, &CreateWebhookDTO{PayloadURL: srv.URL, Events: []string{"all"}, Enabled: &off})
	require.NoError(t, err)

	c := &models.CommentModel{Base: models.Base{ID: "c-1"}, Source: "tl_news", Parent: 1, Name: "Jane"}
	require.NoError(t, svc.Hook(EventCommentCreate).OnCommentAdded(ctx, c))
	svc.Wait()

	got := rcv.all()
	require.Len(t, got, 1)
	assert.Equal(t, EventCommentCreate, got[0].event)
	assert.Equal(t, Sign("s3cret", got[0].body), got[0].signature)
	assert.Contains(t, string(got[0].body), `"source":"tl_news"`)

	events, pag, err := svc.ListEvents(ctx, pagination.Query{Page: 1, Size: 10}, &hook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pag.Total)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Equal(t, http.StatusOK, events[0].Status)

	require.NoError(t, svc.Redispatch(ctx, events[0].ID))
	svc.Wait()
	assert.Len(t, rcv.all(), 2)

	assert.ErrorIs(t, svc.Redispatch(ctx, "missing"), ErrEventNotFound)

	require.NoError(t, svc.ClearEventsByHookID(ctx, hook.ID))
	_, pag, err = svc.ListEvents(ctx, pagination.Query{Page: 1, Size: 10}, &hook.ID)
	require.NoError(t, err)
	assert.Zero(t, pag.Total)
}

func TestService_DispatchRecordsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(dbtest.New(t), zap.NewNop())

	rcv := &receiver{code: http.StatusInternalServerError}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	hook, err := svc.Create(ctx, &CreateWebhookDTO{PayloadURL: srv.URL, Events: []string{"all"}})
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(ctx, EventCommentPublish, map[string]string{"id": "c-1"}))
	svc.Wait()

	events, _, err := svc.ListEvents(ctx, pagination.Query{Page: 1, Size: 10}, &hook.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, http.StatusInternalServerError, events[0].Status)
}

func TestService_DispatchSnapshotsPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := dbtest.New(t)
	svc := NewService(db, zap.NewNop())

	rcv := &receiver{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	hook, err := svc.Create(ctx, &CreateWebhookDTO{PayloadURL: srv.URL, Events: []string{EventCommentCreate}})
	require.NoError(t, err)

	c := &models.CommentModel{Base: models.Base{ID: "c-2"}, Source: "tl_news", Parent: 1, Name: "Jane"}
	require.NoError(t, svc.Hook(EventCommentCreate).OnCommentAdded(ctx, c))
	c.Name = "Changed"
	c.Notified = true
	svc.Wait()

	got := rcv.all()
	require.Len(t, got, 1)
	assert.Contains(t, string(got[0].body), `"name":"Jane"`)
	assert.Contains(t, string(got[0].body), `"notified":false`)

	events, _, err := svc.ListEvents(ctx, pagination.Query{Page: 1, Size: 10}, &hook.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, svc.Redispatch(ctx, events[0].ID))
	svc.Wait()

	got = rcv.all()
	require.Len(t, got, 2)
	assert.Equal(t, got[0].body, got[1].body)
}
