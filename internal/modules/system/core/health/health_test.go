package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/database/dbtest"
	"github.com/mx-space/comments/internal/pkg/mail/mailtest"
	"github.com/mx-space/comments/internal/pkg/nativelog"
	pkgredis "github.com/mx-space/comments/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rc := pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	r := newRouter(NewHandler(dbtest.New(t), rc, &mailtest.Recorder{}, "", t.TempDir()))

	w := serve(r, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":true,"redis":true}`, w.Body.String())

	mr.Close()
	w = serve(r, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":false`)
}

func TestTestMail(t *testing.T) {
	t.Parallel()

	rec := &mailtest.Recorder{}
	r := newRouter(NewHandler(dbtest.New(t), nil, rec, "owner@example.com", t.TempDir()))

	w := serve(r, http.MethodPost, "/api/admin/health/email/test")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.To("owner@example.com"), 1)

	rec.Err = errors.New("smtp down")
	w = serve(r, http.MethodPost, "/api/admin/health/email/test")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "smtp down")

	noAdmin := newRouter(NewHandler(dbtest.New(t), nil, rec, "", t.TempDir()))
	assert.Equal(t, http.StatusUnprocessableEntity, serve(noAdmin, http.MethodPost, "/api/admin/health/email/test").Code)
}

func TestLogs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	today := nativelog.TodayFilename(now)
	old := nativelog.TodayFilename(now.AddDate(0, 0, -3))
	require.NoError(t, os.WriteFile(filepath.Join(dir, today), []byte("today\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, old), []byte("old\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	h := NewHandler(dbtest.New(t), nil, &mailtest.Recorder{}, "", dir)
	h.now = func() time.Time { return now }
	r := newRouter(h)

	w := serve(r, http.MethodGet, "/api/admin/health/log/list")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), today)
	assert.Contains(t, w.Body.String(), old)
	assert.NotContains(t, w.Body.String(), "notes.txt")

	w = serve(r, http.MethodGet, "/api/admin/health/log?filename="+old)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old\n", w.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, serve(r, http.MethodGet, "/api/admin/health/log?filename=notes.txt").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/admin/health/log?filename=missing.log").Code)
	// traversal is flattened to the base name
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/admin/health/log?filename=../../etc/passwd.log").Code)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/admin/health/log?filename="+today).Code)
	info, err := os.Stat(filepath.Join(dir, today))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/admin/health/log?filename="+old).Code)
	_, err = os.Stat(filepath.Join(dir, old))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
