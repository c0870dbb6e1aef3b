// Package health reports service liveness and lets administrators check the
// mail setup and read the native log files.
package health

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pkgmail "github.com/mx-space/comments/internal/pkg/mail"
	"github.com/mx-space/comments/internal/pkg/nativelog"
	pkgredis "github.com/mx-space/comments/internal/pkg/redis"
	"github.com/mx-space/comments/internal/pkg/response"
	"gorm.io/gorm"
)

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// Handler serves the health endpoints. redis may be nil.
type Handler struct {
	db         *gorm.DB
	redis      *pkgredis.Client
	mailer     pkgmail.Mailer
	adminEmail string
	logDir     string
	now        func() time.Time
}

func NewHandler(db *gorm.DB, redis *pkgredis.Client, mailer pkgmail.Mailer, adminEmail, logDir string) *Handler {
	return &Handler{
		db:         db,
		redis:      redis,
		mailer:     mailer,
		adminEmail: adminEmail,
		logDir:     nativelog.ResolveDir(logDir),
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	rg.GET("/health", h.health)

	admin := rg.Group("/admin/health", adminMW...)
	admin.POST("/email/test", h.testMail)
	admin.GET("/log/list", h.listLogs)
	admin.GET("/log", h.readLog)
	admin.DELETE("/log", h.deleteLog)
}

func (h *Handler) health(c *gin.Context) {
	ctx := c.Request.Context()
	sqlDB, err := h.db.DB()
	dbOK := err == nil && sqlDB.PingContext(ctx) == nil

	res := gin.H{"database": dbOK}
	ok := dbOK
	if h.redis != nil {
		redisOK := h.redis.Raw().Ping(ctx).Err() == nil
		res["redis"] = redisOK
		ok = ok && redisOK
	}

	code := http.StatusOK
	res["status"] = "ok"
	if !ok {
		code = http.StatusServiceUnavailable
		res["status"] = "degraded"
	}
	c.JSON(code, res)
}

func (h *Handler) testMail(c *gin.Context) {
	if h.adminEmail == "" {
		response.UnprocessableEntity(c, "site.admin_email is not set.")
		return
	}
	err := h.mailer.Send(c.Request.Context(), pkgmail.Message{
		To:      []string{h.adminEmail},
		Subject: "Comments mail test",
		Text:    "If you can read this, outgoing mail is configured correctly.",
	})
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *Handler) listLogs(c *gin.Context) {
	entries, err := os.ReadDir(h.logDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.OK(c, []logItem{})
			return
		}
		response.InternalError(c, err)
		return
	}

	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: entry.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Created > items[j].Created
	})
	response.OK(c, items)
}

// logPath resolves the filename query inside the log directory.
func (h *Handler) logPath(c *gin.Context) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "" || filename == "." || filename == string(filepath.Separator) || !strings.HasSuffix(filename, ".log") {
		response.UnprocessableEntity(c, "filename must name a log file")
		return "", false
	}
	return filepath.Join(h.logDir, filename), true
}

func (h *Handler) readLog(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		response.NotFoundMsg(c, "Log file not found.")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// deleteLog removes a log file. Today's file is still being written and is
// truncated instead.
func (h *Handler) deleteLog(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	var err error
	if filepath.Base(path) == nativelog.TodayFilename(h.now()) {
		err = os.Truncate(path, 0)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
