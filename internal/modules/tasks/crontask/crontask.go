// Package crontask exposes the background job scheduler to administrators.
package crontask

import (
	"context"

	"github.com/gin-gonic/gin"
	pkgcron "github.com/mx-space/comments/internal/pkg/cron"
	"github.com/mx-space/comments/internal/pkg/response"
)

// Handler wraps the scheduler for HTTP access.
type Handler struct {
	sched *pkgcron.Scheduler
}

func NewHandler(sched *pkgcron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	g := rg.Group("/admin/cron-task", adminMW...)
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /admin/cron-task
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /admin/cron-task/:name
func (h *Handler) get(c *gin.Context) {
	result, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, "Job not found.")
		return
	}
	response.OK(c, result)
}

// POST /admin/cron-task/:name/run
//
// Runs the job in the background; poll GET /:name for the outcome.
func (h *Handler) run(c *gin.Context) {
	if err := h.sched.Run(context.WithoutCancel(c.Request.Context()), c.Param("name")); err != nil {
		response.NotFoundMsg(c, "Job not found.")
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}
