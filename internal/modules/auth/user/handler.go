package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/middleware"
	"github.com/mx-space/comments/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the profile of the calling member under /members/me
// and member administration under /admin/members.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW ...gin.HandlerFunc) {
	me := rg.Group("/members/me", authMW)
	me.GET("", h.me)
	me.PATCH("", h.updateProfile)

	a := rg.Group("/admin/members", adminMW...)
	a.POST("", h.create)
}

func (h *Handler) me(c *gin.Context) {
	response.OK(c, toResponse(middleware.CurrentMember(c)))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateMemberDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentMember(c).ID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateMemberDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			response.Conflict(c, "Username already taken.")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}
