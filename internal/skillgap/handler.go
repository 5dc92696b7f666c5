package skillgap

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"resume-insights/internal/shared/server/middleware"
	"resume-insights/internal/shared/server/respond"
)

// Handler exposes the skill gap endpoints.
type Handler struct {
	Svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/skill-gap", h.analyze)
	rg.PUT("/skill-gap/skills/:name", h.setLevel)
}

type setLevelRequest struct {
	CurrentLevel  *int `json:"currentLevel" validate:"required,min=0,max=100"`
	RequiredLevel *int `json:"requiredLevel" validate:"required,min=0,max=100"`
}

func (h *Handler) analyze(c *gin.Context) {
	report, err := h.Svc.Analyze(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, report)
}

func (h *Handler) setLevel(c *gin.Context) {
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid skill levels", respond.ValidationDetails(err))
		return
	}

	gap, err := h.Svc.SetLevel(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("name"), *req.CurrentLevel, *req.RequiredLevel)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gap)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "skill not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute skill gap", nil)
	}
}
