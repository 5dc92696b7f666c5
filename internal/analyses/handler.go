package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-insights/internal/documents"
	"resume-insights/internal/scoring"
	"resume-insights/internal/shared/server/middleware"
	"resume-insights/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc   *Service
	Docs  *documents.Service
	polls *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, docs *documents.Service) *Handler {
	return &Handler{Svc: svc, Docs: docs, polls: newPollLimiter(pollLimitWindow, nil)}
}

// RegisterRoutes attaches analysis and dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.startAnalysis)
	rg.POST("/upload-resume", h.uploadResume)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/latest", h.latest)
	rg.GET("/analyses/current", h.current)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/dashboard/stats", h.dashboardStats)
	rg.GET("/dashboard/recent", h.dashboardRecent)
	rg.POST("/score", h.score)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	analysis, err := h.Svc.Create(c.Request.Context(), documentID, userID)
	if err != nil {
		writeCreateError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	c.Set("statusTransition", "->queued")
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) uploadResume(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, documents.MaxUploadSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Only PDF files allowed.", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Docs.Upload(c.Request.Context(), userID, fileHeader.Filename, file, documents.KindResume)
	if err != nil {
		documents.WriteUploadError(c, err)
		return
	}
	c.Set("documentId", doc.ID)

	analysis, err := h.Svc.Create(c.Request.Context(), doc.ID, userID)
	if err != nil {
		writeCreateError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"documentId": doc.ID,
		"status":     analysis.Status,
	})
}

func writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
	}
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	c.Set("analysisId", analysisID)

	analysis, err := h.Svc.Get(c.Request.Context(), userID, analysisID)
	if err != nil {
		writeLookupError(c, err, "failed to fetch analysis")
		return
	}
	if analysis.Terminal() {
		h.polls.Forget(userID, analysisID)
	} else if !h.polls.Allow(userID, analysisID) {
		c.Header("Retry-After", strconv.Itoa(h.polls.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}
	respond.OK(c, analysis)
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)

	filter := ListFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", defaultListLimit),
		Offset: queryInt(c, "offset", 0),
	}
	analyses, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		writeLookupError(c, err, "failed to list analyses")
		return
	}
	respond.OK(c, analyses)
}

func (h *Handler) latest(c *gin.Context) {
	analysis, err := h.Svc.Latest(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "No resume analysis found", nil)
			return
		}
		writeLookupError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) current(c *gin.Context) {
	view, err := h.Svc.Current(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		writeLookupError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, view)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	stats, err := h.Svc.DashboardStats(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeLookupError(c, err, "failed to load dashboard")
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) dashboardRecent(c *gin.Context) {
	recent, err := h.Svc.Recent(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeLookupError(c, err, "failed to load dashboard")
		return
	}
	respond.OK(c, recent)
}

type scoreRequest struct {
	Skills     []string `json:"skills" binding:"max=500,dive,max=200"`
	Experience string   `json:"experience" binding:"max=100000"`
	Education  string   `json:"education" binding:"max=20000"`
	Strengths  []string `json:"strengths" binding:"max=200,dive,max=1000"`
	Weaknesses []string `json:"weaknesses" binding:"max=200,dive,max=1000"`
}

type scoreResponse struct {
	scoring.Scores
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
}

func (h *Handler) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", respond.ValidationDetails(err))
		return
	}
	scores, breakdown := h.Svc.ScoreDraft(scoring.Input{
		Skills:     req.Skills,
		Experience: req.Experience,
		Education:  req.Education,
		Strengths:  req.Strengths,
		Weaknesses: req.Weaknesses,
	})
	resp := scoreResponse{Scores: scores}
	if c.Query("explain") == "true" {
		resp.Breakdown = &breakdown
	}
	respond.OK(c, resp)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
