package jobmatch

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"resume-insights/internal/documents"
	"resume-insights/internal/llm"
	"resume-insights/internal/shared/server/respond"
)

// Handler exposes job description upload and matching.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jd/upload", h.upload)
	rg.POST("/jd/match", h.match)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, documents.MaxUploadSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	text, err := extractUpload(c.Request.Context(), fh)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"jdText": text})
}

func (h *Handler) match(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*documents.MaxUploadSize+1<<20)
	resumeFile, resumeErr := c.FormFile("resume")
	jdFile, jdErr := c.FormFile("jd")
	if resumeErr != nil || jdErr != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Both resume and JD files are required", nil)
		return
	}

	var resumeText, jdText string
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		resumeText, err = extractUpload(ctx, resumeFile)
		return err
	})
	g.Go(func() error {
		var err error
		jdText, err = extractUpload(ctx, jdFile)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(c, err)
		return
	}

	res, err := h.Svc.Match(c.Request.Context(), resumeText, jdText)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, res)
}

func extractUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > documents.MaxUploadSize {
		return "", ErrInvalidInput
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, documents.MaxUploadSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > documents.MaxUploadSize {
		return "", ErrInvalidInput
	}
	return ExtractJD(ctx, fh.Filename, data)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "unsupported_file_type", msgUnsupportedFormat, nil)
	case errors.Is(err, ErrEmptyText):
		respond.Error(c, http.StatusBadRequest, "validation_error", msgEmptyText, nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the upload limit", nil)
	case errors.Is(err, ErrInvalidOutput):
		respond.Error(c, http.StatusBadGateway, "llm_invalid_output", "LLM returned non-JSON output", nil)
	case errors.Is(err, llm.ErrNotImplemented):
		respond.Error(c, http.StatusServiceUnavailable, "llm_unavailable", "no LLM provider is configured", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "llm_timeout", "model did not answer in time", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to match resume", nil)
	}
}
