package jobmatch

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insights/internal/llm"
)

type part struct {
	field, name, content string
}

func multipartRequest(t *testing.T, path string, parts ...part) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newRouter(m *fakeMatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(&Service{Matcher: m}).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestUploadJD(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/upload", part{"file", "jd.txt", "We need Go and Kubernetes."}))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"jdText":"We need Go and Kubernetes."}`, resp.Body.String())
}

func TestUploadJDUnsupported(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/upload", part{"file", "jd.odt", "x"}))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Unsupported file format. Only PDF, DOCX, TXT supported.")
}

func TestMatchEndpoint(t *testing.T) {
	m := &fakeMatcher{raw: `{"match_score": 72, "suggestions": ["Add Docker"]}`}
	resp := httptest.NewRecorder()
	newRouter(m).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/match",
		part{"resume", "cv.txt", "Go developer"},
		part{"jd", "jd.txt", "Hiring Go developer"},
	))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var res Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, Result{MatchScore: 72, Suggestions: []string{"Add Docker"}}, res)
	assert.Equal(t, "Go developer", m.input.ResumeText)
	assert.Equal(t, "Hiring Go developer", m.input.JobDescription)
}

func TestMatchEndpointNeedsBothFiles(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/match", part{"resume", "cv.txt", "Go"}))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Both resume and JD files are required")
}

func TestMatchEndpointEmptyText(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/match",
		part{"resume", "cv.txt", "Go"},
		part{"jd", "jd.txt", "   "},
	))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Extracted text is empty from resume or JD.")
}

func TestMatchEndpointInvalidModelOutput(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{raw: `{"nope": true}`}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/match",
		part{"resume", "cv.txt", "Go"},
		part{"jd", "jd.txt", "Go"},
	))

	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestMatchEndpointWithoutProvider(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeMatcher{err: llm.ErrNotImplemented}).ServeHTTP(resp, multipartRequest(t, "/api/v1/jd/match",
		part{"resume", "cv.txt", "Go developer"},
		part{"jd", "jd.txt", "Hiring Go developer"},
	))

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "llm_unavailable")
}
