package documents_test

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

	"resume-insights/internal/documents"
	"resume-insights/internal/shared/server/middleware"
	"resume-insights/internal/shared/storage/object/local"
)

func newRouter(t *testing.T, userID string, guest bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &documents.Service{Store: local.New(t.TempDir()), Repo: documents.NewMemoryRepo()}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, userID, guest)
		c.Next()
	})
	documents.NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func multipartBody(t *testing.T, fileName string, content []byte, kind string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	if kind != "" {
		require.NoError(t, writer.WriteField("kind", kind))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentsUploadAndCurrent(t *testing.T) {
	router := newRouter(t, "guest:test-guest", true)

	body, contentType := multipartBody(t, "resume.pdf", []byte("%PDF-1.4\n%fake\n"), "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created documents.DocumentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.DocumentID)
	assert.Equal(t, documents.KindResume, created.Kind)
	assert.Equal(t, "application/pdf", created.MimeType)

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	require.Equal(t, http.StatusOK, respGet.Code)

	var current documents.DocumentResponse
	require.NoError(t, json.NewDecoder(respGet.Body).Decode(&current))
	assert.Equal(t, created.DocumentID, current.DocumentID)
	assert.Equal(t, "resume.pdf", current.FileName)
}

func TestDocumentsRejectsNonPDFResume(t *testing.T) {
	router := newRouter(t, "user-1", false)

	body, contentType := multipartBody(t, "hello.txt", []byte("hello world"), "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)
	assert.Contains(t, resp.Body.String(), "unsupported_file_type")
}

func TestDocumentsAcceptsTextJobDescription(t *testing.T) {
	router := newRouter(t, "user-1", false)

	body, contentType := multipartBody(t, "jd.txt", []byte("Senior Go engineer"), documents.KindJobDescription)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"mimeType":"text/plain"`)
}

func TestDocumentsCurrentNotFound(t *testing.T) {
	router := newRouter(t, "user-1", false)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDocumentsListRequiresLogin(t *testing.T) {
	router := newRouter(t, "guest:abc", true)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "login_required")
}
