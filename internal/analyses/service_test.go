package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insights/internal/documents"
	"resume-insights/internal/llm"
	"resume-insights/internal/queue"
	"resume-insights/internal/scoring"
	"resume-insights/internal/shared/storage/object"
	"resume-insights/internal/shared/storage/object/local"
)

const workedExampleResponse = `{
  "ats_score": 71.6,
  "clarity_score": 60,
  "experience": "Increased sales by 20% and led a team of 5. Developed a new CI/CD pipeline using Docker.",
  "education": "Bachelor in CS",
  "skills": {"technical": ["Python"], "soft": [], "tools": ["Docker"]},
  "strengths": ["Strong leader", "Quick learner"],
  "weaknesses": [],
  "missing_keywords": ["Kubernetes"],
  "job_matches": ["Backend Engineer"]
}`

const twoWeaknessResponse = `{
  "experience": "Increased sales by 20% and led a team of 5. Developed a new CI/CD pipeline using Docker.",
  "education": "Bachelor in CS",
  "skills": {"technical": ["Python"], "tools": ["Docker"]},
  "strengths": ["Strong leader", "Quick learner"],
  "weaknesses": ["No certifications", "Short tenure"]
}`

// scriptedLLM returns responses in order; the last one repeats.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	fixJSON   []bool
}

func (s *scriptedLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	_, fix := llm.FixJSONFromContext(ctx)
	s.fixJSON = append(s.fixJSON, fix)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	return json.RawMessage(s.responses[min(i, len(s.responses)-1)]), nil
}

func (s *scriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingQueue struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepo
	docs  *documents.MemoryRepo
	store object.ObjectStore
	docID string
}

const testUser = "user-1"

func setupService(t *testing.T, client llm.Client) fixture {
	t.Helper()
	store := local.New(t.TempDir())
	return setupServiceWithStore(t, client, store, true)
}

func setupServiceWithStore(t *testing.T, client llm.Client, store object.ObjectStore, preExtracted bool) fixture {
	t.Helper()
	ctx := context.Background()
	docRepo := documents.NewMemoryRepo()

	doc := documents.Document{
		ID:              "doc-1",
		UserID:          testUser,
		Kind:            documents.KindResume,
		FileName:        "resume.txt",
		MimeType:        "text/plain",
		StorageProvider: store.Provider(),
		StorageKey:      "ns/resume.txt",
		CreatedAt:       time.Now().UTC(),
	}
	if _, ok := store.(*local.Store); ok {
		if _, err := store.SaveWithKey(ctx, doc.StorageKey, "text/plain", strings.NewReader("Go engineer resume text")); err != nil {
			t.Fatalf("save resume: %v", err)
		}
		if preExtracted {
			doc.ExtractedTextKey = doc.StorageKey + ".extracted.txt"
			if _, err := store.SaveWithKey(ctx, doc.ExtractedTextKey, "text/plain", strings.NewReader("Go engineer resume text")); err != nil {
				t.Fatalf("save extracted text: %v", err)
			}
		}
	} else {
		doc.ExtractedTextKey = "missing-key"
	}
	if err := docRepo.Create(ctx, doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	repo := NewMemoryRepo()
	svc := &Service{
		Repo:       repo,
		DocRepo:    docRepo,
		Store:      store,
		LLM:        client,
		Provider:   "fake",
		Model:      "fake-1",
		retryDelay: time.Millisecond,
	}
	return fixture{svc: svc, repo: repo, docs: docRepo, store: store, docID: doc.ID}
}

func (f fixture) seedQueued(t *testing.T, id string, createdAt time.Time) {
	t.Helper()
	err := f.repo.Create(context.Background(), Analysis{
		ID:         id,
		DocumentID: f.docID,
		UserID:     testUser,
		FileName:   "resume.txt",
		Status:     StatusQueued,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}
}

func (f fixture) process(t *testing.T, id string) Analysis {
	t.Helper()
	if err := f.svc.ProcessAnalysis(context.Background(), id); err != nil {
		t.Fatalf("process analysis: %v", err)
	}
	got, err := f.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	return got
}

func TestProcessAnalysisScoresLocally(t *testing.T) {
	f := setupService(t, &scriptedLLM{responses: []string{workedExampleResponse}})
	f.seedQueued(t, "a-1", time.Now().UTC())

	got := f.process(t, "a-1")

	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Scores)
	assert.Equal(t, scoring.Scores{ATS: 27, Clarity: 44, Overall: 36}, *got.Scores)
	require.NotNil(t, got.ReportedATSScore)
	assert.Equal(t, 72, *got.ReportedATSScore)
	assert.Equal(t, 60, *got.ReportedClarityScore)
	assert.Equal(t, TrendNeutral, got.Trend)
	assert.Equal(t, 0, got.PreviousScore)
	assert.Equal(t, []string{"Python", "Docker"}, got.Result.AllSkills())
	assert.Equal(t, []string{"Kubernetes"}, got.Result.MissingKeywords)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.ErrorCode)
}

func TestProcessAnalysisTrendAgainstPreviousCompleted(t *testing.T) {
	client := &scriptedLLM{responses: []string{workedExampleResponse}}
	f := setupService(t, client)
	now := time.Now().UTC()
	f.seedQueued(t, "a-1", now)
	f.seedQueued(t, "a-2", now.Add(time.Minute))

	first := f.process(t, "a-1")
	require.Equal(t, 36, first.Scores.Overall)

	client.responses = []string{twoWeaknessResponse}
	second := f.process(t, "a-2")

	require.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, scoring.Scores{ATS: 17, Clarity: 38, Overall: 28}, *second.Scores)
	assert.Equal(t, TrendDown, second.Trend)
	assert.Equal(t, 36, second.PreviousScore)
	assert.Nil(t, second.ReportedATSScore)
}

func TestFailureCodeLLMTimeout(t *testing.T) {
	client := &scriptedLLM{errs: []error{context.DeadlineExceeded, context.DeadlineExceeded}}
	f := setupService(t, client)
	f.seedQueued(t, "a-timeout", time.Now().UTC())

	got := f.process(t, "a-timeout")

	if got.Status != StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}
	if got.ErrorCode != ErrorCodeLLMTimeout {
		t.Fatalf("expected error code %s, got %s", ErrorCodeLLMTimeout, got.ErrorCode)
	}
	if !got.ErrorRetryable {
		t.Fatalf("expected retryable true for timeout")
	}
	if client.Calls() != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", client.Calls())
	}
	if got.Scores != nil {
		t.Fatalf("scores must not be set on failure")
	}
}

func TestRetryOnTimeoutSucceeds(t *testing.T) {
	client := &scriptedLLM{errs: []error{context.DeadlineExceeded}, responses: []string{workedExampleResponse}}
	f := setupService(t, client)
	f.seedQueued(t, "a-retry", time.Now().UTC())

	got := f.process(t, "a-retry")

	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s", got.Status)
	}
	if client.Calls() != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", client.Calls())
	}
}

func TestFailureCodeLLMSchemaMismatch(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"strengths": "not a list"}`}}
	f := setupService(t, client)
	f.seedQueued(t, "a-schema", time.Now().UTC())

	got := f.process(t, "a-schema")

	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, ErrorCodeLLMSchemaMismatch, got.ErrorCode)
	assert.False(t, got.ErrorRetryable)
	assert.Equal(t, []bool{false, true}, client.fixJSON)
	assert.Contains(t, got.ErrorMessage, "strengths")
}

func TestSchemaRepairSucceeds(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"weaknesses": 3}`, workedExampleResponse}}
	f := setupService(t, client)
	f.seedQueued(t, "a-repair", time.Now().UTC())

	got := f.process(t, "a-repair")

	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 36, got.Scores.Overall)
}

func TestInvalidJSONFromProvider(t *testing.T) {
	client := &scriptedLLM{errs: []error{fmt.Errorf("engine: %w", llm.ErrInvalidJSON)}}
	f := setupService(t, client)
	f.seedQueued(t, "a-json", time.Now().UTC())

	got := f.process(t, "a-json")

	assert.Equal(t, ErrorCodeLLMSchemaMismatch, got.ErrorCode)
	assert.Equal(t, 1, client.Calls())
}

type failingOpenStore struct{}

func (failingOpenStore) Save(context.Context, string, string, io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("save not supported")
}

func (failingOpenStore) SaveWithKey(context.Context, string, string, io.Reader) (int64, error) {
	return 0, errors.New("save not supported")
}

func (failingOpenStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("storage open failed")
}

func (failingOpenStore) Provider() string { return "broken" }

func TestFailureCodeStorageError(t *testing.T) {
	client := &scriptedLLM{responses: []string{workedExampleResponse}}
	f := setupServiceWithStore(t, client, failingOpenStore{}, true)
	f.seedQueued(t, "a-storage", time.Now().UTC())

	got := f.process(t, "a-storage")

	if got.ErrorCode != ErrorCodeStorage {
		t.Fatalf("expected error code %s, got %s", ErrorCodeStorage, got.ErrorCode)
	}
	if !got.ErrorRetryable {
		t.Fatalf("expected retryable true for storage error")
	}
	if client.Calls() != 0 {
		t.Fatalf("LLM must not be called without resume text")
	}
}

func TestProcessAnalysisExtractsAndCachesText(t *testing.T) {
	f := setupServiceWithStore(t, &scriptedLLM{responses: []string{workedExampleResponse}}, local.New(t.TempDir()), false)
	f.seedQueued(t, "a-extract", time.Now().UTC())

	got := f.process(t, "a-extract")
	require.Equal(t, StatusCompleted, got.Status)

	doc, err := f.docs.GetByID(context.Background(), testUser, f.docID)
	require.NoError(t, err)
	assert.Equal(t, "ns/resume.txt.extracted.txt", doc.ExtractedTextKey)
	data, err := object.ReadAll(context.Background(), f.store, doc.ExtractedTextKey, 0)
	require.NoError(t, err)
	assert.Equal(t, "Go engineer resume text", string(data))
}

func TestProcessAnalysisSkipsNonQueued(t *testing.T) {
	client := &scriptedLLM{responses: []string{workedExampleResponse}}
	f := setupService(t, client)
	f.seedQueued(t, "a-done", time.Now().UTC())
	f.process(t, "a-done")

	require.NoError(t, f.svc.ProcessAnalysis(context.Background(), "a-done"))
	assert.Equal(t, 1, client.Calls())
}

// startInterrupted leaves id in processing as if a worker died mid-run.
func (f fixture) startInterrupted(t *testing.T, id string, startedAt time.Time) {
	t.Helper()
	f.seedQueued(t, id, startedAt)
	err := f.repo.Transition(context.Background(), id, StatusQueued, StatusProcessing, Update{StartedAt: &startedAt})
	require.NoError(t, err)
}

func TestRedeliveryWhileProcessingIsRetried(t *testing.T) {
	client := &scriptedLLM{responses: []string{workedExampleResponse}}
	f := setupService(t, client)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.startInterrupted(t, "a-busy", now.Add(-time.Minute))

	err := f.svc.ProcessAnalysis(context.Background(), "a-busy")
	require.ErrorIs(t, err, ErrStillProcessing)

	got, err := f.repo.GetByID(context.Background(), "a-busy")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 0, client.Calls())
}

func TestRedeliveryFailsAbandonedAnalysis(t *testing.T) {
	client := &scriptedLLM{responses: []string{workedExampleResponse}}
	f := setupService(t, client)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.svc.StaleAfter = 10 * time.Minute
	f.startInterrupted(t, "a-stuck", now.Add(-11*time.Minute))

	got := f.process(t, "a-stuck")

	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, ErrorCodeInternal, got.ErrorCode)
	assert.True(t, got.ErrorRetryable)
	assert.Contains(t, got.ErrorMessage, "abandoned")
	assert.Equal(t, 0, client.Calls())

	// A further redelivery finds a terminal status and is dropped.
	require.NoError(t, f.svc.ProcessAnalysis(context.Background(), "a-stuck"))
}

type panicLLM struct{}

func (panicLLM) AnalyzeResume(context.Context, llm.AnalyzeInput) (json.RawMessage, error) {
	panic("boom")
}

func TestProcessAnalysisRecoversPanic(t *testing.T) {
	f := setupService(t, panicLLM{})
	f.seedQueued(t, "a-panic", time.Now().UTC())

	got := f.process(t, "a-panic")

	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, ErrorCodeInternal, got.ErrorCode)
	assert.Contains(t, got.ErrorMessage, "panic: boom")
}

func TestCreatePublishesToQueue(t *testing.T) {
	f := setupService(t, &scriptedLLM{responses: []string{workedExampleResponse}})
	q := &recordingQueue{}
	f.svc.Queue = q

	ctx := WithRequestID(context.Background(), "req-1")
	a, err := f.svc.Create(ctx, f.docID, testUser)
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, a.Status)
	assert.Equal(t, "resume.txt", a.FileName)
	assert.Equal(t, "fake", a.Provider)
	require.Len(t, q.messages, 1)
	assert.Equal(t, a.ID, q.messages[0].AnalysisID)
	assert.Equal(t, "req-1", q.messages[0].RequestID)
	assert.Equal(t, 1, q.messages[0].Version)

	stored, err := f.repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, stored.Status)
}

func TestCreateFailsAnalysisWhenQueueRejects(t *testing.T) {
	f := setupService(t, &scriptedLLM{})
	f.svc.Queue = &recordingQueue{err: errors.New("queue down")}

	_, err := f.svc.Create(context.Background(), f.docID, testUser)
	require.Error(t, err)

	list, err := f.repo.List(context.Background(), testUser, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusFailed, list[0].Status)
}

func TestCreateRunsInProcessWithoutQueue(t *testing.T) {
	f := setupService(t, &scriptedLLM{responses: []string{workedExampleResponse}})

	a, err := f.svc.Create(context.Background(), f.docID, testUser)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := f.repo.GetByID(context.Background(), a.ID)
		return err == nil && got.Status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateValidation(t *testing.T) {
	f := setupService(t, &scriptedLLM{})

	_, err := f.svc.Create(context.Background(), "", testUser)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Create(context.Background(), "missing", testUser)
	assert.ErrorIs(t, err, documents.ErrNotFound)

	_, err = f.svc.Create(context.Background(), f.docID, "someone-else")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err       error
		code      string
		retryable bool
	}{
		{fmt.Errorf("x: %w", context.DeadlineExceeded), ErrorCodeLLMTimeout, true},
		{errors.New("llm analyze: openrouter request timeout: dial"), ErrorCodeLLMTimeout, true},
		{&SchemaError{Fields: []string{"a"}}, ErrorCodeLLMSchemaMismatch, false},
		{fmt.Errorf("%w: doc", ErrStorage), ErrorCodeStorage, true},
		{fmt.Errorf("%w: empty", ErrInvalidInput), ErrorCodeValidation, false},
		{ErrAbandoned, ErrorCodeInternal, true},
		{errors.New("something else"), ErrorCodeInternal, false},
		{nil, ErrorCodeInternal, false},
	}
	for _, tc := range cases {
		code, retryable := classifyFailure(tc.err)
		assert.Equal(t, tc.code, code, "%v", tc.err)
		assert.Equal(t, tc.retryable, retryable, "%v", tc.err)
	}
}

func TestSanitizeError(t *testing.T) {
	msg := sanitizeError(errors.New("line one\nline two\r\n" + strings.Repeat("x", 600)))
	assert.NotContains(t, msg, "\n")
	assert.LessOrEqual(t, len(msg), 500)
	assert.True(t, strings.HasPrefix(msg, "line one line two"))
}
