package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-insights/internal/documents"
	"resume-insights/internal/extract"
	"resume-insights/internal/llm"
	"resume-insights/internal/queue"
	"resume-insights/internal/scoring"
	"resume-insights/internal/shared/metrics"
	"resume-insights/internal/shared/storage/object"
	"resume-insights/internal/shared/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
	maxErrorMessage  = 500
	// maxExtractedText bounds how much cached text is read back for the prompt.
	maxExtractedText = 1 << 20
)

// DefaultStaleAfter matches the worker's default SQS visibility timeout.
const DefaultStaleAfter = 20 * time.Minute

// Service contains business logic for analyses.
type Service struct {
	Repo    Repo
	DocRepo documents.DocumentsRepo
	Store   object.ObjectStore
	LLM     llm.Client
	// Queue, when set, receives a message per analysis instead of running it
	// in-process.
	Queue           queue.Client
	Provider        string
	Model           string
	AnalysisVersion string
	// StaleAfter is how long an analysis may stay in processing before a
	// redelivered message fails it. DefaultStaleAfter when zero.
	StaleAfter time.Duration

	now        func() time.Time
	retryDelay time.Duration
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Create records a queued analysis for one of the user's documents and starts it.
func (s *Service) Create(ctx context.Context, documentID, userID string) (Analysis, error) {
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(userID) == "" {
		return Analysis{}, fmt.Errorf("%w: documentID and userID are required", ErrInvalidInput)
	}
	doc, err := s.DocRepo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Analysis{}, err
	}

	now := s.clock()
	analysis := Analysis{
		ID:              uuid.NewString(),
		DocumentID:      doc.ID,
		UserID:          userID,
		FileName:        doc.FileName,
		Status:          StatusQueued,
		AnalysisVersion: normalizeAnalysisVersion(s.AnalysisVersion),
		Provider:        normalizeProvider(s.Provider),
		Model:           s.Model,
		Trend:           TrendNeutral,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       doc.ID,
		"analysis_id":       analysis.ID,
		"status":            StatusQueued,
		"status_transition": "->queued",
	})

	if s.Queue != nil {
		msg := queue.NewMessage(analysis.ID, RequestIDFromContext(ctx), now)
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.failAnalysis(ctx, analysis, StatusQueued, fmt.Errorf("enqueue: %w", err), nil)
			return Analysis{}, fmt.Errorf("enqueue analysis %s: %w", analysis.ID, err)
		}
		return analysis, nil
	}

	go s.completeAsync(backgroundWithRequestID(ctx), analysis.ID)
	return analysis, nil
}

func (s *Service) completeAsync(ctx context.Context, analysisID string) {
	if err := s.ProcessAnalysis(ctx, analysisID); err != nil {
		telemetry.Error("analysis.process_failed", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": analysisID,
			"error":       sanitizeError(err),
		})
	}
}

// ProcessAnalysis runs a queued analysis to completion. Failures inside the
// pipeline are recorded on the analysis and are not returned; an error means
// the outcome could not be recorded and the caller may retry.
//
// A redelivered message for an analysis still in processing returns
// ErrStillProcessing until StaleAfter has passed since it started; after
// that the analysis is failed as abandoned. Completed and failed analyses
// are left alone.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) (err error) {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup: %w", err)
	}
	switch analysis.Status {
	case StatusQueued:
	case StatusProcessing:
		return s.recoverProcessing(ctx, analysis)
	default:
		telemetry.Info("analysis.skip", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": analysisID,
			"status":      analysis.Status,
		})
		return nil
	}

	startedAt := s.clock()
	if err := s.Repo.Transition(ctx, analysisID, StatusQueued, StatusProcessing, Update{StartedAt: &startedAt}); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("set processing: %w", err)
	}
	metrics.IncAnalysisStarted()
	s.logStatus(ctx, analysis, StatusProcessing, "queued->processing", nil, nil)

	defer func() {
		if r := recover(); r != nil {
			err = s.failAnalysis(ctx, analysis, StatusProcessing, fmt.Errorf("panic: %v", r), &startedAt)
		}
	}()

	update, runErr := s.run(ctx, analysis)
	if runErr != nil {
		return s.failAnalysis(ctx, analysis, StatusProcessing, runErr, &startedAt)
	}

	completedAt := s.clock()
	update.CompletedAt = &completedAt
	if err := s.Repo.Transition(ctx, analysisID, StatusProcessing, StatusCompleted, update); err != nil {
		return s.failAnalysis(ctx, analysis, StatusProcessing, fmt.Errorf("%w: set completed: %v", ErrStorage, err), &startedAt)
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	if update.Scores != nil {
		metrics.ObserveOverallScore(update.Scores.Overall)
	}
	s.logStatus(ctx, analysis, StatusCompleted, "processing->completed", &startedAt, &completedAt)
	return nil
}

func (s *Service) recoverProcessing(ctx context.Context, analysis Analysis) error {
	staleAfter := s.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if analysis.StartedAt != nil && s.clock().Sub(*analysis.StartedAt) < staleAfter {
		telemetry.Info("analysis.in_flight", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"started_at":  analysis.StartedAt,
		})
		return fmt.Errorf("analysis %s: %w", analysis.ID, ErrStillProcessing)
	}
	return s.failAnalysis(ctx, analysis, StatusProcessing, ErrAbandoned, analysis.StartedAt)
}

// run loads the résumé text, asks the model, and scores the normalized result.
func (s *Service) run(ctx context.Context, analysis Analysis) (Update, error) {
	if s.DocRepo == nil || s.Store == nil {
		return Update{}, errors.New("missing document store dependencies")
	}
	if s.LLM == nil {
		return Update{}, errors.New("missing llm client")
	}

	text, err := s.loadResumeText(ctx, analysis)
	if err != nil {
		return Update{}, err
	}

	client := newRetryingLLM(s.LLM, analysis.ID, RequestIDFromContext(ctx), s.retryDelay)
	input := llm.AnalyzeInput{ResumeText: text, PromptVersion: llm.DefaultPromptVersion}

	raw, err := client.AnalyzeResume(ctx, input)
	if err != nil {
		return Update{}, fmt.Errorf("llm analyze: %w", err)
	}
	parsed, err := ParseResult(raw)
	if err != nil {
		telemetry.Warn("analysis.schema_retry", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"error":       sanitizeError(err),
		})
		raw, err = client.AnalyzeResume(llm.WithFixJSON(ctx, string(raw)), input)
		if err != nil {
			return Update{}, fmt.Errorf("llm analyze retry: %w", err)
		}
		if parsed, err = ParseResult(raw); err != nil {
			return Update{}, fmt.Errorf("llm output invalid: %w", err)
		}
	}

	scores := scoring.Score(parsed.Result.ScoringInput())
	trend, previous, err := s.trend(ctx, analysis, scores.Overall)
	if err != nil {
		return Update{}, err
	}

	return Update{
		Result:               &parsed.Result,
		Scores:               &scores,
		ReportedATSScore:     parsed.ReportedATS,
		ReportedClarityScore: parsed.ReportedClarity,
		Trend:                trend,
		PreviousScore:        &previous,
	}, nil
}

func (s *Service) loadResumeText(ctx context.Context, analysis Analysis) (string, error) {
	doc, err := s.DocRepo.GetByID(ctx, analysis.UserID, analysis.DocumentID)
	if err != nil {
		return "", fmt.Errorf("%w: document lookup id=%s: %v", ErrStorage, analysis.DocumentID, err)
	}

	if doc.ExtractedTextKey == "" {
		text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
		if err != nil {
			if errors.Is(err, extract.ErrNoText) || errors.Is(err, extract.ErrUnsupported) {
				return "", fmt.Errorf("%w: document %s: %w", ErrInvalidInput, doc.ID, err)
			}
			return "", fmt.Errorf("%w: document %s: %v", ErrStorage, doc.ID, err)
		}
		if err := s.DocRepo.UpdateExtraction(ctx, doc.UserID, doc.ID, doc.StorageKey+extract.ExtractedSuffix, s.clock()); err != nil {
			return "", fmt.Errorf("%w: document %s: update extraction: %v", ErrStorage, doc.ID, err)
		}
		return text, nil
	}

	data, err := object.ReadAll(ctx, s.Store, doc.ExtractedTextKey, maxExtractedText)
	if err != nil {
		return "", fmt.Errorf("%w: document %s: load extracted text: %v", ErrStorage, doc.ID, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: document %s: %w", ErrInvalidInput, doc.ID, extract.ErrNoText)
	}
	return text, nil
}

// trend compares overall against the user's previous completed analysis.
func (s *Service) trend(ctx context.Context, analysis Analysis, overall int) (string, int, error) {
	prev, err := s.Repo.PreviousCompleted(ctx, analysis.UserID, analysis.ID)
	if errors.Is(err, ErrNotFound) || (err == nil && prev.Scores == nil) {
		return TrendNeutral, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: previous analysis: %v", ErrStorage, err)
	}
	previous := prev.Scores.Overall
	switch {
	case overall > previous:
		return TrendUp, previous, nil
	case overall < previous:
		return TrendDown, previous, nil
	default:
		return TrendNeutral, previous, nil
	}
}

// failAnalysis records a failure. It returns an error only when the failure
// could not be written.
func (s *Service) failAnalysis(ctx context.Context, analysis Analysis, from string, cause error, startedAt *time.Time) error {
	code, retryable := classifyFailure(cause)
	msg := sanitizeError(cause)
	completedAt := s.clock()
	u := Update{ErrorCode: &code, ErrorMessage: &msg, ErrorRetryable: &retryable, CompletedAt: &completedAt}

	// Record the failure even if the request context is already done.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.Repo.Transition(writeCtx, analysis.ID, from, StatusFailed, u); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"error":       err,
			"cause":       msg,
		})
		return fmt.Errorf("record failure for %s: %w", analysis.ID, err)
	}
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	s.logStatus(ctx, analysis, StatusFailed, from+"->failed", startedAt, &completedAt)
	telemetry.Warn("analysis.failed", map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"analysis_id": analysis.ID,
		"error_code":  code,
		"retryable":   retryable,
		"error":       msg,
	})
	return nil
}

func (s *Service) logStatus(ctx context.Context, a Analysis, status, transition string, startedAt, completedAt *time.Time) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           a.UserID,
		"document_id":       a.DocumentID,
		"analysis_id":       a.ID,
		"status":            status,
		"status_transition": transition,
	}
	if startedAt != nil && completedAt != nil {
		fields["duration_ms"] = durationMs(startedAt, completedAt)
	}
	telemetry.Info("analysis.status", fields)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrorCodeValidation, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeLLMTimeout, true
	case errors.Is(err, ErrSchemaMismatch), errors.Is(err, llm.ErrInvalidJSON):
		return ErrorCodeLLMSchemaMismatch, false
	case errors.Is(err, ErrStorage):
		return ErrorCodeStorage, true
	case errors.Is(err, ErrAbandoned):
		return ErrorCodeInternal, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "request timeout") || (strings.Contains(msg, "timeout") && strings.Contains(msg, "llm")) {
		return ErrorCodeLLMTimeout, true
	}
	return ErrorCodeInternal, false
}

// sanitizeError flattens err to a single line of at most maxErrorMessage bytes.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorMessage {
		msg = strings.ToValidUTF8(msg[:maxErrorMessage], "")
	}
	return msg
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "placeholder"
	}
	return strings.TrimSpace(provider)
}

func normalizeAnalysisVersion(version string) string {
	if strings.TrimSpace(version) == "" {
		return "unknown"
	}
	return strings.TrimSpace(version)
}
