package analyses

import "errors"

var (
	ErrNotFound          = errors.New("analysis not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSchemaMismatch    = errors.New("llm output does not match schema")
	// ErrStorage marks failures reading or writing documents and records.
	ErrStorage = errors.New("storage failure")
	// ErrStillProcessing is returned for a redelivery while another run may
	// still be working on the analysis.
	ErrStillProcessing = errors.New("analysis still processing")
	// ErrAbandoned is recorded when a run stopped without reporting an outcome.
	ErrAbandoned = errors.New("analysis abandoned while processing")
)

// Error codes persisted on failed analyses.
const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
