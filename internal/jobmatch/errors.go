package jobmatch

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyText         = errors.New("extracted text is empty")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidOutput     = errors.New("llm returned non-JSON output")
)

// Client-facing messages.
const (
	msgUnsupportedFormat = "Unsupported file format. Only PDF, DOCX, TXT supported."
	msgEmptyText         = "Extracted text is empty from resume or JD."
)
