package view

import "errors"

var (
	// ErrTemplateNotFound is returned by Render when the name is not registered.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrDirectiveEvaluation marks a @for block that could not be evaluated.
	// The block renders as an empty string; the error only reaches logs and metrics.
	ErrDirectiveEvaluation = errors.New("directive evaluation failed")

	errIterationLimit = errors.New("iteration limit exceeded")
)
