package usecase

import (
	"log/slog"

	"FeedbackBot/internal/ports"
)

// ReportsDeps wires delivery collaborators.
type ReportsDeps struct {
	Compiler *Compiler
	Renderer ports.Renderer
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Reports formats compiled bundles and delivers them to a single chat.
type Reports struct {
	compiler *Compiler
	renderer ports.Renderer
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewReports constructs the delivery use case.
func NewReports(deps ReportsDeps) *Reports {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{
		compiler: deps.Compiler,
		renderer: deps.Renderer,
		notifier: deps.Notifier,
		logger:   logger,
	}
}
