package api

import (
	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/chart"
	"github.com/vyrodovalexey/avabackoff/internal/form"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationResponse is the body of POST /api/v1/validate, and of 422
// responses.
type ValidationResponse struct {
	Valid  bool                     `json:"valid"`
	Errors backoff.ValidationErrors `json:"errors"`
}

// ScheduleResponse is the body of a computed schedule.
type ScheduleResponse struct {
	Config  *backoff.BackoffConfig  `json:"config"`
	Points  []backoff.RetryPoint    `json:"points"`
	Summary backoff.ScheduleSummary `json:"summary"`
}

// SeriesRequest is the body of POST /api/v1/series.
type SeriesRequest struct {
	Config     *backoff.BackoffConfig `json:"config"`
	ChartMode  backoff.ChartMode      `json:"chartMode"`
	SeriesMode backoff.SeriesMode     `json:"seriesMode"`

	// Seed makes simulated series reproducible. Zero draws a fresh seed.
	Seed int64 `json:"seed"`
}

// ExplainResponse is the body of POST /api/v1/explain.
type ExplainResponse struct {
	Explanation *backoff.ChartMathExplanation `json:"explanation"`
	Formula     FormulaLines                  `json:"formula"`
	Bindings    string                        `json:"bindings"`
}

// FormulaLines holds both renderings of an explanation.
type FormulaLines struct {
	Symbolic    []string `json:"symbolic"`
	Substituted []string `json:"substituted"`
}

// ShareRequest is the body of POST /api/v1/share.
type ShareRequest struct {
	Values form.Values `json:"values"`
}

// ShareResponse carries an encoded share query.
type ShareResponse struct {
	Query string `json:"query"`
}

// PolicyResponse is the body of GET /api/v1/share, GET /api/v1/policy and
// of stream messages: form values and, when they are valid, the parsed
// configuration with its schedule and expected-value series.
type PolicyResponse struct {
	Values  form.Values              `json:"values"`
	Query   string                   `json:"query"`
	Valid   bool                     `json:"valid"`
	Errors  backoff.ValidationErrors `json:"errors"`
	Config  *backoff.BackoffConfig   `json:"config,omitempty"`
	Points  []backoff.RetryPoint     `json:"points,omitempty"`
	Summary *backoff.ScheduleSummary `json:"summary,omitempty"`
	Series  *chart.Series            `json:"series,omitempty"`
}
