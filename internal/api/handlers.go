package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
	"github.com/vyrodovalexey/avabackoff/internal/chart"
	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
	"github.com/vyrodovalexey/avabackoff/internal/render"
)

// LocaleQuery overrides the configured locale for formula rendering.
const LocaleQuery = "locale"

// BuildPolicyResponse computes everything the API reports for a set of form
// values. sampler may be nil.
func BuildPolicyResponse(values form.Values, sampler *chart.Sampler) PolicyResponse {
	cfg := values.Config()
	errs := backoff.ValidateConfig(cfg)

	resp := PolicyResponse{
		Values: values,
		Query:  form.Encode(values),
		Valid:  !errs.HasErrors(),
		Errors: backoff.ValidationErrors{},
	}
	if errs.HasErrors() {
		resp.Errors = errs
		return resp
	}

	points, err := backoff.GenerateSchedule(cfg)
	if err == nil {
		err = backoff.CheckOverflow(points)
	}
	if err != nil {
		var overflow *backoff.OverflowError
		if errors.As(err, &overflow) {
			resp.Errors = backoff.ValidationErrors{overflow.ValidationError()}
		}
		resp.Valid = false
		return resp
	}

	summary := backoff.Summarize(points)
	series := chart.BuildSeries(points, chart.Options{
		ChartMode:  values.ChartModeValue(),
		SeriesMode: values.SeriesModeValue(),
		Sampler:    sampler,
	})

	resp.Config = cfg
	resp.Points = points
	resp.Summary = &summary
	resp.Series = &series
	return resp
}

// handleValidate reports every validation error of a configuration.
func (s *Server) handleValidate(c *gin.Context) {
	var cfg backoff.BackoffConfig
	if !s.bind(c, &cfg) {
		return
	}

	errs := s.validate(c, &cfg)
	if errs == nil {
		errs = backoff.ValidationErrors{}
	}
	c.JSON(http.StatusOK, ValidationResponse{Valid: !errs.HasErrors(), Errors: errs})
}

// handleSchedule computes the schedule of a configuration.
func (s *Server) handleSchedule(c *gin.Context) {
	var cfg backoff.BackoffConfig
	if !s.bind(c, &cfg) {
		return
	}
	if errs := s.validate(c, &cfg); errs.HasErrors() {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Errors: errs})
		return
	}

	start := time.Now()
	points, err := backoff.GenerateSchedule(&cfg)
	if err == nil {
		err = backoff.CheckOverflow(points)
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.metrics.RecordSchedule(string(cfg.Strategy), string(backoff.ResolveJitter(cfg.Jitter)), len(points))
	if span := GetSpan(c); span != nil {
		span.SetAttributes(
			attribute.String("backoff.strategy", string(cfg.Strategy)),
			attribute.Int("backoff.retries", len(points)),
		)
	}
	s.logger.WithContext(c.Request.Context()).Debug("schedule generated",
		observability.String("strategy", string(cfg.Strategy)),
		observability.Int("retries", len(points)),
		observability.Duration("elapsed", time.Since(start)),
	)

	c.JSON(http.StatusOK, ScheduleResponse{
		Config:  &cfg,
		Points:  points,
		Summary: backoff.Summarize(points),
	})
}

// handleExplain builds the explanation of one chart selection along with its
// rendered formula lines.
func (s *Server) handleExplain(c *gin.Context) {
	var req backoff.ExplanationContext
	if !s.bind(c, &req) {
		return
	}
	if req.Config == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "config is required",
		})
		return
	}
	if errs := s.validate(c, req.Config); errs.HasErrors() {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Errors: errs})
		return
	}

	expl, err := backoff.BuildChartMathExplanation(req)
	if err == nil {
		err = expl.CheckOverflow()
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.metrics.RecordExplanation(string(expl.ChartMode), string(expl.SeriesMode))

	f := s.formatter(c)
	c.JSON(http.StatusOK, ExplainResponse{
		Explanation: expl,
		Formula: FormulaLines{
			Symbolic:    render.Formula(expl, false, f),
			Substituted: render.Formula(expl, true, f),
		},
		Bindings: render.Bindings(expl, f),
	})
}

// handleSeries projects a configuration into a chart series.
func (s *Server) handleSeries(c *gin.Context) {
	var req SeriesRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Config == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "config is required",
		})
		return
	}
	if errs := s.validate(c, req.Config); errs.HasErrors() {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Errors: errs})
		return
	}

	points, err := backoff.GenerateSchedule(req.Config)
	if err == nil {
		err = backoff.CheckOverflow(points)
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	var sampler *chart.Sampler
	if req.Seed != 0 {
		sampler = chart.NewSampler(req.Seed)
	}

	c.JSON(http.StatusOK, chart.BuildSeries(points, chart.Options{
		ChartMode:  req.ChartMode,
		SeriesMode: req.SeriesMode,
		Sampler:    sampler,
	}))
}

// handleDecodeShare restores a policy from share query parameters.
func (s *Server) handleDecodeShare(c *gin.Context) {
	values := form.FromQuery(c.Request.URL.Query())
	resp := BuildPolicyResponse(values, nil)
	if !resp.Valid {
		s.metrics.RecordValidationFailures(fieldsOf(resp.Errors)...)
	}
	c.JSON(http.StatusOK, resp)
}

// handleEncodeShare encodes form values into a share query.
func (s *Server) handleEncodeShare(c *gin.Context) {
	var req ShareRequest
	if !s.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, ShareResponse{Query: form.Encode(req.Values)})
}

// handlePolicy returns the current default policy.
func (s *Server) handlePolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.Policy())
}

// bind decodes the JSON body and answers 400 when it does not parse.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return false
	}
	return true
}

// validate validates cfg and counts failures per field.
func (s *Server) validate(c *gin.Context, cfg *backoff.BackoffConfig) backoff.ValidationErrors {
	errs := backoff.ValidateConfig(cfg)
	if errs.HasErrors() {
		s.metrics.RecordValidationFailures(fieldsOf(errs)...)
		s.logger.WithContext(c.Request.Context()).Debug("configuration rejected",
			observability.String("errors", errs.Messages()),
		)
	}
	return errs
}

// abortWithError maps a computation error to a response. Invalid and
// overflowing configurations answer 422.
func (s *Server) abortWithError(c *gin.Context, err error) {
	var invalid *backoff.InvalidConfigError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{Errors: invalid.Errors})
		return
	}

	var overflow *backoff.OverflowError
	if errors.As(err, &overflow) {
		s.logger.WithContext(c.Request.Context()).Debug("schedule overflows",
			observability.Int("retry", overflow.Retry),
		)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "schedule_overflow",
			Message: overflow.Error(),
		})
		return
	}

	s.logger.WithContext(c.Request.Context()).Error("request failed", observability.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// formatter returns the formatter for the request locale.
func (s *Server) formatter(c *gin.Context) *render.Formatter {
	if locale := strings.TrimSpace(c.Query(LocaleQuery)); locale != "" {
		return render.NewFormatter(locale)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}

func fieldsOf(errs backoff.ValidationErrors) []string {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}
