package backoff

// Strategy is the rule used to derive a raw delay from a retry index.
type Strategy string

const (
	// StrategyExponential grows the delay by Factor on every retry.
	StrategyExponential Strategy = "exponential"

	// StrategyLinear grows the delay by IncrementMs on every retry.
	StrategyLinear Strategy = "linear"

	// StrategyFixed keeps the delay at InitialDelayMs.
	StrategyFixed Strategy = "fixed"
)

// Strategies lists the recognized strategies in display order.
var Strategies = []Strategy{StrategyExponential, StrategyLinear, StrategyFixed}

// IsValid reports whether s is one of the recognized strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyExponential, StrategyLinear, StrategyFixed:
		return true
	default:
		return false
	}
}

// Jitter is the randomization model applied around the capped delay.
type Jitter string

const (
	// JitterNone applies no randomization.
	JitterNone Jitter = "none"

	// JitterEqual keeps half of the delay and randomizes the other half.
	JitterEqual Jitter = "equal"

	// JitterFull randomizes the delay uniformly between zero and the cap.
	JitterFull Jitter = "full"
)

// Jitters lists the recognized jitter modes in display order.
var Jitters = []Jitter{JitterNone, JitterEqual, JitterFull}

// IsValid reports whether j is one of the recognized jitter modes.
// The empty value is not a mode; use ResolveJitter to apply the default.
func (j Jitter) IsValid() bool {
	switch j {
	case JitterNone, JitterEqual, JitterFull:
		return true
	default:
		return false
	}
}

// ResolveJitter returns j when it is a recognized mode and JitterNone
// otherwise. Absent, stale or unknown values coming from shared links or
// older clients fall back to no jitter.
func ResolveJitter(j Jitter) Jitter {
	if j.IsValid() {
		return j
	}
	return JitterNone
}

// BackoffConfig describes a retry policy.
//
// Numeric fields are float64 because they mirror raw numeric input: NaN marks
// a value that failed to parse and a fractional MaxRetries is representable so
// that ValidateConfig can reject it. Fields that do not apply to Strategy are
// ignored.
type BackoffConfig struct {
	// Strategy selects the raw delay formula.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// InitialDelayMs is the delay before the first retry.
	InitialDelayMs float64 `json:"initialDelayMs" yaml:"initialDelayMs"`

	// MaxRetries is the number of retries after the initial request.
	MaxRetries float64 `json:"maxRetries" yaml:"maxRetries"`

	// MaxDelayMs caps every delay. Nil means uncapped.
	MaxDelayMs *float64 `json:"maxDelayMs" yaml:"maxDelayMs"`

	// Factor is the growth multiplier (exponential only).
	Factor float64 `json:"factor" yaml:"factor"`

	// IncrementMs is the per-retry increment (linear only).
	IncrementMs float64 `json:"incrementMs" yaml:"incrementMs"`

	// Jitter selects the randomization model. Empty means JitterNone.
	Jitter Jitter `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

// Retries returns MaxRetries as an int. It is only meaningful on a
// configuration that passed validation.
func (c *BackoffConfig) Retries() int {
	return int(c.MaxRetries)
}

// HasCap reports whether a maximum delay is configured.
func (c *BackoffConfig) HasCap() bool {
	return c.MaxDelayMs != nil
}

// Cap returns a pointer to v, for use as BackoffConfig.MaxDelayMs.
func Cap(v float64) *float64 {
	return &v
}

// RetryPoint is one row of a schedule.
type RetryPoint struct {
	Retry                int     `json:"retry"`
	RawDelayMs           float64 `json:"rawDelayMs"`
	MinDelayMs           float64 `json:"minDelayMs"`
	ExpectedDelayMs      float64 `json:"expectedDelayMs"`
	MaxDelayMs           float64 `json:"maxDelayMs"`
	DelayMs              float64 `json:"delayMs"`
	CumulativeDelayMs    float64 `json:"cumulativeDelayMs"`
	CumulativeMinDelayMs float64 `json:"cumulativeMinDelayMs"`
	CumulativeMaxDelayMs float64 `json:"cumulativeMaxDelayMs"`
}

// ScheduleSummary condenses a schedule.
type ScheduleSummary struct {
	TotalRetries int     `json:"totalRetries"`
	FinalDelayMs float64 `json:"finalDelayMs"`
	TotalDelayMs float64 `json:"totalDelayMs"`
}
