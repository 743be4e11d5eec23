package render

import (
	"fmt"
	"strings"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

// formula builds explanation lines for one explanation.
type formula struct {
	expl        *backoff.ChartMathExplanation
	f           *Formatter
	substituted bool
}

// Formula returns the formula lines behind an explanation. The symbolic form
// keeps every variable; the substituted form replaces variables with their
// bound values and appends the resolved results when a retry is active.
func Formula(expl *backoff.ChartMathExplanation, substituted bool, f *Formatter) []string {
	fm := formula{expl: expl, f: f, substituted: substituted}

	lines := []string{fm.rawLine(), fm.capLine(), fm.jitterLine()}
	if expl.ChartMode == backoff.ChartModeCumulative {
		lines = append(lines, fm.cumulativeLine())
	}
	if expl.ActiveRetry != nil && substituted {
		lines = append(lines, fm.chartedLine())
	}
	return lines
}

// sym returns the display of a binding: its symbol, or its value when
// substituting.
func (fm formula) sym(key backoff.BindingKey) string {
	b, ok := fm.expl.Binding(key)
	if !ok {
		return ""
	}
	if !fm.substituted || b.Value.IsSymbolic() {
		return b.Symbol
	}
	if b.Value.Kind == backoff.BindingNumber {
		return fm.f.Number(b.Value.Number)
	}
	return b.Value.String()
}

func (fm formula) result(v *float64) string {
	if !fm.substituted || v == nil {
		return ""
	}
	return " = " + fm.f.Number(*v)
}

func (fm formula) rawLine() string {
	r := fm.sym(backoff.BindingRetry)
	d0 := fm.sym(backoff.BindingInitialDelay)

	var expr string
	switch fm.expl.Strategy {
	case backoff.StrategyExponential:
		expr = fmt.Sprintf("%s · %s^(%s − 1)", d0, fm.sym(backoff.BindingFactor), r)
	case backoff.StrategyLinear:
		expr = fmt.Sprintf("%s + (%s − 1) · %s", d0, r, fm.sym(backoff.BindingIncrement))
	default:
		expr = d0
	}

	return fmt.Sprintf("raw(%s) = %s%s", r, expr, fm.result(fm.expl.Resolved.RawDelayMs))
}

func (fm formula) capLine() string {
	r := fm.sym(backoff.BindingRetry)
	if !fm.expl.HasCap {
		return fmt.Sprintf("capped(%s) = raw(%s)%s", r, r, fm.result(fm.expl.Resolved.CappedDelayMs))
	}
	return fmt.Sprintf("capped(%s) = min(raw(%s), %s)%s",
		r, r, fm.sym(backoff.BindingCap), fm.result(fm.expl.Resolved.CappedDelayMs))
}

func (fm formula) jitterLine() string {
	r := fm.sym(backoff.BindingRetry)
	res := fm.expl.Resolved

	var expr, lo, hi string
	switch fm.expl.Jitter {
	case backoff.JitterEqual:
		expr = fmt.Sprintf("0.75 · capped(%s)", r)
		lo, hi = fmt.Sprintf("capped(%s) / 2", r), fmt.Sprintf("capped(%s)", r)
	case backoff.JitterFull:
		expr = fmt.Sprintf("0.5 · capped(%s)", r)
		lo, hi = "0", fmt.Sprintf("capped(%s)", r)
	default:
		return fmt.Sprintf("E(%s) = capped(%s)%s", r, r, fm.result(res.ExpectedDelayMs))
	}

	line := fmt.Sprintf("E(%s) = %s%s, range [%s, %s]", r, expr, fm.result(res.ExpectedDelayMs), lo, hi)
	if fm.substituted && res.MinDelayMs != nil && res.MaxDelayMs != nil {
		line += fmt.Sprintf(" = [%s, %s]", fm.f.Number(*res.MinDelayMs), fm.f.Number(*res.MaxDelayMs))
	}
	return line
}

func (fm formula) cumulativeLine() string {
	r := fm.sym(backoff.BindingRetry)
	line := fmt.Sprintf("Σ(%s) = Σ capped(k), k = 1…%s%s", r, r, fm.result(fm.expl.Resolved.BaseChartValueMs))

	res := fm.expl.Resolved
	if fm.substituted && res.RandomizedExpectedValueMs != nil && fm.expl.Jitter != backoff.JitterNone {
		line += fmt.Sprintf(", expected %s in [%s, %s]",
			fm.f.Number(*res.RandomizedExpectedValueMs),
			fm.f.Number(*res.RandomizedMinValueMs),
			fm.f.Number(*res.RandomizedMaxValueMs))
	}
	return line
}

func (fm formula) chartedLine() string {
	res := fm.expl.Resolved
	line := fmt.Sprintf("%s(%d) = %s", fm.expl.ChartSourceSymbol, *fm.expl.ActiveRetry, fm.f.Number(*res.ChartedValueMs))
	if res.ChartedMinMs != nil && res.ChartedMaxMs != nil && *res.ChartedMinMs != *res.ChartedMaxMs {
		line += fmt.Sprintf(" in [%s, %s]", fm.f.Number(*res.ChartedMinMs), fm.f.Number(*res.ChartedMaxMs))
	}
	return line
}

// Bindings renders the visible variable bindings as "symbol = value" pairs.
func Bindings(expl *backoff.ChartMathExplanation, f *Formatter) string {
	parts := make([]string, 0, len(expl.VariableBindings))
	for _, b := range expl.VariableBindings {
		if !b.Visible {
			continue
		}
		value := b.Value.String()
		if b.Value.Kind == backoff.BindingNumber {
			value = f.Number(b.Value.Number)
		}
		parts = append(parts, fmt.Sprintf("%s = %s", b.Symbol, value))
	}
	return strings.Join(parts, ", ")
}
