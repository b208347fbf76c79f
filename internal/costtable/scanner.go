// =============================================================================
// Plan Cost Extractor - Span Scanner
// =============================================================================
//
// The scanner walks a line corpus and asks every registered pattern, in
// registration order, whether a table starts at each line.
//
// FAILURE SEMANTICS:
//   - HeaderTest true but Parse nil: a false positive, skipped silently.
//   - A panic inside HeaderTest or Parse: recovered into a PatternCrashError,
//     logged at warn level, and treated as no match for that line.
//   - Scan never panics and never returns an error.
//
// CONCURRENCY:
//   A Scanner holds only the immutable registry and a logger. All per-scan
//   state is local to the call, so one Scanner may serve many goroutines.
//
// =============================================================================

package costtable

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the explicit result of evaluating one pattern at one line.
//
//   - Result != nil: the pattern produced a detection.
//   - Result == nil, Err == nil: no match (or a false positive).
//   - Err != nil: the pattern crashed; Result is nil.
//
// HeaderHit distinguishes a false positive from a plain miss.
type Outcome struct {
	Result    *types.ParseResult
	Err       error
	HeaderHit bool
}

// Matched reports whether the outcome carries a detection.
func (o Outcome) Matched() bool {
	return o.Err == nil && o.Result != nil
}

// PatternCrashError records a panic raised by a dialect.
type PatternCrashError struct {
	PatternID string
	Line      int
	Stage     string
	Value     interface{}
}

func (e *PatternCrashError) Error() string {
	return fmt.Sprintf("pattern %s crashed in %s at line %d: %v", e.PatternID, e.Stage, e.Line, e.Value)
}

// Evaluate runs one pattern at lines[index] and converts panics into an
// Outcome error.
func Evaluate(p PatternDefinition, lines []string, index int) (out Outcome) {
	stage := "headerTest"
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: &PatternCrashError{PatternID: p.ID, Line: index, Stage: stage, Value: r}}
		}
	}()

	if p.HeaderTest == nil || p.Parse == nil {
		return Outcome{}
	}
	if !p.HeaderTest(lines[index], lines, index) {
		return Outcome{}
	}
	stage = "parse"
	return Outcome{Result: p.Parse(lines, index), HeaderHit: true}
}

// =============================================================================
// SCANNER
// =============================================================================

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for crash warnings and debug traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// Scanner detects cost tables using an injected registry.
type Scanner struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewScanner creates a scanner over reg. A nil registry means the default
// catalog.
func NewScanner(reg *Registry, opts ...Option) *Scanner {
	if reg == nil {
		reg = DefaultRegistry()
	}
	s := &Scanner{
		registry: reg,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the catalog this scanner uses.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Report is the detailed result of one scan.
type Report struct {
	// Tables are the surviving detections, ordered by span start.
	Tables []types.DetectedTable

	// Candidates counts detections before overlap resolution.
	Candidates int

	// FalsePositives counts header hits whose parse returned nil.
	FalsePositives int

	// Crashes lists every recovered pattern panic.
	Crashes []*PatternCrashError
}

// Scan returns the detected tables in lines. The result is never nil.
func (s *Scanner) Scan(lines []string) []types.DetectedTable {
	return s.Inspect(lines).Tables
}

// Scan is shorthand for NewScanner(reg).Scan(lines).
func Scan(reg *Registry, lines []string) []types.DetectedTable {
	return NewScanner(reg).Scan(lines)
}

// Inspect scans lines and reports detections together with the counters
// behind them.
func (s *Scanner) Inspect(lines []string) Report {
	patterns := s.registry.patterns
	nextAllowed := make([]int, len(patterns))

	var report Report
	var found []detection

	for i := range lines {
		for order, p := range patterns {
			if i < nextAllowed[order] {
				continue
			}

			out := Evaluate(p, lines, i)
			if out.Err != nil {
				crash, _ := out.Err.(*PatternCrashError)
				report.Crashes = append(report.Crashes, crash)
				s.logger.Warn().
					Str("pattern", p.ID).
					Int("line", i).
					Err(out.Err).
					Msg("pattern crashed; treating as no match")
				continue
			}
			if out.Result == nil {
				if out.HeaderHit {
					report.FalsePositives++
				}
				continue
			}
			if len(out.Result.Normalized.Rows) < p.MinRows || len(out.Result.Normalized.Rows) == 0 {
				report.FalsePositives++
				continue
			}

			table := assemble(p, lines, i, out.Result)
			found = append(found, detection{table: table, order: order, confidence: p.Confidence, catchAll: p.CatchAll})
			nextAllowed[order] = table.SpanEnd + 1

			s.logger.Debug().
				Str("pattern", p.ID).
				Int("span_start", table.SpanStart).
				Int("span_end", table.SpanEnd).
				Int("rows", len(table.Normalized.Rows)).
				Msg("candidate table")
		}
	}

	report.Candidates = len(found)
	report.Tables = resolve(found)
	return report
}
