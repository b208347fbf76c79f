// =============================================================================
// Plan Cost Extractor - Pattern Registry
// =============================================================================
//
// The registry is the ordered catalog of table dialects the scanner knows.
// Each entry bundles a header-detection predicate with a row parser.
//
// ARCHITECTURE:
//   - A Registry is immutable once built. Filter returns a new Registry.
//   - Registration order is significant: the scanner iterates patterns in
//     this order and the overlap resolver uses it as the final tie-break.
//   - The registry is handed to the scanner explicitly, so tests can inject
//     reduced or mock catalogs.
//
// =============================================================================

package costtable

import (
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// =============================================================================
// PATTERN DEFINITION
// =============================================================================

// HeaderTest decides whether a candidate block starts at lines[index].
type HeaderTest func(line string, lines []string, index int) bool

// ParseFunc reads the block starting at lines[start]. It returns nil when the
// candidate does not hold up on closer inspection.
type ParseFunc func(lines []string, start int) *types.ParseResult

// PatternDefinition describes one recognized table dialect.
type PatternDefinition struct {
	// ID is the stable identifier reported as normalized.patternId.
	ID string

	// Description is a one-line human summary of the dialect.
	Description string

	// Confidence is the static patternConfidence in [0.45, 0.95].
	Confidence float64

	// MinRows is the minimum number of normalized rows a detection needs.
	MinRows int

	// CatchAll marks the low-precision recall backstop.
	CatchAll bool

	HeaderTest HeaderTest
	Parse      ParseFunc
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is an immutable, ordered list of pattern definitions.
type Registry struct {
	patterns []PatternDefinition
	index    map[string]int
}

// NewRegistry builds a registry from defs in the given order. Later
// definitions with a duplicate ID are ignored.
func NewRegistry(defs ...PatternDefinition) *Registry {
	r := &Registry{
		patterns: make([]PatternDefinition, 0, len(defs)),
		index:    make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if _, exists := r.index[def.ID]; exists {
			continue
		}
		r.index[def.ID] = len(r.patterns)
		r.patterns = append(r.patterns, def)
	}
	return r
}

// DefaultRegistry returns the full built-in dialect catalog.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// defaultRegistry is built once; Registry values are never mutated.
var defaultRegistry = NewRegistry(
	practiceUnitNRCSCosts(),
	practiceSizeCost(),
	bmpQuantityUnitCost(),
	fundingSources(),
	landownerMatch(),
	costRangeMinMax(),
	rangeCostTable(),
	perUnitRate(),
	bmpCostList(),
	codedBudget(),
	narrativeCostBlock(),
	adaptiveDollarCluster(),
)

// Patterns returns a copy of the registered definitions in order.
func (r *Registry) Patterns() []PatternDefinition {
	out := make([]PatternDefinition, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (PatternDefinition, bool) {
	i, ok := r.index[id]
	if !ok {
		return PatternDefinition{}, false
	}
	return r.patterns[i], true
}

// Filter returns a new registry restricted to the enabled IDs (all when
// enabled is empty) minus the disabled IDs. Order is preserved.
func (r *Registry) Filter(enabled, disabled []string) *Registry {
	allow := toSet(enabled)
	deny := toSet(disabled)

	var defs []PatternDefinition
	for _, def := range r.patterns {
		if len(allow) > 0 && !allow[def.ID] {
			continue
		}
		if deny[def.ID] {
			continue
		}
		defs = append(defs, def)
	}
	return NewRegistry(defs...)
}

// MinRows returns the declared minimum row count per pattern ID.
func (r *Registry) MinRows() map[string]int {
	out := make(map[string]int, len(r.patterns))
	for _, def := range r.patterns {
		out[def.ID] = def.MinRows
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
