// =============================================================================
// Plan Cost Extractor - Row Name Transformation Engine
// =============================================================================
//
// This module canonicalizes the text fields of normalized rows after the
// scan. Plans from different authors spell the same practice many ways
// ("Fence", "FENCE (382)", "fencing"); profiles map them onto one name so
// reports can be compared across plans.
//
// TRANSFORMATION TYPES:
//   - trim, normalize_whitespace
//   - title_case, uppercase, lowercase
//   - replace, regex_replace
//   - lookup (inline table)
//   - catalog (the profile's XLSX practice catalog)
//
// Only text fields are transformed (name, section, unit). Numeric fields
// are never touched, so totals and reconciliation are unaffected.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// Catalog maps row-name aliases to canonical names.
type Catalog interface {
	Lookup(name string) (string, bool)
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a profile's rules to rows.
type Transformer struct {
	rules   []config.TransformationRule
	catalog Catalog
	regexes map[string]*regexp.Regexp
	title   cases.Caser
}

// NewTransformer compiles the rules. It fails on an invalid regular
// expression or a catalog action without a catalog.
func NewTransformer(rules []config.TransformationRule, catalog Catalog) (*Transformer, error) {
	t := &Transformer{
		rules:   rules,
		catalog: catalog,
		regexes: make(map[string]*regexp.Regexp),
		title:   cases.Title(language.English),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			switch action.Type {
			case "regex_replace":
				if _, ok := t.regexes[action.Find]; ok {
					continue
				}
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("invalid regex pattern %q on field %s: %w", action.Find, rule.Field, err)
				}
				t.regexes[action.Find] = re
			case "catalog":
				if catalog == nil {
					return nil, fmt.Errorf("field %s uses the catalog but no catalog is loaded", rule.Field)
				}
			}
		}
	}

	return t, nil
}

// Empty reports whether the transformer has no rules.
func (t *Transformer) Empty() bool {
	return len(t.rules) == 0
}

// =============================================================================
// TABLE / ROW TRANSFORMATION
// =============================================================================

// TransformTable rewrites the text fields of every normalized row in
// place and returns how many rows changed.
func (t *Transformer) TransformTable(table *types.DetectedTable) (int, error) {
	changed := 0
	for i := range table.Normalized.Rows {
		ok, err := t.TransformRow(&table.Normalized.Rows[i])
		if err != nil {
			return changed, fmt.Errorf("row %d: %w", i+1, err)
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// TransformRow applies every rule to row and reports whether anything
// changed. Nil optional fields stay nil.
func (t *Transformer) TransformRow(row *types.NormalizedRow) (bool, error) {
	changed := false
	for _, rule := range t.rules {
		switch rule.Field {
		case "name":
			v, err := t.Transform(rule, row.Name)
			if err != nil {
				return changed, err
			}
			if v != row.Name {
				row.Name = v
				changed = true
			}
		case "section":
			c, err := t.transformOptional(rule, &row.Section)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		case "unit":
			c, err := t.transformOptional(rule, &row.Unit)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		}
	}
	return changed, nil
}

func (t *Transformer) transformOptional(rule config.TransformationRule, field **string) (bool, error) {
	if *field == nil {
		return false, nil
	}
	v, err := t.Transform(rule, **field)
	if err != nil {
		return false, err
	}
	if v == **field {
		return false, nil
	}
	*field = types.String(v)
	return true, nil
}

// Transform runs one rule's actions over value.
func (t *Transformer) Transform(rule config.TransformationRule, value string) (string, error) {
	result := value
	for _, action := range rule.Actions {
		var err error
		result, err = t.apply(result, action)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// apply applies a single action.
//
// CUSTOMIZATION:
//
//	Add new cases to this switch statement for new transformation types,
//	and list them in config.actionTypes.
func (t *Transformer) apply(value string, action config.TransformationAction) (string, error) {
	switch action.Type {
	case "trim":
		return strings.TrimSpace(value), nil

	case "normalize_whitespace":
		// "Grassed   Waterway " -> "Grassed Waterway"
		return strings.Join(strings.Fields(value), " "), nil

	case "title_case":
		return t.title.String(strings.ToLower(value)), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		re, ok := t.regexes[action.Find]
		if !ok {
			return "", fmt.Errorf("regex %q was not compiled", action.Find)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "catalog":
		if canonical, ok := t.catalog.Lookup(value); ok {
			return canonical, nil
		}
		return value, nil

	default:
		return value, fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}
