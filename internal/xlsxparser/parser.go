// =============================================================================
// Plan Cost Extractor - Practice Catalog Parser
// =============================================================================
//
// This module reads the practice catalog workbook a profile points at. The
// catalog maps the many spellings plans use for a practice onto one
// canonical name.
//
// CATALOG FORMAT (first sheet):
//   | Alias            | Canonical Name       | Practice Code | Unit  |
//   |------------------|----------------------|---------------|-------|
//   | fencing          | Fence                | 382           | ft    |
//   | FENCE (382)      | Fence                | 382           | ft    |
//   | CAP              | Critical Area Planting | 342         | acre  |
//
//   Row 1 is the header row. Practice Code and Unit are optional. Every
//   canonical name is also registered as an alias of itself.
//
// MATCHING:
//   Lookups ignore case and collapse runs of whitespace.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// CATALOG STRUCTURE
// =============================================================================

// Catalog is a loaded practice catalog.
type Catalog struct {
	// SourceFile is the workbook path.
	SourceFile string

	// Entries are the catalog rows in sheet order.
	Entries []CatalogEntry

	byAlias map[string]int
}

// CatalogEntry is one catalog row.
type CatalogEntry struct {
	Alias     string
	Canonical string
	Code      string
	Unit      string
	Row       int
}

// CatalogColumns configures which column holds which value (0-based).
type CatalogColumns struct {
	AliasColumn     int
	CanonicalColumn int
	CodeColumn      int
	UnitColumn      int
	DataStartRow    int
}

// DefaultCatalogColumns returns the standard layout.
func DefaultCatalogColumns() CatalogColumns {
	return CatalogColumns{
		AliasColumn:     0, // Column A
		CanonicalColumn: 1, // Column B
		CodeColumn:      2, // Column C
		UnitColumn:      3, // Column D
		DataStartRow:    1, // Row 2
	}
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog reads a catalog with the default column layout.
func ParseCatalog(path string) (*Catalog, error) {
	return ParseCatalogWithConfig(path, DefaultCatalogColumns())
}

// ParseCatalogWithConfig reads a catalog workbook.
//
// PARAMETERS:
//   - path: The .xlsx file.
//   - columns: The column layout.
//
// RETURNS:
//   - The catalog.
//   - An error if the workbook cannot be read or two rows give the same
//     alias different canonical names.
func ParseCatalogWithConfig(path string, columns CatalogColumns) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("catalog file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	catalog := &Catalog{
		SourceFile: path,
		byAlias:    make(map[string]int),
	}

	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		cell := func(index int) string {
			if index >= 0 && index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		entry := CatalogEntry{
			Alias:     cell(columns.AliasColumn),
			Canonical: cell(columns.CanonicalColumn),
			Code:      cell(columns.CodeColumn),
			Unit:      cell(columns.UnitColumn),
			Row:       i + 1,
		}
		if entry.Canonical == "" {
			return nil, fmt.Errorf("row %d: missing canonical name", entry.Row)
		}
		if entry.Alias == "" {
			entry.Alias = entry.Canonical
		}

		if err := catalog.add(entry); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

func (c *Catalog) add(entry CatalogEntry) error {
	for _, alias := range []string{entry.Alias, entry.Canonical} {
		key := catalogKey(alias)
		if idx, ok := c.byAlias[key]; ok {
			prev := c.Entries[idx]
			if prev.Canonical != entry.Canonical {
				return fmt.Errorf("row %d: alias %q maps to %q, but row %d maps it to %q",
					entry.Row, alias, entry.Canonical, prev.Row, prev.Canonical)
			}
			continue
		}
		c.byAlias[key] = len(c.Entries)
	}
	c.Entries = append(c.Entries, entry)
	return nil
}

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup returns the canonical name for a row name.
func (c *Catalog) Lookup(name string) (string, bool) {
	entry, ok := c.Entry(name)
	if !ok {
		return "", false
	}
	return entry.Canonical, true
}

// Entry returns the catalog row matching a name.
func (c *Catalog) Entry(name string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	idx, ok := c.byAlias[catalogKey(name)]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.Entries[idx], true
}

// Len returns the number of catalog rows.
func (c *Catalog) Len() int {
	return len(c.Entries)
}

func catalogKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
