// =============================================================================
// Plan Cost Extractor - Converter Module
// =============================================================================
//
// This module contains the per-document pipeline. It orchestrates the whole
// run for a single input file, from line loading to report writing.
//
// CONVERSION PIPELINE:
//   1. Load the document lines
//   2. Build the pattern registry for the profile
//   3. Scan for cost tables
//   4. Apply the profile's confidence floor
//   5. Canonicalize row names (rules + practice catalog)
//   6. Audit the detected tables
//   7. Write the reports (json, xml, xlsx)
//   8. Archive the processed files
//
// CONCURRENCY:
//   A Converter handles one file. The CLI runs one Converter per file in its
//   own goroutine; converters share nothing but the read-only registry.
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/corpus"
	"github.com/ginjaninja78/plan-cost-extractor/internal/costtable"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
	"github.com/ginjaninja78/plan-cost-extractor/internal/validation"
	"github.com/ginjaninja78/plan-cost-extractor/internal/xlsxparser"
	"github.com/ginjaninja78/plan-cost-extractor/internal/xmlwriter"
	"github.com/ginjaninja78/plan-cost-extractor/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Profile is the code of the profile used.
	Profile string

	// OutputFiles are the reports written, one per configured format.
	// Empty on failure and on dry runs.
	OutputFiles []string

	// ArchivePath is where the input was moved, when archival ran.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Report and Audit are set once the scan and audit have run, even when
	// a later step fails.
	Report *types.Report
	Audit  *validation.ValidationResult

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// LinesScanned is the number of document lines.
	LinesScanned int

	// Candidates is the number of detections before overlap resolution.
	Candidates int

	// FalsePositives counts header hits that did not yield a table.
	FalsePositives int

	// PatternCrashes counts recovered dialect panics.
	PatternCrashes int

	// TablesDetected is the number of tables in the report.
	TablesDetected int

	// TablesBelowConfidence counts tables dropped by the profile's floor.
	TablesBelowConfidence int

	// RowsExtracted is the number of normalized rows in the report.
	RowsExtracted int

	// RowsTransformed counts rows whose text fields the profile rewrote.
	RowsTransformed int

	// AuditErrors and AuditWarnings count audit findings by severity.
	AuditErrors   int
	AuditWarnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the pipeline for one input file.
type Converter struct {
	inputPath  string
	profile    *config.Profile
	mainConfig *config.MainConfig

	registry    *costtable.Registry
	fileManager *utils.FileManager
	logger      zerolog.Logger
	dryRun      bool
	now         func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// WithRegistry replaces the default pattern registry before the profile
// filter is applied.
func WithRegistry(reg *costtable.Registry) Option {
	return func(c *Converter) { c.registry = reg }
}

// WithDryRun scans and audits without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// WithFileManager overrides the file manager built from the main config.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) { c.fileManager = fm }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the extracted-text file.
//   - profile: The document profile; nil means config.DefaultProfile().
//   - mainConfig: The main application configuration.
//   - opts: Optional settings.
//
// RETURNS:
//   - A new Converter instance.
func New(inputPath string, profile *config.Profile, mainConfig *config.MainConfig, opts ...Option) *Converter {
	if profile == nil {
		profile = config.DefaultProfile()
	}
	c := &Converter{
		inputPath:  inputPath,
		profile:    profile,
		mainConfig: mainConfig,
		registry:   costtable.DefaultRegistry(),
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fileManager == nil {
		c.fileManager = utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
		c.fileManager.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess
	}
	c.logger = c.logger.With().
		Str("file", filepath.Base(inputPath)).
		Str("profile", profile.Code).
		Logger()
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
//
// The context is checked between steps; a cancelled run stops before
// writing anything.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := c.now()
	result := Result{
		FilePath: c.inputPath,
		Profile:  c.profile.Code,
	}
	defer func() {
		result.Stats.ProcessingTime = c.now().Sub(startTime)
	}()

	// =========================================================================
	// STEP 1: LOAD DOCUMENT
	// =========================================================================

	c.logger.Info().Msg("processing file")

	doc, err := corpus.Load(c.inputPath, corpus.Options{NormalizeUnicode: c.mainConfig.UnicodeNormalization()})
	if err != nil {
		result.Error = fmt.Errorf("failed to load document: %w", err)
		return result
	}
	result.Stats.LinesScanned = doc.LineCount
	c.logger.Debug().Int("lines", doc.LineCount).Int("non_blank", doc.NonBlankCount).Msg("loaded document")

	// =========================================================================
	// STEPS 2-6: SCAN, FILTER, TRANSFORM, AUDIT
	// =========================================================================

	report, audit, err := c.Analyze(ctx, doc, &result.Stats)
	result.Report, result.Audit = report, audit
	if err != nil {
		result.Error = err
		return result
	}

	if audit.ErrorCount > 0 {
		for _, f := range audit.Errors {
			c.logger.Warn().Str("severity", f.Severity).Str("rule", f.Rule).Msg(f.Error())
		}
		if !c.mainConfig.ContinueOnError {
			result.Error = fmt.Errorf("audit failed with %d errors", audit.ErrorCount)
			return result
		}
	}

	if c.dryRun {
		c.logger.Info().
			Int("tables", result.Stats.TablesDetected).
			Int("rows", result.Stats.RowsExtracted).
			Msg("dry run; no reports written")
		result.Success = true
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	// =========================================================================
	// STEP 7: WRITE REPORTS
	// =========================================================================

	outputs, err := c.writeOutputs(report, audit)
	result.OutputFiles = outputs
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	for _, out := range outputs {
		c.logger.Info().Str("output", out).Msg("wrote report")
	}

	// =========================================================================
	// STEP 8: ARCHIVE FILES
	// =========================================================================

	archivePath, err := c.archiveFiles(outputs)
	if err != nil {
		// Log the error but don't fail the processing.
		c.logger.Warn().Err(err).Msg("failed to archive files")
	}
	result.ArchivePath = archivePath

	result.Success = true
	return result
}

// Analyze runs the in-memory part of the pipeline on a loaded document:
// scan, confidence floor, name transformation and audit. stats may be nil.
func (c *Converter) Analyze(ctx context.Context, doc *corpus.Document, stats *ProcessingStats) (*types.Report, *validation.ValidationResult, error) {
	if stats == nil {
		stats = &ProcessingStats{}
	}

	// STEP 2: registry for this profile.
	reg := c.registry.Filter(c.profile.EnabledPatterns, c.profile.DisabledPatterns)
	if reg.Len() == 0 {
		return nil, nil, fmt.Errorf("profile %s enables no patterns", c.profile.Code)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// STEP 3: scan.
	scanner := costtable.NewScanner(reg, costtable.WithLogger(c.logger))
	scan := scanner.Inspect(doc.Lines)
	stats.Candidates = scan.Candidates
	stats.FalsePositives = scan.FalsePositives
	stats.PatternCrashes = len(scan.Crashes)

	// STEP 4: confidence floor.
	tables := make([]types.DetectedTable, 0, len(scan.Tables))
	for _, t := range scan.Tables {
		if t.Normalized.PatternConfidence < c.profile.MinConfidence {
			stats.TablesBelowConfidence++
			c.logger.Debug().
				Str("pattern", t.Normalized.PatternID).
				Float64("confidence", t.Normalized.PatternConfidence).
				Msg("table below profile confidence floor")
			continue
		}
		tables = append(tables, t)
	}

	// STEP 5: name transformation.
	transformer, err := c.newTransformer()
	if err != nil {
		return nil, nil, err
	}
	if !transformer.Empty() {
		for i := range tables {
			n, err := transformer.TransformTable(&tables[i])
			if err != nil {
				return nil, nil, fmt.Errorf("failed to apply transformations to table %s: %w", tables[i].ID, err)
			}
			stats.RowsTransformed += n
		}
	}

	report := &types.Report{
		Source:      filepath.Base(c.inputPath),
		Profile:     c.profile.Code,
		GeneratedAt: c.now().UTC(),
		LineCount:   doc.LineCount,
		Tables:      tables,
	}
	stats.TablesDetected = len(tables)
	stats.RowsExtracted = report.RowCount()

	// STEP 6: audit.
	validator := validation.NewValidatorWithOptions(validation.ValidationOptions{
		DiscrepancyTolerance: c.mainConfig.DiscrepancyTolerance,
		MinRows:              reg.MinRows(),
	})
	audit := validator.ValidateAll(tables)
	stats.AuditErrors = audit.ErrorCount
	stats.AuditWarnings = audit.WarningCount

	c.logger.Debug().
		Int("candidates", scan.Candidates).
		Int("tables", len(tables)).
		Int("findings", len(audit.Errors)).
		Msg("scan complete")

	return report, audit, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newTransformer loads the profile's practice catalog, if any, and compiles
// its name rules.
func (c *Converter) newTransformer() (*Transformer, error) {
	var catalog Catalog
	if c.profile.PracticeCatalog != "" {
		cat, err := xlsxparser.ParseCatalog(c.profile.PracticeCatalog)
		if err != nil {
			return nil, fmt.Errorf("failed to load practice catalog: %w", err)
		}
		c.logger.Debug().Int("entries", cat.Len()).Str("catalog", c.profile.PracticeCatalog).Msg("loaded practice catalog")
		catalog = cat
	}

	t, err := NewTransformer(c.profile.NameRules, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to compile name rules: %w", err)
	}
	return t, nil
}

// writeOutputs writes one report per configured format.
//
// FILE NAMING:
//   The base name comes from OutputNameFormat and is shared by every
//   format, so plan_swcd_20261017_093005.json and .xml sit side by side.
func (c *Converter) writeOutputs(report *types.Report, audit *validation.ValidationResult) ([]string, error) {
	base := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, "", map[string]string{
		"original": utils.OriginalName(c.inputPath),
		"profile":  c.profile.Code,
	})

	var written []string
	for _, format := range c.mainConfig.OutputFormats {
		format = strings.ToLower(format)
		data, err := Render(format, report, audit)
		if err != nil {
			return written, err
		}

		outputPath := filepath.Join(c.mainConfig.OutputDir, base+"."+format)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write file: %w", err)
		}
		written = append(written, outputPath)
	}
	return written, nil
}

// archiveFiles moves the input to the input archive and copies every report
// to the output archive. It returns the input's archive path.
func (c *Converter) archiveFiles(outputs []string) (string, error) {
	for _, out := range outputs {
		if _, err := c.fileManager.ArchiveOutputFile(out); err != nil {
			return "", fmt.Errorf("failed to archive output file: %w", err)
		}
	}

	archivePath, err := c.fileManager.ArchiveInputFile(c.inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to archive input file: %w", err)
	}
	return archivePath, nil
}

// =============================================================================
// RENDERING
// =============================================================================

// jsonReport is the JSON envelope: the report fields plus the audit.
type jsonReport struct {
	*types.Report
	Audit *validation.ValidationResult `json:"audit,omitempty"`
}

// Render encodes a report in one of the output formats.
func Render(format string, report *types.Report, audit *validation.ValidationResult) ([]byte, error) {
	switch format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(jsonReport{Report: report, Audit: audit}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil

	case config.FormatXML:
		data, err := xmlwriter.Generate(report, audit)
		if err != nil {
			return nil, fmt.Errorf("failed to generate XML: %w", err)
		}
		return data, nil

	case config.FormatXLSX:
		var buf bytes.Buffer
		if err := xlsxparser.WriteReport(&buf, report, audit); err != nil {
			return nil, fmt.Errorf("failed to generate XLSX: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}
