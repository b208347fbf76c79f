// =============================================================================
// Plan Cost Extractor - Scan Command
// =============================================================================
//
// This file defines the 'scan' command, the main command of the tool. It
// runs the per-document pipeline over every input file.
//
// COMMAND USAGE:
//   costscan scan [files...] [flags]
//
// FLAGS:
//   --dry-run     : Scan and audit without writing reports or archiving
//   --profile     : Use this profile for every file instead of matching
//   --format      : Override the configured output formats (json,xml,xlsx)
//
// PROCESSING PIPELINE:
//   1. Load configuration and profiles
//   2. Discover input files (or take them from the arguments)
//   3. Match each file to a profile
//   4. For each file (concurrently, bounded by max_concurrency):
//      a. Load the lines
//      b. Scan for cost tables
//      c. Canonicalize row names
//      d. Audit the tables
//      e. Write the reports
//      f. Archive the files
//   5. Write the error log and run summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/converter"
	"github.com/ginjaninja78/plan-cost-extractor/internal/costtable"
	"github.com/ginjaninja78/plan-cost-extractor/internal/validation"
	"github.com/ginjaninja78/plan-cost-extractor/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	profileCode string
	formats     []string
)

// =============================================================================
// SCAN COMMAND DEFINITION
// =============================================================================

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Detect cost tables in extracted plan text",
	Long: `The scan command reads extracted-text files (one line per line, or a JSON
array of lines for .json inputs), detects cost tables, and writes one report
per configured output format.

Without arguments every file in the input directory with a configured
extension is scanned. Files are processed concurrently and independently:
a failure in one file does not stop the others.

On successful processing:
  - The reports are placed in the output directory
  - The input is moved to the input archive (archive_on_success)
  - A run summary is written to the output directory

On error:
  - An error log is written to the output directory
  - The input stays where it is`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mainConfig, logger, closeLog, err := loadRuntime(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		return runScan(ctx, mainConfig, logger, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scan and audit without writing reports or archiving")
	scanCmd.Flags().StringVar(&profileCode, "profile", "", "Profile code to use for every file")
	scanCmd.Flags().StringSliceVar(&formats, "format", nil, "Output formats, overriding the configuration (json,xml,xlsx)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runScan orchestrates a scan run over the given files, or over the input
// directory when files is empty.
func runScan(ctx context.Context, mainConfig *config.MainConfig, logger zerolog.Logger, files []string, out io.Writer) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: APPLY FLAGS AND LOAD PROFILES
	// =========================================================================

	if len(formats) > 0 {
		mainConfig.OutputFormats = nil
		for _, f := range formats {
			mainConfig.OutputFormats = append(mainConfig.OutputFormats, strings.ToLower(strings.TrimSpace(f)))
		}
		if err := mainConfig.Validate(); err != nil {
			return err
		}
	}

	profiles, err := loadCheckedProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return err
	}
	logger.Debug().Int("profiles", len(profiles)).Msg("profiles loaded")

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	fm.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	if len(files) == 0 {
		files, err = fm.DiscoverInputFiles(mainConfig.InputExtensions)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}
	logger.Info().Int("files", len(files)).Bool("dry_run", dryRun).Msg("starting scan")

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// Each goroutine writes only its own slot, so results needs no lock.

	results := make([]converter.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mainConfig.MaxConcurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			profile, err := config.SelectProfile(profiles, profileCode, file)
			if err != nil {
				results[i] = converter.Result{FilePath: file, Error: err}
				return nil
			}

			conv := converter.New(file, profile, mainConfig,
				converter.WithLogger(logger),
				converter.WithDryRun(dryRun),
				converter.WithFileManager(fm),
			)
			results[i] = conv.Run(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND WRITE LOGS
	// =========================================================================

	summary, errorEntries := summarize(results)
	summary.StartTime = startTime
	summary.EndTime = time.Now()

	for _, r := range results {
		name := filepath.Base(r.FilePath)
		if r.Success {
			fmt.Fprintf(out, "  ✓ %s [%s] %d table(s), %d row(s)", name, r.Profile, r.Stats.TablesDetected, r.Stats.RowsExtracted)
			if len(r.OutputFiles) > 0 {
				fmt.Fprintf(out, " -> %s", strings.Join(baseNames(r.OutputFiles), ", "))
			}
			fmt.Fprintln(out)
		} else {
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, r.Error)
		}
	}

	fmt.Fprintln(out, "\n=== Scan Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Tables:          %d\n", summary.TotalTables)
	fmt.Fprintf(out, "Rows:            %d\n", summary.TotalRows)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if !dryRun {
		if path, err := utils.WriteErrorLog(errorEntries, mainConfig.OutputDir); err != nil {
			logger.Warn().Err(err).Msg("failed to write error log")
		} else if path != "" {
			fmt.Fprintf(out, "\nErrors have been logged to %s\n", path)
		}
		if _, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Warn().Err(err).Msg("failed to write summary log")
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadCheckedProfiles loads every profile and validates it against the
// registered pattern IDs.
func loadCheckedProfiles(dir string) (map[string]*config.Profile, error) {
	profiles, err := config.LoadProfiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	known := patternIDs(costtable.DefaultRegistry())
	for _, p := range profiles {
		if err := p.ValidateProfile(known); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

func patternIDs(reg *costtable.Registry) []string {
	var ids []string
	for _, p := range reg.Patterns() {
		ids = append(ids, p.ID)
	}
	return ids
}

// summarize folds per-file results into the run summary and the error log
// entries. Audit errors are logged for every file, successful or not.
func summarize(results []converter.Result) (utils.ProcessingSummary, []utils.ErrorLogEntry) {
	summary := utils.ProcessingSummary{TotalFiles: len(results)}
	var entries []utils.ErrorLogEntry
	now := time.Now()

	for _, r := range results {
		name := filepath.Base(r.FilePath)
		summary.TotalLines += r.Stats.LinesScanned
		summary.AuditErrors += r.Stats.AuditErrors
		summary.AuditWarnings += r.Stats.AuditWarnings

		if r.Success {
			summary.SuccessfulFiles++
			summary.TotalTables += r.Stats.TablesDetected
			summary.TotalRows += r.Stats.RowsExtracted
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   name,
				Profile:     r.Profile,
				OutputFiles: baseNames(r.OutputFiles),
				ArchivePath: r.ArchivePath,
				Lines:       r.Stats.LinesScanned,
				Tables:      r.Stats.TablesDetected,
				Rows:        r.Stats.RowsExtracted,
				ProcessTime: r.Stats.ProcessingTime,
			})
		} else {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: r.Error.Error(),
				ErrorType:    "processing",
			})
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     name,
				ErrorType:    "processing",
				ErrorMessage: r.Error.Error(),
			})
		}

		if r.Audit == nil {
			continue
		}
		for _, f := range r.Audit.Errors {
			if f.Severity != validation.SeverityError {
				continue
			}
			entry := utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     name,
				ErrorType:    "audit",
				ErrorMessage: f.Message,
				TableID:      f.TableID,
				PatternID:    f.PatternID,
				Rule:         f.Rule,
			}
			if f.RowIndex >= 0 {
				entry.RowNumber = f.RowIndex + 1
			}
			entries = append(entries, entry)
		}
	}

	return summary, entries
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
