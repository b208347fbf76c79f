// =============================================================================
// Plan Cost Extractor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'scan', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (costscan)
//   ├── scanCmd     (costscan scan)
//   ├── patternsCmd (costscan patterns)
//   ├── validateCmd (costscan validate)
//   └── versionCmd  (costscan version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (e.g., --config, --verbose)
//   2. Loading the main configuration
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "costscan",
	Short: "Plan Cost Extractor - find and reconcile cost tables in extracted plan text",
	Long: `Plan Cost Extractor scans the extracted text of conservation and watershed
plans for cost tables, normalizes every row to a common shape, and reconciles
reported totals against computed ones.

Key Features:
  - Twelve table dialects, from headed practice tables to narrative cost lists
  - Overlap resolution so every dollar line is reported once
  - Per-document profiles with practice-name canonicalization
  - Post-scan audit of every detected table
  - JSON, XML and XLSX reports
  - Concurrent processing with automatic archival

Example Usage:
  costscan scan                        # Scan every file in the input directory
  costscan scan plan.txt --dry-run     # Scan one file without writing reports
  costscan patterns                    # List the table dialects
  costscan validate                    # Check configuration and profiles`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadRuntime loads the main configuration and builds the logger every
// subcommand uses. The returned closer must be called when the command is
// done.
func loadRuntime(stderr io.Writer) (*config.MainConfig, zerolog.Logger, func() error, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}

	logger, closer, err := logging.New(logging.Config{
		Level:  level,
		Format: mainConfig.LogFormat,
		Output: stderr,
		File:   mainConfig.LogFile,
	})
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	logger.Debug().Str("config", cfgFile).Msg("configuration loaded")
	return mainConfig, logger, closer, nil
}
