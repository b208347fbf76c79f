// =============================================================================
// Plan Cost Extractor - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// without scanning anything.
//
// CHECKS:
//   1. The main configuration loads and validates
//   2. Every profile parses and names only registered patterns
//   3. Every practice catalog opens and every name rule compiles
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/converter"
	"github.com/ginjaninja78/plan-cost-extractor/internal/costtable"
	"github.com/ginjaninja78/plan-cost-extractor/internal/xlsxparser"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and profiles without scanning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, closeLog, err := loadRuntime(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		return runValidate(mainConfig, logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate reports every problem it finds and fails if there was any.
func runValidate(mainConfig *config.MainConfig, logger zerolog.Logger, out io.Writer) error {
	fmt.Fprintf(out, "Configuration: %s\n", cfgFile)
	fmt.Fprintf(out, "  Input:    %s (%v)\n", mainConfig.InputDir, mainConfig.InputExtensions)
	fmt.Fprintf(out, "  Output:   %s (%v)\n", mainConfig.OutputDir, mainConfig.OutputFormats)
	fmt.Fprintf(out, "  Profiles: %s\n", mainConfig.ProfilesDir)

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	known := patternIDs(costtable.DefaultRegistry())
	failures := 0
	for _, code := range codes {
		p := profiles[code]
		if err := checkProfile(p, known); err != nil {
			failures++
			fmt.Fprintf(out, "  ✗ %s: %v\n", code, err)
			logger.Debug().Str("profile", code).Err(err).Msg("profile invalid")
			continue
		}
		fmt.Fprintf(out, "  ✓ %s (%s)\n", code, p.Name)
	}

	if len(profiles) == 0 {
		fmt.Fprintln(out, "  No profiles found; every file uses the default profile.")
	}
	if failures > 0 {
		return fmt.Errorf("%d profile(s) invalid", failures)
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkProfile(p *config.Profile, known []string) error {
	if err := p.ValidateProfile(known); err != nil {
		return err
	}

	var catalog converter.Catalog
	if p.PracticeCatalog != "" {
		c, err := xlsxparser.ParseCatalog(p.PracticeCatalog)
		if err != nil {
			return err
		}
		catalog = c
	}
	_, err := converter.NewTransformer(p.NameRules, catalog)
	return err
}
