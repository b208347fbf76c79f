// =============================================================================
// Plan Cost Extractor - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the document
// profiles that tune detection per family of source documents.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Profiles (profiles/*.yaml): Per-document-family detection settings
//   3. Environment (.env, COSTSCAN_*): Overrides for the main config
//
// PRECEDENCE (lowest to highest):
//   defaults < config.yaml < .env < process environment
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "COSTSCAN_"

// Output formats understood by the converter.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for extracted-text files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated report.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ProfilesDir contains one YAML file per document profile.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// InputExtensions lists the file extensions picked up from InputDir.
	// Default: [".txt"]
	InputExtensions []string `yaml:"input_extensions"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path of the run log. Empty disables file logging.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormats lists the report formats to write for every input.
	// Default: ["json"]
	OutputFormats []string `yaml:"output_formats"`

	// OutputNameFormat is the report file name without extension.
	// Placeholders: {original}, {profile}, {timestamp}, {uuid}
	// Default: "{original}_{profile}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency limits how many files are scanned at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a file successful when its audit reports
	// errors. Warnings never fail a file.
	ContinueOnError bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves processed inputs to InputArchiveDir.
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// NormalizeUnicode applies NFKC folding to loaded lines.
	// Default: true
	NormalizeUnicode *bool `yaml:"normalize_unicode"`

	// DiscrepancyTolerance is the absolute difference between reported
	// and computed totals above which the audit warns.
	// Default: 0.01
	DiscrepancyTolerance float64 `yaml:"discrepancy_tolerance"`
}

// UnicodeNormalization reports whether NFKC folding is enabled.
func (c *MainConfig) UnicodeNormalization() bool {
	return c.NormalizeUnicode == nil || *c.NormalizeUnicode
}

// WantsFormat reports whether format is one of the configured outputs.
func (c *MainConfig) WantsFormat(format string) bool {
	for _, f := range c.OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// Profile holds detection settings for one family of documents, for
// example the plans of one watershed program.
type Profile struct {
	// Name is a human-readable label.
	Name string `yaml:"profile_name"`

	// Code identifies the profile in file names and on the command line.
	Code string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against input base
	// names. A profile without patterns matches nothing automatically.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// EnabledPatterns restricts the registry to these pattern IDs.
	// Empty means all registered patterns.
	EnabledPatterns []string `yaml:"enabled_patterns"`

	// DisabledPatterns removes pattern IDs from the registry.
	DisabledPatterns []string `yaml:"disabled_patterns"`

	// MinConfidence drops detections whose pattern confidence is lower.
	MinConfidence float64 `yaml:"min_confidence"`

	// PracticeCatalog is an XLSX workbook mapping row-name aliases to
	// canonical practice names. Relative paths resolve against the
	// profile file's directory.
	PracticeCatalog string `yaml:"practice_catalog"`

	// NameRules are transformation rules applied to normalized rows.
	NameRules []TransformationRule `yaml:"name_rules"`

	// SourcePath is the file the profile was loaded from.
	SourcePath string `yaml:"-"`
}

// TransformationRule defines how to transform one text field of a row.
type TransformationRule struct {
	// Field is one of "name", "section", "unit".
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction is a single step of a transformation rule.
//
// SUPPORTED TYPES:
//   - trim, normalize_whitespace, title_case, uppercase, lowercase
//   - replace:        Find -> Value
//   - regex_replace:  Find (pattern) -> Value (replacement)
//   - lookup:         LookupTable[value], unchanged when absent
//   - catalog:        the profile's practice catalog
type TransformationAction struct {
	Type        string            `yaml:"type"`
	Value       string            `yaml:"value,omitempty"`
	Find        string            `yaml:"find,omitempty"`
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// Known rule fields and action types.
var (
	ruleFields  = []string{"name", "section", "unit"}
	actionTypes = []string{
		"trim", "normalize_whitespace", "title_case", "uppercase", "lowercase",
		"replace", "regex_replace", "lookup", "catalog",
	}
)

// =============================================================================
// MAIN CONFIGURATION LOADING
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - path: The path to the config.yaml file. When the file does not exist
//     the defaults are used.
//
// RETURNS:
//   - A pointer to the loaded MainConfig.
//   - An error if the file cannot be read, parsed, or validated.
//
// Environment overrides are applied after the file. A .env file next to
// the config file, or in the working directory, is loaded first.
func LoadMainConfig(path string) (*MainConfig, error) {
	var cfg MainConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	applyMainConfigDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set in
// the process environment. Missing files are ignored; unreadable or
// malformed ones are an error.
func loadDotEnv(dirs ...string) error {
	seen := map[string]bool{}
	for _, dir := range append(dirs, ".") {
		p := filepath.Join(dir, ".env")
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnvOverrides copies COSTSCAN_* variables onto cfg.
func applyEnvOverrides(cfg *MainConfig) error {
	str := map[string]*string{
		"INPUT_DIR":          &cfg.InputDir,
		"OUTPUT_DIR":         &cfg.OutputDir,
		"INPUT_ARCHIVE_DIR":  &cfg.InputArchiveDir,
		"OUTPUT_ARCHIVE_DIR": &cfg.OutputArchiveDir,
		"PROFILES_DIR":       &cfg.ProfilesDir,
		"LOG_FILE":           &cfg.LogFile,
		"LOG_LEVEL":          &cfg.LogLevel,
		"LOG_FORMAT":         &cfg.LogFormat,
		"OUTPUT_NAME_FORMAT": &cfg.OutputNameFormat,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "OUTPUT_FORMATS"); ok {
		cfg.OutputFormats = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "INPUT_EXTENSIONS"); ok {
		cfg.InputExtensions = splitList(v)
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MAX_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_CONCURRENCY %q: %w", EnvPrefix, v, err)
		}
		cfg.MaxConcurrency = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "DISCREPANCY_TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sDISCREPANCY_TOLERANCE %q: %w", EnvPrefix, v, err)
		}
		cfg.DiscrepancyTolerance = f
	}

	bools := map[string]*bool{
		"CONTINUE_ON_ERROR":  &cfg.ContinueOnError,
		"ARCHIVE_ON_SUCCESS": &cfg.ArchiveOnSuccess,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
			}
			*dst = b
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "NORMALIZE_UNICODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sNORMALIZE_UNICODE %q: %w", EnvPrefix, v, err)
		}
		cfg.NormalizeUnicode = &b
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(cfg *MainConfig) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.OutputArchiveDir == "" {
		cfg.OutputArchiveDir = "./output_archive"
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = "./profiles"
	}
	if len(cfg.InputExtensions) == 0 {
		cfg.InputExtensions = []string{".txt"}
	}
	for i, ext := range cfg.InputExtensions {
		if !strings.HasPrefix(ext, ".") {
			cfg.InputExtensions[i] = "." + ext
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if len(cfg.OutputFormats) == 0 {
		cfg.OutputFormats = []string{FormatJSON}
	}
	for i, f := range cfg.OutputFormats {
		cfg.OutputFormats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "{original}_{profile}_{timestamp}"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.DiscrepancyTolerance <= 0 {
		cfg.DiscrepancyTolerance = 0.01
	}
}

// Validate checks that the configuration is usable. It does not touch
// the filesystem; see EnsureDirectories.
func (c *MainConfig) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	for _, f := range c.OutputFormats {
		switch f {
		case FormatJSON, FormatXML, FormatXLSX:
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	if !strings.Contains(c.OutputNameFormat, "{original}") && !strings.Contains(c.OutputNameFormat, "{uuid}") {
		return fmt.Errorf("output_name_format must contain {original} or {uuid} to keep file names unique")
	}
	return nil
}

// EnsureDirectories creates every configured directory that does not
// exist yet.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.InputDir,
		c.OutputDir,
		c.InputArchiveDir,
		c.OutputArchiveDir,
	}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads all profile files from a directory.
//
// PARAMETERS:
//   - dir: The directory containing *.yaml / *.yml profile files.
//
// RETURNS:
//   - Profiles keyed by Code. A missing directory yields an empty map.
//   - An error if a file cannot be parsed or two profiles share a code.
func LoadProfiles(dir string) (map[string]*Profile, error) {
	profiles := make(map[string]*Profile)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return profiles, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list profiles: %w", err)
		}
		files = append(files, matches...)
	}

	for _, file := range files {
		p, err := LoadProfile(file)
		if err != nil {
			return nil, err
		}
		if prev, exists := profiles[p.Code]; exists {
			return nil, fmt.Errorf("duplicate profile code %q in %s and %s", p.Code, prev.SourcePath, file)
		}
		profiles[p.Code] = p
	}

	return profiles, nil
}

// LoadProfile loads and defaults a single profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	p.SourcePath = path

	if p.Code == "" {
		base := filepath.Base(path)
		p.Code = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if p.Name == "" {
		p.Name = p.Code
	}
	if p.PracticeCatalog != "" && !filepath.IsAbs(p.PracticeCatalog) {
		p.PracticeCatalog = filepath.Join(filepath.Dir(path), p.PracticeCatalog)
	}

	return &p, nil
}

// DefaultProfile is used for files no profile claims. It enables every
// registered pattern and applies no rules.
func DefaultProfile() *Profile {
	return &Profile{Name: "Default", Code: "default"}
}

// Matches reports whether the profile claims the given file name.
func (p *Profile) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range p.FileMatchingPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// ValidateProfile checks a profile against the known pattern IDs.
//
// RETURNS:
//   - nil, or an error naming the first problem found.
func (p *Profile) ValidateProfile(knownPatterns []string) error {
	known := make(map[string]bool, len(knownPatterns))
	for _, id := range knownPatterns {
		known[id] = true
	}

	for _, id := range append(append([]string{}, p.EnabledPatterns...), p.DisabledPatterns...) {
		if !known[id] {
			return fmt.Errorf("profile %s: unknown pattern %q", p.Code, id)
		}
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("profile %s: min_confidence %.2f outside [0, 1]", p.Code, p.MinConfidence)
	}
	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("profile %s: bad file pattern %q: %w", p.Code, pattern, err)
		}
	}
	for _, rule := range p.NameRules {
		if !contains(ruleFields, rule.Field) {
			return fmt.Errorf("profile %s: unknown rule field %q", p.Code, rule.Field)
		}
		for _, action := range rule.Actions {
			if !contains(actionTypes, action.Type) {
				return fmt.Errorf("profile %s: unknown action %q on field %s", p.Code, action.Type, rule.Field)
			}
			if action.Type == "catalog" && p.PracticeCatalog == "" {
				return fmt.Errorf("profile %s: catalog action without practice_catalog", p.Code)
			}
		}
	}
	return nil
}

// SelectProfile returns the profile for a file: the one named by code when
// code is non-empty, else the first profile (by code) whose patterns match,
// else DefaultProfile.
func SelectProfile(profiles map[string]*Profile, code, fileName string) (*Profile, error) {
	if code != "" {
		if p, ok := profiles[code]; ok {
			return p, nil
		}
		if code == DefaultProfile().Code {
			return DefaultProfile(), nil
		}
		return nil, fmt.Errorf("unknown profile %q", code)
	}

	codes := make([]string, 0, len(profiles))
	for c := range profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		if profiles[c].Matches(fileName) {
			return profiles[c], nil
		}
	}
	return DefaultProfile(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
