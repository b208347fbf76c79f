package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./profiles", cfg.ProfilesDir)
	assert.Equal(t, []string{".txt"}, cfg.InputExtensions)
	assert.Equal(t, []string{FormatJSON}, cfg.OutputFormats)
	assert.Equal(t, "{original}_{profile}_{timestamp}", cfg.OutputNameFormat)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.InDelta(t, 0.01, cfg.DiscrepancyTolerance, 1e-12)
	assert.True(t, cfg.UnicodeNormalization())
}

func TestLoadMainConfig_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
input_dir: in
output_formats: [JSON, xlsx]
input_extensions: [txt, .text]
max_concurrency: 2
normalize_unicode: false
log_format: json
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "in", cfg.InputDir)
	assert.Equal(t, []string{"json", "xlsx"}, cfg.OutputFormats)
	assert.Equal(t, []string{".txt", ".text"}, cfg.InputExtensions)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.False(t, cfg.UnicodeNormalization())
	assert.True(t, cfg.WantsFormat("XLSX"))
	assert.False(t, cfg.WantsFormat("xml"))
}

func TestLoadMainConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "output_dir: from-yaml\nmax_concurrency: 8\n")
	writeFile(t, filepath.Join(dir, ".env"), "COSTSCAN_LOG_LEVEL=debug\n")

	t.Setenv("COSTSCAN_OUTPUT_DIR", "from-env")
	t.Setenv("COSTSCAN_OUTPUT_FORMATS", "json, xml")
	t.Setenv("COSTSCAN_CONTINUE_ON_ERROR", "true")
	// Registered so the value godotenv sets is restored after the test.
	t.Setenv("COSTSCAN_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("COSTSCAN_LOG_LEVEL"))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, []string{"json", "xml"}, cfg.OutputFormats)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, "debug", cfg.LogLevel, ".env next to the config file is loaded")
}

func TestLoadMainConfig_UnreadableDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "output_dir: out\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0755))

	_, err := LoadMainConfig(path)
	assert.ErrorContains(t, err, ".env")
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad format", "output_formats: [pdf]\n"},
		{"bad level", "log_level: loud\n"},
		{"bad log format", "log_format: xml\n"},
		{"name without unique part", "output_name_format: report_{profile}\n"},
		{"malformed yaml", "input_dir: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.yaml)
			_, err := LoadMainConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfig_BadEnvNumber(t *testing.T) {
	t.Setenv("COSTSCAN_MAX_CONCURRENCY", "many")
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorContains(t, err, "MAX_CONCURRENCY")
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &MainConfig{
		InputDir:         filepath.Join(root, "in"),
		OutputDir:        filepath.Join(root, "out"),
		InputArchiveDir:  filepath.Join(root, "archive", "in"),
		OutputArchiveDir: filepath.Join(root, "archive", "out"),
		LogFile:          filepath.Join(root, "logs", "run.log"),
	}
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir, filepath.Join(root, "logs")} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "swcd.yaml"), `
profile_name: Soil and Water District plans
profile_code: SWCD
file_matching_patterns: ["swcd_*.txt"]
disabled_patterns: [adaptive_dollar_cluster]
min_confidence: 0.6
practice_catalog: catalogs/practices.xlsx
name_rules:
  - field: name
    actions:
      - type: normalize_whitespace
      - type: catalog
`)
	writeFile(t, filepath.Join(dir, "watershed.yml"), "file_matching_patterns: [\"ws_*\"]\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	profiles, err := LoadProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	swcd := profiles["SWCD"]
	require.NotNil(t, swcd)
	assert.Equal(t, "Soil and Water District plans", swcd.Name)
	assert.Equal(t, filepath.Join(dir, "catalogs", "practices.xlsx"), swcd.PracticeCatalog)
	assert.Len(t, swcd.NameRules, 1)

	ws := profiles["watershed"]
	require.NotNil(t, ws, "code defaults to the file name")
	assert.Equal(t, "watershed", ws.Name)
}

func TestLoadProfiles_MissingDirAndDuplicates(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, profiles)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "profile_code: X\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "profile_code: X\n")
	_, err = LoadProfiles(dir)
	assert.ErrorContains(t, err, "duplicate profile code")
}

func TestProfile_ValidateProfile(t *testing.T) {
	known := []string{"practice_unit_nrcs_costs", "adaptive_dollar_cluster"}

	tests := []struct {
		name    string
		profile Profile
		wantErr string
	}{
		{"valid", Profile{Code: "ok", DisabledPatterns: []string{"adaptive_dollar_cluster"}, MinConfidence: 0.5}, ""},
		{"unknown pattern", Profile{Code: "p", EnabledPatterns: []string{"nope"}}, "unknown pattern"},
		{"confidence range", Profile{Code: "p", MinConfidence: 1.5}, "min_confidence"},
		{"bad glob", Profile{Code: "p", FileMatchingPatterns: []string{"[a"}}, "bad file pattern"},
		{"bad field", Profile{Code: "p", NameRules: []TransformationRule{{Field: "cost"}}}, "unknown rule field"},
		{"bad action", Profile{Code: "p", NameRules: []TransformationRule{{Field: "name", Actions: []TransformationAction{{Type: "explode"}}}}}, "unknown action"},
		{"catalog without workbook", Profile{Code: "p", NameRules: []TransformationRule{{Field: "name", Actions: []TransformationAction{{Type: "catalog"}}}}}, "practice_catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.ValidateProfile(known)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSelectProfile(t *testing.T) {
	profiles := map[string]*Profile{
		"b": {Code: "b", FileMatchingPatterns: []string{"plan_*.txt"}},
		"a": {Code: "a", FileMatchingPatterns: []string{"plan_2021*.txt"}},
	}

	p, err := SelectProfile(profiles, "", "/data/plan_2021_upper.txt")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Code, "first matching code in sorted order")

	p, err = SelectProfile(profiles, "", "plan_2019.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Code)

	p, err = SelectProfile(profiles, "", "memo.txt")
	require.NoError(t, err)
	assert.Equal(t, "default", p.Code)

	p, err = SelectProfile(profiles, "b", "memo.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", p.Code, "an explicit code wins over matching")

	_, err = SelectProfile(profiles, "zzz", "memo.txt")
	assert.Error(t, err)
}
