package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plan-cost-extractor/internal/config"
	"github.com/ginjaninja78/plan-cost-extractor/internal/corpus"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

const practicePlan = "Conservation plan for Tract 12\n" +
	"\n" +
	"Practice Average Unit NRCS Cost Units Total Cost\n" +
	"CRITICAL AREA PLANTING $248.10 32 acres $7,939.20\n" +
	"TOTAL $7,939.20\n"

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	cfg := &config.MainConfig{
		InputDir:             filepath.Join(root, "input"),
		OutputDir:            filepath.Join(root, "output"),
		InputArchiveDir:      filepath.Join(root, "input_archive"),
		OutputArchiveDir:     filepath.Join(root, "output_archive"),
		OutputFormats:        []string{"json"},
		OutputNameFormat:     "{original}_{profile}",
		DiscrepancyTolerance: 0.01,
	}
	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

func writeInput(t *testing.T, cfg *config.MainConfig, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_WritesEveryFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFormats = []string{"json", "XML", "xlsx"}
	input := writeInput(t, cfg, "tract12.txt", practicePlan)

	result := New(input, nil, cfg).Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "default", result.Profile)

	require.Len(t, result.OutputFiles, 3)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "tract12_default.json"), result.OutputFiles[0])
	assert.Equal(t, filepath.Join(cfg.OutputDir, "tract12_default.xml"), result.OutputFiles[1])
	assert.Equal(t, filepath.Join(cfg.OutputDir, "tract12_default.xlsx"), result.OutputFiles[2])

	assert.Equal(t, 5, result.Stats.LinesScanned)
	assert.Equal(t, 1, result.Stats.TablesDetected)
	assert.Equal(t, 1, result.Stats.RowsExtracted)
	assert.Zero(t, result.Stats.AuditErrors)

	data, err := os.ReadFile(result.OutputFiles[0])
	require.NoError(t, err)
	var decoded struct {
		Source    string `json:"source"`
		Profile   string `json:"profile"`
		LineCount int    `json:"lineCount"`
		Tables    []struct {
			SpanStart  int `json:"spanStart"`
			Normalized struct {
				PatternID string `json:"patternId"`
				Rows      []struct {
					Name string `json:"name"`
				} `json:"rows"`
			} `json:"normalized"`
		} `json:"tables"`
		Audit struct {
			IsValid bool `json:"isValid"`
		} `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "tract12.txt", decoded.Source)
	assert.Equal(t, 5, decoded.LineCount)
	require.Len(t, decoded.Tables, 1)
	assert.Equal(t, 2, decoded.Tables[0].SpanStart)
	assert.Equal(t, "practice_unit_nrcs_costs", decoded.Tables[0].Normalized.PatternID)

	xmlData, err := os.ReadFile(result.OutputFiles[1])
	require.NoError(t, err)
	assert.Contains(t, string(xmlData), `pattern="practice_unit_nrcs_costs"`)

	wb, err := excelize.OpenFile(result.OutputFiles[2])
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "01 practice_unit_nrcs_costs")
}

func TestRun_ArchivesOnSuccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveOnSuccess = true
	input := writeInput(t, cfg, "tract12.txt", practicePlan)

	result := New(input, nil, cfg).Run(context.Background())
	require.NoError(t, result.Error)

	assert.Equal(t, filepath.Join(cfg.InputArchiveDir, "tract12.txt"), result.ArchivePath)
	assert.NoFileExists(t, input)
	assert.FileExists(t, result.ArchivePath)
	assert.FileExists(t, filepath.Join(cfg.OutputArchiveDir, "tract12_default.json"))
	assert.FileExists(t, result.OutputFiles[0], "the report stays in the output dir")
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveOnSuccess = true
	input := writeInput(t, cfg, "tract12.txt", practicePlan)

	result := New(input, nil, cfg, WithDryRun(true)).Run(context.Background())
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Empty(t, result.OutputFiles)
	assert.FileExists(t, input)
	require.NotNil(t, result.Report)
	assert.Len(t, result.Report.Tables, 1)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ProfileRules(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, cfg, "tract12.txt", practicePlan)

	catalogPath := filepath.Join(t.TempDir(), "catalog.xlsx")
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"Alias", "Canonical"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"Critical Area Planting", "Critical Area Planting (342)"}))
	require.NoError(t, wb.SaveAs(catalogPath))
	require.NoError(t, wb.Close())

	profile := &config.Profile{
		Code:            "swcd",
		PracticeCatalog: catalogPath,
		NameRules: []config.TransformationRule{{
			Field: "name",
			Actions: []config.TransformationAction{
				{Type: "title_case"},
				{Type: "catalog"},
			},
		}},
	}

	result := New(input, profile, cfg, WithDryRun(true)).Run(context.Background())
	require.NoError(t, result.Error)
	require.Len(t, result.Report.Tables, 1)
	assert.Equal(t, "Critical Area Planting (342)", result.Report.Tables[0].Normalized.Rows[0].Name)
	assert.Equal(t, 1, result.Stats.RowsTransformed)
	assert.Equal(t, "swcd", result.Report.Profile)
}

func TestRun_ProfileFilters(t *testing.T) {
	tests := []struct {
		name       string
		profile    *config.Profile
		wantTables int
		wantBelow  int
	}{
		{"confidence floor drops table", &config.Profile{Code: "strict", MinConfidence: 0.95}, 0, 1},
		{"floor at pattern confidence keeps table", &config.Profile{Code: "even", MinConfidence: 0.90}, 1, 0},
		{"disabled pattern", &config.Profile{Code: "off", DisabledPatterns: []string{"practice_unit_nrcs_costs"}}, 0, 0},
		{"enabled subset", &config.Profile{Code: "only", EnabledPatterns: []string{"practice_unit_nrcs_costs"}}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			input := writeInput(t, cfg, "tract12.txt", practicePlan)

			result := New(input, tt.profile, cfg, WithDryRun(true)).Run(context.Background())
			require.NoError(t, result.Error)
			assert.Equal(t, tt.wantTables, result.Stats.TablesDetected)
			assert.Equal(t, tt.wantBelow, result.Stats.TablesBelowConfidence)
		})
	}
}

func TestRun_Failures(t *testing.T) {
	cfg := testConfig(t)

	missing := New(filepath.Join(cfg.InputDir, "missing.txt"), nil, cfg).Run(context.Background())
	assert.False(t, missing.Success)
	assert.ErrorContains(t, missing.Error, "failed to load document")

	input := writeInput(t, cfg, "tract12.txt", practicePlan)
	none := New(input, &config.Profile{Code: "none", EnabledPatterns: []string{"no_such_pattern"}}, cfg).Run(context.Background())
	assert.ErrorContains(t, none.Error, "enables no patterns")

	badCatalog := New(input, &config.Profile{Code: "cat", PracticeCatalog: filepath.Join(t.TempDir(), "none.xlsx")}, cfg).Run(context.Background())
	assert.ErrorContains(t, badCatalog.Error, "failed to load practice catalog")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := New(input, nil, cfg).Run(ctx)
	assert.ErrorIs(t, cancelled.Error, context.Canceled)
	assert.FileExists(t, input)
}

func TestRun_LogsWithFileContext(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, cfg, "tract12.txt", practicePlan)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	result := New(input, nil, cfg, WithLogger(logger), WithDryRun(true)).Run(context.Background())
	require.NoError(t, result.Error)

	out := buf.String()
	assert.Contains(t, out, `"file":"tract12.txt"`)
	assert.Contains(t, out, `"profile":"default"`)
	assert.Contains(t, out, `"message":"candidate table"`)
	assert.Contains(t, out, `"message":"scan complete"`)
}

func TestAnalyze_FromLines(t *testing.T) {
	cfg := testConfig(t)
	doc := corpus.FromLines(strings.Split(strings.TrimSuffix(practicePlan, "\n"), "\n"), corpus.DefaultOptions())

	c := New("tract12.txt", nil, cfg)
	c.now = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }

	report, audit, err := c.Analyze(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.True(t, audit.IsValid)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC), report.GeneratedAt)
	assert.Equal(t, 1, report.RowCount())
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render("csv", &types.Report{}, nil)
	assert.ErrorContains(t, err, "unknown output format: csv")

	data, err := Render(config.FormatJSON, &types.Report{Source: "x.txt", Tables: []types.DetectedTable{}}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tables": []`)
	assert.NotContains(t, string(data), `"audit"`)
}
