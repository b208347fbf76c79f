package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LineEndings(t *testing.T) {
	doc, err := Parse(strings.NewReader("a\r\nb\rc\n\nd"), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "", "d"}, doc.Lines)
	assert.Equal(t, 5, doc.LineCount)
	assert.Equal(t, 4, doc.NonBlankCount)
}

func TestParse_TrailingCR(t *testing.T) {
	doc, err := Parse(strings.NewReader("a\r"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, doc.Lines)
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""), DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, doc.Lines)
	assert.Empty(t, doc.Lines)
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{"bom and zero width", "\ufeffFence\u200b $2.50", DefaultOptions(), "Fence $2.50"},
		{"form feed", "\fCover Crop $40", DefaultOptions(), "Cover Crop $40"},
		{"tabs and trailing space", "Fence\t$2.50 \t", DefaultOptions(), "Fence $2.50"},
		{"nbsp folds to space", "Fence\u00a0$2.50", DefaultOptions(), "Fence $2.50"},
		{"full-width digits", "Fence $\uff12\uff10", DefaultOptions(), "Fence $20"},
		{"ligature", "O\ufb03ce supplies $5", DefaultOptions(), "Office supplies $5"},
		{"nfkc disabled", "Fence\u00a0$2.50", Options{}, "Fence\u00a0$2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLine(tt.in, tt.opts))
		})
	}
}

func TestLoad_TextAndJSON(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "plan.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Practice Units NRCS Costs\nFence 100 ft $250\n"), 0644))
	doc, err := Load(txt, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, txt, doc.SourceFile)
	assert.Equal(t, []string{"Practice Units NRCS Costs", "Fence 100 ft $250"}, doc.Lines)

	js := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(js, []byte(`["Header", "row one\nrow two", ""]`), 0644))
	doc, err = Load(js, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Header", "row one", "row two", ""}, doc.Lines)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"), DefaultOptions())
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"lines": 1}`), 0644))
	_, err = Load(bad, DefaultOptions())
	assert.ErrorContains(t, err, "bad.json")
}

func TestLineReader(t *testing.T) {
	lr := NewLineReader(strings.NewReader("one\ntwo\n"), DefaultOptions())

	var got []string
	for lr.Next() {
		got = append(got, lr.Line())
	}
	require.NoError(t, lr.Err())
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Equal(t, 2, lr.LineNumber())
}

func TestFromLines(t *testing.T) {
	doc := FromLines([]string{"a\t", "", "\u200b"}, DefaultOptions())
	assert.Equal(t, []string{"a", "", ""}, doc.Lines)
	assert.Equal(t, 1, doc.NonBlankCount)
}
