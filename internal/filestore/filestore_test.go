package filestore

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_WritesContent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "uploads"))

	path, err := s.Save(42, "CV Jan de Vries.pdf", strings.NewReader("%PDF-1.4 inhoud"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 inhoud", string(content))

	name := filepath.Base(path)
	assert.Regexp(t, regexp.MustCompile(`^42_[0-9a-f]{8}_CV_Jan_de_Vries\.pdf$`), name)
}

func TestSave_UniqueNames(t *testing.T) {
	s := New(t.TempDir())

	first, err := s.Save(1, "cv.pdf", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := s.Save(1, "cv.pdf", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.Save(7, "cv.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Removing again, or removing nothing, is fine.
	assert.NoError(t, s.Remove(path))
	assert.NoError(t, s.Remove(""))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cv.pdf", "cv.pdf"},
		{"CV Jan de Vries.pdf", "CV_Jan_de_Vries.pdf"},
		{"../../etc/passwd", "passwd"},
		{"résumé.pdf", "r_sum_.pdf"},
		{"", "cv.pdf"},
		{"  spaties  .pdf", "spaties__.pdf"},
		{"kandidaat#1?.pdf", "kandidaat_1_.pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeFilename(tt.input), "input %q", tt.input)
	}
}
