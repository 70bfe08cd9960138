package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeImageTable writes rows of ImageLen values where row i is filled with
// float64(i), followed by extra trailing fields.
func writeImageTable(t *testing.T, path string, rows int, trailing string) {
	t.Helper()

	var b strings.Builder
	for i := 0; i < rows; i++ {
		v := strconv.Itoa(i)
		for c := 0; c < ImageLen; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v)
		}
		b.WriteString(trailing)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
