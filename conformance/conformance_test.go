package conformance

import (
	"embed"
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/krait-dev/krait/frontend/diag"
)

// embeds the fixture archives
//
//go:embed testdata
var fixtureSet embed.FS

func TestFixturesEndToEnd(t *testing.T) {
	files, err := fixtureSet.ReadDir("testdata")
	require.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".txtar") {
			continue
		}
		runFixture(t, f)
	}
}

func runFixture(t *testing.T, f fs.DirEntry) bool {
	return t.Run(f.Name(), func(t *testing.T) {
		content, err := fixtureSet.ReadFile(path.Join("testdata", f.Name()))
		require.NoError(t, err)

		report, err := RunArchive(txtar.Parse(content), nil)
		require.NoError(t, err)

		for _, mod := range report.Modules {
			if diff := cmp.Diff(mod.WantLines(), mod.GotLines()); diff != "" {
				t.Errorf("module %v: diagnostics mismatch (-want +got):\n%v", mod.Name, diff)
			}
		}
	})
}

func TestArchiveValidation(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		ar := txtar.Parse([]byte("-- app.go --\nx = 1\n"))
		_, err := RunArchive(ar, nil)
		assert.ErrorContains(t, err, `fixture file "app.go"`)
	})
	t.Run("expect without module", func(t *testing.T) {
		ar := txtar.Parse([]byte("-- app.py --\nx = 1\n-- other.expect --\n"))
		_, err := RunArchive(ar, nil)
		assert.ErrorContains(t, err, `expect file for unknown module "other"`)
	})
	t.Run("empty archive", func(t *testing.T) {
		_, err := RunArchive(&txtar.Archive{}, nil)
		assert.ErrorContains(t, err, "no modules")
	})
	t.Run("malformed expect line", func(t *testing.T) {
		ar := txtar.Parse([]byte("-- app.py --\nx = 1\n-- app.expect --\nnot a valid line\n"))
		_, err := RunArchive(ar, nil)
		assert.ErrorContains(t, err, "app.expect:1")
	})
}

func TestReportMismatchRendering(t *testing.T) {
	ar := txtar.Parse([]byte(`
-- app.py --
x: int = "s"
-- app.expect --
# one wrong expectation and one missing
invalid-assignment: cannot assign Literal["s"] to 'x' declared as str
revealed-type: revealed type is 'int'
`))
	report, err := RunArchive(ar, nil)
	require.NoError(t, err)
	require.True(t, report.Failed())

	mismatches := report.Mismatches()
	require.Len(t, mismatches, 2)
	assert.Contains(t, mismatches[0], "app: diagnostic 0")
	assert.Contains(t, mismatches[1], "app: missing diagnostic")

	assert.Equal(t, []diag.Kind{diag.KindInvalidAssignment}, report.Kinds())
}
