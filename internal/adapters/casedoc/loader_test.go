package casedoc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/deltawind/internal/adapters/casedoc"
	"github.com/PabloGalante/deltawind/internal/casestudy"
	"github.com/PabloGalante/deltawind/internal/domain"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadEmptyPathIsBuiltin(t *testing.T) {
	src, err := casedoc.Load("")
	require.NoError(t, err)
	require.Equal(t, casedoc.SourceBuiltin, src.Document.Source)
	require.Equal(t, casestudy.Default().Render(), src.Document.Text)
}

func TestLoadPlainText(t *testing.T) {
	path := writeFile(t, "delta.txt", []byte("\n  Phase II facts.\n\n"))

	src, err := casedoc.Load(path)
	require.NoError(t, err)
	require.Equal(t, "Phase II facts.", src.Document.Text)
	require.Equal(t, "delta", src.Document.Title)
	require.Equal(t, path, src.Document.Source)
}

func TestLoadYAMLCase(t *testing.T) {
	req := require.New(t)
	c := casestudy.Default()
	c.Headline = "DELTA WIND FARM - PHASE III"
	raw, err := yaml.Marshal(c)
	req.NoError(err)
	path := writeFile(t, "case.yaml", raw)

	src, err := casedoc.Load(path)
	req.NoError(err)
	req.Equal(c, src.Case)
	req.Equal(c.Render(), src.Document.Text)
}

func TestLoadRejectsEmptyDocuments(t *testing.T) {
	_, err := casedoc.Load(writeFile(t, "empty.txt", []byte("   \n")))
	require.ErrorIs(t, err, domain.ErrEmptyCaseDocument)

	_, err = casedoc.Load(writeFile(t, "empty.yaml", []byte("title: nothing\n")))
	require.ErrorIs(t, err, domain.ErrEmptyCaseDocument)
}

func TestLoadBrokenPDF(t *testing.T) {
	_, err := casedoc.Load(writeFile(t, "broken.pdf", []byte("%PDF-1.4\nnot really a pdf")))
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	good := writeFile(t, "good.txt", []byte("good case"))
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	require.Equal(t, casedoc.SourceBuiltin, casedoc.Resolve(ctx).Document.Source)
	require.Equal(t, "good case", casedoc.Resolve(ctx, missing, good).Document.Text)

	fallback := casedoc.Resolve(ctx, missing)
	require.Equal(t, casestudy.Fallback(), fallback.Document)
	require.Equal(t, casestudy.Default(), fallback.Case)
}
