// Package casedoc loads the case document from disk: a PDF, a YAML case file
// or plain text.
package casedoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/deltawind/internal/casestudy"
	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

const SourceBuiltin = "builtin"

// Source is a loaded case: the document put in prompts and the structured
// facts behind the reference panel.
type Source struct {
	Document domain.CaseDocument
	Case     casestudy.Case
}

// Builtin is the case compiled into the binary.
func Builtin() Source {
	c := casestudy.Default()
	return Source{Document: c.Document(SourceBuiltin), Case: c}
}

// Load reads the case at path. An empty path loads the built-in case.
// PDFs and plain text keep the built-in structured facts for the reference panel.
func Load(path string) (Source, error) {
	if path == "" {
		return Builtin(), nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("detect case file type: %w", err)
	}

	switch {
	case mtype.Is("application/pdf"):
		text, err := readPDF(path)
		if err != nil {
			return Source{}, err
		}
		return textSource(path, text)

	case isYAML(path):
		raw, err := os.ReadFile(path)
		if err != nil {
			return Source{}, fmt.Errorf("read case file: %w", err)
		}
		var c casestudy.Case
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return Source{}, fmt.Errorf("parse case yaml: %w", err)
		}
		if len(c.Activities) == 0 {
			return Source{}, fmt.Errorf("%s: %w", path, domain.ErrEmptyCaseDocument)
		}
		return Source{Document: c.Document(path), Case: c}, nil

	case strings.HasPrefix(mtype.String(), "text/"):
		raw, err := os.ReadFile(path)
		if err != nil {
			return Source{}, fmt.Errorf("read case file: %w", err)
		}
		return textSource(path, string(raw))

	default:
		return Source{}, fmt.Errorf("unsupported case file type %s", mtype.String())
	}
}

// Resolve loads the first candidate that yields a non-empty document.
// With no candidates it returns the built-in case; when every candidate
// fails it returns the fallback excerpt.
func Resolve(ctx context.Context, candidates ...string) Source {
	if len(candidates) == 0 {
		return Builtin()
	}

	log := observability.LoggerFromContext(ctx)
	for _, path := range candidates {
		src, err := Load(path)
		if err != nil {
			log.Warn("case document not usable", "path", path, "error", err)
			continue
		}
		log.Info("case document loaded", "path", path, "chars", len(src.Document.Text))
		return src
	}

	log.Warn("using fallback case excerpt", "candidates", len(candidates))
	return Source{Document: casestudy.Fallback(), Case: casestudy.Default()}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open case pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract case pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract case pdf text: %w", err)
	}
	return buf.String(), nil
}

func textSource(path, text string) (Source, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Source{}, fmt.Errorf("%s: %w", path, domain.ErrEmptyCaseDocument)
	}
	return Source{
		Document: domain.CaseDocument{
			Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Text:   text,
			Source: path,
		},
		Case: casestudy.Default(),
	}, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
