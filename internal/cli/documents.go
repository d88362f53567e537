package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/sceneweaver/internal/presentation/tui"
	"github.com/aretw0/sceneweaver/pkg/document"
)

// ReadDocumentFile decodes a scenario document, picking the format from the
// file extension.
func ReadDocumentFile(path string) (document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return document.Document{}, err
	}
	defer f.Close()
	doc, err := document.Decode(f, document.FormatFromPath(path))
	if err != nil {
		return document.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteDocumentFile encodes doc to path, or to stdout when path is empty or "-".
func WriteDocumentFile(path string, doc document.Document, format document.Format) error {
	if path == "" || path == "-" {
		return document.Encode(os.Stdout, doc, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := document.Encode(f, doc, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ResolveDocument treats ref as a file path when such a file exists, and as
// a scenario id in the configured store otherwise.
func (a *App) ResolveDocument(ctx context.Context, ref string) (document.Document, error) {
	if _, err := os.Stat(ref); err == nil {
		return ReadDocumentFile(ref)
	}
	doc, err := a.Store.Get(ctx, ref)
	if err != nil {
		return document.Document{}, fmt.Errorf("scenario %s: %w", ref, err)
	}
	return doc, nil
}

// PrintDiagnostics writes one coloured line per diagnostic and reports
// whether any of them is an error.
func PrintDiagnostics(w io.Writer, diags []document.Diagnostic) bool {
	for _, d := range diags {
		fmt.Fprintln(w, tui.Colorize(string(d.Severity), d.String()))
	}
	return document.HasErrors(diags)
}

// PrintSystemMessage prints a standardized status line.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
