package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdftext extracts plain text from a PDF, one page at a time, with page
// separators so the result is chunkable by the ingest tool.
func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.pdf>\n", os.Args[0])
		os.Exit(2)
	}

	text, err := extract(flag.Arg(0))
	if err != nil {
		slog.Error("failed to extract text", "file", flag.Arg(0), "err", err)
		os.Exit(1)
	}
	fmt.Print(text)
}

func extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single corrupt page should not sink the document.
			slog.Warn("failed to read page", "page", i, "err", err)
			continue
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", i)
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
