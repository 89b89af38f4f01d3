package parser

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// readPages decodes the PDF at path into one slice of positioned text runs
// per page. Pages that cannot be decoded (null page objects) contribute an
// empty run set rather than failing the document.
func readPages(path string) ([][]Run, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([][]Run, total)
	for n := 1; n <= total; n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		runs := make([]Run, 0, len(content.Text))
		for _, t := range content.Text {
			runs = append(runs, Run{
				X:    t.X,
				Y:    t.Y,
				W:    t.W,
				Size: t.FontSize,
				Text: t.S,
			})
		}
		pages[n-1] = runs
	}
	return pages, nil
}
