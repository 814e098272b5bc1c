package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Document is the text extracted from a PDF
type Document struct {
	Text      string    `json:"text"`
	PageCount int       `json:"page_count"`
	Metadata  *Metadata `json:"metadata"`
}

// PDFExtractor extracts text from PDF bytes
type PDFExtractor struct{}

// ExtractText implements the extractor used by the optimization pipeline
func (PDFExtractor) ExtractText(data []byte) (*Document, error) {
	return ExtractText(data)
}

// ExtractText pulls plain text and metadata out of a PDF. Pages are joined with a
// newline. A page whose text runs cannot be decoded falls back to a stripped
// representation of its raw runs instead of failing the whole document.
func ExtractText(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Message: "empty document"}
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, &ExtractionError{Message: "not a PDF document"}
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &ExtractionError{Message: "failed to parse PDF", Cause: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Message: "failed to parse PDF", Cause: err}
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return nil, &ExtractionError{Message: "PDF has no pages"}
	}

	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageText(page))
	}

	meta := NewMetadata(data)
	meta.PageCount = pageCount
	readInfo(reader, meta)

	return &Document{
		Text:      strings.Join(pages, "\n"),
		PageCount: pageCount,
		Metadata:  meta,
	}, nil
}

func pageText(page pdf.Page) string {
	text, err := page.GetPlainText(nil)
	if err == nil {
		return text
	}
	return strippedPageText(page)
}

// strippedPageText concatenates the raw glyph runs of a page, keeping only printable runes.
func strippedPageText(page pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	var sb strings.Builder
	for _, t := range page.Content().Text {
		for _, r := range t.S {
			if unicode.IsPrint(r) || r == '\n' {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

func readInfo(reader *pdf.Reader, meta *Metadata) {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	meta.Title = info.Key("Title").Text()
	meta.Author = info.Key("Author").Text()
	meta.Subject = info.Key("Subject").Text()
	meta.Creator = info.Key("Creator").Text()
	meta.Producer = info.Key("Producer").Text()
}
