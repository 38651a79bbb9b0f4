package solver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

const valueColumnName = "value"

// fileHandler pairs a cheap content check with the parser that runs when
// it matches. Handlers are tried in order, a parser that cannot produce
// an answer falls through to the next handler.
type fileHandler struct {
	match func(link string, d *browser.Download) bool
	parse func(ctx context.Context, d *browser.Download) (Answer, bool)
}

// answerFromFile turns a downloaded file into an answer. When no handler
// claims the file the whole body is submitted as a base64 data uri.
func (s *Solver) answerFromFile(ctx context.Context, link string, d *browser.Download) Answer {
	handlers := []fileHandler{
		{match: isCsv, parse: s.csvAnswer},
		{match: isXlsx, parse: s.xlsxAnswer},
		{match: isPdf, parse: s.pdfAnswer},
	}

	for _, h := range handlers {
		if !h.match(link, d) {
			continue
		}
		answer, ok := h.parse(ctx, d)
		if ok {
			return answer
		}
	}

	return TextAnswer("data:application/octet-stream;base64," +
		base64.StdEncoding.EncodeToString(d.Body))
}

func isCsv(link string, d *browser.Download) bool {
	if strings.Contains(d.ContentType, "text/csv") {
		return true
	}
	head := d.Body
	if len(head) > 2000 {
		head = head[:2000]
	}
	return bytes.Contains(head, []byte(","))
}

func isXlsx(link string, d *browser.Download) bool {
	head := d.Body
	if len(head) > 4 {
		head = head[:4]
	}
	return bytes.Contains(head, []byte("PK")) ||
		strings.Contains(strings.ToLower(link), ".xlsx") ||
		strings.Contains(d.ContentType, "application/vnd.openxmlformats")
}

func isPdf(link string, d *browser.Download) bool {
	return strings.Contains(strings.ToLower(link), ".pdf") ||
		strings.Contains(d.ContentType, "application/pdf")
}

func (s *Solver) csvAnswer(ctx context.Context, d *browser.Download) (Answer, bool) {
	reader := csv.NewReader(bytes.NewReader(d.Body))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		slog.WarnContext(ctx, "csv parse failed", "err", err)
		return Answer{}, false
	}
	return valueColumnAnswer(ctx, rows)
}

func (s *Solver) xlsxAnswer(ctx context.Context, d *browser.Download) (Answer, bool) {
	file, err := excelize.OpenReader(bytes.NewReader(d.Body))
	if err != nil {
		slog.WarnContext(ctx, "xlsx parse failed", "err", err)
		return Answer{}, false
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Answer{}, false
	}
	// the data of interest lives on the second sheet when there is one
	sheet := sheets[0]
	if len(sheets) >= 2 {
		sheet = sheets[1]
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		slog.WarnContext(ctx, "xlsx parse failed", "sheet", sheet, "err", err)
		return Answer{}, false
	}
	return valueColumnAnswer(ctx, rows)
}

var pdfNumberRegex = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// pdfAnswer sums every number on the second page. Documents with fewer
// than two pages are handed back for the data uri fallback.
func (s *Solver) pdfAnswer(ctx context.Context, d *browser.Download) (Answer, bool) {
	pages, err := s.pdf.PageTexts(d.Body)
	if err != nil {
		slog.WarnContext(ctx, "pdf parse failed", "err", err)
		return Answer{}, false
	}
	if len(pages) < 2 {
		return Answer{}, false
	}

	text := strings.ReplaceAll(pages[1], ",", "")
	tokens := pdfNumberRegex.FindAllString(text, -1)
	if len(tokens) == 0 {
		return Answer{}, false
	}

	sum := 0.0
	for _, token := range tokens {
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		sum += value
	}
	return NumberAnswer(sum), true
}

// valueColumnAnswer sums the "value" column of a table. The header match
// ignores case and surrounding whitespace. When any cell fails to parse
// as a number the answer degrades to the concatenation of every non-empty
// cell in the column.
func valueColumnAnswer(ctx context.Context, rows [][]string) (Answer, bool) {
	if len(rows) == 0 {
		return Answer{}, false
	}

	header := rows[0]
	col := -1
	for i, name := range header {
		if textutil.NormalizeHeader(name) == valueColumnName {
			col = i
			break
		}
	}
	if col < 0 {
		logClosestHeader(ctx, header)
		return Answer{}, false
	}

	var cells []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		cells = append(cells, cell)
	}

	sum := 0.0
	for _, cell := range cells {
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return TextAnswer(strings.Join(cells, "")), true
		}
		sum += value
	}
	return NumberAnswer(sum), true
}

func logClosestHeader(ctx context.Context, header []string) {
	var mostSimilarity float64
	var mostSimilar string

	for _, name := range header {
		similarity := matchr.JaroWinkler(textutil.NormalizeHeader(name), valueColumnName, false)
		if similarity > mostSimilarity {
			mostSimilarity = similarity
			mostSimilar = name
		}
	}

	slog.DebugContext(
		ctx, "table has no value column",
		"headers", len(header),
		"closest", mostSimilar,
	)
}

// PdfReader extracts per-page text from a pdf document.
type PdfReader interface {
	PageTexts(data []byte) ([]string, error)
}

type pdfReader struct{}

func (pdfReader) PageTexts(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pages = append(pages, text)
	}
	return pages, nil
}
