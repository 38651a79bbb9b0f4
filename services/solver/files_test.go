package solver

import (
	"context"
	"fmt"
	"testing"

	"quizsolver-backend/lib/browser"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakePdfReader struct {
	pages []string
	err   error
}

func (f fakePdfReader) PageTexts(data []byte) ([]string, error) {
	return f.pages, f.err
}

func testSolver(t *testing.T, opts Options) *Solver {
	if opts.Email == "" {
		opts.Email = "student@example.edu"
	}
	if opts.Secret == "" {
		opts.Secret = "test-secret"
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestFilePredicates(t *testing.T) {
	require.True(t, isCsv("https://x/file", &browser.Download{ContentType: "text/csv; charset=utf-8"}))
	require.True(t, isCsv("https://x/file", &browser.Download{Body: []byte("a,b\n1,2\n")}))
	require.False(t, isCsv("https://x/file", &browser.Download{Body: []byte{0x00, 0x01}}))

	require.True(t, isXlsx("https://x/file", &browser.Download{Body: []byte("PK\x03\x04")}))
	require.True(t, isXlsx("https://x/report.XLSX?dl=1", &browser.Download{}))
	require.True(t, isXlsx("https://x/file", &browser.Download{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}))
	require.False(t, isXlsx("https://x/file.csv", &browser.Download{Body: []byte("a,b")}))

	require.True(t, isPdf("https://x/doc.pdf", &browser.Download{}))
	require.True(t, isPdf("https://x/doc", &browser.Download{ContentType: "application/pdf"}))
	require.False(t, isPdf("https://x/doc.csv", &browser.Download{}))
}

func TestCsvAnswer(t *testing.T) {
	s := testSolver(t, Options{})
	ctx := context.Background()

	{
		answer, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("Value\n3\n4\n5\n"),
		})
		require.True(t, ok)
		require.Equal(t, "12.0", answer.String())
	}
	{
		// numeric sums keep a decimal point
		answer, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("name, Value \na,1\nb,2.5\n"),
		})
		require.True(t, ok)
		require.Equal(t, "3.5", answer.String())
	}
	{
		// a non-numeric cell degrades the sum to concatenation
		answer, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("value\n1\nabc\n"),
		})
		require.True(t, ok)
		require.Equal(t, `"1abc"`, answer.String())
	}
	{
		// empty cells are skipped
		answer, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("value,note\n1,x\n,y\n2,z\n"),
		})
		require.True(t, ok)
		require.Equal(t, "3.0", answer.String())
	}
	{
		// a table without a value column is not an answer
		_, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("name,amount\na,1\n"),
		})
		require.False(t, ok)
	}
	{
		// a value column with no rows still sums to zero
		answer, ok := s.csvAnswer(ctx, &browser.Download{
			Body: []byte("value\n\n"),
		})
		require.True(t, ok)
		require.Equal(t, "0.0", answer.String())
	}
}

func buildWorkbook(t *testing.T, sheets map[string][][]any) []byte {
	file := excelize.NewFile()
	first := true
	for _, name := range []string{"Overview", "Data"} {
		rows, ok := sheets[name]
		if !ok {
			continue
		}
		if first {
			require.NoError(t, file.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := file.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			for j, cell := range row {
				axis, err := excelize.CoordinatesToCellName(j+1, i+1)
				require.NoError(t, err)
				require.NoError(t, file.SetCellValue(name, axis, cell))
			}
		}
	}
	buffer, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buffer.Bytes()
}

func TestXlsxAnswer(t *testing.T) {
	s := testSolver(t, Options{})
	ctx := context.Background()

	{
		// with two sheets the second one holds the data
		body := buildWorkbook(t, map[string][][]any{
			"Overview": {{"value"}, {999}},
			"Data":     {{"Value"}, {1}, {2}},
		})
		answer, ok := s.xlsxAnswer(ctx, &browser.Download{Body: body})
		require.True(t, ok)
		require.Equal(t, "3.0", answer.String())
	}
	{
		// a single sheet workbook reads that sheet
		body := buildWorkbook(t, map[string][][]any{
			"Overview": {{"value"}, {4}, {5}},
		})
		answer, ok := s.xlsxAnswer(ctx, &browser.Download{Body: body})
		require.True(t, ok)
		require.Equal(t, "9.0", answer.String())
	}
	{
		// corrupt file
		_, ok := s.xlsxAnswer(ctx, &browser.Download{Body: []byte("PK not really")})
		require.False(t, ok)
	}
}

func TestPdfAnswer(t *testing.T) {
	ctx := context.Background()

	{
		s := testSolver(t, Options{Pdf: fakePdfReader{
			pages: []string{"cover page", "totals: 10 then 20 then 1.5 and 1,000"},
		}})
		answer, ok := s.pdfAnswer(ctx, &browser.Download{})
		require.True(t, ok)
		// the thousands separator is stripped before numbers are read
		require.Equal(t, "1031.5", answer.String())
	}
	{
		// single page documents are skipped
		s := testSolver(t, Options{Pdf: fakePdfReader{pages: []string{"10 20"}}})
		_, ok := s.pdfAnswer(ctx, &browser.Download{})
		require.False(t, ok)
	}
	{
		// second page without numbers
		s := testSolver(t, Options{Pdf: fakePdfReader{pages: []string{"a", "no digits here"}}})
		_, ok := s.pdfAnswer(ctx, &browser.Download{})
		require.False(t, ok)
	}
	{
		s := testSolver(t, Options{Pdf: fakePdfReader{err: fmt.Errorf("broken")}})
		_, ok := s.pdfAnswer(ctx, &browser.Download{})
		require.False(t, ok)
	}
}

func TestAnswerFromFile(t *testing.T) {
	s := testSolver(t, Options{})
	ctx := context.Background()

	{
		// no handler claims the file, so it comes back as a data uri
		answer := s.answerFromFile(ctx, "https://x/blob.bin", &browser.Download{
			Body: []byte{0x00, 0x01},
		})
		require.Equal(t, `"data:application/octet-stream;base64,AAE="`, answer.String())
	}
	{
		// a csv without a value column falls through to the data uri
		answer := s.answerFromFile(ctx, "https://x/table.csv", &browser.Download{
			ContentType: "text/csv",
			Body:        []byte("name;amount\na;1\n"),
		})
		require.Equal(t,
			`"data:application/octet-stream;base64,`+
				"bmFtZTthbW91bnQKYTsxCg==\"",
			answer.String())
	}
}
