package solver

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
)

const answerSnippetLength = 400

var fileExtensions = []string{".csv", ".xlsx", ".xls", ".pdf"}

var booleanWordRegex = regexp.MustCompile(`(?i)\btrue\b|\bfalse\b`)
var arithmeticQuestionRegex = regexp.MustCompile(`(?i)what is ([0-9\+\-\*\/\s\(\)\.]+)\?`)
var arithmeticCharsetRegex = regexp.MustCompile(`^[\d\.\+\-\*\/\s\(\)]+$`)

// findFileLink returns the absolute url of the first anchor pointing at a
// spreadsheet or document file, or an empty string.
func findFileLink(ctx context.Context, page *browser.Page) string {
	for _, anchor := range page.Anchors(ctx) {
		href := strings.ToLower(anchor.Href)
		for _, ext := range fileExtensions {
			if strings.Contains(href, ext) {
				return page.Resolve(anchor.Href)
			}
		}
	}
	return ""
}

// extractAnswer tries each answer heuristic in order:
//
//  1. a linked data file, downloaded and parsed
//  2. a true/false question in the visible text
//  3. a "what is <expression>?" arithmetic question
//  4. the first few hundred characters of visible text
//
// A file link always decides the outcome once found: a failed download
// produces a null answer rather than falling through to the text
// heuristics.
func (s *Solver) extractAnswer(ctx context.Context, session browser.Session, page *browser.Page, remaining time.Duration) Answer {
	ctx, span := tracer.Start(ctx, "extractAnswer")
	defer span.End()

	answer := s.extractAnswerInner(ctx, session, page, remaining)
	span.SetAttributes(attribute.String("answer", answer.String()))
	return answer
}

func (s *Solver) extractAnswerInner(ctx context.Context, session browser.Session, page *browser.Page, remaining time.Duration) Answer {
	fileLink := findFileLink(ctx, page)
	if fileLink != "" {
		slog.InfoContext(ctx, "found file link", "url", fileLink)

		timeout := min(time.Second*30, max(time.Second*10, remaining-time.Second))
		downloadCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		download, err := session.Fetch(downloadCtx, fileLink)
		if err != nil {
			slog.WarnContext(ctx, "failed to download file", "url", fileLink, "err", err)
			return NullAnswer()
		}
		return s.answerFromFile(ctx, fileLink, download)
	}

	text := page.VisibleText()

	if booleanWordRegex.MatchString(text) {
		return BoolAnswer(strings.Contains(strings.ToLower(text), "true"))
	}

	if m := arithmeticQuestionRegex.FindStringSubmatch(text); len(m) == 2 {
		expr := m[1]
		if arithmeticCharsetRegex.MatchString(expr) {
			answer, err := evalArithmetic(expr)
			if err == nil {
				return answer
			}
			slog.DebugContext(ctx, "arithmetic question did not evaluate", "expr", expr, "err", err)
		}
	}

	return TextAnswer(textutil.Snippet(text, answerSnippetLength))
}
