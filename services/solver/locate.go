package solver

import (
	"context"
	"net/http"
	"regexp"

	"quizsolver-backend/lib/browser"

	"go.opentelemetry.io/otel/attribute"
)

var submitUrlRegex = regexp.MustCompile(`https?://[^\s"'<>]+/submit[^\s"'<>]*`)

// findSubmitUrl locates the endpoint answers should be posted to. Lookup
// order: the first POST form with an action, then an absolute /submit url
// anywhere in the raw html, then one in the page's visible text. Returns
// an empty string when nothing matches.
func findSubmitUrl(ctx context.Context, page *browser.Page) string {
	ctx, span := tracer.Start(ctx, "findSubmitUrl")
	defer span.End()

	for _, form := range page.Forms(ctx) {
		if form.Action == "" || form.Method != http.MethodPost {
			continue
		}
		resolved := page.Resolve(form.Action)
		span.SetAttributes(
			attribute.String("source", "form"),
			attribute.String("submit_url", resolved),
		)
		return resolved
	}

	if m := submitUrlRegex.FindString(page.Html); m != "" {
		span.SetAttributes(
			attribute.String("source", "html"),
			attribute.String("submit_url", m),
		)
		return m
	}

	if m := submitUrlRegex.FindString(page.VisibleText()); m != "" {
		span.SetAttributes(
			attribute.String("source", "visible_text"),
			attribute.String("submit_url", m),
		)
		return m
	}

	span.SetAttributes(attribute.String("source", "none"))
	return ""
}
