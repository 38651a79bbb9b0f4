package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"quizsolver-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("quizsolver.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	ctx, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := GetText(n)
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}

type Form struct {
	Action string
	Method string
}

func GetForms(ctx context.Context, sel *goquery.Selection) []Form {
	ctx, span := tracer.Start(ctx, "GetForms")
	defer span.End()

	forms := []Form{}
	for _, n := range sel.Nodes {
		var action, method string
		for _, a := range n.Attr {
			switch a.Key {
			case "action":
				action = a.Val
			case "method":
				method = a.Val
			}
		}

		form := Form{
			Action: strings.TrimSpace(action),
			Method: strings.ToUpper(strings.TrimSpace(method)),
		}
		forms = append(forms, form)
		span.AddEvent("form", trace.WithAttributes(
			attribute.String("action", form.Action),
			attribute.String("method", form.Method),
		))
	}

	return forms
}

var hiddenTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// VisibleText approximates what a browser would render for the document:
// hidden containers are skipped and block elements start a new line.
func VisibleText(doc *goquery.Document) string {
	var buffer bytes.Buffer
	nodes := doc.Find("body").Nodes
	if len(nodes) == 0 {
		nodes = doc.Nodes
	}
	for _, n := range nodes {
		visibleTextRecursive(n, &buffer)
	}

	lines := strings.Split(buffer.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = textutil.CollapseSpaces(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func visibleTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if hiddenTags[node.Data] {
			return
		}
	}

	block := node.Type == html.ElementNode && blockTags[node.Data]
	if block {
		buffer.WriteString("\n")
	}
	child := node.FirstChild
	for child != nil {
		visibleTextRecursive(child, buffer)
		child = child.NextSibling
	}
	if block {
		buffer.WriteString("\n")
	}
}
