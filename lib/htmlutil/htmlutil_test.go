package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestGetAnchors(t *testing.T) {
	doc := parse(t, `<html><body>
		<a href="/files/data.csv">  Download   the data  </a>
		<a href="https://example.com/next">next</a>
	</body></html>`)

	anchors := GetAnchors(context.Background(), doc.Find("a"))
	require.Len(t, anchors, 2)
	require.Equal(t, Anchor{
		Name: "Download the data",
		Href: "/files/data.csv",
	}, anchors[0])
	require.Equal(t, "https://example.com/next", anchors[1].Href)
}

func TestGetForms(t *testing.T) {
	doc := parse(t, `<html><body>
		<form action=" /submit " method="post"></form>
		<form action="/search"></form>
	</body></html>`)

	forms := GetForms(context.Background(), doc.Find("form"))
	require.Len(t, forms, 2)
	require.Equal(t, Form{Action: "/submit", Method: "POST"}, forms[0])
	// no method attribute means the browser default, not POST
	require.Equal(t, Form{Action: "/search", Method: ""}, forms[1])
}

func TestVisibleText(t *testing.T) {
	doc := parse(t, `<html>
	<head><title>ignored</title><style>body { color: red }</style></head>
	<body>
		<script>var hidden = true;</script>
		<h1>Quiz   7</h1>
		<p>What is 2 + 2?</p>
		<div><span>inline</span> <span>text</span></div>
	</body></html>`)

	text := VisibleText(doc)
	require.Equal(t, "Quiz 7\nWhat is 2 + 2?\ninline text", text)
	require.NotContains(t, text, "hidden")
	require.NotContains(t, text, "color")
}

func TestVisibleTextNoBody(t *testing.T) {
	doc := parse(t, `<p>bare fragment</p>`)
	require.Equal(t, "bare fragment", VisibleText(doc))
}
