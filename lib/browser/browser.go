package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"quizsolver-backend/lib/htmlutil"
	"quizsolver-backend/lib/restyutil"
	"quizsolver-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizsolver.lib.browser")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Session is a cookie-carrying http browsing context. Every quiz run gets
// its own session so state never leaks between jobs.
type Session interface {
	// Navigate fetches a page and parses it. Non-2xx pages are still
	// returned since error pages can carry usable content.
	Navigate(ctx context.Context, pageUrl string) (*Page, error)
	// Fetch downloads a linked file using the session's cookies.
	Fetch(ctx context.Context, fileUrl string) (*Download, error)
	Close() error
}

type Page struct {
	Url  *url.URL
	Doc  *goquery.Document
	Html string
}

type Download struct {
	Body        []byte
	ContentType string
}

func NewPage(pageUrl string, html []byte) (*Page, error) {
	u, err := url.Parse(pageUrl)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{Url: u, Doc: doc, Html: string(html)}, nil
}

func (p *Page) VisibleText() string {
	return htmlutil.VisibleText(p.Doc)
}

func (p *Page) Forms(ctx context.Context) []htmlutil.Form {
	return htmlutil.GetForms(ctx, p.Doc.Find("form"))
}

func (p *Page) Anchors(ctx context.Context) []htmlutil.Anchor {
	return htmlutil.GetAnchors(ctx, p.Doc.Find("a"))
}

// Resolve turns an href from this page into an absolute url.
func (p *Page) Resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.Url.ResolveReference(ref).String()
}

type Options struct {
	// overrides the default chrome user agent
	UserAgent string
	// when set, every http message is dumped into this directory
	// (debug logging must also be enabled)
	DebugHttpDir string
}

type session struct {
	http *resty.Client
}

func NewSession(opts Options) (Session, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client.SetHeader("user-agent", ua)
	// navigation ceiling, callers pass a tighter deadline through ctx
	client.SetTimeout(time.Second * 60)

	if opts.DebugHttpDir != "" {
		restyutil.InstrumentClient(
			client,
			otel.Tracer("browser/http"),
			restyutil.NewFilesystemOutput(opts.DebugHttpDir),
		)
	} else {
		telemetry.InstrumentResty(client, "browser/http")
	}

	return &session{http: client}, nil
}

func (s *session) Navigate(ctx context.Context, pageUrl string) (*Page, error) {
	ctx, span := tracer.Start(ctx, "client:Navigate")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, err
	}
	span.SetAttributes(attribute.Int("status", res.StatusCode()))

	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		// resty follows redirects, report where we actually landed
		finalUrl = res.RawResponse.Request.URL.String()
	}

	page, err := NewPage(finalUrl, res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	return page, nil
}

func (s *session) Fetch(ctx context.Context, fileUrl string) (*Download, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(fileUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch file")
		return nil, err
	}
	if res.StatusCode() >= 400 {
		err := fmt.Errorf("fetch %s: status %d", fileUrl, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch file")
		return nil, err
	}

	return &Download{
		Body:        res.Body(),
		ContentType: res.Header().Get("content-type"),
	}, nil
}

func (s *session) Close() error {
	s.http.GetClient().CloseIdleConnections()
	return nil
}
