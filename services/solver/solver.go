package solver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("quizsolver.services.solver")

const defaultMaxRuntime = time.Minute * 3
const navigateTimeout = time.Second * 60

type Options struct {
	// identity included in every submission
	Email  string
	Secret string
	// ceiling on a single quiz chain run, defaults to 3 minutes
	MaxRuntime time.Duration
	// NewSession creates the browsing context for one run. Defaults to a
	// plain http session.
	NewSession func() (browser.Session, error)
	// Pdf overrides document text extraction, mostly for tests.
	Pdf PdfReader
}

// Solver walks a quiz chain: load a page, work out the answer, post it,
// follow wherever the grader points next.
type Solver struct {
	email      string
	secret     string
	maxRuntime time.Duration
	newSession func() (browser.Session, error)
	submit     *resty.Client
	pdf        PdfReader
}

func New(opts Options) (*Solver, error) {
	if opts.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if opts.Secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	if opts.MaxRuntime <= 0 {
		opts.MaxRuntime = defaultMaxRuntime
	}
	if opts.NewSession == nil {
		opts.NewSession = func() (browser.Session, error) {
			return browser.NewSession(browser.Options{})
		}
	}
	if opts.Pdf == nil {
		opts.Pdf = pdfReader{}
	}

	// submissions go through their own client, separate from the
	// browsing session
	submit := resty.New()
	telemetry.InstrumentResty(submit, "solver/submit")

	return &Solver{
		email:      opts.Email,
		secret:     opts.Secret,
		maxRuntime: opts.MaxRuntime,
		newSession: opts.NewSession,
		submit:     submit,
		pdf:        opts.Pdf,
	}, nil
}

// Run works through the quiz chain starting at startUrl until a terminal
// state or the runtime ceiling is reached. The deadline is only checked
// between pages, an iteration that has started is allowed to finish.
func (s *Solver) Run(ctx context.Context, startUrl string) Result {
	ctx, span := tracer.Start(ctx, "service:Run", trace.WithAttributes(
		attribute.String("url", startUrl),
	))
	defer span.End()

	session, err := s.newSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create browser session")
		return Result{
			Status: StatusSubmitError,
			Reason: fmt.Sprintf("create browser session: %s", err),
		}
	}
	defer func() {
		err := session.Close()
		if err != nil {
			slog.WarnContext(ctx, "failed to close browser session", "err", err)
		}
	}()

	result := s.run(ctx, session, startUrl)
	span.SetAttributes(attribute.String("status", string(result.Status)))
	return result
}

func (s *Solver) run(ctx context.Context, session browser.Session, startUrl string) Result {
	deadline := time.Now().Add(s.maxRuntime)
	currentUrl := startUrl

	for time.Now().Before(deadline) && currentUrl != "" && ctx.Err() == nil {
		remaining := time.Until(deadline)
		slog.InfoContext(
			ctx, "visiting",
			"url", currentUrl,
			"time_left", remaining.Round(time.Second).String(),
		)

		page := s.loadPage(ctx, session, currentUrl)

		submitUrl := findSubmitUrl(ctx, page)
		answer := s.extractAnswer(ctx, session, page, remaining)

		if submitUrl == "" {
			slog.InfoContext(ctx, "no submit url found", "url", currentUrl)
			return Result{
				Status: StatusNoSubmit,
				Url:    currentUrl,
				Answer: &answer,
			}
		}

		grade, err := s.submitAnswer(ctx, submitUrl, Submission{
			Email:  s.email,
			Secret: s.secret,
			Url:    currentUrl,
			Answer: answer,
		}, remaining)
		if err != nil {
			slog.ErrorContext(ctx, "failed to post answer", "url", submitUrl, "err", err)
			return Result{Status: StatusSubmitError, Reason: err.Error()}
		}

		slog.InfoContext(
			ctx, "submit response",
			"correct", grade.Correct,
			"next_url", grade.NextUrl,
		)

		if grade.Correct {
			if grade.NextUrl == "" {
				return Result{Status: StatusFinished, LastResponse: grade.Raw}
			}
			currentUrl = grade.NextUrl
			continue
		}
		if grade.NextUrl != "" {
			// wrong answer but the grader still moved us along
			currentUrl = grade.NextUrl
			continue
		}

		slog.InfoContext(ctx, "answer incorrect with no next url", "url", currentUrl)
		return Result{Status: StatusIncorrect, LastResponse: grade.Raw}
	}

	return Result{Status: StatusTimeoutOrDeadline}
}

// loadPage navigates to a url, falling back to an empty page when the
// fetch fails so a single flaky page never aborts the run.
func (s *Solver) loadPage(ctx context.Context, session browser.Session, pageUrl string) *browser.Page {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	page, err := session.Navigate(navCtx, pageUrl)
	if err == nil {
		return page
	}
	slog.WarnContext(ctx, "navigation failed, continuing with an empty page", "url", pageUrl, "err", err)

	page, err = browser.NewPage(pageUrl, nil)
	if err != nil {
		// the url itself does not parse
		page, _ = browser.NewPage("about:blank", nil)
	}
	return page
}

func (s *Solver) submitAnswer(ctx context.Context, submitUrl string, submission Submission, remaining time.Duration) (GradeResponse, error) {
	ctx, span := tracer.Start(ctx, "service:SubmitAnswer", trace.WithAttributes(
		attribute.String("url", submitUrl),
	))
	defer span.End()

	timeout := min(time.Second*30, max(time.Second*5, remaining-time.Second))
	postCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.InfoContext(ctx, "submitting answer", "url", submitUrl)
	res, err := s.submit.R().
		SetContext(postCtx).
		SetHeader("content-type", "application/json").
		SetBody(submission).
		Post(submitUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post answer")
		return GradeResponse{}, err
	}

	return parseGradeResponse(res.StatusCode(), res.Body()), nil
}
