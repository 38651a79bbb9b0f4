package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// gradeServer plays the part of the quiz host: it serves pages and
// records everything posted to /submit.
type gradeServer struct {
	mu          sync.Mutex
	server      *httptest.Server
	pages       map[string]string
	responses   []map[string]any
	submissions []map[string]any
}

func newGradeServer(t *testing.T) *gradeServer {
	g := &gradeServer{pages: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		var body map[string]any
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)
		g.submissions = append(g.submissions, body)

		require.NotEmpty(t, g.responses, "unexpected submission")
		next := g.responses[0]
		g.responses = g.responses[1:]

		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(next)
		require.NoError(t, err)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		page, ok := g.pages[r.URL.Path]
		g.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *gradeServer) url(path string) string {
	return g.server.URL + path
}

// a page whose post form points at the grader
func (g *gradeServer) quizPage(question string) string {
	return fmt.Sprintf(`<html><body>
		<p>%s</p>
		<form action="/submit" method="post"></form>
	</body></html>`, question)
}

func setupRun(t *testing.T, opts Options) *Solver {
	cleanup := telemetry.SetupForTesting(t, "test:services/solver")
	t.Cleanup(cleanup)
	return testSolver(t, opts)
}

func TestRunFinishedChain(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = g.quizPage("What is 2 + 3?")
	g.pages["/q/2"] = g.quizPage("Answer true or false.")
	g.responses = []map[string]any{
		{"correct": true, "url": g.url("/q/2")},
		{"correct": true},
	}

	s := setupRun(t, Options{})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusFinished, result.Status)
	require.Equal(t, map[string]any{"correct": true}, result.LastResponse)

	require.Len(t, g.submissions, 2)
	require.Equal(t, "student@example.edu", g.submissions[0]["email"])
	require.Equal(t, "test-secret", g.submissions[0]["secret"])
	require.Equal(t, g.url("/q/1"), g.submissions[0]["url"])
	require.Equal(t, float64(5), g.submissions[0]["answer"])
	require.Equal(t, true, g.submissions[1]["answer"])
}

func TestRunIncorrectStops(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = g.quizPage("What is 1 + 1?")
	g.responses = []map[string]any{
		{"correct": false, "expected": "something else"},
	}

	s := setupRun(t, Options{})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusIncorrect, result.Status)
	require.Equal(t,
		map[string]any{"correct": false, "expected": "something else"},
		result.LastResponse,
	)
}

func TestRunIncorrectFollowsNextUrl(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = g.quizPage("What is 1 + 1?")
	g.pages["/q/2"] = g.quizPage("What is 2 + 2?")
	g.responses = []map[string]any{
		// wrong, but the grader moves us along anyway
		{"correct": false, "url": g.url("/q/2")},
		{"correct": true},
	}

	s := setupRun(t, Options{})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusFinished, result.Status)
	require.Len(t, g.submissions, 2)
}

func TestRunNoSubmit(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = `<html><body><p>There is nowhere to send anything.</p></body></html>`

	s := setupRun(t, Options{})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusNoSubmit, result.Status)
	require.Equal(t, g.url("/q/1"), result.Url)
	require.NotNil(t, result.Answer)
	require.Equal(t, AnswerText, result.Answer.Kind)
	require.Empty(t, g.submissions)
}

func TestRunSubmitError(t *testing.T) {
	g := newGradeServer(t)
	// the form points at a port nothing listens on
	g.pages["/q/1"] = `<html><body>
		<form action="http://127.0.0.1:1/submit" method="post"></form>
	</body></html>`

	s := setupRun(t, Options{})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusSubmitError, result.Status)
	require.NotEmpty(t, result.Reason)
}

func TestRunDeadline(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = g.quizPage("What is 1 + 1?")

	s := setupRun(t, Options{MaxRuntime: time.Nanosecond})

	result := s.Run(context.Background(), g.url("/q/1"))
	require.Equal(t, StatusTimeoutOrDeadline, result.Status)
	require.Empty(t, g.submissions)
}

func TestRunCancelledContext(t *testing.T) {
	g := newGradeServer(t)
	g.pages["/q/1"] = g.quizPage("What is 1 + 1?")

	s := setupRun(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := s.Run(ctx, g.url("/q/1"))
	require.Equal(t, StatusTimeoutOrDeadline, result.Status)
}

func TestRunClosesSessionOnce(t *testing.T) {
	session := &fakeSession{
		pages: map[string]string{
			"https://q.example.com/1": `<html><body><p>dead end</p></body></html>`,
		},
	}
	s := setupRun(t, Options{
		NewSession: func() (browser.Session, error) { return session, nil },
	})

	result := s.Run(context.Background(), "https://q.example.com/1")
	require.Equal(t, StatusNoSubmit, result.Status)
	require.Equal(t, 1, session.closed)
}

func TestRunNavigationFailureKeepsGoing(t *testing.T) {
	// the page does not exist anywhere, the run should still terminate
	// cleanly instead of crashing
	session := &fakeSession{}
	s := setupRun(t, Options{
		NewSession: func() (browser.Session, error) { return session, nil },
	})

	result := s.Run(context.Background(), "https://gone.example.com/q")
	require.Equal(t, StatusNoSubmit, result.Status)
	require.Equal(t, "https://gone.example.com/q", result.Url)
	require.Equal(t, 1, session.closed)
}
