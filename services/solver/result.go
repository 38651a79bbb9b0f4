package solver

import "encoding/json"

type Status string

const (
	// every page in the chain was answered and the grader had no next url
	StatusFinished Status = "finished"
	// the grader rejected an answer and gave no next url to move on to
	StatusIncorrect Status = "incorrect"
	// no submission endpoint could be located on the page
	StatusNoSubmit Status = "no_submit"
	// posting the answer failed at the transport level
	StatusSubmitError Status = "submit_error"
	// the run hit its deadline before reaching a terminal page
	StatusTimeoutOrDeadline Status = "timeout_or_deadline"
)

// Result is the terminal outcome of one quiz chain run.
type Result struct {
	Status Status `json:"status"`
	// the page being worked on when the run ended
	Url string `json:"url,omitempty"`
	// what would have been submitted, reported when no endpoint was found
	Answer *Answer `json:"answer_candidate,omitempty"`
	// the grader's final response body
	LastResponse any    `json:"last_response,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Submission is the payload posted to a quiz submission endpoint.
type Submission struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Url    string `json:"url"`
	Answer Answer `json:"answer"`
}

// GradeResponse is what the grader sent back after a submission.
type GradeResponse struct {
	// true only when the response body had a boolean true under "correct"
	Correct bool
	// where to go next, empty on terminal responses
	NextUrl string
	// the decoded response body, kept for reporting
	Raw any
}

func parseGradeResponse(statusCode int, body []byte) GradeResponse {
	var raw any
	err := json.Unmarshal(body, &raw)
	if err != nil {
		return GradeResponse{Raw: map[string]any{
			"status": statusCode,
			"text":   string(body),
		}}
	}

	grade := GradeResponse{Raw: raw}
	dict, ok := raw.(map[string]any)
	if !ok {
		return grade
	}
	if correct, ok := dict["correct"].(bool); ok {
		grade.Correct = correct
	}
	if nextUrl, ok := dict["url"].(string); ok {
		grade.NextUrl = nextUrl
	}
	return grade
}
