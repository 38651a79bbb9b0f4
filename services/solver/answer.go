package solver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type AnswerKind int

const (
	AnswerNull AnswerKind = iota
	AnswerNumber
	AnswerBool
	AnswerText
)

// Answer is the value submitted for a quiz page. It marshals to the bare
// json value so the submission payload stays `"answer": 42` rather than a
// nested object.
type Answer struct {
	Kind   AnswerKind
	Number float64
	// integral numbers render without a decimal point, sums and division
	// results keep one
	Integral bool
	Bool     bool
	Text     string
}

func NullAnswer() Answer {
	return Answer{Kind: AnswerNull}
}

func NumberAnswer(value float64) Answer {
	return Answer{Kind: AnswerNumber, Number: value}
}

func BoolAnswer(value bool) Answer {
	return Answer{Kind: AnswerBool, Bool: value}
}

func TextAnswer(text string) Answer {
	return Answer{Kind: AnswerText, Text: text}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerNull:
		return []byte("null"), nil
	case AnswerNumber:
		if a.Integral {
			return strconv.AppendInt(nil, int64(a.Number), 10), nil
		}
		s := strconv.FormatFloat(a.Number, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case AnswerBool:
		return strconv.AppendBool(nil, a.Bool), nil
	case AnswerText:
		return json.Marshal(a.Text)
	}
	return nil, fmt.Errorf("unknown answer kind: %d", a.Kind)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	token := strings.TrimSpace(string(data))
	switch {
	case token == "null":
		*a = NullAnswer()
		return nil
	case token == "true" || token == "false":
		*a = BoolAnswer(token == "true")
		return nil
	case strings.HasPrefix(token, `"`):
		var text string
		err := json.Unmarshal(data, &text)
		if err != nil {
			return err
		}
		*a = TextAnswer(text)
		return nil
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return fmt.Errorf("not a valid answer value: %s", token)
	}
	*a = Answer{
		Kind:     AnswerNumber,
		Number:   value,
		Integral: !strings.ContainsAny(token, ".eE"),
	}
	return nil
}

// String renders the answer the way it would appear in a submission.
func (a Answer) String() string {
	data, err := a.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid answer: %s>", err)
	}
	return string(data)
}
