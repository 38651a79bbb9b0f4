package solver

import (
	"fmt"
	"strconv"
)

// Arithmetic questions are answered by a dedicated recursive descent
// evaluator. Quiz pages are untrusted input, so expressions are never
// handed to anything more powerful than this.
//
// grammar:
//
//	expr   = term (('+'|'-') term)*
//	term   = factor (('*'|'/') factor)*
//	factor = ('+'|'-') factor | number | '(' expr ')'
type exprParser struct {
	input string
	pos   int
}

// number tracks whether a result is still a whole-number computation.
// Division always produces a decimal result, even when it comes out whole.
type number struct {
	value    float64
	integral bool
}

func evalArithmetic(expr string) (Answer, error) {
	p := &exprParser{input: expr}
	n, err := p.parseExpr()
	if err != nil {
		return Answer{}, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return Answer{}, fmt.Errorf("unexpected character %q at offset %d", p.input[p.pos], p.pos)
	}
	return Answer{Kind: AnswerNumber, Number: n.value, Integral: n.integral}, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (number, error) {
	left, err := p.parseTerm()
	if err != nil {
		return number{}, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return number{}, err
		}
		if op == '+' {
			left.value += right.value
		} else {
			left.value -= right.value
		}
		left.integral = left.integral && right.integral
	}
}

func (p *exprParser) parseTerm() (number, error) {
	left, err := p.parseFactor()
	if err != nil {
		return number{}, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++

		right, err := p.parseFactor()
		if err != nil {
			return number{}, err
		}
		if op == '*' {
			left.value *= right.value
			left.integral = left.integral && right.integral
		} else {
			if right.value == 0 {
				return number{}, fmt.Errorf("division by zero")
			}
			left.value /= right.value
			left.integral = false
		}
	}
}

func (p *exprParser) parseFactor() (number, error) {
	p.skipSpaces()
	switch p.peek() {
	case '+':
		p.pos++
		return p.parseFactor()
	case '-':
		p.pos++
		n, err := p.parseFactor()
		if err != nil {
			return number{}, err
		}
		n.value = -n.value
		return n, nil
	case '(':
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return number{}, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return number{}, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return n, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (number, error) {
	start := p.pos
	integral := true
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.peek() == '.' {
		integral = false
		p.pos++
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}

	token := p.input[start:p.pos]
	if token == "" || token == "." {
		return number{}, fmt.Errorf("expected a number at offset %d", start)
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return number{}, err
	}
	return number{value: value, integral: integral}, nil
}
