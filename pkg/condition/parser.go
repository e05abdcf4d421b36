/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Recursive-descent parser for the synthesizer's reply: a single
(define-fun f ((p Int)...) Bool body) s-expression parsed back into a BoolExpr.
*/

package condition

import (
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
)

type sexpParser struct {
	s   string
	pos int
}

func isDelimiter(c byte) bool { return c == ' ' || c == '\n' || c == '\t' || c == '\\' }
func isDigit(c byte) bool     { return '0' <= c && c <= '9' }
func isAlphabet(c byte) bool  { return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') }
func isIdentChar(c byte) bool { return isAlphabet(c) || isDigit(c) || c == '_' }

func (p *sexpParser) eof() bool { return p.pos >= len(p.s) }

func (p *sexpParser) strip() {
	for !p.eof() && isDelimiter(p.s[p.pos]) {
		p.pos++
	}
}

func (p *sexpParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *sexpParser) consumeByte(c byte) error {
	p.strip()
	if p.eof() || p.s[p.pos] != c {
		return fmt.Errorf("condition: expected %q at %q", string(c), p.rest())
	}
	p.pos++
	p.strip()
	return nil
}

func (p *sexpParser) consume(str string) error {
	p.strip()
	if !strings.HasPrefix(p.s[p.pos:], str) {
		return fmt.Errorf("condition: expected %q at %q", str, p.rest())
	}
	p.pos += len(str)
	p.strip()
	return nil
}

func (p *sexpParser) hasPrefix(str string) bool {
	p.strip()
	return strings.HasPrefix(p.s[p.pos:], str)
}

func (p *sexpParser) rest() string {
	tail := p.s[p.pos:]
	if len(tail) > 40 {
		tail = tail[:40] + "..."
	}
	return tail
}

func (p *sexpParser) parseID() (string, error) {
	p.strip()
	start := p.pos
	if p.eof() || !(isAlphabet(p.s[p.pos]) || p.s[p.pos] == '_') {
		return "", fmt.Errorf("condition: not a valid identifier at %q", p.rest())
	}
	p.pos++
	for !p.eof() && isIdentChar(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos], nil
}

func (p *sexpParser) parseNumber() (int64, error) {
	neg := false
	if p.peek() == '-' {
		neg = true
		p.pos++
	}
	if p.eof() || !isDigit(p.s[p.pos]) {
		return 0, fmt.Errorf("condition: expected a number at %q", p.rest())
	}
	var value int64
	for !p.eof() && isDigit(p.s[p.pos]) {
		value = value*10 + int64(p.s[p.pos]-'0')
		p.pos++
	}
	if neg {
		value = -value
	}
	return value, nil
}

func (p *sexpParser) parseParam() (string, error) {
	if err := p.consumeByte('('); err != nil {
		return "", err
	}
	name, err := p.parseID()
	if err != nil {
		return "", err
	}
	if err := p.consume("Int"); err != nil {
		return "", err
	}
	if err := p.consumeByte(')'); err != nil {
		return "", err
	}
	return name, nil
}

func (p *sexpParser) parseIntExpr() (*expr.IntExpr, error) {
	p.strip()
	switch {
	case p.peek() == '-' || isDigit(p.peek()):
		v, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return expr.IntConst(v), nil
	case isAlphabet(p.peek()) || p.peek() == '_':
		id, err := p.parseID()
		if err != nil {
			return nil, err
		}
		return expr.IntVar(id), nil
	case p.peek() == '(':
		if err := p.consumeByte('('); err != nil {
			return nil, err
		}
		var ret *expr.IntExpr
		switch {
		case p.hasPrefix("ite"):
			if err := p.consume("ite"); err != nil {
				return nil, err
			}
			cond, err := p.parseBoolExpr()
			if err != nil {
				return nil, err
			}
			left, err := p.parseIntExpr()
			if err != nil {
				return nil, err
			}
			right, err := p.parseIntExpr()
			if err != nil {
				return nil, err
			}
			ret = expr.Ite(cond, left, right)
		case p.peek() == '+' || p.peek() == '-' || p.peek() == '*' || p.peek() == '/' || p.peek() == '%':
			op := p.peek()
			p.pos++
			left, err := p.parseIntExpr()
			if err != nil {
				return nil, err
			}
			right, err := p.parseIntExpr()
			if err != nil {
				return nil, err
			}
			switch op {
			case '+':
				ret = left.Add(right)
			case '-':
				ret = left.Sub(right)
			case '*':
				ret = left.Mul(right)
			case '/':
				ret = left.Div(right)
			case '%':
				ret = left.Mod(right)
			}
		default:
			return nil, fmt.Errorf("condition: expected an int operator at %q", p.rest())
		}
		if err := p.consumeByte(')'); err != nil {
			return nil, err
		}
		return ret, nil
	}
	return nil, fmt.Errorf("condition: parse error in int expression at %q", p.rest())
}

func (p *sexpParser) parseBoolExpr() (*expr.BoolExpr, error) {
	if err := p.consumeByte('('); err != nil {
		return nil, err
	}

	parseCmp := func(tok string, build func(l, r *expr.IntExpr) *expr.BoolExpr) (*expr.BoolExpr, error) {
		if err := p.consume(tok); err != nil {
			return nil, err
		}
		left, err := p.parseIntExpr()
		if err != nil {
			return nil, err
		}
		right, err := p.parseIntExpr()
		if err != nil {
			return nil, err
		}
		return build(left, right), nil
	}

	var ret *expr.BoolExpr
	var err error
	switch {
	case p.hasPrefix("<="):
		ret, err = parseCmp("<=", func(l, r *expr.IntExpr) *expr.BoolExpr { return l.Lte(r) })
	case p.hasPrefix(">="):
		ret, err = parseCmp(">=", func(l, r *expr.IntExpr) *expr.BoolExpr { return l.Gte(r) })
	case p.hasPrefix("="):
		ret, err = parseCmp("=", func(l, r *expr.IntExpr) *expr.BoolExpr { return l.Eq(r) })
	case p.hasPrefix("<"):
		ret, err = parseCmp("<", func(l, r *expr.IntExpr) *expr.BoolExpr { return l.Lt(r) })
	case p.hasPrefix(">"):
		ret, err = parseCmp(">", func(l, r *expr.IntExpr) *expr.BoolExpr { return l.Gt(r) })
	case p.hasPrefix("and"):
		if err = p.consume("and"); err != nil {
			return nil, err
		}
		var left, right *expr.BoolExpr
		if left, err = p.parseBoolExpr(); err != nil {
			return nil, err
		}
		if right, err = p.parseBoolExpr(); err != nil {
			return nil, err
		}
		ret = expr.And(left, right)
	case p.hasPrefix("or"):
		if err = p.consume("or"); err != nil {
			return nil, err
		}
		var left, right *expr.BoolExpr
		if left, err = p.parseBoolExpr(); err != nil {
			return nil, err
		}
		if right, err = p.parseBoolExpr(); err != nil {
			return nil, err
		}
		ret = expr.Or(left, right)
	case p.hasPrefix("not"):
		if err = p.consume("not"); err != nil {
			return nil, err
		}
		var inner *expr.BoolExpr
		if inner, err = p.parseBoolExpr(); err != nil {
			return nil, err
		}
		ret = expr.Not(inner)
	default:
		return nil, fmt.Errorf("condition: expected a boolean operator at %q", p.rest())
	}
	if err != nil {
		return nil, err
	}
	if err := p.consumeByte(')'); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseFun parses a synthesizer reply of the form
// (define-fun f ((p Int)...) Bool body).
func ParseFun(funStr string) (*expr.FunSynthesized, error) {
	p := &sexpParser{s: funStr}

	if err := p.consumeByte('('); err != nil {
		return nil, err
	}
	if err := p.consume("define-fun"); err != nil {
		return nil, err
	}
	name, err := p.parseID()
	if err != nil {
		return nil, err
	}

	if err := p.consumeByte('('); err != nil {
		return nil, err
	}
	var params []string
	for p.peek() != ')' {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	if err := p.consumeByte(')'); err != nil {
		return nil, err
	}

	if err := p.consume("Bool"); err != nil {
		return nil, err
	}

	body, err := p.parseBoolExpr()
	if err != nil {
		return nil, err
	}

	return &expr.FunSynthesized{Name: name, Params: params, Body: body}, nil
}
