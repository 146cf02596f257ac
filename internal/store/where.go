package store

import (
	"errors"
	"fmt"
	"strings"
)

// Where-expression parse errors.
var (
	ErrEmptyExpr   = errors.New("store: empty tag-filter expression")
	ErrInvalidExpr = errors.New("store: invalid tag-filter expression")
)

// whereAtom is a single `"key" OP 'value'` clause. For BETWEEN, lo and hi
// carry both bounds; otherwise only lo is set.
type whereAtom struct {
	key string
	op  string
	lo  string
	hi  string
}

// parseWhere parses a conjunctive tag-filter expression as defined by the
// search grammar: atoms of the form `"key" OP 'value'` joined by AND, with
// OP one of =, >, >=, <, <=, or `BETWEEN 'a' AND 'b'`. Single quotes inside
// values are doubled.
func parseWhere(expr string) ([]whereAtom, error) {
	p := &whereParser{input: expr}
	p.skipSpaces()
	if p.done() {
		return nil, ErrEmptyExpr
	}

	var atoms []whereAtom
	for {
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)

		p.skipSpaces()
		if p.done() {
			return atoms, nil
		}
		if !p.consumeWord("AND") {
			return nil, fmt.Errorf("%w: expected AND at offset %d", ErrInvalidExpr, p.pos)
		}
	}
}

type whereParser struct {
	input string
	pos   int
}

func (p *whereParser) done() bool {
	return p.pos >= len(p.input)
}

func (p *whereParser) skipSpaces() {
	for !p.done() && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// consumeWord consumes a case-sensitive keyword followed by a space or the
// end of input.
func (p *whereParser) consumeWord(word string) bool {
	if !strings.HasPrefix(p.input[p.pos:], word) {
		return false
	}
	end := p.pos + len(word)
	if end < len(p.input) && p.input[end] != ' ' {
		return false
	}
	p.pos = end
	return true
}

func (p *whereParser) parseAtom() (whereAtom, error) {
	p.skipSpaces()
	key, err := p.parseQuoted('"')
	if err != nil {
		return whereAtom{}, err
	}

	p.skipSpaces()
	op, err := p.parseOp()
	if err != nil {
		return whereAtom{}, err
	}

	p.skipSpaces()
	lo, err := p.parseQuoted('\'')
	if err != nil {
		return whereAtom{}, err
	}

	atom := whereAtom{key: key, op: op, lo: lo}
	if op == "BETWEEN" {
		p.skipSpaces()
		if !p.consumeWord("AND") {
			return whereAtom{}, fmt.Errorf("%w: BETWEEN requires AND at offset %d", ErrInvalidExpr, p.pos)
		}
		p.skipSpaces()
		hi, err := p.parseQuoted('\'')
		if err != nil {
			return whereAtom{}, err
		}
		atom.hi = hi
	}
	return atom, nil
}

func (p *whereParser) parseOp() (string, error) {
	rest := p.input[p.pos:]
	for _, op := range []string{">=", "<=", "=", ">", "<"} {
		if strings.HasPrefix(rest, op) {
			p.pos += len(op)
			return op, nil
		}
	}
	if p.consumeWord("BETWEEN") {
		return "BETWEEN", nil
	}
	return "", fmt.Errorf("%w: expected operator at offset %d", ErrInvalidExpr, p.pos)
}

// parseQuoted reads a string delimited by quote. A doubled closing quote
// inside the string is an escaped literal quote.
func (p *whereParser) parseQuoted(quote byte) (string, error) {
	if p.done() || p.input[p.pos] != quote {
		return "", fmt.Errorf("%w: expected %q at offset %d", ErrInvalidExpr, quote, p.pos)
	}
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.input[p.pos]
		if c == quote {
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == quote {
				b.WriteByte(quote)
				p.pos += 2
				continue
			}
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("%w: unterminated %q", ErrInvalidExpr, quote)
}
