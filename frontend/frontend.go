// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package frontend translates regular expressions into
// calls on a compiler.Compiler.
//
// Expressions are parsed with regexp/syntax using Perl
// flags and simplified, then walked in postfix order.
// Literals and character classes are expanded to their
// UTF-8 byte sequences, so the resulting automaton
// reads bytes. Automata always match the whole input;
// the Search dialect wraps the expression to match
// anywhere.
package frontend

import (
	"regexp/syntax"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/SnellerInc/anfa/compiler"
)

// ErrUnsupported is returned for constructs that have
// no equivalent in the construction algebra, such as
// anchors inside the expression and word boundaries.
var ErrUnsupported = errors.New("unsupported regular expression construct")

// ErrSyntax wraps parse errors from regexp/syntax.
var ErrSyntax = errors.New("invalid regular expression")

// MaxClassRunes is the largest number of runes a
// character class may expand to, not counting a
// trailing "any non-ASCII rune" range.
const MaxClassRunes = 256

// Dialect selects how an expression is rewritten
// before it is parsed.
type Dialect int

const (
	// Exact matches the whole input.
	Exact Dialect = iota
	// Search matches the expression anywhere in the
	// input unless it is anchored with ^ or $.
	Search
	// SearchCi is Search, ignoring case.
	SearchCi
	// SimilarTo is the SQL SIMILAR TO syntax, where
	// '%' is any string, '_' is any character, and
	// '.', '^', '$' are ordinary characters.
	SimilarTo
)

var dialectNames = map[string]Dialect{
	"exact":      Exact,
	"search":     Search,
	"search-ci":  SearchCi,
	"similar-to": SimilarTo,
}

// ParseDialect returns the dialect called name.
func ParseDialect(name string) (Dialect, error) {
	if name == "" {
		return Exact, nil
	}
	d, ok := dialectNames[name]
	if !ok {
		return 0, errors.Newf("unknown dialect %q", name)
	}
	return d, nil
}

func (d Dialect) String() string {
	for name, v := range dialectNames {
		if v == d {
			return name
		}
	}
	return "unknown"
}

const escapeChar = '\\'

// escaped reports whether the rune at index i
// is preceded by an odd number of escapes.
func escaped(rs []rune, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && rs[j] == escapeChar; j-- {
		n++
	}
	return n%2 == 1
}

// Rewrite returns expr rewritten from dialect d into
// a whole-input Perl expression.
func Rewrite(expr string, d Dialect) (string, error) {
	switch d {
	case Exact:
		return expr, nil
	case SimilarTo:
		rs := []rune(expr)
		var sb strings.Builder
		for i, r := range rs {
			if escaped(rs, i) {
				sb.WriteRune(r)
				continue
			}
			switch r {
			case '.', '^', '$':
				sb.WriteRune(escapeChar)
				sb.WriteRune(r)
			case '%':
				sb.WriteString("(?s:.*)")
			case '_':
				sb.WriteString("(?s:.)")
			default:
				sb.WriteRune(r)
			}
		}
		return sb.String(), nil
	case Search, SearchCi:
		prefix, suffix := "(?s:.*)", "(?s:.*)"
		if strings.HasPrefix(expr, "^") {
			expr, prefix = expr[1:], ""
		}
		if rs := []rune(expr); len(rs) > 0 && rs[len(rs)-1] == '$' && !escaped(rs, len(rs)-1) {
			expr, suffix = expr[:len(expr)-1], ""
		}
		flags := ""
		if d == SearchCi {
			flags = "(?i)"
		}
		return prefix + flags + "(?:" + expr + ")" + suffix, nil
	}
	return "", errors.Newf("unknown dialect %d", int(d))
}

// Parse rewrites and parses expr and returns the
// simplified syntax tree.
func Parse(expr string, d Dialect) (*syntax.Regexp, error) {
	rw, err := Rewrite(expr, d)
	if err != nil {
		return nil, err
	}
	re, err := syntax.Parse(rw, syntax.Perl)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parsing %q", expr), ErrSyntax)
	}
	return re.Simplify(), nil
}

// Compile parses expr as an Exact expression and
// emits it to c. On success exactly one operand is
// left on c's stack.
func Compile(expr string, c compiler.Compiler) error {
	return CompileDialect(expr, Exact, c)
}

// CompileDialect is Compile for an expression written
// in dialect d.
func CompileDialect(expr string, d Dialect, c compiler.Compiler) error {
	re, err := Parse(expr, d)
	if err != nil {
		return err
	}
	return Emit(re, c)
}

// Emit walks re and emits it to c.
func Emit(re *syntax.Regexp, c compiler.Compiler) error {
	e := emitter{c: c}
	return e.walk(re)
}

type emitter struct {
	c compiler.Compiler
}

// seq emits n parts joined by concatenation;
// no parts is the empty string.
func (e *emitter) seq(n int, part func(i int) error) error {
	if n == 0 {
		return e.c.Epsilon()
	}
	for i := 0; i < n; i++ {
		if err := part(i); err != nil {
			return err
		}
		if i > 0 {
			if err := e.c.Concatenate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// alt emits n parts joined by union;
// no parts matches nothing.
func (e *emitter) alt(n int, part func(i int) error) error {
	if n == 0 {
		return e.c.Nothing()
	}
	for i := 0; i < n; i++ {
		if err := part(i); err != nil {
			return err
		}
		if i > 0 {
			if err := e.c.Union(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *emitter) bytes(b []byte) error {
	return e.seq(len(b), func(i int) error { return e.c.Literal(b[i]) })
}

func (e *emitter) byteRange(lo, hi byte) error {
	return e.alt(int(hi)-int(lo)+1, func(i int) error { return e.c.Literal(lo + byte(i)) })
}

// rune emits the UTF-8 encoding of r.
func (e *emitter) rune(r rune) error {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return e.bytes(buf[:n])
}

// fold returns r and every rune equivalent to it
// under simple case folding.
func fold(r rune) []rune {
	out := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		out = append(out, f)
	}
	return out
}

func (e *emitter) literal(re *syntax.Regexp) error {
	return e.seq(len(re.Rune), func(i int) error {
		r := re.Rune[i]
		if re.Flags&syntax.FoldCase == 0 {
			return e.rune(r)
		}
		rs := fold(r)
		return e.alt(len(rs), func(j int) error { return e.rune(rs[j]) })
	})
}

// utf8Forms lists the byte ranges of every well-formed
// multi-byte UTF-8 sequence; overlong forms and
// surrogates are excluded.
var utf8Forms = [][][2]byte{
	{{0xc2, 0xdf}, {0x80, 0xbf}},
	{{0xe0, 0xe0}, {0xa0, 0xbf}, {0x80, 0xbf}},
	{{0xe1, 0xec}, {0x80, 0xbf}, {0x80, 0xbf}},
	{{0xed, 0xed}, {0x80, 0x9f}, {0x80, 0xbf}},
	{{0xee, 0xef}, {0x80, 0xbf}, {0x80, 0xbf}},
	{{0xf0, 0xf0}, {0x90, 0xbf}, {0x80, 0xbf}, {0x80, 0xbf}},
	{{0xf1, 0xf3}, {0x80, 0xbf}, {0x80, 0xbf}, {0x80, 0xbf}},
	{{0xf4, 0xf4}, {0x80, 0x8f}, {0x80, 0xbf}, {0x80, 0xbf}},
}

// multibyte emits any well-formed multi-byte UTF-8
// sequence.
func (e *emitter) multibyte() error {
	return e.alt(len(utf8Forms), func(i int) error {
		form := utf8Forms[i]
		return e.seq(len(form), func(j int) error {
			return e.byteRange(form[j][0], form[j][1])
		})
	})
}

// class emits a character class given as sorted
// rune range pairs. A class that includes every
// non-ASCII rune is emitted as its ASCII members
// plus any multi-byte sequence.
func (e *emitter) class(ranges []rune) error {
	var members []rune
	anyHigh := false
	count := 0
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if lo <= utf8.RuneSelf && hi == unicode.MaxRune {
			anyHigh = true
			hi = utf8.RuneSelf - 1
		}
		if lo > hi {
			continue
		}
		count += int(hi-lo) + 1
		if count > MaxClassRunes {
			return errors.Wrapf(ErrUnsupported, "character class with more than %d runes", MaxClassRunes)
		}
		for r := lo; r <= hi; r++ {
			members = append(members, r)
		}
	}
	n := len(members)
	if anyHigh {
		n++
	}
	return e.alt(n, func(i int) error {
		if i == len(members) {
			return e.multibyte()
		}
		return e.rune(members[i])
	})
}

func (e *emitter) walk(re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpNoMatch:
		return e.c.Nothing()
	case syntax.OpEmptyMatch:
		return e.c.Epsilon()
	case syntax.OpLiteral:
		return e.literal(re)
	case syntax.OpCharClass:
		return e.class(re.Rune)
	case syntax.OpAnyCharNotNL:
		return e.class([]rune{0, '\n' - 1, '\n' + 1, unicode.MaxRune})
	case syntax.OpAnyChar:
		return e.class([]rune{0, unicode.MaxRune})
	case syntax.OpCapture:
		return e.walk(re.Sub[0])
	case syntax.OpStar:
		if err := e.walk(re.Sub[0]); err != nil {
			return err
		}
		return e.c.Star()
	case syntax.OpPlus:
		// x+ is x·x*
		if err := e.walk(re.Sub[0]); err != nil {
			return err
		}
		if err := e.walk(re.Sub[0]); err != nil {
			return err
		}
		if err := e.c.Star(); err != nil {
			return err
		}
		return e.c.Concatenate()
	case syntax.OpQuest:
		if err := e.walk(re.Sub[0]); err != nil {
			return err
		}
		if err := e.c.Epsilon(); err != nil {
			return err
		}
		return e.c.Union()
	case syntax.OpRepeat:
		return e.repeat(re.Sub[0], re.Min, re.Max)
	case syntax.OpConcat:
		return e.seq(len(re.Sub), func(i int) error { return e.walk(re.Sub[i]) })
	case syntax.OpAlternate:
		return e.alt(len(re.Sub), func(i int) error { return e.walk(re.Sub[i]) })
	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText:
		return errors.Wrapf(ErrUnsupported, "anchor %s", re)
	case syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return errors.Wrapf(ErrUnsupported, "word boundary %s", re)
	}
	return errors.Wrapf(ErrUnsupported, "operator %d in %s", int(re.Op), re)
}

// repeat emits x{lo,hi}; hi < 0 means unbounded.
// Simplify normally removes repeats, so this only
// runs for trees built by hand.
func (e *emitter) repeat(x *syntax.Regexp, lo, hi int) error {
	n := lo
	if hi > lo {
		n = hi
	} else if hi < 0 {
		n = lo + 1
	}
	return e.seq(n, func(i int) error {
		if i < lo {
			return e.walk(x)
		}
		if err := e.walk(x); err != nil {
			return err
		}
		if hi < 0 {
			return e.c.Star()
		}
		if err := e.c.Epsilon(); err != nil {
			return err
		}
		return e.c.Union()
	})
}
