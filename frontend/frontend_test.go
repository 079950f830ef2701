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

package frontend_test

import (
	"regexp/syntax"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/SnellerInc/anfa/compiler"
	"github.com/SnellerInc/anfa/frontend"
	"github.com/SnellerInc/anfa/nfa"
	"github.com/SnellerInc/anfa/nfa/nfatest"
)

func compile(t *testing.T, expr string, d frontend.Dialect) (fwd, rev *nfa.Automaton) {
	t.Helper()
	c, err := compiler.NewBidirectional(compiler.DefaultOptions)
	require.NoError(t, err)
	require.NoError(t, frontend.CompileDialect(expr, d, c), "compiling %q", expr)
	fwd, rev, err = c.FinalizeBoth()
	require.NoError(t, err)
	return fwd, rev
}

func reversed(s string) []byte {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func TestCompile(t *testing.T) {
	tcs := []struct {
		expr    string
		dialect frontend.Dialect
		accept  []string
		reject  []string
	}{
		{expr: "", accept: []string{""}, reject: []string{"a"}},
		{expr: "abc", accept: []string{"abc"}, reject: []string{"ab", "abcd", "cba"}},
		{expr: "a|bc", accept: []string{"a", "bc"}, reject: []string{"", "abc", "b"}},
		{expr: "(ab)*", accept: []string{"", "ab", "abab"}, reject: []string{"a", "aba"}},
		{expr: "a+", accept: []string{"a", "aaa"}, reject: []string{""}},
		{expr: "ab?c", accept: []string{"ac", "abc"}, reject: []string{"abbc"}},
		{expr: "x{2,3}", accept: []string{"xx", "xxx"}, reject: []string{"x", "xxxx"}},
		{expr: "x{2,}", accept: []string{"xx", "xxxxx"}, reject: []string{"x"}},
		{expr: "[a-c]+", accept: []string{"a", "cab"}, reject: []string{"abd", ""}},
		{expr: "[^a]", accept: []string{"b", "\n", "é", "€", "😀"}, reject: []string{"a", "bb", "\xff", "\xe0\x80\x80", "\xed\xa0\x80", "\xf4\x90\x80\x80"}},
		{expr: ".", accept: []string{"a", "é"}, reject: []string{"\n", ""}},
		{expr: "(?s).", accept: []string{"\n"}},
		{expr: "(?s).", accept: []string{"\u0800", "\ud7ff", "\U00010000", "\U0010ffff"}, reject: []string{"\xc0\xaf", "\xe0\x80\x80", "\xed\xa0\x80", "\xf0\x80\x80\x80", "\xf4\x90\x80\x80"}},
		{expr: "(?i)k", accept: []string{"k", "K", "K"}, reject: []string{"x"}},
		{expr: "héllo", accept: []string{"héllo"}, reject: []string{"hello"}},
		{expr: "a[^\\x00-\\x{10FFFF}]", reject: []string{"a", "ab"}},
		{expr: "b", dialect: frontend.Search, accept: []string{"b", "abc", "xxb"}, reject: []string{"", "ac"}},
		{expr: "^ab", dialect: frontend.Search, accept: []string{"ab", "abx"}, reject: []string{"xab"}},
		{expr: "ab$", dialect: frontend.Search, accept: []string{"ab", "xab"}, reject: []string{"abx"}},
		{expr: "AB", dialect: frontend.SearchCi, accept: []string{"xaby", "Ab"}, reject: []string{"a b"}},
		{expr: "a%b_", dialect: frontend.SimilarTo, accept: []string{"abc", "axxbz"}, reject: []string{"ab", "axxb"}},
		{expr: "a.b", dialect: frontend.SimilarTo, accept: []string{"a.b"}, reject: []string{"axb"}},
	}
	for _, tc := range tcs {
		t.Run(tc.expr, func(t *testing.T) {
			fwd, rev := compile(t, tc.expr, tc.dialect)
			for _, s := range tc.accept {
				require.True(t, nfatest.AcceptsString(fwd, s), "%q should accept %q", tc.expr, s)
				require.True(t, nfatest.Accepts(rev, reversed(s)), "reverse of %q should accept %q", tc.expr, reversed(s))
			}
			for _, s := range tc.reject {
				require.False(t, nfatest.AcceptsString(fwd, s), "%q should reject %q", tc.expr, s)
				require.False(t, nfatest.Accepts(rev, reversed(s)), "reverse of %q should reject %q", tc.expr, reversed(s))
			}
		})
	}
}

func TestUnsupported(t *testing.T) {
	for _, expr := range []string{
		"a^b",
		"a$b",
		`\bfoo`,
		`a\B`,
		`[\x{100}-\x{300}]`,
	} {
		c, err := compiler.NewForward(compiler.DefaultOptions)
		require.NoError(t, err)
		err = frontend.Compile(expr, c)
		require.True(t, errors.Is(err, frontend.ErrUnsupported), "%q: %v", expr, err)
	}
}

func TestSyntaxError(t *testing.T) {
	c, err := compiler.NewForward(compiler.DefaultOptions)
	require.NoError(t, err)
	err = frontend.Compile("(ab", c)
	require.True(t, errors.Is(err, frontend.ErrSyntax), "%v", err)
}

func TestStateLimit(t *testing.T) {
	c, err := compiler.NewForward(compiler.Options{QIDWidth: 1})
	require.NoError(t, err)
	err = frontend.Compile(".", c)
	require.True(t, errors.Is(err, nfa.ErrStateOverflow), "%v", err)
}

func TestRewrite(t *testing.T) {
	tcs := []struct {
		in   string
		d    frontend.Dialect
		want string
	}{
		{"a.b", frontend.Exact, "a.b"},
		{"a%_", frontend.SimilarTo, "a(?s:.*)(?s:.)"},
		{"^a.$", frontend.SimilarTo, `\^a\.\$`},
		{`a\%`, frontend.SimilarTo, `a\%`},
		{"ab", frontend.Search, "(?s:.*)(?:ab)(?s:.*)"},
		{"^ab$", frontend.Search, "(?:ab)"},
		{`ab\$`, frontend.Search, `(?s:.*)(?:ab\$)(?s:.*)`},
		{"ab", frontend.SearchCi, "(?s:.*)(?i)(?:ab)(?s:.*)"},
	}
	for _, tc := range tcs {
		got, err := frontend.Rewrite(tc.in, tc.d)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "rewriting %q as %s", tc.in, tc.d)
	}
}

func TestParseDialect(t *testing.T) {
	for _, d := range []frontend.Dialect{frontend.Exact, frontend.Search, frontend.SearchCi, frontend.SimilarTo} {
		got, err := frontend.ParseDialect(d.String())
		require.NoError(t, err)
		require.Equal(t, d, got)
	}
	_, err := frontend.ParseDialect("glob")
	require.Error(t, err)
}

func TestEmitRepeat(t *testing.T) {
	lit := &syntax.Regexp{Op: syntax.OpLiteral, Rune: []rune{'a'}}
	tcs := []struct {
		min, max int
		accept   []string
		reject   []string
	}{
		{1, 3, []string{"a", "aa", "aaa"}, []string{"", "aaaa"}},
		{2, -1, []string{"aa", "aaaaa"}, []string{"", "a"}},
		{0, 0, []string{""}, []string{"a"}},
		{2, 2, []string{"aa"}, []string{"a", "aaa"}},
	}
	for _, tc := range tcs {
		re := &syntax.Regexp{Op: syntax.OpRepeat, Min: tc.min, Max: tc.max, Sub: []*syntax.Regexp{lit}}
		c, err := compiler.NewForward(compiler.DefaultOptions)
		require.NoError(t, err)
		require.NoError(t, frontend.Emit(re, c))
		a, err := c.Finalize()
		require.NoError(t, err)
		for _, s := range tc.accept {
			require.True(t, nfatest.AcceptsString(a, s), "a{%d,%d} should accept %q", tc.min, tc.max, s)
		}
		for _, s := range tc.reject {
			require.False(t, nfatest.AcceptsString(a, s), "a{%d,%d} should reject %q", tc.min, tc.max, s)
		}
	}
}
