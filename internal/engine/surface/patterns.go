package surface

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	coreerrors "apisurface/internal/core/errors"

	"github.com/gobwas/glob/syntax"
	"github.com/gobwas/glob/syntax/ast"
)

const (
	metaChars = "*?[]{}\\"
	// Upper bound on alternatives after brace and zero-segment expansion.
	maxBranches = 256
	maxSupers   = 8
)

// isSeparator reports the segment separators seen by `*`, `?` and `**`.
func isSeparator(r rune) bool {
	return r == '.' || r == '/'
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokSingle
	tokAny
	tokSuper
	tokClass
)

type token struct {
	kind   tokenKind
	text   string
	chars  string
	lo, hi rune
	ranged bool
	not    bool
}

func (t token) accepts(r rune) bool {
	if t.kind == tokSingle {
		return !isSeparator(r)
	}
	in := strings.ContainsRune(t.chars, r)
	if t.ranged {
		in = t.lo <= r && r <= t.hi
	}
	return in != t.not
}

// Pattern is a single compiled include or exclude rule.
type Pattern struct {
	raw      string
	literal  bool
	branches [][]token
}

// CompilePattern validates and compiles raw. Surrounding whitespace is trimmed.
// Matching is anchored and case-sensitive.
func CompilePattern(raw string) (Pattern, error) {
	norm := strings.TrimSpace(raw)
	if norm == "" {
		return Pattern{}, coreerrors.InvalidPattern(raw, "pattern must not be empty", nil)
	}
	if err := checkBalanced(norm); err != nil {
		return Pattern{}, err
	}

	p := Pattern{raw: norm, literal: !strings.ContainsAny(norm, metaChars)}
	if p.literal {
		return p, nil
	}
	tree, err := syntax.Parse(norm)
	if err != nil {
		return Pattern{}, coreerrors.InvalidPattern(raw, "pattern does not parse", err)
	}
	alternatives, err := expand(tree)
	if err != nil {
		return Pattern{}, coreerrors.InvalidPattern(raw, err.Error(), nil)
	}
	for _, alt := range alternatives {
		if countSupers(alt) > maxSupers {
			return Pattern{}, coreerrors.InvalidPattern(raw, "too many '**' wildcards", nil)
		}
		p.branches = append(p.branches, zeroSegmentVariants(alt, 0)...)
		if len(p.branches) > maxBranches {
			return Pattern{}, coreerrors.InvalidPattern(raw, "too many alternatives", nil)
		}
	}
	return p, nil
}

type expandError string

func (e expandError) Error() string { return string(e) }

// expand flattens a parsed pattern into brace-free token sequences.
func expand(node *ast.Node) ([][]token, error) {
	out := [][]token{nil}
	for _, child := range node.Children {
		var tails [][]token
		switch child.Kind {
		case ast.KindAnyOf:
			for _, alt := range child.Children {
				sub, err := expand(alt)
				if err != nil {
					return nil, err
				}
				tails = append(tails, sub...)
			}
		case ast.KindPattern:
			sub, err := expand(child)
			if err != nil {
				return nil, err
			}
			tails = sub
		case ast.KindNothing:
			continue
		default:
			tok, err := nodeToken(child)
			if err != nil {
				return nil, err
			}
			tails = [][]token{{tok}}
		}

		if len(out)*len(tails) > maxBranches {
			return nil, expandError("too many alternatives")
		}
		next := make([][]token, 0, len(out)*len(tails))
		for _, head := range out {
			for _, tail := range tails {
				seq := append([]token(nil), head...)
				for _, tok := range tail {
					seq = appendToken(seq, tok)
				}
				next = append(next, seq)
			}
		}
		out = next
	}
	return out, nil
}

func nodeToken(n *ast.Node) (token, error) {
	switch n.Kind {
	case ast.KindText:
		return token{kind: tokText, text: n.Value.(ast.Text).Text}, nil
	case ast.KindAny:
		return token{kind: tokAny}, nil
	case ast.KindSuper:
		return token{kind: tokSuper}, nil
	case ast.KindSingle:
		return token{kind: tokSingle}, nil
	case ast.KindList:
		l := n.Value.(ast.List)
		return token{kind: tokClass, chars: l.Chars, not: l.Not}, nil
	case ast.KindRange:
		r := n.Value.(ast.Range)
		return token{kind: tokClass, ranged: true, lo: r.Lo, hi: r.Hi, not: r.Not}, nil
	}
	return token{}, expandError("unsupported pattern element " + n.Kind.String())
}

// appendToken merges adjacent text so separators next to `**` are visible.
func appendToken(seq []token, tok token) []token {
	if tok.kind == tokText {
		if tok.text == "" {
			return seq
		}
		if n := len(seq); n > 0 && seq[n-1].kind == tokText {
			seq[n-1].text += tok.text
			return seq
		}
	}
	return append(seq, tok)
}

// collapsible reports whether the `**` at i fills whole segments and may stand
// for none: `a.**.b` also matches `a.b`, `**.b` also matches `b`. A trailing
// `a.**` still needs at least one character after `a.`.
func collapsible(seq []token, i int) bool {
	if seq[i].kind != tokSuper || i+1 >= len(seq) {
		return false
	}
	next := seq[i+1]
	if next.kind != tokText || !startsWithSeparator(next.text) {
		return false
	}
	if i == 0 {
		return true
	}
	prev := seq[i-1]
	return prev.kind == tokText && endsWithSeparator(prev.text)
}

func countSupers(seq []token) int {
	n := 0
	for _, tok := range seq {
		if tok.kind == tokSuper {
			n++
		}
	}
	return n
}

func startsWithSeparator(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isSeparator(r)
}

func endsWithSeparator(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isSeparator(r)
}

// zeroSegmentVariants returns seq plus every variant in which collapsible `**`
// tokens at or after from are dropped together with the following separator.
func zeroSegmentVariants(seq []token, from int) [][]token {
	for i := from; i < len(seq); i++ {
		if !collapsible(seq, i) {
			continue
		}
		collapsed := make([]token, 0, len(seq)-1)
		collapsed = append(collapsed, seq[:i]...)
		collapsed = appendToken(collapsed, token{kind: tokText, text: seq[i+1].text[1:]})
		for _, tok := range seq[i+2:] {
			collapsed = appendToken(collapsed, tok)
		}
		return append(zeroSegmentVariants(seq, i+1), zeroSegmentVariants(collapsed, i)...)
	}
	return [][]token{seq}
}

// checkBalanced rejects wildcard token sequences the glob dialect gives no meaning to.
func checkBalanced(p string) error {
	var (
		inClass    bool
		braceDepth int
		stars      int
	)
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '*' {
			stars = 0
		}
		switch {
		case r == '\\':
			if i == len(runes)-1 {
				return coreerrors.InvalidPattern(p, "dangling escape", nil)
			}
			i++
		case inClass:
			if r == ']' {
				inClass = false
			}
		case r == '*':
			stars++
			if stars > 2 {
				return coreerrors.InvalidPattern(p, "more than two consecutive '*'", nil)
			}
		case r == '[':
			inClass = true
		case r == ']':
			return coreerrors.InvalidPattern(p, "unbalanced ']'", nil)
		case r == '{':
			braceDepth++
		case r == '}':
			braceDepth--
			if braceDepth < 0 {
				return coreerrors.InvalidPattern(p, "unbalanced '}'", nil)
			}
		}
	}
	if inClass {
		return coreerrors.InvalidPattern(p, "unbalanced '['", nil)
	}
	if braceDepth != 0 {
		return coreerrors.InvalidPattern(p, "unbalanced '{'", nil)
	}
	return nil
}

func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the whole identifier matches the pattern.
func (p Pattern) Match(identifier string) bool {
	if p.literal {
		return identifier == p.raw
	}
	for _, seq := range p.branches {
		m := matcher{seq: seq, s: identifier}
		if m.at(0, 0) {
			return true
		}
	}
	return false
}

// matcher is an anchored backtracking match of one token sequence. Failed
// (token, offset) states are remembered so repeated wildcards stay linear per state.
type matcher struct {
	seq    []token
	s      string
	failed map[int]struct{}
}

func (m *matcher) at(ti, pos int) bool {
	if ti == len(m.seq) {
		return pos == len(m.s)
	}
	key := ti*(len(m.s)+1) + pos
	if _, ok := m.failed[key]; ok {
		return false
	}
	if m.step(ti, pos) {
		return true
	}
	if m.failed == nil {
		m.failed = make(map[int]struct{})
	}
	m.failed[key] = struct{}{}
	return false
}

func (m *matcher) step(ti, pos int) bool {
	tok := m.seq[ti]
	switch tok.kind {
	case tokText:
		return strings.HasPrefix(m.s[pos:], tok.text) && m.at(ti+1, pos+len(tok.text))
	case tokSingle, tokClass:
		r, size := utf8.DecodeRuneInString(m.s[pos:])
		if size == 0 || !tok.accepts(r) {
			return false
		}
		return m.at(ti+1, pos+size)
	case tokAny, tokSuper:
		for i := pos; ; {
			if m.at(ti+1, i) {
				return true
			}
			if i == len(m.s) {
				return false
			}
			r, size := utf8.DecodeRuneInString(m.s[i:])
			if tok.kind == tokAny && isSeparator(r) {
				return false
			}
			i += size
		}
	}
	return false
}

// PatternSet holds ordered include and exclude rules. It is immutable after construction.
type PatternSet struct {
	includes []Pattern
	excludes []Pattern
}

// NewPatternSet compiles both lists and fails on the first malformed pattern.
func NewPatternSet(includes, excludes []string) (*PatternSet, error) {
	inc, err := compileAll(includes)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(excludes)
	if err != nil {
		return nil, err
	}
	return &PatternSet{includes: inc, excludes: exc}, nil
}

func compileAll(raw []string) ([]Pattern, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		p, err := CompilePattern(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (ps *PatternSet) Includes() []string {
	if ps == nil {
		return nil
	}
	return rawPatterns(ps.includes)
}

func (ps *PatternSet) Excludes() []string {
	if ps == nil {
		return nil
	}
	return rawPatterns(ps.excludes)
}

func rawPatterns(patterns []Pattern) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.raw)
	}
	return out
}

// Classify returns Public iff identifier matches an include and no exclude.
func (ps *PatternSet) Classify(identifier string) Classification {
	if ps == nil || !matchAny(ps.includes, identifier) {
		return Internal
	}
	if matchAny(ps.excludes, identifier) {
		return Internal
	}
	return Public
}

func matchAny(patterns []Pattern, identifier string) bool {
	for _, p := range patterns {
		if p.Match(identifier) {
			return true
		}
	}
	return false
}

// Fingerprint is a stable digest of the ordered pattern lists.
func (ps *PatternSet) Fingerprint() string {
	h := sha256.New()
	for _, p := range ps.Includes() {
		h.Write([]byte("+" + p + "\n"))
	}
	for _, p := range ps.Excludes() {
		h.Write([]byte("-" + p + "\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
