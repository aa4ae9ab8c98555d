// Package parser turns one line of shell input into an ast.Commands,
// following the PEG-like grammar in spec.md §4.1. It is a hand-written
// recursive-descent parser over raw bytes, shaped the way
// mvdan.cc/sh/v3's syntax package structures its own parser (a single
// struct holding the source and a cursor, one method per grammar
// production, Pos/span tracking on every node) but implementing this
// shell's own, much smaller grammar rather than POSIX sh.
package parser

import (
	"strings"

	"github.com/gsh-project/gsh/internal/ast"
)

// Parse parses one line of input into a Commands AST. It never panics;
// malformed input produces an *Error.
func Parse(input string) (*ast.Commands, error) {
	p := &parser{src: input}
	p.skipSpace()
	items, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.atEOF() && p.peek() == '#' {
		// a trailing comment consumes the rest of the input
		p.pos = len(p.src)
	}
	p.skipSpace()
	if !p.atEOF() {
		return nil, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return &ast.Commands{Items: items, Input: input}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) atEOF() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.atEOF() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func isInlineSpace(b byte) bool { return b == ' ' || b == '\t' }

func isSep(b byte) bool { return b == ';' || b == '\n' }

func isMeta(b byte) bool {
	switch b {
	case 0, ' ', '\t', ';', '\n', '|', '<', '>', '#', '\'', '"', '$':
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.atEOF() && isInlineSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) skipSpaceAndSeps() {
	for !p.atEOF() {
		b := p.peek()
		if isInlineSpace(b) || isSep(b) {
			p.pos++
			continue
		}
		break
	}
}

// parseCommands parses `command (sep command)*`.
func (p *parser) parseCommands() ([]ast.Command, error) {
	var items []ast.Command
	for {
		p.skipSpace()
		if p.atEOF() || p.peek() == '#' {
			break
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		items = append(items, cmd)
		p.skipSpace()
		if p.atEOF() || p.peek() == '#' {
			break
		}
		if !isSep(p.peek()) {
			break
		}
		p.skipSpaceAndSeps()
	}
	if len(items) == 0 {
		return nil, p.errorf("empty command")
	}
	return items, nil
}

func (p *parser) atCommandEnd() bool {
	if p.atEOF() {
		return true
	}
	b := p.peek()
	return isSep(b) || b == '#'
}

// parseCommand parses one `command` production.
func (p *parser) parseCommand() (ast.Command, error) {
	if kw, ok := p.peekKeyword(); ok {
		switch kw {
		case "if":
			p.consumeKeyword(kw)
			pl, err := p.parsePipeline()
			if err != nil {
				return ast.Command{}, err
			}
			return ast.Command{Kind: ast.CmdIf, Pipeline: pl}, nil
		case "while":
			p.consumeKeyword(kw)
			pl, err := p.parsePipeline()
			if err != nil {
				return ast.Command{}, err
			}
			return ast.Command{Kind: ast.CmdWhile, Pipeline: pl}, nil
		case "for":
			p.consumeKeyword(kw)
			return p.parseFor()
		case "else":
			p.consumeKeyword(kw)
			p.skipSpace()
			if p.atCommandEnd() {
				return ast.Command{Kind: ast.CmdElse, HasPipeline: false}, nil
			}
			pl, err := p.parsePipeline()
			if err != nil {
				return ast.Command{}, err
			}
			return ast.Command{Kind: ast.CmdElse, HasPipeline: true, Pipeline: pl}, nil
		case "end":
			p.consumeKeyword(kw)
			return ast.Command{Kind: ast.CmdEnd}, nil
		}
	}
	pl, err := p.parsePipeline()
	if err != nil {
		return ast.Command{}, err
	}
	return ast.Command{Kind: ast.CmdPipeline, Pipeline: pl}, nil
}

// peekKeyword reports whether the upcoming bareword is a control-flow
// keyword, without consuming it. Keywords must be followed by
// whitespace, a command separator, EOF, or a comment so that a plain
// command named e.g. "ifconfig" is never misparsed as "if".
func (p *parser) peekKeyword() (string, bool) {
	for _, kw := range []string{"if", "while", "for", "else", "end"} {
		n := len(kw)
		if p.pos+n > len(p.src) {
			continue
		}
		if p.src[p.pos:p.pos+n] != kw {
			continue
		}
		after := p.peekAt(n)
		if after == 0 || isInlineSpace(after) || isSep(after) || after == '#' {
			return kw, true
		}
	}
	return "", false
}

func (p *parser) consumeKeyword(kw string) {
	p.pos += len(kw)
	p.skipSpace()
}

// parseFor parses the tail of `"for" bareword "in"? word+` (the "for"
// keyword itself has already been consumed; an "in" right after the
// variable name is skipped rather than taken as the first word).
func (p *parser) parseFor() (ast.Command, error) {
	p.skipSpace()
	start := p.pos
	for !p.atEOF() && !isMeta(p.peek()) {
		p.pos++
	}
	varName := p.src[start:p.pos]
	if varName == "" {
		return ast.Command{}, p.errorf("expected variable name after 'for'")
	}
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "in") {
		if after := p.peekAt(2); after == 0 || isInlineSpace(after) {
			p.pos += 2
			p.skipSpace()
		}
	}
	var words []ast.Word
	for !p.atCommandEnd() && !isPipeOrRedirStart(p.peek()) {
		w, err := p.parseWord()
		if err != nil {
			return ast.Command{}, err
		}
		words = append(words, w)
		p.skipSpace()
	}
	if len(words) == 0 {
		return ast.Command{}, p.errorf("expected at least one word after 'for %s'", varName)
	}
	return ast.Command{Kind: ast.CmdFor, ForVar: varName, ForWords: words}, nil
}

func isPipeOrRedirStart(b byte) bool { return b == '|' }

// parsePipeline parses `exe ("|" exe)*`.
func (p *parser) parsePipeline() (ast.Pipeline, error) {
	start := p.pos
	var exes []ast.Exe
	for {
		p.skipSpace()
		exe, err := p.parseExe()
		if err != nil {
			return ast.Pipeline{}, err
		}
		exes = append(exes, exe)
		p.skipSpace()
		if p.atEOF() || p.peek() != '|' {
			break
		}
		p.pos++ // consume '|'
	}
	return ast.Pipeline{Exes: exes, Span: [2]int{start, p.pos}}, nil
}

// parseExe parses `word (word | redir)*`.
func (p *parser) parseExe() (ast.Exe, error) {
	start := p.pos
	prog, err := p.parseWord()
	if err != nil {
		return ast.Exe{}, err
	}
	exe := ast.Exe{Prog: prog}
	for {
		p.skipSpace()
		if p.atEOF() {
			break
		}
		b := p.peek()
		if b == '|' || isSep(b) || b == '#' {
			break
		}
		if redir, ok, err := p.tryParseRedirect(); err != nil {
			return ast.Exe{}, err
		} else if ok {
			exe.Redirects = append(exe.Redirects, redir)
			continue
		}
		w, err := p.parseWord()
		if err != nil {
			return ast.Exe{}, err
		}
		exe.Args = append(exe.Args, w)
	}
	exe.Span = [2]int{start, p.pos}
	return exe, nil
}

// tryParseRedirect attempts `redir_prefix word` at the current position.
// redir_prefix is an optional contiguous run of digits immediately
// followed by ">>", ">", or "<" with no intervening whitespace. If the
// digit run isn't followed by an operator, the position is left
// unchanged and ok is false so the caller falls back to parsing a word.
func (p *parser) tryParseRedirect() (ast.Redirect, bool, error) {
	save := p.pos
	digitsStart := p.pos
	for !p.atEOF() && p.peek() >= '0' && p.peek() <= '9' {
		p.pos++
	}
	digitsEnd := p.pos
	hasDigits := digitsEnd > digitsStart

	var dir ast.Direction
	switch {
	case p.peek() == '>' && p.peekAt(1) == '>':
		dir = ast.Append
		p.pos += 2
	case p.peek() == '>':
		dir = ast.Out
		p.pos++
	case p.peek() == '<':
		dir = ast.In
		p.pos++
	default:
		p.pos = save
		return ast.Redirect{}, false, nil
	}

	fd := 1
	if dir == ast.In {
		fd = 0
	}
	if hasDigits {
		fd = parseDigits(p.src[digitsStart:digitsEnd])
	}

	p.skipSpace()
	target, err := p.parseWord()
	if err != nil {
		return ast.Redirect{}, false, err
	}

	rt := ast.RedirectTarget{Path: target}
	if lit, ok := target.Literal(); ok && strings.HasPrefix(lit, "&") {
		if n, ok := parseFDLiteral(lit[1:]); ok {
			rt = ast.RedirectTarget{IsFD: true, FD: n}
		}
	}

	return ast.Redirect{SourceFD: fd, Target: rt, Direction: dir}, true, nil
}

func parseDigits(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func parseFDLiteral(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// parseWord parses `(bareword | single_string | double_string | var)+`.
func (p *parser) parseWord() (ast.Word, error) {
	start := p.pos
	var parts []ast.Part
loop:
	for !p.atEOF() {
		b := p.peek()
		switch {
		case b == '\'':
			part, err := p.parseSingleQuoted()
			if err != nil {
				return ast.Word{}, err
			}
			parts = append(parts, part)
		case b == '"':
			part, err := p.parseDoubleQuoted()
			if err != nil {
				return ast.Word{}, err
			}
			parts = append(parts, part)
		case b == '$' && isIdentStart(p.peekAt(1)):
			parts = append(parts, p.parseVarRef())
		case !isMeta(b) || b == '$':
			// A lone '$' not followed by an identifier character is
			// just a literal byte in a bareword.
			part, ok := p.parseBareword()
			if !ok {
				break loop
			}
			parts = append(parts, part)
		default:
			break loop
		}
	}
	if len(parts) == 0 {
		return ast.Word{}, p.errorf("expected a word")
	}
	return ast.Word{Parts: parts, Span: [2]int{start, p.pos}}, nil
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func (p *parser) parseVarRef() ast.Part {
	p.pos++ // '$'
	start := p.pos
	for !p.atEOF() && isIdentCont(p.peek()) {
		p.pos++
	}
	return ast.Part{Kind: ast.VarRef, Text: p.src[start:p.pos]}
}

// parseBareword consumes a maximal run of non-whitespace,
// non-metacharacter bytes, with \x escaping any byte (the escaped byte
// is kept in Text verbatim, with its backslash, so the evaluator's
// single escape+interpolate pass handles it uniformly with
// double-quoted text).
func (p *parser) parseBareword() (ast.Part, bool) {
	start := p.pos
	for !p.atEOF() {
		b := p.peek()
		if b == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
			continue
		}
		if b == '$' && isIdentStart(p.peekAt(1)) {
			break
		}
		if isMeta(b) && b != '$' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return ast.Part{}, false
	}
	return ast.Part{Kind: ast.Bareword, Text: p.src[start:p.pos]}, true
}

func (p *parser) parseSingleQuoted() (ast.Part, error) {
	p.pos++ // opening '
	start := p.pos
	for {
		if p.atEOF() {
			return ast.Part{}, p.errorf("unterminated single-quoted string")
		}
		b := p.peek()
		if b == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '\\' || p.src[p.pos+1] == '\'') {
			p.pos += 2
			continue
		}
		if b == '\'' {
			break
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	p.pos++ // closing '
	return ast.Part{Kind: ast.SingleQuoted, Text: text}, nil
}

func (p *parser) parseDoubleQuoted() (ast.Part, error) {
	p.pos++ // opening "
	start := p.pos
	for {
		if p.atEOF() {
			return ast.Part{}, p.errorf("unterminated double-quoted string")
		}
		b := p.peek()
		if b == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
			continue
		}
		if b == '"' {
			break
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	p.pos++ // closing "
	return ast.Part{Kind: ast.DoubleQuoted, Text: text}, nil
}
