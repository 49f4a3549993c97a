package repository

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// argsVar is the expression variable holding all value arguments.
const argsVar = "args"

type placeholderKind uint8

const (
	placeholderNext placeholderKind = iota // ?
	placeholderIndex                       // ?0
	placeholderName                        // :name
	placeholderExpr                        // ?#{...} or :#{...}
)

type placeholder struct {
	kind  placeholderKind
	index int
	name  string
	expr  string
	prog  *vm.Program
}

// stringQuery is a declared CQL statement split at its placeholders. Each
// placeholder is rendered as a ? bind marker.
type stringQuery struct {
	parts  []string // len(parts) == len(params)+1
	params []placeholder
}

// parseStringQuery splits text at its placeholders. Quoted strings, quoted
// identifiers and $$ literals are copied unchanged.
func parseStringQuery(text string) (*stringQuery, error) {
	var (
		q    = &stringQuery{}
		sb   strings.Builder
		next int
	)
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(text, i)
			sb.WriteString(text[i:end])
			i = end
		case strings.HasPrefix(text[i:], "$$"):
			end := strings.Index(text[i+2:], "$$")
			if end < 0 {
				return nil, fmt.Errorf("unterminated $$ literal at %d", i)
			}
			end += i + 4
			sb.WriteString(text[i:end])
			i = end
		case (c == '?' || c == ':') && strings.HasPrefix(text[i+1:], "#{"):
			end, err := closingBrace(text, i+3)
			if err != nil {
				return nil, err
			}
			src := strings.TrimSpace(text[i+3 : end])
			if src == "" {
				return nil, fmt.Errorf("empty expression at %d", i)
			}
			q.add(&sb, placeholder{kind: placeholderExpr, expr: src})
			i = end + 1
		case c == '?':
			j := i + 1
			for j < len(text) && isDigit(text[j]) {
				j++
			}
			if j == i+1 {
				q.add(&sb, placeholder{kind: placeholderNext, index: next})
				next++
			} else {
				n, err := strconv.Atoi(text[i+1 : j])
				if err != nil {
					return nil, fmt.Errorf("invalid parameter index %q", text[i+1:j])
				}
				q.add(&sb, placeholder{kind: placeholderIndex, index: n})
			}
			i = j
		case c == ':' && i+1 < len(text) && isIdentStart(text[i+1]) && (i == 0 || !isIdentPart(text[i-1]) && text[i-1] != ':'):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			q.add(&sb, placeholder{kind: placeholderName, name: text[i+1 : j]})
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	q.parts = append(q.parts, sb.String())
	return q, nil
}

func (q *stringQuery) add(sb *strings.Builder, p placeholder) {
	q.parts = append(q.parts, sb.String())
	sb.Reset()
	q.params = append(q.params, p)
}

// compile checks the placeholders against the value parameters of p and
// compiles expressions through the program cache.
func (q *stringQuery) compile(p *params, programs *lru.Cache[string, *vm.Program]) error {
	env := make(map[string]any, len(p.names)+1)
	for name := range p.names {
		env[name] = nil
	}
	env[argsVar] = []any{}
	for i := range q.params {
		ph := &q.params[i]
		switch ph.kind {
		case placeholderNext, placeholderIndex:
			if ph.index >= len(p.values) {
				return fmt.Errorf("parameter index %d out of bounds, method has %d value parameters", ph.index, len(p.values))
			}
		case placeholderName:
			if _, ok := p.names[ph.name]; !ok {
				return fmt.Errorf("no parameter named %q", ph.name)
			}
		case placeholderExpr:
			src := rewriteExpr(ph.expr)
			key := cacheKey(p, src)
			if prog, ok := programs.Get(key); ok {
				ph.prog = prog
				continue
			}
			prog, err := expr.Compile(src, expr.Env(env))
			if err != nil {
				return fmt.Errorf("expression %q: %w", ph.expr, err)
			}
			programs.Add(key, prog)
			ph.prog = prog
		}
	}
	return nil
}

// cacheKey identifies a compiled expression. Programs are checked against
// the parameter names, which are part of the key.
func cacheKey(p *params, src string) string {
	names := make([]string, 0, len(p.names))
	for name, i := range p.names {
		names = append(names, name+"="+strconv.Itoa(i))
	}
	slices.Sort(names)
	return strconv.Itoa(len(p.values)) + "|" + strings.Join(names, ",") + "|" + src
}

// bind renders the statement text and the raw values of its bind markers.
func (q *stringQuery) bind(a *arguments) (string, []any, error) {
	var sb strings.Builder
	values := make([]any, 0, len(q.params))
	env := a.env()
	for i, ph := range q.params {
		sb.WriteString(q.parts[i])
		sb.WriteByte('?')
		var (
			v   any
			err error
		)
		switch ph.kind {
		case placeholderNext, placeholderIndex:
			v, err = a.value(ph.index)
		case placeholderName:
			v, err = a.named(ph.name)
		case placeholderExpr:
			v, err = expr.Run(ph.prog, env)
			if err != nil {
				err = fmt.Errorf("expression %q: %w", ph.expr, err)
			}
		}
		if err != nil {
			return "", nil, err
		}
		values = append(values, v)
	}
	sb.WriteString(q.parts[len(q.parts)-1])
	return sb.String(), values, nil
}

// rewriteExpr turns #name references into name, a leading [i] into
// args[i], and null into nil.
func rewriteExpr(src string) string {
	var (
		sb   strings.Builder
		prev byte
	)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(src, i)
			sb.WriteString(src[i:end])
			i = end
			prev = c
			continue
		case c == '#' && i+1 < len(src) && isIdentStart(src[i+1]):
			i++
			continue
		case c == '[' && !isIdentPart(prev) && prev != ']' && prev != ')':
			sb.WriteString(argsVar)
		case strings.HasPrefix(src[i:], "null") && !isIdentPart(prev) && (i+4 == len(src) || !isIdentPart(src[i+4])):
			sb.WriteString("nil")
			i += 4
			prev = 'l'
			continue
		}
		sb.WriteByte(c)
		if c != ' ' && c != '\t' {
			prev = c
		}
		i++
	}
	return sb.String()
}

// closingQuote returns the index after the quoted section starting at i.
// A doubled quote is an escaped quote.
func closingQuote(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// closingBrace returns the index of the brace closing an expression that
// starts at i.
func closingBrace(s string, i int) (int, error) {
	depth := 1
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\'', '"':
			j = closingQuote(s, j) - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated expression at %d", i-3)
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
