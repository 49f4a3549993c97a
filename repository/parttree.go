package repository

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/cassava"
	"github.com/syssam/cassava/mapping"
	"github.com/syssam/cassava/query"
)

// Subject is the part of a method name before By: the action and its
// modifiers, e.g. findDistinctTop3.
type Subject struct {
	Prefix   string
	Distinct bool
	// Limit is set by First or TopN, zero when the name has neither.
	Limit int
}

// IsCount reports whether the method counts rows.
func (s Subject) IsCount() bool { return s.Prefix == "count" }

// IsExists reports whether the method checks for existence.
func (s Subject) IsExists() bool { return s.Prefix == "exists" }

// IsDelete reports whether the method deletes rows.
func (s Subject) IsDelete() bool { return s.Prefix == "delete" || s.Prefix == "remove" }

// IsStream reports whether the method streams its results.
func (s Subject) IsStream() bool { return s.Prefix == "stream" }

// PartType is the comparison of a predicate part.
type PartType uint8

// Part types.
const (
	PartSimple PartType = iota
	PartNot
	PartLessThan
	PartLessThanEqual
	PartGreaterThan
	PartGreaterThanEqual
	PartBetween
	PartIn
	PartLike
	PartStartingWith
	PartEndingWith
	PartContaining
	PartContainingKey
	PartNotNull
	PartTrue
	PartFalse
	// Recognized, but not expressible in CQL.
	PartIsNull
	PartNotIn
	PartNotLike
	PartNotContaining
)

var partNames = [...]string{
	PartSimple:           "simple",
	PartNot:              "not",
	PartLessThan:         "less than",
	PartLessThanEqual:    "less than equal",
	PartGreaterThan:      "greater than",
	PartGreaterThanEqual: "greater than equal",
	PartBetween:          "between",
	PartIn:               "in",
	PartLike:             "like",
	PartStartingWith:     "starting with",
	PartEndingWith:       "ending with",
	PartContaining:       "containing",
	PartContainingKey:    "containing key",
	PartNotNull:          "not null",
	PartTrue:             "true",
	PartFalse:            "false",
	PartIsNull:           "is null",
	PartNotIn:            "not in",
	PartNotLike:          "not like",
	PartNotContaining:    "not containing",
}

func (t PartType) String() string {
	if int(t) < len(partNames) {
		return partNames[t]
	}
	return "PartType(" + strconv.Itoa(int(t)) + ")"
}

// Arity returns the number of arguments the part binds.
func (t PartType) Arity() int {
	switch t {
	case PartNotNull, PartTrue, PartFalse, PartIsNull:
		return 0
	case PartBetween:
		return 2
	default:
		return 1
	}
}

// supported reports whether the part can be rendered as CQL.
func (t PartType) supported() bool { return t < PartIsNull }

// keywords maps method name suffixes to part types, longest first.
var keywords = func() []keyword {
	kws := []keyword{
		{"IsNotNull", PartNotNull}, {"NotNull", PartNotNull},
		{"IsNull", PartIsNull}, {"Null", PartIsNull},
		{"IsLessThanEqual", PartLessThanEqual}, {"LessThanEqual", PartLessThanEqual},
		{"IsLessThan", PartLessThan}, {"LessThan", PartLessThan},
		{"IsBefore", PartLessThan}, {"Before", PartLessThan},
		{"IsGreaterThanEqual", PartGreaterThanEqual}, {"GreaterThanEqual", PartGreaterThanEqual},
		{"IsGreaterThan", PartGreaterThan}, {"GreaterThan", PartGreaterThan},
		{"IsAfter", PartGreaterThan}, {"After", PartGreaterThan},
		{"IsBetween", PartBetween}, {"Between", PartBetween},
		{"IsNotIn", PartNotIn}, {"NotIn", PartNotIn},
		{"IsIn", PartIn}, {"In", PartIn},
		{"IsNotLike", PartNotLike}, {"NotLike", PartNotLike},
		{"IsLike", PartLike}, {"Like", PartLike},
		{"IsStartingWith", PartStartingWith}, {"StartingWith", PartStartingWith}, {"StartsWith", PartStartingWith},
		{"IsEndingWith", PartEndingWith}, {"EndingWith", PartEndingWith}, {"EndsWith", PartEndingWith},
		{"IsNotContaining", PartNotContaining}, {"NotContaining", PartNotContaining}, {"NotContains", PartNotContaining},
		{"ContainingKey", PartContainingKey}, {"ContainsKey", PartContainingKey},
		{"IsContaining", PartContaining}, {"Containing", PartContaining}, {"Contains", PartContaining},
		{"IsTrue", PartTrue}, {"True", PartTrue},
		{"IsFalse", PartFalse}, {"False", PartFalse},
		{"IsNot", PartNot}, {"Not", PartNot},
		{"Is", PartSimple}, {"Equals", PartSimple},
	}
	slices.SortStableFunc(kws, func(a, b keyword) int { return len(b.suffix) - len(a.suffix) })
	return kws
}()

type keyword struct {
	suffix string
	typ    PartType
}

// Part is a single predicate of a derived query, e.g. LastnameStartingWith.
type Part struct {
	// Property is the resolved property path.
	Property string
	Type     PartType
	// collection is set for collection properties, where Containing means
	// CONTAINS instead of LIKE.
	collection bool
}

// PartTree is a parsed query method name.
type PartTree struct {
	Subject Subject
	Parts   []Part
	Sort    query.Sort
}

var prefixes = []string{"find", "read", "get", "query", "search", "stream", "count", "exists", "delete", "remove"}

// Parse parses a query method name against the properties of e. Property
// references are validated: an unknown property fails with a
// *cassava.PropertyReferenceError, and names that cannot be expressed as a
// Cassandra query fail with a *cassava.QueryCreationError.
func Parse(name string, e *mapping.Entity) (*PartTree, error) {
	fail := func(format string, args ...any) error {
		return cassava.NewQueryCreationError(name, fmt.Sprintf(format, args...), nil)
	}
	var prefix string
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) && startsUpperOrEmpty(name[len(p):]) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return nil, fail("method name must start with one of %s", strings.Join(prefixes, ", "))
	}
	rest := name[len(prefix):]
	subject, predicate, order := rest, "", ""
	if i := keywordIndex(rest, "By", 0); i >= 0 && !strings.HasSuffix(rest[:i], "Order") {
		subject, predicate = rest[:i], rest[i+2:]
	}
	if i := keywordIndex(subject, "OrderBy", 0); i >= 0 {
		subject, order = subject[:i], subject[i+len("OrderBy"):]
	} else if strings.HasPrefix(predicate, "OrderBy") {
		predicate, order = "", predicate[len("OrderBy"):]
	} else if i := keywordIndex(predicate, "OrderBy", 1); i >= 0 {
		predicate, order = predicate[:i], predicate[i+len("OrderBy"):]
	}
	pt := &PartTree{Subject: Subject{Prefix: prefix}}
	if err := pt.parseSubject(subject); err != nil {
		return nil, fail("%v", err)
	}
	if predicate != "" {
		if len(splitKeyword(predicate, "Or")) > 1 {
			return nil, fail("Cassandra does not support OR queries")
		}
		for _, s := range splitKeyword(predicate, "And") {
			part, err := parsePart(s, e)
			if err != nil {
				return nil, err
			}
			if !part.Type.supported() {
				return nil, fail("%s on %s is not supported", part.Type, part.Property)
			}
			pt.Parts = append(pt.Parts, part)
		}
	}
	if order != "" {
		s, err := parseOrder(order, e)
		if err != nil {
			return nil, err
		}
		pt.Sort = s
	}
	return pt, nil
}

func (pt *PartTree) parseSubject(s string) error {
	for s != "" {
		switch {
		case strings.HasPrefix(s, "Distinct"):
			pt.Subject.Distinct = true
			s = s[len("Distinct"):]
		case strings.HasPrefix(s, "First"), strings.HasPrefix(s, "Top"):
			kw := "First"
			if s[0] == 'T' {
				kw = "Top"
			}
			s = s[len(kw):]
			n := 0
			for n < len(s) && s[n] >= '0' && s[n] <= '9' {
				n++
			}
			pt.Subject.Limit = 1
			if n > 0 {
				limit, err := strconv.Atoi(s[:n])
				if err != nil || limit < 1 {
					return fmt.Errorf("invalid limit %s%s", kw, s[:n])
				}
				pt.Subject.Limit = limit
			}
			s = s[n:]
		default:
			// Descriptive words such as All or People.
			_, size := utf8.DecodeRuneInString(s)
			i := size
			for i < len(s) {
				r, w := utf8.DecodeRuneInString(s[i:])
				if unicode.IsUpper(r) {
					break
				}
				i += w
			}
			s = s[i:]
		}
	}
	return nil
}

// Arity returns the number of value arguments the predicate binds.
func (pt *PartTree) Arity() int {
	n := 0
	for _, p := range pt.Parts {
		n += p.Type.Arity()
	}
	return n
}

// IsLimiting reports whether the subject limits the result.
func (pt *PartTree) IsLimiting() bool { return pt.Subject.Limit > 0 }

func parsePart(s string, e *mapping.Entity) (Part, error) {
	if strings.HasSuffix(s, "IgnoreCase") {
		return Part{}, cassava.NewQueryCreationError(s, "ignore case is not supported", nil)
	}
	for _, kw := range keywords {
		name, ok := strings.CutSuffix(s, kw.suffix)
		if !ok || name == "" {
			continue
		}
		if path, err := resolve(e, name); err == nil {
			return newPart(path, kw.typ), nil
		}
		break
	}
	path, err := resolve(e, s)
	if err != nil {
		return Part{}, err
	}
	return newPart(path, PartSimple), nil
}

func newPart(path mapping.PropertyPath, typ PartType) Part {
	return Part{Property: path.Name(), Type: typ, collection: path.Property().IsCollection()}
}

// resolve resolves a capitalized property reference, e.g. Lastname or
// KeyAuthor for the path key.author.
func resolve(e *mapping.Entity, name string) (mapping.PropertyPath, error) {
	first := lowerFirst(name)
	if path, err := e.Resolve(first); err == nil {
		return path, nil
	}
	words := camelWords(name)
	for i := 1; i < len(words); i++ {
		head := lowerFirst(strings.Join(words[:i], ""))
		tail := lowerFirst(strings.Join(words[i:], ""))
		if path, err := e.Resolve(head + "." + tail); err == nil {
			return path, nil
		}
	}
	for _, p := range e.Properties() {
		if strings.EqualFold(p.Name(), name) {
			return mapping.PropertyPath{p}, nil
		}
	}
	return nil, cassava.NewPropertyReferenceError(e.Name(), first)
}

func parseOrder(s string, e *mapping.Entity) (query.Sort, error) {
	var orders []query.Order
	for s != "" {
		end, desc, next := len(s), false, len(s)
	scan:
		for i := 1; i < len(s); i++ {
			for _, dir := range []string{"Asc", "Desc"} {
				if strings.HasPrefix(s[i:], dir) && startsUpperOrEmpty(s[i+len(dir):]) {
					end, desc, next = i, dir == "Desc", i+len(dir)
					break scan
				}
			}
		}
		path, err := resolve(e, s[:end])
		if err != nil {
			return query.Sort{}, err
		}
		o := query.Asc(path.Name())
		if desc {
			o = query.Desc(path.Name())
		}
		orders = append(orders, o)
		s = s[next:]
	}
	return query.By(orders...), nil
}

// keywordIndex returns the index of the first kw at or after from that is
// followed by an upper case letter.
func keywordIndex(s, kw string, from int) int {
	for i := from; i+len(kw) < len(s); i++ {
		if strings.HasPrefix(s[i:], kw) && startsUpperOrEmpty(s[i+len(kw):]) {
			return i
		}
	}
	return -1
}

// splitKeyword splits s at kw where kw is followed by an upper case letter
// and is not at the start.
func splitKeyword(s, kw string) []string {
	var parts []string
	for {
		i := keywordIndex(s, kw, 1)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+len(kw):]
	}
}

func startsUpperOrEmpty(s string) bool {
	if s == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// camelWords splits s before each upper case letter.
func camelWords(s string) []string {
	var (
		words []string
		start int
	)
	for i, r := range s {
		if i > start && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}
