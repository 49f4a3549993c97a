package cql

import (
	"regexp"
	"strings"

	"github.com/syssam/cassava"
)

// unquotedRe matches names that may appear unquoted in a statement.
var unquotedRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// reserved holds the CQL keywords that cannot be used as unquoted identifiers.
var reserved = map[string]struct{}{
	"add": {}, "allow": {}, "alter": {}, "and": {}, "apply": {}, "asc": {},
	"authorize": {}, "batch": {}, "begin": {}, "by": {}, "columnfamily": {},
	"create": {}, "delete": {}, "desc": {}, "describe": {}, "drop": {},
	"entries": {}, "execute": {}, "from": {}, "full": {}, "grant": {}, "if": {},
	"in": {}, "index": {}, "infinity": {}, "insert": {}, "into": {}, "keyspace": {},
	"limit": {}, "modify": {}, "nan": {}, "norecursive": {}, "not": {}, "null": {},
	"of": {}, "on": {}, "or": {}, "order": {}, "primary": {}, "rename": {},
	"replace": {}, "revoke": {}, "schema": {}, "select": {}, "set": {},
	"table": {}, "to": {}, "token": {}, "truncate": {}, "unlogged": {},
	"update": {}, "use": {}, "using": {}, "where": {}, "with": {},
}

// Identifier is a table, column, type or field name. Unquoted identifiers
// are case-insensitive and are kept in lower case; quoted identifiers keep
// their text as written.
//
// The zero value is not a valid identifier.
type Identifier struct {
	name   string
	quoted bool
}

// NewIdentifier returns the identifier for name. Names that cannot appear
// unquoted (mixed symbols, reserved keywords) are quoted regardless of
// forceQuote.
func NewIdentifier(name string, forceQuote bool) (Identifier, error) {
	if name == "" {
		return Identifier{}, cassava.NewInvalidIdentifierError(name, "empty name")
	}
	if forceQuote || !IsUnquotedIdentifier(name) {
		return Identifier{name: name, quoted: true}, nil
	}
	return Identifier{name: strings.ToLower(name)}, nil
}

// Ident is like NewIdentifier without forced quoting, and panics on an empty
// name. It is meant for names known at compile time.
func Ident(name string) Identifier {
	id, err := NewIdentifier(name, false)
	if err != nil {
		panic(err)
	}
	return id
}

// Quoted is like Ident but always quotes the name.
func Quoted(name string) Identifier {
	id, err := NewIdentifier(name, true)
	if err != nil {
		panic(err)
	}
	return id
}

// IsUnquotedIdentifier reports whether name can be used without quotes.
func IsUnquotedIdentifier(name string) bool {
	if !unquotedRe.MatchString(name) {
		return false
	}
	_, ok := reserved[strings.ToLower(name)]
	return !ok
}

// Name returns the identifier text: lower case for unquoted identifiers,
// verbatim for quoted ones. It is the name the driver reports for columns.
func (i Identifier) Name() string { return i.name }

// IsQuoted reports whether the identifier is rendered with quotes.
func (i Identifier) IsQuoted() bool { return i.quoted }

// IsZero reports whether i is the zero Identifier.
func (i Identifier) IsZero() bool { return i.name == "" }

// Equal reports whether both identifiers have the same quoting and text.
func (i Identifier) Equal(o Identifier) bool {
	return i.quoted == o.quoted && i.name == o.name
}

// String renders the identifier as it appears in a statement.
func (i Identifier) String() string {
	if !i.quoted {
		return i.name
	}
	return `"` + strings.ReplaceAll(i.name, `"`, `""`) + `"`
}
