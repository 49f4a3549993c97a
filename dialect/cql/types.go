package cql

import (
	"fmt"
	"strings"
)

// TypeName identifies a CQL data type.
type TypeName uint8

// Native, collection and composite type names.
const (
	TypeInvalid TypeName = iota
	TypeASCII
	TypeBigint
	TypeBlob
	TypeBoolean
	TypeCounter
	TypeDate
	TypeDecimal
	TypeDouble
	TypeDuration
	TypeFloat
	TypeInet
	TypeInt
	TypeSmallint
	TypeText
	TypeTime
	TypeTimestamp
	TypeTimeUUID
	TypeTinyint
	TypeUUID
	TypeVarchar
	TypeVarint
	TypeList
	TypeSet
	TypeMap
	TypeTuple
	TypeUDT
)

var typeNames = [...]string{
	TypeInvalid:   "invalid",
	TypeASCII:     "ascii",
	TypeBigint:    "bigint",
	TypeBlob:      "blob",
	TypeBoolean:   "boolean",
	TypeCounter:   "counter",
	TypeDate:      "date",
	TypeDecimal:   "decimal",
	TypeDouble:    "double",
	TypeDuration:  "duration",
	TypeFloat:     "float",
	TypeInet:      "inet",
	TypeInt:       "int",
	TypeSmallint:  "smallint",
	TypeText:      "text",
	TypeTime:      "time",
	TypeTimestamp: "timestamp",
	TypeTimeUUID:  "timeuuid",
	TypeTinyint:   "tinyint",
	TypeUUID:      "uuid",
	TypeVarchar:   "varchar",
	TypeVarint:    "varint",
	TypeList:      "list",
	TypeSet:       "set",
	TypeMap:       "map",
	TypeTuple:     "tuple",
	TypeUDT:       "udt",
}

// String returns the CQL spelling of the type name.
func (t TypeName) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TypeName(%d)", t)
}

// IsCollection reports whether t is list, set or map.
func (t TypeName) IsCollection() bool {
	return t == TypeList || t == TypeSet || t == TypeMap
}

// DataType describes the type of a column, a user type field or a tuple
// element.
type DataType struct {
	Name TypeName
	// Elems holds the element type of lists and sets, key and value types of
	// maps and the component types of tuples.
	Elems []DataType
	// UserType is set for TypeUDT. Unresolved references only carry the name.
	UserType *UserType
	Frozen   bool
}

// Native data types.
var (
	ASCII     = DataType{Name: TypeASCII}
	Bigint    = DataType{Name: TypeBigint}
	Blob      = DataType{Name: TypeBlob}
	Boolean   = DataType{Name: TypeBoolean}
	Counter   = DataType{Name: TypeCounter}
	Date      = DataType{Name: TypeDate}
	Decimal   = DataType{Name: TypeDecimal}
	Double    = DataType{Name: TypeDouble}
	Duration  = DataType{Name: TypeDuration}
	Float     = DataType{Name: TypeFloat}
	Inet      = DataType{Name: TypeInet}
	Int       = DataType{Name: TypeInt}
	Smallint  = DataType{Name: TypeSmallint}
	Text      = DataType{Name: TypeText}
	Time      = DataType{Name: TypeTime}
	Timestamp = DataType{Name: TypeTimestamp}
	TimeUUID  = DataType{Name: TypeTimeUUID}
	Tinyint   = DataType{Name: TypeTinyint}
	UUID      = DataType{Name: TypeUUID}
	Varchar   = DataType{Name: TypeVarchar}
	Varint    = DataType{Name: TypeVarint}
)

// ListOf returns list<elem>.
func ListOf(elem DataType) DataType {
	return DataType{Name: TypeList, Elems: []DataType{elem}}
}

// SetOf returns set<elem>.
func SetOf(elem DataType) DataType {
	return DataType{Name: TypeSet, Elems: []DataType{elem}}
}

// MapOf returns map<key, value>.
func MapOf(key, value DataType) DataType {
	return DataType{Name: TypeMap, Elems: []DataType{key, value}}
}

// TupleOf returns tuple<elems...>. Tuples are always frozen.
func TupleOf(elems ...DataType) DataType {
	return DataType{Name: TypeTuple, Elems: elems, Frozen: true}
}

// UDT returns a reference to the user type named name.
func UDT(name Identifier) DataType {
	return DataType{Name: TypeUDT, UserType: &UserType{Name: name}}
}

// UDTOf returns the data type of a resolved user type.
func UDTOf(t *UserType) DataType {
	return DataType{Name: TypeUDT, UserType: t}
}

// Frozen returns a frozen copy of t.
func Frozen(t DataType) DataType {
	t.Frozen = true
	return t
}

// IsZero reports whether t is unset.
func (t DataType) IsZero() bool { return t.Name == TypeInvalid }

// Elem returns the element type of lists and sets, and the value type of maps.
func (t DataType) Elem() DataType {
	switch {
	case t.Name == TypeMap && len(t.Elems) == 2:
		return t.Elems[1]
	case len(t.Elems) > 0:
		return t.Elems[0]
	default:
		return DataType{}
	}
}

// Key returns the key type of maps.
func (t DataType) Key() DataType {
	if t.Name == TypeMap && len(t.Elems) == 2 {
		return t.Elems[0]
	}
	return DataType{}
}

// String renders the type as it appears in DDL.
func (t DataType) String() string {
	var s string
	switch t.Name {
	case TypeList, TypeSet, TypeMap, TypeTuple:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = e.String()
		}
		s = t.Name.String() + "<" + strings.Join(elems, ", ") + ">"
		if t.Name == TypeTuple {
			return s
		}
	case TypeUDT:
		if t.UserType == nil {
			return "udt"
		}
		s = t.UserType.Name.String()
	default:
		s = t.Name.String()
	}
	if t.Frozen {
		return "frozen<" + s + ">"
	}
	return s
}

// Equal reports whether two data types are structurally equal. User types are
// compared by name.
func (t DataType) Equal(o DataType) bool {
	if t.Name != o.Name || t.Frozen != o.Frozen || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	if t.Name == TypeUDT {
		return t.UserType != nil && o.UserType != nil && t.UserType.Name.Equal(o.UserType.Name)
	}
	return true
}

// UserTypeField is a single field of a user type.
type UserTypeField struct {
	Name Identifier
	Type DataType
}

// UserType is the schema of a user-defined type.
type UserType struct {
	Keyspace string
	Name     Identifier
	Fields   []UserTypeField
}

// Field returns the index of the named field, or -1.
func (u *UserType) Field(name Identifier) int {
	for i, f := range u.Fields {
		if f.Name.Equal(name) {
			return i
		}
	}
	return -1
}

// Resolved reports whether the field list of u is known.
func (u *UserType) Resolved() bool { return len(u.Fields) > 0 }

// ParseDataType parses a DDL type such as "map<text, frozen<list<int>>>".
// User type names are returned as unresolved references.
func ParseDataType(s string) (DataType, error) {
	p := &typeParser{s: s}
	t, err := p.parse()
	if err != nil {
		return DataType{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return DataType{}, fmt.Errorf("cql: parse type %q: unexpected %q", s, p.s[p.pos:])
	}
	return t, nil
}

// MustParseDataType is like ParseDataType but panics on error. It is meant
// for generated mapping declarations.
func MustParseDataType(s string) DataType {
	t, err := ParseDataType(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) word() string {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.s) && p.s[p.pos] == '"' {
		p.pos++
		for p.pos < len(p.s) {
			if p.s[p.pos] == '"' {
				if p.pos+1 < len(p.s) && p.s[p.pos+1] == '"' {
					p.pos += 2
					continue
				}
				p.pos++
				break
			}
			p.pos++
		}
		return p.s[start:p.pos]
	}
	for p.pos < len(p.s) && !strings.ContainsRune("<>, ", rune(p.s[p.pos])) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *typeParser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != c {
		return fmt.Errorf("cql: parse type %q: expected %q at %d", p.s, c, p.pos)
	}
	p.pos++
	return nil
}

func (p *typeParser) args() ([]DataType, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var elems []DataType
	for {
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
		p.skipSpace()
		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		return elems, p.expect('>')
	}
}

func (p *typeParser) parse() (DataType, error) {
	w := p.word()
	if w == "" {
		return DataType{}, fmt.Errorf("cql: parse type %q: missing type at %d", p.s, p.pos)
	}
	if strings.HasPrefix(w, `"`) {
		name := strings.ReplaceAll(w[1:len(w)-1], `""`, `"`)
		id, err := NewIdentifier(name, true)
		if err != nil {
			return DataType{}, err
		}
		return UDT(id), nil
	}
	switch lw := strings.ToLower(w); lw {
	case "frozen":
		elems, err := p.args()
		if err != nil {
			return DataType{}, err
		}
		if len(elems) != 1 {
			return DataType{}, fmt.Errorf("cql: parse type %q: frozen takes one argument", p.s)
		}
		return Frozen(elems[0]), nil
	case "list", "set", "map", "tuple":
		elems, err := p.args()
		if err != nil {
			return DataType{}, err
		}
		switch {
		case lw == "map" && len(elems) != 2:
			return DataType{}, fmt.Errorf("cql: parse type %q: map takes two arguments", p.s)
		case (lw == "list" || lw == "set") && len(elems) != 1:
			return DataType{}, fmt.Errorf("cql: parse type %q: %s takes one argument", p.s, lw)
		}
		switch lw {
		case "list":
			return ListOf(elems[0]), nil
		case "set":
			return SetOf(elems[0]), nil
		case "map":
			return MapOf(elems[0], elems[1]), nil
		default:
			return TupleOf(elems...), nil
		}
	default:
		for n := TypeASCII; n <= TypeVarint; n++ {
			if n.String() == lw {
				return DataType{Name: n}, nil
			}
		}
		id, err := NewIdentifier(w, false)
		if err != nil {
			return DataType{}, err
		}
		return UDT(id), nil
	}
}
