package mapping

import (
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-openapi/inflect"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"

	"github.com/syssam/cassava/dialect/cql"
)

// Kind classifies a mapped type.
type Kind uint8

// Entity kinds.
const (
	KindTable Kind = iota
	KindPrimaryKeyClass
	KindUserType
	KindTuple
)

var kindNames = [...]string{
	KindTable:           "table",
	KindPrimaryKeyClass: "primary_key_class",
	KindUserType:        "user_type",
	KindTuple:           "tuple",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("mapping: unknown kind %q", s)
}

// Role is the part a property plays in the primary key.
type Role uint8

// Key roles.
const (
	RoleNone Role = iota
	RolePartition
	RoleClustering
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RolePartition:
		return "partition"
	case RoleClustering:
		return "clustering"
	default:
		return ""
	}
}

// Shape is the Go shape of a property value.
type Shape uint8

// Property shapes.
const (
	ShapeScalar Shape = iota
	ShapeList
	ShapeSet
	ShapeMap
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeSet:
		return "set"
	case ShapeMap:
		return "map"
	default:
		return "scalar"
	}
}

// inferType returns the CQL type used for Go values of v's type when the
// property does not declare one.
func inferType(v any) (cql.DataType, bool) {
	switch v.(type) {
	case string:
		return cql.Text, true
	case int, int64:
		return cql.Bigint, true
	case int32:
		return cql.Int, true
	case int16:
		return cql.Smallint, true
	case int8:
		return cql.Tinyint, true
	case float64:
		return cql.Double, true
	case float32:
		return cql.Float, true
	case bool:
		return cql.Boolean, true
	case []byte:
		return cql.Blob, true
	case time.Time:
		return cql.Timestamp, true
	case civil.Date, cql.LocalDate:
		return cql.Date, true
	case civil.Time, cql.LocalTime:
		return cql.Time, true
	case gocql.Duration:
		return cql.Duration, true
	case uuid.UUID, gocql.UUID:
		return cql.UUID, true
	case decimal.Decimal, *inf.Dec:
		return cql.Decimal, true
	case *big.Int:
		return cql.Varint, true
	case net.IP:
		return cql.Inet, true
	default:
		return cql.DataType{}, false
	}
}

// NamingStrategy derives table, type and column names from Go names when a
// declaration does not set one explicitly.
type NamingStrategy func(name string) string

// Naming strategies.
var (
	// LowerCase lower-cases the Go name: LastName becomes lastname.
	LowerCase NamingStrategy = strings.ToLower
	// SnakeCase separates words with underscores: LastName becomes last_name.
	SnakeCase NamingStrategy = inflect.Underscore
)

// typeName returns the unqualified Go name of T.
func typeName[T any]() string {
	name := fmt.Sprintf("%T", new(T))[1:]
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
