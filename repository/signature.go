package repository

import (
	"fmt"

	"github.com/syssam/cassava/operations"
)

// ExecutionKind selects how a query method is executed and what it returns.
type ExecutionKind uint8

// Execution kinds.
const (
	// ExecDerive derives the kind from the method name and parameters.
	ExecDerive ExecutionKind = iota
	ExecCollection
	ExecSingle
	ExecSlice
	ExecExists
	ExecCount
	ExecStream
	ExecDelete
)

var kindNames = [...]string{
	ExecDerive:     "derive",
	ExecCollection: "collection",
	ExecSingle:     "single",
	ExecSlice:      "slice",
	ExecExists:     "exists",
	ExecCount:      "count",
	ExecStream:     "stream",
	ExecDelete:     "delete",
}

func (k ExecutionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ExecutionKind(%d)", k)
}

// ParamKind is the role of a method parameter.
type ParamKind uint8

// Parameter kinds. Only value parameters are bound to the query; the
// others shape its execution.
const (
	ParamValue ParamKind = iota
	ParamPage
	ParamSort
	ParamOptions
)

func (k ParamKind) String() string {
	switch k {
	case ParamValue:
		return "value"
	case ParamPage:
		return "page"
	case ParamSort:
		return "sort"
	case ParamOptions:
		return "options"
	default:
		return fmt.Sprintf("ParamKind(%d)", k)
	}
}

// Param declares a method parameter.
type Param struct {
	// Name binds the parameter to :name placeholders and #name
	// expressions. Unnamed value parameters are bound by position only.
	Name string
	Kind ParamKind
}

// Value declares a value parameter. The name may be empty.
func Value(name string) Param { return Param{Name: name, Kind: ParamValue} }

// Page declares a query.PageRequest parameter.
func Page() Param { return Param{Kind: ParamPage} }

// Sorting declares a query.Sort parameter.
func Sorting() Param { return Param{Kind: ParamSort} }

// Options declares an operations.QueryOptions parameter.
func Options() Param { return Param{Kind: ParamOptions} }

// Signature describes a repository query method. A method either declares
// its CQL in Query, or its query is derived from Name:
//
//	repository.Signature{
//		Name:   "findByLastnameAndFirstname",
//		Params: []repository.Param{repository.Value("lastname"), repository.Value("firstname")},
//	}
type Signature struct {
	Name    string
	Params  []Param
	Returns ExecutionKind
	// Query is the declared CQL with ?, ?N, :name, ?#{expr} or :#{expr}
	// placeholders. Empty derives the query from Name.
	Query string
	// AllowFiltering appends ALLOW FILTERING to derived queries.
	AllowFiltering bool
	// Options applies to every execution. An options parameter overrides
	// it.
	Options operations.QueryOptions
}

// IsDeclared reports whether the method declares its query string.
func (s Signature) IsDeclared() bool { return s.Query != "" }

// params indexes the parameters of a signature.
type params struct {
	values  []int          // argument index of each value parameter
	names   map[string]int // value parameter name to value index
	page    int
	sort    int
	options int
}

func indexParams(s Signature) (*params, error) {
	p := &params{names: make(map[string]int), page: -1, sort: -1, options: -1}
	special := func(at *int, i int, kind ParamKind) error {
		if *at >= 0 {
			return fmt.Errorf("duplicate %s parameter at %d", kind, i)
		}
		*at = i
		return nil
	}
	for i, prm := range s.Params {
		var err error
		switch prm.Kind {
		case ParamValue:
			if prm.Name != "" {
				if _, dup := p.names[prm.Name]; dup {
					return nil, fmt.Errorf("duplicate parameter name %q", prm.Name)
				}
				p.names[prm.Name] = len(p.values)
			}
			p.values = append(p.values, i)
		case ParamPage:
			err = special(&p.page, i, prm.Kind)
		case ParamSort:
			err = special(&p.sort, i, prm.Kind)
		case ParamOptions:
			err = special(&p.options, i, prm.Kind)
		default:
			err = fmt.Errorf("unknown parameter kind %s at %d", prm.Kind, i)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}
