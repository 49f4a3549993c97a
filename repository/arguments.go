package repository

import (
	"fmt"
	"reflect"

	"github.com/syssam/cassava/operations"
	"github.com/syssam/cassava/query"
)

// arguments are the call arguments of a query method, split by parameter
// kind.
type arguments struct {
	values  []any
	names   map[string]int
	page    query.PageRequest
	paged   bool
	sort    query.Sort
	options *operations.QueryOptions
}

func bindArguments(p *params, args []any, n int) (*arguments, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	a := &arguments{names: p.names, values: make([]any, len(p.values))}
	for i, at := range p.values {
		a.values[i] = args[at]
	}
	if p.page >= 0 {
		switch v := args[p.page].(type) {
		case query.PageRequest:
			a.page, a.paged = v, true
		case nil:
		default:
			return nil, fmt.Errorf("argument %d: expected query.PageRequest, got %T", p.page, v)
		}
	}
	if p.sort >= 0 {
		switch v := args[p.sort].(type) {
		case query.Sort:
			a.sort = v
		case nil:
		default:
			return nil, fmt.Errorf("argument %d: expected query.Sort, got %T", p.sort, v)
		}
	}
	if p.options >= 0 {
		switch v := args[p.options].(type) {
		case operations.QueryOptions:
			a.options = &v
		case nil:
		default:
			return nil, fmt.Errorf("argument %d: expected operations.QueryOptions, got %T", p.options, v)
		}
	}
	return a, nil
}

// value returns the i-th value argument.
func (a *arguments) value(i int) (any, error) {
	if i < 0 || i >= len(a.values) {
		return nil, fmt.Errorf("parameter index %d out of bounds, method has %d value parameters", i, len(a.values))
	}
	return a.values[i], nil
}

// named returns the value argument bound to name.
func (a *arguments) named(name string) (any, error) {
	i, ok := a.names[name]
	if !ok {
		return nil, fmt.Errorf("no parameter named %q", name)
	}
	return a.values[i], nil
}

// env returns the expression environment: named values, and all values
// under args.
func (a *arguments) env() map[string]any {
	env := make(map[string]any, len(a.names)+1)
	for name, i := range a.names {
		env[name] = a.values[i]
	}
	env[argsVar] = a.values
	return env
}

// queryOptions returns the options of the call, falling back to the ones
// of the signature.
func (a *arguments) queryOptions(def operations.QueryOptions) operations.QueryOptions {
	if a.options != nil {
		return *a.options
	}
	return def
}

// spread returns the elements of a slice or array argument, or v itself.
func spread(v any) []any {
	if vs, ok := v.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		// Blobs are values, not collections.
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
