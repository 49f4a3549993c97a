package query

import "slices"

// UpdateKind is the kind of an update assignment.
type UpdateKind uint8

// Update assignment kinds.
const (
	UpdateSet UpdateKind = iota
	UpdateSetAt
	UpdateIncrement
	UpdateAppend
	UpdatePrepend
	UpdateRemove
)

var updateKindNames = [...]string{
	UpdateSet:       "set",
	UpdateSetAt:     "set at",
	UpdateIncrement: "increment",
	UpdateAppend:    "append",
	UpdatePrepend:   "prepend",
	UpdateRemove:    "remove",
}

// String returns the kind name.
func (k UpdateKind) String() string {
	if int(k) < len(updateKindNames) {
		return updateKindNames[k]
	}
	return "unknown"
}

// UpdateOp is a single assignment of an Update.
type UpdateOp struct {
	Kind     UpdateKind
	Property string
	// Key is the list index or map key of UpdateSetAt.
	Key   any
	Value any
}

// Update is an immutable list of assignments.
type Update struct {
	ops []UpdateOp
}

// NewUpdate returns an empty update.
func NewUpdate() Update { return Update{} }

func (u Update) with(op UpdateOp) Update {
	return Update{ops: append(slices.Clip(u.ops), op)}
}

// Set assigns v to property.
func (u Update) Set(property string, v any) Update {
	return u.with(UpdateOp{Kind: UpdateSet, Property: property, Value: v})
}

// SetAt assigns v to a list index or map key of property.
func (u Update) SetAt(property string, key, v any) Update {
	return u.with(UpdateOp{Kind: UpdateSetAt, Property: property, Key: key, Value: v})
}

// Increment adds delta to a counter property. A negative delta decrements.
func (u Update) Increment(property string, delta int64) Update {
	return u.with(UpdateOp{Kind: UpdateIncrement, Property: property, Value: delta})
}

// Append appends elements to a list or adds them to a set.
func (u Update) Append(property string, elems ...any) Update {
	return u.with(UpdateOp{Kind: UpdateAppend, Property: property, Value: elems})
}

// Prepend prepends elements to a list.
func (u Update) Prepend(property string, elems ...any) Update {
	return u.with(UpdateOp{Kind: UpdatePrepend, Property: property, Value: elems})
}

// Remove removes elements from a list or set.
func (u Update) Remove(property string, elems ...any) Update {
	return u.with(UpdateOp{Kind: UpdateRemove, Property: property, Value: elems})
}

// Ops returns a copy of the assignments.
func (u Update) Ops() []UpdateOp { return slices.Clone(u.ops) }

// IsEmpty reports whether the update has no assignments.
func (u Update) IsEmpty() bool { return len(u.ops) == 0 }
