package repository

import (
	"fmt"

	"github.com/syssam/cassava/query"
)

// Query builds the query of the tree from the value arguments, which are
// consumed in order of the parts.
func (pt *PartTree) Query(values []any) (query.Query, error) {
	if len(values) < pt.Arity() {
		return query.Query{}, fmt.Errorf("predicate binds %d arguments, got %d", pt.Arity(), len(values))
	}
	var (
		cs   []query.Criteria
		next int
	)
	take := func() any {
		v := values[next]
		next++
		return v
	}
	for _, p := range pt.Parts {
		col := query.Where(p.Property)
		switch p.Type {
		case PartSimple:
			cs = append(cs, col.EQ(take()))
		case PartNot:
			cs = append(cs, col.NEQ(take()))
		case PartLessThan:
			cs = append(cs, col.LT(take()))
		case PartLessThanEqual:
			cs = append(cs, col.LTE(take()))
		case PartGreaterThan:
			cs = append(cs, col.GT(take()))
		case PartGreaterThanEqual:
			cs = append(cs, col.GTE(take()))
		case PartBetween:
			cs = append(cs, col.GT(take()), col.LT(take()))
		case PartIn:
			cs = append(cs, col.In(spread(take())...))
		case PartLike:
			cs = append(cs, col.Like(fmt.Sprint(take())))
		case PartStartingWith:
			cs = append(cs, col.Like(fmt.Sprint(take())+"%"))
		case PartEndingWith:
			cs = append(cs, col.Like("%"+fmt.Sprint(take())))
		case PartContaining:
			if p.collection {
				cs = append(cs, col.Contains(take()))
			} else {
				cs = append(cs, col.Like("%"+fmt.Sprint(take())+"%"))
			}
		case PartContainingKey:
			cs = append(cs, col.ContainsKey(take()))
		case PartNotNull:
			cs = append(cs, col.NotNull())
		case PartTrue:
			cs = append(cs, col.EQ(true))
		case PartFalse:
			cs = append(cs, col.EQ(false))
		default:
			return query.Query{}, fmt.Errorf("%s on %s is not supported", p.Type, p.Property)
		}
	}
	q := query.New(cs...).WithSort(pt.Sort).WithLimit(pt.Subject.Limit)
	if pt.Subject.Distinct {
		q = q.WithDistinct()
	}
	return q, nil
}
