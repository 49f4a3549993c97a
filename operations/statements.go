package operations

import (
	"context"

	"github.com/syssam/cassava/convert"
	"github.com/syssam/cassava/dialect/cql"
	"github.com/syssam/cassava/mapping"
)

func tableOf(e *mapping.Entity, table cql.Identifier) cql.Identifier {
	if table.IsZero() {
		return e.Table()
	}
	return table
}

func (t *Template) insertStatement(ctx context.Context, e *mapping.Entity, table cql.Identifier, v any, opts InsertOptions) (*cql.Statement, error) {
	b := cql.InsertInto(tableOf(e, table)).Keyspace(t.ks(opts.QueryOptions))
	if err := t.conv.Write(ctx, e, v, b, opts.insertNulls); err != nil {
		return nil, err
	}
	if opts.ifNotExists {
		b.IfNotExists()
	}
	if ttl, ok := opts.TTL(); ok {
		b.TTL(ttl)
	}
	if ts, ok := opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	return opts.Apply(b.Build()), nil
}

// updateStatement updates all non-key columns of v, writing NULL for unset
// properties. conds are appended to the IF conditions of opts.
func (t *Template) updateStatement(ctx context.Context, e *mapping.Entity, table cql.Identifier, v any, opts UpdateOptions, conds ...cql.Relation) (*cql.Statement, error) {
	var rec convert.Record
	if err := t.conv.Write(ctx, e, v, &rec, true); err != nil {
		return nil, err
	}
	where, err := t.conv.WriteID(ctx, e, v)
	if err != nil {
		return nil, err
	}
	b := cql.Update(tableOf(e, table)).Keyspace(t.ks(opts.QueryOptions)).Where(where...)
	for i, col := range rec.Columns {
		if !isKeyColumn(e, col) {
			b.Assign(cql.Set(col, rec.Values[i]))
		}
	}
	if err := t.updateConditions(ctx, e, b, opts, conds); err != nil {
		return nil, err
	}
	if ttl, ok := opts.TTL(); ok {
		b.TTL(ttl)
	}
	if ts, ok := opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	return opts.Apply(b.Build()), nil
}

func (t *Template) updateConditions(ctx context.Context, e *mapping.Entity, b *cql.UpdateBuilder, opts UpdateOptions, conds []cql.Relation) error {
	if opts.ifExists && len(conds) == 0 {
		b.IfExists()
		return nil
	}
	rels, err := t.mapper.Relations(ctx, e, opts.ifCondition)
	if err != nil {
		return err
	}
	if rels = append(rels, conds...); len(rels) > 0 {
		b.If(rels...)
	}
	return nil
}

// deleteStatement deletes the row identified by id, an identifier or an
// entity value.
func (t *Template) deleteStatement(ctx context.Context, e *mapping.Entity, table cql.Identifier, id any, opts DeleteOptions, conds ...cql.Relation) (*cql.Statement, error) {
	where, err := t.conv.WriteID(ctx, e, id)
	if err != nil {
		return nil, err
	}
	b := cql.DeleteFrom(tableOf(e, table)).Keyspace(t.ks(opts.QueryOptions)).Where(where...)
	if err := t.deleteConditions(ctx, e, b, opts, conds); err != nil {
		return nil, err
	}
	if ts, ok := opts.Timestamp(); ok {
		b.Timestamp(ts)
	}
	return opts.Apply(b.Build()), nil
}

func (t *Template) deleteConditions(ctx context.Context, e *mapping.Entity, b *cql.DeleteBuilder, opts DeleteOptions, conds []cql.Relation) error {
	if opts.ifExists && len(conds) == 0 {
		b.IfExists()
		return nil
	}
	rels, err := t.mapper.Relations(ctx, e, opts.ifCondition)
	if err != nil {
		return err
	}
	if rels = append(rels, conds...); len(rels) > 0 {
		b.If(rels...)
	}
	return nil
}

func isKeyColumn(e *mapping.Entity, col cql.Identifier) bool {
	for _, k := range e.KeyColumns() {
		if k.Column().Equal(col) {
			return true
		}
	}
	return false
}
