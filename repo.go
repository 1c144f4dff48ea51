package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// records is the lookup and write surface the entity helpers share. Unique
// violations surface as *ConflictError and missing rows as not found.
type records[T any] interface {
	findOne(ctx context.Context, criteria ...repository.SelectCriteria) (T, error)
	findAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error)
	exists(ctx context.Context, criteria ...repository.SelectCriteria) (bool, error)
	insert(ctx context.Context, record T) (T, error)
	merge(ctx context.Context, id uuid.UUID, patch map[string]any) (T, error)
	deleteReturning(ctx context.Context, query string, args ...any) (int64, error)
}

// entityRepo binds a repository.Repository to the bun handle the current
// unit of work runs on, either the DB or a transaction.
type entityRepo[T any] struct {
	repository.Repository[T]
	db        bun.IDB
	newRecord func() T
}

func newEntityRepo[T any](db *bun.DB, handlers repository.ModelHandlers[T]) entityRepo[T] {
	return entityRepo[T]{
		Repository: repository.NewRepository[T](db, handlers),
		db:         db,
		newRecord:  handlers.NewRecord,
	}
}

func (r entityRepo[T]) bind(tx bun.IDB) entityRepo[T] {
	r.db = tx
	return r
}

func (r entityRepo[T]) findOne(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	record := r.newRecord()
	q := r.db.NewSelect().Model(record)
	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		var zero T
		return zero, err
	}

	return record, nil
}

func (r entityRepo[T]) findAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error) {
	out := make([]T, 0)
	q := r.db.NewSelect().Model(&out)
	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Scan(ctx); err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return out, nil
}

func (r entityRepo[T]) exists(ctx context.Context, criteria ...repository.SelectCriteria) (bool, error) {
	q := r.db.NewSelect().Model(r.newRecord())
	for _, c := range criteria {
		q.Apply(c)
	}
	return q.Exists(ctx)
}

func (r entityRepo[T]) insert(ctx context.Context, record T) (T, error) {
	created, err := r.Repository.CreateTx(ctx, r.db, record)
	if err != nil {
		var zero T
		return zero, classifyStoreError(err)
	}
	return created, nil
}

// merge sets only the given columns on the row with id and returns the
// fresh record. Map and slice values are stored as JSON.
func (r entityRepo[T]) merge(ctx context.Context, id uuid.UUID, patch map[string]any) (T, error) {
	var zero T
	if len(patch) == 0 {
		return r.findOne(ctx, ByID(id))
	}

	q := r.db.NewUpdate().Model(r.newRecord())
	for column, value := range patch {
		v, err := columnValue(value)
		if err != nil {
			return zero, fmt.Errorf("merge %s: %w", column, err)
		}
		q = q.Set("? = ?", bun.Ident(column), v)
	}

	res, err := q.Where("? = ?", bun.Ident("id"), id).Exec(ctx)
	if err != nil {
		return zero, classifyStoreError(err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return zero, sql.ErrNoRows
	}

	return r.findOne(ctx, ByID(id))
}

// deleteReturning runs a DELETE ... RETURNING statement and reports how
// many rows went.
func (r entityRepo[T]) deleteReturning(ctx context.Context, query string, args ...any) (int64, error) {
	removed, err := r.Repository.RawTx(ctx, r.db, query, args...)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return int64(len(removed)), nil
}

func columnValue(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any, []string:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return value, nil
	}
}

// ByID selects the row with id
func ByID(id uuid.UUID) repository.SelectCriteria {
	return WhereEq("id", id)
}

// WhereEq selects rows where column equals value
func WhereEq(column string, value any) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(fmt.Sprintf("?TableAlias.%s = ?", column), value)
	}
}

// OrderBy sorts the selection
func OrderBy(order string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order(order)
	}
}
