// Package postgres stores grocery items in PostgreSQL. Statements are built
// with squirrel and executed through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/grocerylist/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var itemColumns = []string{"id::text", "name", "quantity", "category", "priority", "completed", "created_at"}

const returning = "RETURNING id::text, name, quantity, category, priority, completed, created_at"

// table is created by the postgres migrations.
const table = "grocery_items"

// ItemStore provides grocery item persistence backed by PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

func scanItem(row pgx.Row) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var priority *string
	if err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Category, &priority, &item.Completed, &item.CreatedAt); err != nil {
		return nil, err
	}
	if priority != nil {
		p := model.Priority(*priority)
		item.Priority = &p
	}
	return &item, nil
}

func priorityArg(p *model.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func (s *ItemStore) setFields(b sq.UpdateBuilder, f model.ItemFields) sq.UpdateBuilder {
	return b.
		Set("name", f.Name).
		Set("quantity", f.Quantity).
		Set("category", f.Category).
		Set("priority", priorityArg(f.Priority)).
		Set("completed", f.Completed)
}

// List returns all items in the order Postgres yields them.
func (s *ItemStore) List(ctx context.Context) ([]model.GroceryItem, error) {
	query, args, err := psql.Select(itemColumns...).From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "list items", "")
	}
	defer rows.Close()

	items := []model.GroceryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "list items", "")
	}
	return items, nil
}

// Get returns the item with the given id, or nil if there is none. An id
// that is not a valid uuid is reported by Postgres as an error.
func (s *ItemStore) Get(ctx context.Context, id string) (*model.GroceryItem, error) {
	query, args, err := psql.Select(itemColumns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	item, err := scanItem(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err, "get item", id)
	}
	return item, nil
}

func (s *ItemStore) Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error) {
	query, args, err := psql.Insert(table).
		Columns("name", "quantity", "category", "priority", "completed").
		Values(f.Name, f.Quantity, f.Category, priorityArg(f.Priority), f.Completed).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}

	item, err := scanItem(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrapError(err, "insert item", "")
	}
	return item, nil
}

// Update writes all five fields; nil fields become NULL. It returns nil when
// no row matched.
func (s *ItemStore) Update(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	query, args, err := s.setFields(psql.Update(table), f).
		Where(sq.Eq{"id": id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	item, err := scanItem(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err, "update item", id)
	}
	return item, nil
}

// Patch writes only the supplied fields inside a transaction that locks the
// row. It returns nil when no row matched.
func (s *ItemStore) Patch(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin patch: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Select(itemColumns...).From(table).Where(sq.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}
	existing, err := scanItem(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err, "get item", id)
	}

	query, args, err = s.setFields(psql.Update(table), f.Merge(existing.Fields())).
		Where(sq.Eq{"id": id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patch query: %w", err)
	}
	item, err := scanItem(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrapError(err, "patch item", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit patch: %w", err)
	}
	return item, nil
}

// Delete removes the item; a missing id is not an error.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return wrapError(err, "delete item", id)
	}
	return nil
}

func (s *ItemStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
