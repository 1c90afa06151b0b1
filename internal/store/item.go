package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/grocerylist/internal/model"
)

// ItemStore persists grocery items in SQLite.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var name, quantity, category, priority sql.NullString
	var completed sql.NullInt64

	err := scanner.Scan(&item.ID, &name, &quantity, &category, &priority, &completed, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		item.Name = &name.String
	}
	if quantity.Valid {
		item.Quantity = &quantity.String
	}
	if category.Valid {
		item.Category = &category.String
	}
	if priority.Valid {
		p := model.Priority(priority.String)
		item.Priority = &p
	}
	if completed.Valid {
		c := completed.Int64 != 0
		item.Completed = &c
	}
	return &item, nil
}

const itemCols = `id, name, quantity, category, priority, completed, created_at`

// fieldArgs converts the writable fields into column values, nil becoming NULL.
func fieldArgs(f model.ItemFields) []any {
	var priority sql.NullString
	if f.Priority != nil {
		priority = sql.NullString{String: string(*f.Priority), Valid: true}
	}
	var completed sql.NullInt64
	if f.Completed != nil {
		completed.Valid = true
		if *f.Completed {
			completed.Int64 = 1
		}
	}
	return []any{nullString(f.Name), nullString(f.Quantity), nullString(f.Category), priority, completed}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// List returns every item. No ordering is applied.
func (s *ItemStore) List(ctx context.Context) ([]model.GroceryItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemCols+` FROM grocery_items`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.GroceryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Get returns the item with the given id, or nil if there is none.
func (s *ItemStore) Get(ctx context.Context, id string) (*model.GroceryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM grocery_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error) {
	id := uuid.NewString()
	args := append([]any{id}, fieldArgs(f)...)
	args = append(args, time.Now().UTC())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grocery_items (id, name, quantity, category, priority, completed, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("read created item %s: %w", id, sql.ErrNoRows)
	}
	return item, nil
}

// Update writes all five fields of the item. A nil field is stored as NULL.
// It returns nil if no row has the id.
func (s *ItemStore) Update(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	args := append(fieldArgs(f), id)
	result, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET name = ?, quantity = ?, category = ?, priority = ?, completed = ? WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// Patch writes only the supplied fields, keeping the stored value of every
// nil field. It returns nil if no row has the id.
func (s *ItemStore) Patch(ctx context.Context, id string, f model.ItemFields) (*model.GroceryItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin patch: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+itemCols+` FROM grocery_items WHERE id = ?`, id)
	existing, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	args := append(fieldArgs(f.Merge(existing.Fields())), id)
	if _, err := tx.ExecContext(ctx,
		`UPDATE grocery_items SET name = ?, quantity = ?, category = ?, priority = ?, completed = ? WHERE id = ?`,
		args...,
	); err != nil {
		return nil, fmt.Errorf("patch item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit patch: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the item. Deleting a missing id is not an error.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *ItemStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
