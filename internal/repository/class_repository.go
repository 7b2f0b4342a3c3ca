package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kkayomi/class-reservation/internal/model"
)

// ClassRepo provides CRUD operations for the class catalog.
type ClassRepo struct{ DB *sql.DB }

func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{DB: db} }

const classCols = "id, name, description, duration_minutes, price, max_participants, is_active, sort_order, created_at, updated_at"

func scanClass(row interface{ Scan(...interface{}) error }) (model.Class, error) {
	var (
		c    model.Class
		desc sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &desc, &c.DurationMinutes, &c.Price,
		&c.MaxParticipants, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	if desc.Valid {
		d := desc.String
		c.Description = &d
	}
	return c, nil
}

// Create inserts a class and populates its generated ID.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO classes (name, description, duration_minutes, price, max_participants, is_active, sort_order) VALUES (?,?,?,?,?,?,?)",
		c.Name, c.Description, c.DurationMinutes, c.Price, c.MaxParticipants, c.IsActive, c.SortOrder)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// Update rewrites the mutable columns of a class.
func (r *ClassRepo) Update(ctx context.Context, c *model.Class) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE classes SET name=?, description=?, duration_minutes=?, price=?, max_participants=?, is_active=?, sort_order=? WHERE id=?",
		c.Name, c.Description, c.DurationMinutes, c.Price, c.MaxParticipants, c.IsActive, c.SortOrder, c.ID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches one class.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (model.Class, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+classCols+" FROM classes WHERE id=? LIMIT 1", id)
	c, err := scanClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// List returns classes ordered for display. When activeOnly is true the
// result is limited to classes visible in the public catalog.
func (r *ClassRepo) List(ctx context.Context, activeOnly bool) ([]model.Class, error) {
	q := "SELECT " + classCols + " FROM classes"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	q += " ORDER BY sort_order, id"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
