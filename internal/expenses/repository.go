package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedmill/feedmill/internal/money"
	"github.com/feedmill/feedmill/internal/shared"
)

// ErrNotFound indicates the expense does not exist.
var ErrNotFound = shared.NotFound("expense not found")

// Repository persists expenses.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) (Expense, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const expenseColumns = `id, expense_type, expense_date, description, amount, currency, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var typ, currency string
	if err := row.Scan(&e.ID, &typ, &e.Date, &e.Description, &e.Amount, &currency, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Expense{}, err
	}
	e.Type = Type(typ)
	e.Currency = money.Currency(currency)
	return e, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	var conds []string
	var args []any
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("expense_type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("expense_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("expense_date <= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	query := "SELECT " + expenseColumns + " FROM expenses" + where + " ORDER BY expense_date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	out, err := scanExpense(r.pool.QueryRow(ctx,
		`INSERT INTO expenses (expense_type, expense_date, description, amount, currency, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING `+expenseColumns,
		string(e.Type), e.Date, e.Description, e.Amount, string(e.Currency)))
	if err != nil {
		return Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, e Expense) (Expense, error) {
	out, err := scanExpense(r.pool.QueryRow(ctx,
		`UPDATE expenses SET expense_type = $2, expense_date = $3, description = $4, amount = $5, currency = $6,
		 updated_at = NOW() WHERE id = $1 RETURNING `+expenseColumns,
		e.ID, string(e.Type), e.Date, e.Description, e.Amount, string(e.Currency)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	if err != nil {
		return Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return out, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
