package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/observability"
)

// TasksRepo scopes every statement to an owner. "Not yours" and "not there"
// are one and the same ErrNotFound at this layer.
type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	t := task.New(ownerID, req)

	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks(id, owner_id, title, description, completed, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.OwnerID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt)

		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, ownerID string, filter task.ListTasksFilter) ([]task.Task, int, error) {
	baseQuery :=
		`SELECT id,
		owner_id,
		title,
		description,
		completed,
	  created_at,
		updated_at,
		COUNT(*) OVER() AS total
	FROM tasks
	`

	conds := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	argsPosition := 2

	if filter.Completed != nil {
		conds = append(conds, fmt.Sprintf("completed = $%d", argsPosition))
		args = append(args, *filter.Completed)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	filterArgs := args[:argsPosition-1]
	args = append(args, filter.Limit, filter.Offset)

	output := make([]task.Task, 0, filter.Limit)
	total := 0

	err := r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t task.Task
			var cnt int

			err = rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt, &cnt)

			if err != nil {
				return err
			}

			total = cnt
			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// the window total disappears with the rows when offset points past the
	// end; recount so total keeps describing the filter, not the page
	if len(output) == 0 && filter.Offset > 0 {
		countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + strings.Join(conds, " AND ")

		err := r.observe("tasks.count", func() error {
			return r.pool.QueryRow(ctx, countQuery, filterArgs...).Scan(&total)
		})

		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, ownerID, taskID string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, owner_id, title, description, completed, created_at, updated_at
		 FROM tasks
		 WHERE id = $1 AND owner_id = $2`,
			taskID, ownerID,
		).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, ownerID, taskID string, req task.UpdateTaskRequest) (task.Task, error) {
	var sets []string
	args := []interface{}{taskID, ownerID}

	argsPosition := 3

	if req.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argsPosition))
		args = append(args, *req.Title)
		argsPosition++
	}

	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argsPosition))
		args = append(args, *req.Description)
		argsPosition++
	}

	if req.Completed != nil {
		sets = append(sets, fmt.Sprintf("completed = $%d", argsPosition))
		args = append(args, *req.Completed)
		argsPosition++
	}

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE tasks
			SET %s
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, title, description, completed, created_at, updated_at`,
		strings.Join(sets, ", "))

	var t task.Task

	err := r.observe("tasks.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&t.ID,
			&t.OwnerID,
			&t.Title,
			&t.Description,
			&t.Completed,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
	})

	if err != nil {
		// if there are no rows matching the id for this owner
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		// if it is any other type of error
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, taskID string) error {
	var tag pgconn.CommandTag

	err := r.observe("tasks.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `
			DELETE FROM tasks WHERE id = $1 AND owner_id = $2
		`, taskID, ownerID)

		return err
	})

	if err != nil {

		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}

	return nil
}
