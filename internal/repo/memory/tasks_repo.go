package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskhub/taskhub/internal/domain/task"
)

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
}

func (r *TasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	t := task.New(ownerID, req)

	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, ownerID string, filter task.ListTasksFilter) ([]task.Task, int, error) {
	r.mu.RLock()
	matched := make([]task.Task, 0, len(r.items))
	for _, t := range r.items {
		if t.OwnerID != ownerID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		matched = append(matched, t)
	}
	r.mu.RUnlock()

	// newest first, id as tie breaker, same ordering as the SQL repo
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	if filter.Offset >= total {
		return []task.Task{}, total, nil
	}

	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]task.Task, end-filter.Offset)
	copy(page, matched[filter.Offset:end])

	return page, total, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, ownerID, taskID string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[taskID]
	if !ok || t.OwnerID != ownerID {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

func (r *TasksRepo) Update(ctx context.Context, ownerID, taskID string, req task.UpdateTaskRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[taskID]
	if !ok || t.OwnerID != ownerID {
		return task.Task{}, task.ErrNotFound
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	t.UpdatedAt = time.Now().UTC()

	r.items[taskID] = t
	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[taskID]
	if !ok || t.OwnerID != ownerID {
		return task.ErrNotFound
	}

	delete(r.items, taskID)
	return nil
}
