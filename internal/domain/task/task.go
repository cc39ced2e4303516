package task

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	// DefaultLimit applies when a list request names no page size.
	DefaultLimit = 100
	// MaxLimit is a hard cap; larger page sizes are rejected, not clamped.
	MaxLimit = 1000

	// MaxTitleLen counts code points, not bytes.
	MaxTitleLen = 200
)

// with pointers if optional, it will be nil
type ListTasksFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}

// ErrNotFound covers both a task that does not exist and a task owned by
// someone else. Callers cannot tell the two apart.
var ErrNotFound = errors.New("task not found")

var (
	ErrTitleBlank   = errors.New("title must not be blank")
	ErrTitleTooLong = errors.New("title too long")
)

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Completed   bool    `json:"completed"`
}

// partial update; nil means the field was omitted from the payload
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
}

func (r UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil
}

// NormalizeTitle trims surrounding whitespace and enforces the
// 1..MaxTitleLen code point rule. Length is checked after trimming, so a
// padded title is judged by its content.
func NormalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrTitleBlank
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", ErrTitleTooLong
	}
	return title, nil
}
