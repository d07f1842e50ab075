package service

import (
	"context"
	"fmt"
	"strings"

	"quillpad/internal/auth"
	"quillpad/internal/domain"
	"quillpad/internal/repository"
)

// TaskService manages a user's private tasks. Every method takes the
// caller's user id; reads and writes of another user's task fail with
// domain.ErrForbidden before anything is changed.
type TaskService interface {
	CreateTask(ctx context.Context, userID int64, title, description string, completed bool) (*domain.Task, error)
	GetTask(ctx context.Context, userID, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context, userID int64) ([]domain.Task, error)
	UpdateTask(ctx context.Context, userID, id int64, update domain.TaskUpdate) (*domain.Task, error)
	ToggleComplete(ctx context.Context, userID, id int64) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, id int64) error
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) CreateTask(ctx context.Context, userID int64, title, description string, completed bool) (*domain.Task, error) {
	if userID <= 0 {
		return nil, domain.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	task := &domain.Task{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Completed:   completed,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	return s.ownedTask(ctx, userID, id)
}

func (s *taskService) ListTasks(ctx context.Context, userID int64) ([]domain.Task, error) {
	if userID <= 0 {
		return nil, domain.ErrForbidden
	}
	return s.tasks.ListByUser(ctx, userID)
}

func (s *taskService) UpdateTask(ctx context.Context, userID, id int64, update domain.TaskUpdate) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
		}
		task.Title = title
	}
	if update.Description != nil {
		task.Description = strings.TrimSpace(*update.Description)
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) ToggleComplete(ctx context.Context, userID, id int64) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	task.Completed = !task.Completed
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, userID, id int64) error {
	task, err := s.ownedTask(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.tasks.Delete(ctx, task.ID)
}

func (s *taskService) ownedTask(ctx context.Context, userID, id int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.Authorize(userID, task) != auth.Allowed {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrForbidden)
	}
	return task, nil
}
