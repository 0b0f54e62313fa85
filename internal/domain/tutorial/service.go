package tutorial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/tutorials-api/pkg/errors"
	"github.com/yanqian/tutorials-api/pkg/util"
)

// Service exposes tutorial CRUD operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Tutorial, error)
	List(ctx context.Context, title string) ([]Tutorial, error)
	ListPublished(ctx context.Context) ([]Tutorial, error)
	Get(ctx context.Context, id string) (Tutorial, error)
	Update(ctx context.Context, id string, input UpdateInput) (Tutorial, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the tutorial domain.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "tutorial.service"),
		now:    util.NowUTC,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (Tutorial, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Tutorial{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Content can not be empty!", nil)
	}
	now := s.now()
	created, err := s.repo.Create(ctx, Tutorial{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Published:   input.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Tutorial{}, s.storageError("Some error occurred while creating the Tutorial.", err)
	}
	s.logger.Debug("tutorial created", "id", created.ID)
	return created, nil
}

func (s *service) List(ctx context.Context, title string) ([]Tutorial, error) {
	items, err := s.repo.List(ctx, Filter{Title: strings.TrimSpace(title)})
	if err != nil {
		return nil, s.storageError("Some error occurred while retrieving tutorials.", err)
	}
	return nonNil(items), nil
}

func (s *service) ListPublished(ctx context.Context) ([]Tutorial, error) {
	published := true
	items, err := s.repo.List(ctx, Filter{Published: &published})
	if err != nil {
		return nil, s.storageError("Some error occurred while retrieving tutorials.", err)
	}
	return nonNil(items), nil
}

func (s *service) Get(ctx context.Context, id string) (Tutorial, error) {
	item, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tutorial{}, s.storageError(fmt.Sprintf("Error retrieving Tutorial with id=%s", id), err)
	}
	if !ok {
		return Tutorial{}, notFound(fmt.Sprintf("Not found Tutorial with id %s", id))
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (Tutorial, error) {
	if input.IsEmpty() {
		return Tutorial{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Data to update can not be empty!", nil)
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return Tutorial{}, apperrors.Wrap(apperrors.CodeInvalidInput, "title cannot be blank", nil)
	}
	item, ok, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Tutorial{}, s.storageError(fmt.Sprintf("Error updating Tutorial with id=%s", id), err)
	}
	if !ok {
		return Tutorial{}, notFound(fmt.Sprintf("Cannot update Tutorial with id=%s. Maybe Tutorial was not found!", id))
	}
	return item, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storageError(fmt.Sprintf("Could not delete Tutorial with id=%s", id), err)
	}
	if !ok {
		return notFound(fmt.Sprintf("Cannot delete Tutorial with id=%s. Maybe Tutorial was not found!", id))
	}
	return nil
}

func (s *service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, s.storageError("Some error occurred while removing all tutorials.", err)
	}
	s.logger.Info("tutorials deleted", "count", n)
	return n, nil
}

func (s *service) storageError(message string, err error) error {
	if errors.Is(err, ErrNotConnected) {
		return apperrors.Wrap(apperrors.CodeDatabaseUnavailable, "database is not connected yet", err)
	}
	s.logger.Error("tutorial storage failure", "error", err)
	return apperrors.Wrap("storage_error", message, err)
}

func notFound(message string) error {
	return apperrors.Wrap(apperrors.CodeNotFound, message, nil)
}

func nonNil(items []Tutorial) []Tutorial {
	if items == nil {
		return []Tutorial{}
	}
	return items
}
