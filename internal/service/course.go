package service

import (
	"context"
	"fmt"

	"coursecart/internal/model"

	"github.com/rs/zerolog"
)

// courseService implements CourseService.
type courseService struct {
	store  Store
	logger zerolog.Logger
}

// NewCourseService creates a new course service.
func NewCourseService(store Store, logger zerolog.Logger) CourseService {
	return &courseService{
		store:  store,
		logger: logger.With().Str("service", "course").Logger(),
	}
}

// List retrieves courses with pagination.
func (s *courseService) List(ctx context.Context, limit, offset int) ([]model.Course, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	courses, err := s.store.Courses.GetAll(ctx, s.store.DB, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("failed to get courses")
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}

	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// Get retrieves a single course.
func (s *courseService) Get(ctx context.Context, id string) (*model.Course, error) {
	if id == "" {
		return nil, model.BadRequest(model.ErrCodeMissingField, "course id is required")
	}

	course, err := s.store.Courses.GetByID(ctx, s.store.DB, id)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", id).Msg("failed to get course")
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, model.ErrCourseNotFound
	}
	return course, nil
}
