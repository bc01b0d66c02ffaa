package service

import (
	"strconv"
	"time"

	"coursecart/internal/model"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Masquerade roles.
const (
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// masqueradeService implements MasqueradeService.
type masqueradeService struct {
	sessions *cache.Cache
	logger   zerolog.Logger
}

// NewMasqueradeService creates a masquerade service whose choices expire after ttl.
func NewMasqueradeService(ttl time.Duration, logger zerolog.Logger) MasqueradeService {
	return &masqueradeService{
		sessions: cache.New(ttl, 2*ttl),
		logger:   logger.With().Str("service", "masquerade").Logger(),
	}
}

func masqueradeKey(userID int64, courseID string) string {
	return strconv.FormatInt(userID, 10) + "|" + courseID
}

func (s *masqueradeService) View(userID int64, courseID string) (*model.MasqueradeView, error) {
	if _, err := model.ParseCourseKey(courseID); err != nil {
		return nil, model.BadRequest(model.ErrCodeInvalidCourse, "No course '%s' found", courseID)
	}

	role := RoleStaff
	if v, ok := s.sessions.Get(masqueradeKey(userID, courseID)); ok {
		role = v.(string)
	}
	return viewFor(courseID, role), nil
}

func (s *masqueradeService) SetRole(userID int64, courseID, role string) (*model.MasqueradeView, error) {
	if _, err := model.ParseCourseKey(courseID); err != nil {
		return nil, model.BadRequest(model.ErrCodeInvalidCourse, "No course '%s' found", courseID)
	}
	if role != RoleStaff && role != RoleStudent {
		return nil, model.BadRequest(model.ErrCodeInvalidRole, "Invalid masquerade role %q", role)
	}

	s.sessions.SetDefault(masqueradeKey(userID, courseID), role)
	s.logger.Info().Int64("user_id", userID).Str("course_id", courseID).Str("role", role).Msg("masquerade role set")

	return viewFor(courseID, role), nil
}

func viewFor(courseID, role string) *model.MasqueradeView {
	staff := role == RoleStaff
	return &model.MasqueradeView{
		CourseID:       courseID,
		Role:           role,
		Masquerading:   !staff,
		StaffDebugInfo: staff,
		ShowAnswer:     staff,
	}
}
