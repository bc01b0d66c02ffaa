package service

import (
	"context"

	"coursecart/internal/events"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/rs/zerolog"
)

// redemptionService implements RedemptionService.
type redemptionService struct {
	store     Store
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewRedemptionService creates a new registration code redemption service.
func NewRedemptionService(store Store, publisher events.Publisher, logger zerolog.Logger) RedemptionService {
	return &redemptionService{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("service", "redemption").Logger(),
	}
}

func errUnknownCode(code string) *model.DomainError {
	return model.NotFound(model.ErrCodeCodeNotFound, "The enrollment code (%s) was not found", code)
}

func (s *redemptionService) Describe(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error) {
	rc, err := s.store.Codes.GetByCode(ctx, s.store.DB, code)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, errUnknownCode(code)
	}
	info, _, err := s.describe(ctx, s.store.DB, userID, rc)
	return info, err
}

func (s *redemptionService) describe(ctx context.Context, q repository.DBTX, userID int64,
	rc *model.RegistrationCode) (*model.RedeemInfo, *model.Course, error) {
	info := &model.RedeemInfo{
		Code:        rc.Code,
		CourseID:    rc.CourseID,
		Mode:        rc.ModeSlug,
		AlreadyUsed: rc.Redeemed,
	}

	course, err := s.store.Courses.GetByID(ctx, q, rc.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if course != nil {
		info.CourseName = course.DisplayName
	}

	info.AlreadyEnrolled, err = s.store.Courses.IsEnrolled(ctx, q, userID, rc.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return info, course, nil
}

func (s *redemptionService) Redeem(ctx context.Context, userID int64, code string) (*model.RedeemInfo, error) {
	var info *model.RedeemInfo
	var enrolled bool
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		rc, err := s.store.Codes.GetByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if rc == nil {
			return errUnknownCode(code)
		}
		if rc.Redeemed {
			return model.ErrRegistrationCodeUsed
		}

		var course *model.Course
		info, course, err = s.describe(ctx, tx, userID, rc)
		if err != nil {
			return err
		}
		if info.AlreadyEnrolled {
			return model.Conflict(model.ErrCodeAlreadyRegistered, "You are already registered in course %s.", rc.CourseID)
		}

		if course == nil {
			info.Message = redeemModeBanner
			return nil
		}
		if _, ok := course.Mode(rc.ModeSlug); !ok {
			s.logger.Warn().Str("code", rc.Code).Str("mode", rc.ModeSlug).Msg("registration code names an unknown mode")
			info.Message = redeemModeBanner
			return nil
		}

		err = s.store.Codes.CreateRedemption(ctx, tx, &model.RegistrationCodeRedemption{
			RegistrationCodeID: rc.ID,
			RedeemedBy:         userID,
		})
		if err != nil {
			return err
		}
		err = s.store.Courses.Enroll(ctx, tx, &model.Enrollment{UserID: userID, CourseID: rc.CourseID, Mode: rc.ModeSlug})
		if err != nil {
			return err
		}

		info.Enrolled = true
		info.AlreadyUsed = true
		enrolled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if enrolled {
		s.logger.Info().Str("code", code).Int64("user_id", userID).Msg("registration code redeemed")
		evt := events.New(events.TypeCodeRedeemed, code, events.CodeRedeemed{
			Code:     info.Code,
			CourseID: info.CourseID,
			Mode:     info.Mode,
			UserID:   userID,
		})
		if err := publishCommitted(ctx, s.publisher, evt); err != nil {
			s.logger.Error().Err(err).Str("code", code).Msg("failed to publish redemption event")
		}
	}

	return info, nil
}
