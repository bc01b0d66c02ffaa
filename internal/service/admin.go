package service

import (
	"context"
	"strings"
	"time"

	"coursecart/internal/codegen"
	"coursecart/internal/coupon"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/rs/zerolog"
)

// CouponRequest is a coupon submitted by staff.
type CouponRequest struct {
	Code               string     `json:"code"`
	CourseID           string     `json:"course_id"`
	PercentageDiscount int        `json:"percentage_discount"`
	Description        string     `json:"description"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
}

// ImportSummary reports the outcome of a coupon import.
type ImportSummary struct {
	Files    int   `json:"files"`
	Parsed   int   `json:"parsed"`
	Imported int64 `json:"imported"`
	Skipped  int64 `json:"skipped"`
}

// adminService implements AdminService.
type adminService struct {
	store    Store
	importer coupon.Importer
	codes    codegen.Generator
	logger   zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store Store, importer coupon.Importer, codes codegen.Generator, logger zerolog.Logger) AdminService {
	return &adminService{
		store:    store,
		importer: importer,
		codes:    codes,
		logger:   logger.With().Str("service", "admin").Logger(),
	}
}

func (s *adminService) CreateCoupon(ctx context.Context, userID int64, req *CouponRequest) (*model.Coupon, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, model.BadRequest(model.ErrCodeMissingField, "coupon code is required")
	}
	if req.PercentageDiscount < 0 || req.PercentageDiscount > 100 {
		return nil, model.BadRequest(model.ErrCodeInvalidCoupon, "percentage discount must be between 0 and 100")
	}

	course, err := s.store.Courses.GetByID(ctx, s.store.DB, req.CourseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, model.BadRequest(model.ErrCodeInvalidCourse, "Course with course id %s does not exist", req.CourseID)
	}

	c := &model.Coupon{
		Code:               code,
		Description:        req.Description,
		CourseID:           req.CourseID,
		PercentageDiscount: req.PercentageDiscount,
		CreatedBy:          userID,
		ExpirationDate:     req.ExpirationDate,
	}
	if err := s.store.Coupons.Create(ctx, s.store.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *adminService) ListCoupons(ctx context.Context, courseID string) ([]model.Coupon, error) {
	coupons, err := s.store.Coupons.List(ctx, s.store.DB, courseID)
	if err != nil {
		return nil, err
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}
	return coupons, nil
}

func (s *adminService) DeactivateCoupon(ctx context.Context, id int64) error {
	c, err := s.store.Coupons.GetByID(ctx, s.store.DB, id)
	if err != nil {
		return err
	}
	if c == nil {
		return model.NotFound(model.ErrCodeCouponNotFound, "coupon with id (%d) DoesNotExist", id)
	}
	if !c.IsActive {
		return model.BadRequest(model.ErrCodeCouponInactive, "coupon with id (%d) is already inactive", id)
	}
	return s.store.Coupons.Deactivate(ctx, s.store.DB, id)
}

func (s *adminService) ImportCoupons(ctx context.Context, userID int64, files []string) (*ImportSummary, error) {
	if len(files) == 0 {
		return nil, model.BadRequest(model.ErrCodeMissingField, "at least one coupon file is required")
	}

	collection, err := s.importer.Collect(ctx, files)
	if err != nil {
		s.logger.Warn().Err(err).Strs("files", files).Msg("coupon import failed")
		return nil, model.BadRequest(model.ErrCodeInvalidCoupon, "Could not import coupons: %v", err)
	}

	coupons := make([]model.Coupon, len(collection.Definitions))
	for i, def := range collection.Definitions {
		coupons[i] = model.Coupon{
			Code:               def.Code,
			CourseID:           def.CourseID,
			PercentageDiscount: def.Percentage,
			Description:        def.Description,
			CreatedBy:          userID,
		}
	}

	imported, err := s.store.Coupons.UpsertCoupons(ctx, s.store.DB, coupons)
	if err != nil {
		return nil, err
	}

	parsed := len(collection.Definitions)
	summary := &ImportSummary{
		Files:    collection.Files,
		Parsed:   parsed,
		Imported: imported,
		Skipped:  int64(collection.Skipped) + int64(parsed) - imported,
	}

	s.logger.Info().
		Int("files", summary.Files).
		Int("parsed", summary.Parsed).
		Int64("imported", summary.Imported).
		Int64("skipped", summary.Skipped).
		Msg("coupon import finished")

	return summary, nil
}

func (s *adminService) DonationConfiguration(ctx context.Context) (*model.DonationConfiguration, error) {
	return s.store.Settings.DonationConfiguration(ctx, s.store.DB)
}

func (s *adminService) SetDonationsEnabled(ctx context.Context, userID int64, enabled bool) (*model.DonationConfiguration, error) {
	return s.store.Settings.SaveDonationConfiguration(ctx, s.store.DB, enabled, userID)
}

func (s *adminService) MintCodes(ctx context.Context, userID int64, courseID, mode string, count int) ([]model.RegistrationCode, error) {
	if !model.ValidQuantity(count) {
		return nil, model.ErrQuantityRange
	}

	var minted []model.RegistrationCode
	err := withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		course, err := s.store.Courses.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return model.ErrCourseNotFound
		}
		if mode == "" {
			m, ok := course.DefaultMode()
			if !ok {
				return model.BadRequest(model.ErrCodeNoPurchasableMode, "The course %s offers no modes.", courseID)
			}
			mode = m.Slug
		} else if _, ok := course.Mode(mode); !ok {
			return model.BadRequest(model.ErrCodeNoPurchasableMode, "The course %s does not offer mode %s.", courseID, mode)
		}

		minted, err = mintCodes(ctx, s.store.Codes, tx, s.codes, model.RegistrationCode{
			CourseID:  courseID,
			ModeSlug:  mode,
			CreatedBy: userID,
		}, count)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("course_id", courseID).Str("mode", mode).Int("count", len(minted)).Msg("registration codes minted")
	return minted, nil
}
