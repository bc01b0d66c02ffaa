package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"coursecart/internal/auth"
	"coursecart/internal/config"
	"coursecart/internal/form"
	"coursecart/internal/model"
	"coursecart/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Tokens issues session tokens and third-party-auth pipeline tokens.
type Tokens interface {
	Issue(user *model.User) (string, time.Time, error)
	IssuePipeline(details auth.PipelineDetails, ttl time.Duration) (string, error)
	ParsePipeline(raw string) (*auth.PipelineDetails, error)
}

// pipelineTTL bounds how long a third-party sign-up may take to finish.
const pipelineTTL = 15 * time.Minute

// unusablePassword is stored for accounts that only sign in through a
// provider; no bcrypt hash compares equal to it.
const unusablePassword = "!"

// accountService implements AccountService.
type accountService struct {
	store        Store
	tokens       Tokens
	hasher       auth.PasswordHasher
	registration config.RegistrationConfig
	thirdParty   config.ThirdPartyAuthConfig
	identities   auth.IdentityVerifier
	validate     *validator.Validate
	now          func() time.Time
	logger       zerolog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	store Store,
	tokens Tokens,
	hasher auth.PasswordHasher,
	registration config.RegistrationConfig,
	thirdParty config.ThirdPartyAuthConfig,
	identities auth.IdentityVerifier,
	logger zerolog.Logger,
) AccountService {
	if identities == nil {
		identities = auth.NewUserInfoVerifier(nil, nil)
	}
	return &accountService{
		store:        store,
		tokens:       tokens,
		hasher:       hasher,
		registration: registration,
		thirdParty:   thirdParty,
		identities:   identities,
		validate:     newValidator(),
		now:          time.Now,
		logger:       logger.With().Str("service", "account").Logger(),
	}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// accountFields are the always-present registration fields.
type accountFields struct {
	Email    string `json:"email" validate:"required,min=3,max=254,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Username string `json:"username" validate:"required,min=2,max=30,username"`
	Password string `json:"password" validate:"required,min=2,max=75"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// fieldMessages maps field and failed tag to the message shown to the user.
var fieldMessages = map[string]map[string]string{
	"email": {
		"":    "A properly formatted e-mail is required",
		"max": "Email cannot be more than 254 characters long",
	},
	"name": {
		"":    "Your legal name must be a minimum of two characters long",
		"max": "Name cannot be more than 255 characters long",
	},
	"username": {
		"":         "Username must be minimum of two characters long",
		"max":      "Username cannot be more than 30 characters long",
		"username": "Usernames can only contain Roman letters, western numerals (0-9), underscores (_), or hyphens (-).",
	},
	"password": {
		"":    "A valid password is required",
		"max": "Password cannot be more than 75 characters long",
	},
}

var extraRequiredMessages = map[string]string{
	"city":               "A city is required",
	"country":            "A country is required",
	"gender":             "Your gender is required",
	"year_of_birth":      "Your year of birth is required",
	"level_of_education": "A level of education is required",
	"mailing_address":    "Your mailing address is required",
	"goals":              "A description of your goals is required",
	"honor_code":         "To enroll, you must follow the honor code.",
	"terms_of_service":   "You must accept the terms of service.",
}

func (s *accountService) LoginForm() *form.Description {
	return form.Login()
}

func (s *accountService) PasswordResetForm() *form.Description {
	return form.PasswordReset(s.registration.PlatformName)
}

func (s *accountService) RegistrationForm(ctx context.Context, pipelineToken string) (*form.Description, error) {
	return form.Registration(s.registration, s.prefill(pipelineToken), s.now())
}

// prefill returns the details of a running third-party-auth pipeline, or nil.
func (s *accountService) prefill(token string) *form.Prefill {
	details := s.pipeline(token)
	if details == nil {
		return nil
	}
	return &form.Prefill{Email: details.Email, Name: details.FullName, Username: details.Username}
}

// pipeline parses a pipeline token for an enabled provider, or returns nil.
func (s *accountService) pipeline(token string) *auth.PipelineDetails {
	if !s.thirdParty.Enabled || token == "" {
		return nil
	}

	details, err := s.tokens.ParsePipeline(token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("ignoring invalid pipeline token")
		return nil
	}

	for _, provider := range s.thirdParty.Providers {
		if provider == details.Backend {
			return details
		}
	}

	s.logger.Debug().Str("backend", details.Backend).Msg("pipeline provider is not enabled")
	return nil
}

// ExchangeAccessToken trades a provider access token for a session token.
// Provider accounts that are not linked to a user yet get a pipeline token
// for the registration form instead.
func (s *accountService) ExchangeAccessToken(ctx context.Context, backend, accessToken, clientID string) (*model.TokenExchange, error) {
	if accessToken == "" {
		return nil, model.NewOAuthError(model.OAuthInvalidRequest, "access_token is required")
	}
	if clientID == "" {
		return nil, model.NewOAuthError(model.OAuthInvalidRequest, "client_id is required")
	}
	if !s.thirdParty.ProviderEnabled(backend) || !s.identities.Supports(backend) {
		return nil, model.NewOAuthError(model.OAuthInvalidRequest, "%s is not a supported provider", backend)
	}

	kind, ok := s.thirdParty.ClientType(clientID)
	if !ok {
		return nil, model.NewOAuthError(model.OAuthInvalidClient, "%s is not a valid client_id", clientID)
	}
	if kind != config.ClientPublic {
		return nil, model.NewOAuthError(model.OAuthInvalidClient, "%s is not a public client", clientID)
	}

	identity, err := s.identities.Verify(ctx, backend, accessToken)
	if err != nil {
		event := s.logger.Info()
		if !errors.Is(err, auth.ErrInvalidToken) {
			event = s.logger.Error()
		}
		event.Err(err).Str("backend", backend).Msg("access token verification failed")
		return nil, model.NewOAuthError(model.OAuthInvalidGrant, "access_token is not valid")
	}

	user, err := s.store.Users.GetBySocialAuth(ctx, s.store.DB, backend, identity.UID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		token, err := s.tokens.IssuePipeline(auth.PipelineDetails{
			Backend:  backend,
			UID:      identity.UID,
			Email:    identity.Email,
			Username: identity.Username,
			FullName: identity.FullName,
		}, pipelineTTL)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("backend", backend).Msg("provider account not linked, registration required")
		return &model.TokenExchange{PipelineToken: token}, nil
	}

	// inactive accounts may sign in through a provider
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("backend", backend).Msg("access token exchanged")

	return &model.TokenExchange{
		Session: &model.Session{Token: token, ExpiresAt: expiresAt, UserID: user.ID, Username: user.Username},
	}, nil
}

func (s *accountService) Login(ctx context.Context, login, password string) (*model.Session, error) {
	if login == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.store.Users.GetByLogin(ctx, s.store.DB, login)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.logger.Info().Str("login", login).Msg("login failed: unknown or inactive user")
		return nil, model.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Info().Int64("user_id", user.ID).Msg("login failed: wrong password")
		return nil, model.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user logged in")

	return &model.Session{Token: token, ExpiresAt: expiresAt, UserID: user.ID, Username: user.Username}, nil
}

func (s *accountService) Register(ctx context.Context, req *model.RegistrationRequest) (*model.User, error) {
	emailTaken, usernameTaken, err := s.store.Users.Conflicts(ctx, s.store.DB, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if emailTaken || usernameTaken {
		return nil, conflictErrors(req, emailTaken, usernameTaken)
	}

	if req.HonorCode != "" && req.TermsOfService == "" {
		req.TermsOfService = req.HonorCode
	}

	// a linked provider account stands in for the password
	social := s.pipeline(req.PipelineToken)
	if social != nil && social.UID == "" {
		social = nil
	}
	passwordless := social != nil && req.Password == ""

	fieldErrs := s.validateRegistration(req, passwordless)
	if !fieldErrs.Empty() {
		return nil, fieldErrs
	}

	hash := unusablePassword
	if !passwordless {
		hash, err = s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Roles:        []string{},
		IsActive:     true,
		Profile:      s.profile(req),
	}

	if err := s.createAccount(ctx, user, social); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, conflictErrors(req, true, false)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, conflictErrors(req, false, true)
		}
		return nil, err
	}

	return user, nil
}

// createAccount inserts user, linking the provider account in the same
// transaction when social is set. Link conflicts are domain errors so they
// are not mistaken for a duplicate username.
func (s *accountService) createAccount(ctx context.Context, user *model.User, social *auth.PipelineDetails) error {
	if social == nil {
		return s.store.Users.Create(ctx, s.store.DB, user)
	}

	return withTx(ctx, s.store, s.logger, func(tx repository.DBTX) error {
		if err := s.store.Users.Create(ctx, tx, user); err != nil {
			return err
		}
		if err := s.store.Users.LinkSocialAuth(ctx, tx, user.ID, social.Backend, social.UID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return model.ErrAccountLinked(social.Backend)
			}
			return err
		}
		s.logger.Info().Int64("user_id", user.ID).Str("backend", social.Backend).Msg("provider account linked")
		return nil
	})
}

func conflictErrors(req *model.RegistrationRequest, emailTaken, usernameTaken bool) *model.FieldErrors {
	errs := model.NewFieldErrors()
	errs.Conflict = true
	if emailTaken {
		errs.Add("email", fmt.Sprintf(
			"It looks like %s belongs to an existing account. Try again with a different email address.", req.Email))
	}
	if usernameTaken {
		errs.Add("username", fmt.Sprintf(
			"It looks like %s belongs to an existing account. Try again with a different username.", req.Username))
	}
	return errs
}

func (s *accountService) validateRegistration(req *model.RegistrationRequest, passwordless bool) *model.FieldErrors {
	errs := model.NewFieldErrors()

	fields := accountFields{Email: req.Email, Name: req.Name, Username: req.Username, Password: req.Password}
	var err error
	if passwordless {
		err = s.validate.StructExcept(fields, "Password")
	} else {
		err = s.validate.Struct(fields)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				msgs := fieldMessages[fe.Field()]
				msg, ok := msgs[fe.Tag()]
				if !ok {
					msg = msgs[""]
				}
				errs.Add(fe.Field(), msg)
			}
		}
	}

	values := extraValues(req)
	for _, name := range config.ExtraFieldNames {
		visibility := form.ExtraFieldVisibility(s.registration, name)
		if visibility == config.FieldHidden {
			continue
		}
		value := strings.TrimSpace(values[name])
		required := visibility == config.FieldRequired

		switch name {
		case "honor_code", "terms_of_service":
			if required && !strings.EqualFold(value, "true") {
				errs.Add(name, extraRequiredMessages[name])
			}
			continue
		}

		if value == "" {
			if required {
				errs.Add(name, extraRequiredMessages[name])
			}
			continue
		}
		if msg := s.checkChoice(name, value); msg != "" {
			errs.Add(name, msg)
		}
	}

	return errs
}

func (s *accountService) checkChoice(name, value string) string {
	var choices [][2]string
	switch name {
	case "country":
		choices = form.CountryChoices()
	case "gender":
		choices = form.GenderChoices
	case "level_of_education":
		choices = form.EducationChoices
	case "year_of_birth":
		choices = form.YearChoices(s.now())
	default:
		return ""
	}
	for _, c := range choices {
		if c[0] == value {
			return ""
		}
	}
	return fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value)
}

func extraValues(req *model.RegistrationRequest) map[string]string {
	return map[string]string{
		"city":               req.City,
		"country":            req.Country,
		"gender":             req.Gender,
		"year_of_birth":      req.YearOfBirth,
		"level_of_education": req.LevelOfEducation,
		"mailing_address":    req.MailingAddress,
		"goals":              req.Goals,
		"honor_code":         req.HonorCode,
		"terms_of_service":   req.TermsOfService,
	}
}

func (s *accountService) profile(req *model.RegistrationRequest) model.Profile {
	p := model.Profile{
		City:             req.City,
		Country:          req.Country,
		Gender:           req.Gender,
		LevelOfEducation: req.LevelOfEducation,
		MailingAddress:   req.MailingAddress,
		Goals:            req.Goals,
	}
	var year int
	if _, err := fmt.Sscanf(req.YearOfBirth, "%d", &year); err == nil {
		p.YearOfBirth = &year
	}
	return p
}

func (s *accountService) SetEmailOptIn(ctx context.Context, userID int64, courseID, optIn string) error {
	key, err := model.ParseCourseKey(courseID)
	if err != nil {
		return model.BadRequest(model.ErrCodeInvalidCourse, "No course '%s' found", courseID)
	}

	value := "False"
	if strings.EqualFold(strings.TrimSpace(optIn), "true") {
		value = "True"
	}

	if err := s.store.Users.SetOrgTag(ctx, s.store.DB, userID, key.Org, model.TagEmailOptIn, value); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", userID).Str("org", key.Org).Str("value", value).Msg("email opt-in updated")
	return nil
}
