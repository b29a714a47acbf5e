package service

import (
	"context"
	"ctchen222/accounts/internal/api/models"
	"ctchen222/accounts/internal/api/repository"
	"ctchen222/accounts/internal/auth"
	"ctchen222/accounts/internal/validator"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("api.service")

// bcrypt ignores everything past this many bytes, so longer passwords are
// refused rather than silently truncated.
const maxPasswordBytes = 72

const (
	msgMissingCredentials = `Must include "username" and "password".`
	msgInvalidCredentials = "Unable to log in with provided credentials."
	msgAccountDisabled    = "User account is disabled."
	msgUsernameTaken      = "A user is already registered with this username."
	msgEmailTaken         = "A user is already registered with this e-mail address."
	msgPasswordMismatch   = "The two password fields didn't match."
	msgPasswordTooLong    = "Password must be at most 72 bytes."
	msgPasswordConstraint = "Password constraints not respected."
	msgInvalidPassword    = "Invalid password"
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	SignUp(ctx context.Context, req *models.SignUpRequest) (*models.User, error)
	ChangePassword(ctx context.Context, user *models.User, req *models.PasswordChangeRequest) (string, error)
	UpdateProfile(ctx context.Context, user *models.User, req *models.ProfileUpdateRequest) (*models.User, error)
}

// Options tunes the validation rules of the user service.
type Options struct {
	PasswordMinLength int
}

type userService struct {
	userRepo      repository.UserRepository
	authenticator auth.Authenticator
	sessions      SessionService
	opts          Options
	metrics       *userMetrics
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, authenticator auth.Authenticator, sessions SessionService, opts Options) UserService {
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = 8
	}
	return &userService{
		userRepo:      userRepo,
		authenticator: authenticator,
		sessions:      sessions,
		opts:          opts,
		metrics:       newUserMetrics(),
	}
}

// Login checks the credentials and issues a session token.
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (resp *models.LoginResponse, err error) {
	ctx, span := tracer.Start(ctx, "UserService.Login")
	defer func() { s.finish(ctx, span, "login", err) }()

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, validator.NonFieldError(msgMissingCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, username, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, validator.NonFieldError(msgInvalidCredentials)
	}
	if !user.IsActive {
		return nil, validator.NonFieldError(msgAccountDisabled)
	}

	token, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return &models.LoginResponse{Token: token, User: models.ProfileOf(user)}, nil
}

// SignUp validates a registration request and creates the user.
func (s *userService) SignUp(ctx context.Context, req *models.SignUpRequest) (user *models.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.SignUp")
	defer func() { s.finish(ctx, span, "signup", err) }()

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	ve, err := validator.Struct(req)
	if err != nil {
		return nil, err
	}
	if ve == nil {
		ve = validator.NewValidationError()
	}

	if !ve.Has("username") {
		taken, err := s.exists(ctx, repository.UserFilter{Username: req.Username})
		if err != nil {
			return nil, err
		}
		if taken {
			ve.Add("username", msgUsernameTaken)
		}
	}
	if !ve.Has("email") {
		taken, err := s.exists(ctx, repository.UserFilter{Email: req.Email})
		if err != nil {
			return nil, err
		}
		if taken {
			ve.Add("email", msgEmailTaken)
		}
	}
	if !ve.Has("password1") {
		if msg := s.checkNewPassword(req.Password1); msg != "" {
			ve.Add("password1", msg)
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if req.Password1 != req.Password2 {
		return nil, validator.NonFieldError(msgPasswordMismatch)
	}

	user = &models.User{
		Username: req.Username,
		Email:    req.Email,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password1); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			// Lost a race against a concurrent sign-up.
			return nil, validator.NonFieldError("A user is already registered with this username or e-mail address.")
		}
		return nil, err
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// ChangePassword validates a password change for user, revokes the user's
// sessions, stores the new hash and returns a fresh session token.
func (s *userService) ChangePassword(ctx context.Context, user *models.User, req *models.PasswordChangeRequest) (token string, err error) {
	ctx, span := tracer.Start(ctx, "UserService.ChangePassword")
	defer func() { s.finish(ctx, span, "password_change", err) }()
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	ve, err := validator.Struct(req)
	if err != nil {
		return "", err
	}
	if ve == nil {
		ve = validator.NewValidationError()
	}
	if !ve.Has("old_password") && !user.CheckPassword(req.OldPassword) {
		ve.Add("old_password", msgInvalidPassword)
	}
	if err := ve.OrNil(); err != nil {
		return "", err
	}

	if req.NewPassword1 != req.NewPassword2 {
		return "", validator.NonFieldError(msgPasswordMismatch)
	}
	if s.checkNewPassword(req.NewPassword1) != "" {
		return "", validator.NonFieldError(msgPasswordConstraint)
	}

	updated := *user
	if err := updated.SetPassword(req.NewPassword1); err != nil {
		return "", err
	}

	// Old tokens are revoked before the new hash is written, so a failure
	// in between never leaves a changed password with live old sessions.
	if err := s.sessions.Revoke(ctx, user); err != nil {
		return "", err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, updated.PasswordHash); err != nil {
		return "", err
	}
	*user = updated

	token, err = s.sessions.Issue(ctx, user)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "User changed password", "user_id", user.ID)
	return token, nil
}

// UpdateProfile applies the editable profile fields to user. The email
// address cannot be changed this way.
func (s *userService) UpdateProfile(ctx context.Context, user *models.User, req *models.ProfileUpdateRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}

	ve, err := validator.Struct(req)
	if err != nil {
		return nil, err
	}
	if ve == nil {
		ve = validator.NewValidationError()
	}
	if req.Username != nil && !ve.Has("username") && *req.Username != user.Username {
		taken, err := s.exists(ctx, repository.UserFilter{Username: *req.Username, ExcludeID: user.ID})
		if err != nil {
			return nil, err
		}
		if taken {
			ve.Add("username", msgUsernameTaken)
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	updated := *user
	if req.Username != nil {
		updated.Username = *req.Username
	}
	if req.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updated.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		updated.Bio = *req.Bio
	}

	if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, validator.FieldError("username", msgUsernameTaken)
		}
		span.RecordError(err)
		return nil, err
	}

	// Re-read so the result reflects columns other requests may have changed.
	fresh, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, fmt.Errorf("user %d vanished during profile update", user.ID)
	}
	return fresh, nil
}

func (s *userService) exists(ctx context.Context, filter repository.UserFilter) (bool, error) {
	users, err := s.userRepo.Filter(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return len(users) > 0, nil
}

// checkNewPassword returns a message when pw is not acceptable as a new
// password, or "" when it is.
func (s *userService) checkNewPassword(pw string) string {
	if utf8.RuneCountInString(pw) < s.opts.PasswordMinLength {
		return fmt.Sprintf("Password must be a minimum of %d characters.", s.opts.PasswordMinLength)
	}
	if len(pw) > maxPasswordBytes {
		return msgPasswordTooLong
	}
	return ""
}

// finish records the outcome of op on the span and the metrics, then ends
// the span.
func (s *userService) finish(ctx context.Context, span trace.Span, op string, err error) {
	outcome := outcomeOf(err)
	if outcome == outcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "User operation failed", "op", op, "error", err)
	}
	s.metrics.record(ctx, op, outcome)
	span.End()
}
