package auth

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// API is the auth slice of the storefront REST client.
type API interface {
	Login(ctx context.Context, email, password string) (*storefront.AuthResponse, error)
	Register(ctx context.Context, req storefront.RegisterRequest) (*storefront.AuthResponse, error)
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Service signs customers in and out and guards user and admin views.
type Service struct {
	api    API
	store  *Store
	logger *logger.Logger
}

// NewService wires the auth service.
func NewService(api API, store *Store, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("auth api required")
	}
	if store == nil {
		return nil, errors.New("session store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: api, store: store, logger: logg}, nil
}

// Login authenticates against the API and remembers the session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*storefront.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	resp, err := s.api.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return s.remember(ctx, resp)
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*storefront.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	resp, err := s.api.Register(ctx, storefront.RegisterRequest{
		Email:                in.Email,
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
	})
	if err != nil {
		return nil, err
	}
	return s.remember(ctx, resp)
}

// Logout forgets the session.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// CurrentUser returns the signed-in user, if any.
func (s *Service) CurrentUser(ctx context.Context) (*storefront.User, bool) {
	session := s.store.Load(ctx)
	if session == nil {
		return nil, false
	}
	user := session.User()
	return &user, true
}

// RequireUser fails with UNAUTHORIZED when nobody is signed in.
func (s *Service) RequireUser(ctx context.Context) (*storefront.User, error) {
	user, ok := s.CurrentUser(ctx)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return user, nil
}

// RequireAdmin fails with UNAUTHORIZED when signed out and FORBIDDEN for non-admins.
func (s *Service) RequireAdmin(ctx context.Context) (*storefront.User, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.Admin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return user, nil
}

func (s *Service) remember(ctx context.Context, resp *storefront.AuthResponse) (*storefront.User, error) {
	if resp == nil || strings.TrimSpace(resp.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth response missing token")
	}
	session := Session{ID: resp.User.ID, Email: resp.User.Email, Admin: resp.User.Admin, JWT: resp.Token}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info(s.logger.WithUserID(ctx, strconv.FormatInt(session.ID, 10)), "auth.signed_in")
	user := session.User()
	return &user, nil
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	message := "validation failed"
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "min":
			details[fe.Field()] = "must be at least " + fe.Param() + " characters"
		case "eqfield":
			details[fe.Field()] = "does not match"
			message = "Passwords do not match"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
