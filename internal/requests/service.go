package requests

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const dateLayout = "2006-01-02"

var (
	// ServiceTypes are the services the shop performs.
	ServiceTypes = []string{"Level", "Laser", "Pipe Laser", "Transit", "Theodolite", "GPS - On site service", "GPS 3D modeling"}
	// EquipmentTypes are the rentable equipment classes.
	EquipmentTypes = []string{"Level", "Laser", "Pipe Laser", "Transit", "Theodolite", "GPS"}
)

// API is the requests slice of the storefront REST client.
type API interface {
	CreateServiceRequest(ctx context.Context, form storefront.ServiceRequestForm) (*storefront.ServiceRequestResponse, error)
	CreateRentalRequest(ctx context.Context, form storefront.RentalRequestForm) (*storefront.RentalRequestResponse, error)
	ServiceRequests(ctx context.Context) ([]storefront.ServiceRequest, error)
	RentalRequests(ctx context.Context) ([]storefront.RentalRequest, error)
}

// Users resolves the current user for prefills and the admin lists.
type Users interface {
	CurrentUser(ctx context.Context) (*storefront.User, bool)
	RequireAdmin(ctx context.Context) (*storefront.User, error)
}

// ServiceInput is the service request form.
type ServiceInput struct {
	CustomerName                string `json:"customer_name" validate:"required"`
	Company                     string `json:"company" validate:"required"`
	ServiceRequested            string `json:"service_requested" validate:"required,service_type"`
	PickupDate                  string `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate                  string `json:"return_date" validate:"required,datetime=2006-01-02"`
	DroppedOrImpacted           bool   `json:"dropped_or_impacted"`
	NeedsReplacementAccessories bool   `json:"needs_replacement_accessories"`
	NeedsRush                   bool   `json:"needs_rush"`
	NeedsRental                 bool   `json:"needs_rental"`
	Manufacturer                string `json:"manufacturer" validate:"required"`
	Model                       string `json:"model" validate:"required"`
	SerialNumber                string `json:"serial_number" validate:"required"`
}

// RentalInput is the equipment rental form.
type RentalInput struct {
	CustomerFirstName       string `json:"customer_first_name" validate:"required"`
	CustomerLastName        string `json:"customer_last_name" validate:"required"`
	CustomerEmail           string `json:"customer_email" validate:"required,email"`
	CustomerPhone           string `json:"customer_phone" validate:"required"`
	EquipmentType           string `json:"equipment_type" validate:"required,equipment_type"`
	PickupDate              string `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate              string `json:"return_date" validate:"required,datetime=2006-01-02"`
	RentalAgreementAccepted bool   `json:"rental_agreement_accepted" validate:"eq=true"`
	PaymentMethod           string `json:"payment_method" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; tag != "" {
			return tag
		}
		return f.Name
	})
	_ = v.RegisterValidation("service_type", oneOf(ServiceTypes))
	_ = v.RegisterValidation("equipment_type", oneOf(EquipmentTypes))
	return v
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

// Service submits the public request forms and serves the admin lists.
type Service struct {
	api    API
	users  Users
	logger *logger.Logger
}

func NewService(api API, users Users, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("requests api required")
	}
	if users == nil {
		return nil, errors.New("users required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: api, users: users, logger: logg}, nil
}

// ServiceDefaults returns the empty form prefilled for the current user.
func (s *Service) ServiceDefaults(ctx context.Context) ServiceInput {
	var in ServiceInput
	if user, ok := s.users.CurrentUser(ctx); ok {
		in.CustomerName = user.Email
	}
	return in
}

// RentalDefaults returns the empty form prefilled for the current user.
func (s *Service) RentalDefaults(ctx context.Context) RentalInput {
	var in RentalInput
	if user, ok := s.users.CurrentUser(ctx); ok {
		in.CustomerEmail = user.Email
	}
	return in
}

// SubmitService validates and sends a service request. A signed-in user who leaves the
// customer blank is submitted under their email.
func (s *Service) SubmitService(ctx context.Context, in ServiceInput) (*storefront.ServiceRequestResponse, error) {
	in = trimStrings(in)
	if in.CustomerName == "" {
		in.CustomerName = s.ServiceDefaults(ctx).CustomerName
	}
	if err := check(in, in.PickupDate, in.ReturnDate); err != nil {
		return nil, err
	}
	resp, err := s.api.CreateServiceRequest(ctx, storefront.ServiceRequestForm(in))
	if err != nil {
		s.logger.Error(ctx, "requests.service_submit_failed", err)
		return nil, err
	}
	s.logger.Info(s.logger.WithField(ctx, "service_request_id", resp.ServiceRequest.ID), "requests.service_submitted")
	return resp, nil
}

// SubmitRental validates and sends an equipment rental request.
func (s *Service) SubmitRental(ctx context.Context, in RentalInput) (*storefront.RentalRequestResponse, error) {
	in = trimStrings(in)
	if in.CustomerEmail == "" {
		in.CustomerEmail = s.RentalDefaults(ctx).CustomerEmail
	}
	if err := check(in, in.PickupDate, in.ReturnDate); err != nil {
		return nil, err
	}
	resp, err := s.api.CreateRentalRequest(ctx, storefront.RentalRequestForm(in))
	if err != nil {
		s.logger.Error(ctx, "requests.rental_submit_failed", err)
		return nil, err
	}
	s.logger.Info(s.logger.WithField(ctx, "rental_request_id", resp.EquipmentRentalRequest.ID), "requests.rental_submitted")
	return resp, nil
}

// ServiceRequests lists every service request. Admin only.
func (s *Service) ServiceRequests(ctx context.Context) ([]storefront.ServiceRequest, error) {
	if _, err := s.users.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	out, err := s.api.ServiceRequests(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []storefront.ServiceRequest{}
	}
	return out, nil
}

// RentalRequests lists every equipment rental request. Admin only.
func (s *Service) RentalRequests(ctx context.Context) ([]storefront.RentalRequest, error) {
	if _, err := s.users.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	out, err := s.api.RentalRequests(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []storefront.RentalRequest{}
	}
	return out, nil
}

func check(in any, pickup, ret string) error {
	details := map[string]string{}
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
		}
		for _, fe := range fieldErrs {
			details[fe.Field()] = describe(fe)
		}
	}
	if _, ok := details["return_date"]; !ok {
		p, perr := time.Parse(dateLayout, pickup)
		r, rerr := time.Parse(dateLayout, ret)
		if perr == nil && rerr == nil && r.Before(p) {
			details["return_date"] = "must not be before pickup_date"
		}
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "eq":
		return "must be accepted"
	case "service_type":
		return "must be one of: " + strings.Join(ServiceTypes, ", ")
	case "equipment_type":
		return "must be one of: " + strings.Join(EquipmentTypes, ", ")
	default:
		return "is invalid"
	}
}

// trimStrings trims every string field of a form struct.
func trimStrings[T any](in T) T {
	v := reflect.ValueOf(&in).Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
	return in
}
