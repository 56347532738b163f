package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// SubmitInput is the checkout form.
type SubmitInput struct {
	Email      string         `json:"email" validate:"required,email"`
	GivenName  string         `json:"given_name" validate:"max=100"`
	FamilyName string         `json:"family_name" validate:"max=100"`
	Shipping   *ShippingInput `json:"shipping,omitempty"`
}

// ShippingInput is optional as a group: it is forwarded only when the address line
// is filled in.
type ShippingInput struct {
	AddressLine1 string `json:"address_line_1" validate:"max=200"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=50"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
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

func (in SubmitInput) normalized() SubmitInput {
	out := SubmitInput{
		Email:      strings.TrimSpace(in.Email),
		GivenName:  strings.TrimSpace(in.GivenName),
		FamilyName: strings.TrimSpace(in.FamilyName),
	}
	if in.Shipping != nil {
		out.Shipping = &ShippingInput{
			AddressLine1: strings.TrimSpace(in.Shipping.AddressLine1),
			City:         strings.TrimSpace(in.Shipping.City),
			State:        strings.TrimSpace(in.Shipping.State),
			PostalCode:   strings.TrimSpace(in.Shipping.PostalCode),
		}
	}
	return out
}

// Validate checks the form. The message names the email problem when there is one.
func (in SubmitInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	message := "validation failed"
	details := map[string]string{}
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
		if fe.Field() == "email" {
			message = "Email " + validationMessage(fe)
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

func (in SubmitInput) customerInfo() storefront.CustomerInfo {
	return storefront.CustomerInfo{
		Email:      in.Email,
		GivenName:  in.GivenName,
		FamilyName: in.FamilyName,
	}
}

func (in SubmitInput) shippingAddress() *storefront.ShippingAddress {
	if in.Shipping == nil || in.Shipping.AddressLine1 == "" {
		return nil
	}
	return &storefront.ShippingAddress{
		AddressLine1:                 in.Shipping.AddressLine1,
		Locality:                     in.Shipping.City,
		AdministrativeDistrictLevel1: in.Shipping.State,
		PostalCode:                   in.Shipping.PostalCode,
	}
}
