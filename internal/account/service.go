package account

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/money"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// DefaultCountry is sent with every saved address.
const DefaultCountry = "US"

// API is the customer slice of the storefront REST client.
type API interface {
	Customer(ctx context.Context, customerID string) (*sq.Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, req storefront.UpdateCustomerRequest) (*sq.Customer, error)
	CustomerOrders(ctx context.Context, customerID string) ([]*sq.Order, error)
	CustomerCards(ctx context.Context, customerID string) ([]*sq.Card, error)
	DeleteCustomerCard(ctx context.Context, customerID, cardID string) error
}

// Guard resolves the signed-in user.
type Guard interface {
	RequireUser(ctx context.Context) (*storefront.User, error)
}

// Profile is the editable account form.
type Profile struct {
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Email        string `json:"email" validate:"omitempty,email"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	State        string `json:"administrative_district_level_1"`
	PostalCode   string `json:"postal_code"`
}

// OrderRow is one entry of the order history.
type OrderRow struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"created_at,omitempty"`
	State     string   `json:"state,omitempty"`
	Total     string   `json:"total"`
	Items     []string `json:"items"`
}

// CardRow is one saved card.
type CardRow struct {
	ID       string `json:"id"`
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last_4,omitempty"`
	ExpMonth int64  `json:"exp_month,omitempty"`
	ExpYear  int64  `json:"exp_year,omitempty"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; tag != "" {
			return tag
		}
		return f.Name
	})
	return v
}()

// Service backs the account pages. Every call is made for the current customer.
type Service struct {
	api    API
	guard  Guard
	logger *logger.Logger
}

func NewService(api API, guard Guard, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("customer api required")
	}
	if guard == nil {
		return nil, errors.New("auth guard required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: api, guard: guard, logger: logg}, nil
}

// Profile loads the customer record and flattens it into the form.
func (s *Service) Profile(ctx context.Context) (Profile, error) {
	if _, err := s.guard.RequireUser(ctx); err != nil {
		return Profile{}, err
	}
	customer, err := s.api.Customer(ctx, storefront.CurrentCustomer)
	if err != nil {
		return Profile{}, err
	}
	return profileFrom(customer), nil
}

// UpdateProfile saves the form and returns the stored result.
func (s *Service) UpdateProfile(ctx context.Context, in Profile) (Profile, error) {
	if _, err := s.guard.RequireUser(ctx); err != nil {
		return Profile{}, err
	}
	in = in.trimmed()
	if err := validate.Struct(in); err != nil {
		return Profile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Email must be a valid email").
			WithDetails(map[string]string{"email": "must be a valid email"})
	}
	customer, err := s.api.UpdateCustomer(ctx, storefront.CurrentCustomer, storefront.UpdateCustomerRequest{
		GivenName:  in.GivenName,
		FamilyName: in.FamilyName,
		Email:      in.Email,
		Address: &storefront.Address{
			AddressLine1:                 in.AddressLine1,
			AddressLine2:                 in.AddressLine2,
			Locality:                     in.Locality,
			AdministrativeDistrictLevel1: in.State,
			PostalCode:                   in.PostalCode,
			Country:                      DefaultCountry,
		},
	})
	if err != nil {
		s.logger.Error(ctx, "account.update_failed", err)
		return Profile{}, err
	}
	return profileFrom(customer), nil
}

// Orders returns the order history, newest first.
func (s *Service) Orders(ctx context.Context) ([]OrderRow, error) {
	if _, err := s.guard.RequireUser(ctx); err != nil {
		return nil, err
	}
	orders, err := s.api.CustomerOrders(ctx, storefront.CurrentCustomer)
	if err != nil {
		return nil, err
	}
	rows := make([]OrderRow, 0, len(orders))
	for _, order := range orders {
		if order == nil {
			continue
		}
		rows = append(rows, orderRow(order))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt > rows[j].CreatedAt })
	return rows, nil
}

// Cards returns the saved cards.
func (s *Service) Cards(ctx context.Context) ([]CardRow, error) {
	if _, err := s.guard.RequireUser(ctx); err != nil {
		return nil, err
	}
	cards, err := s.api.CustomerCards(ctx, storefront.CurrentCustomer)
	if err != nil {
		return nil, err
	}
	rows := make([]CardRow, 0, len(cards))
	for _, card := range cards {
		if card == nil {
			continue
		}
		row := CardRow{ID: str(card.GetID()), Last4: str(card.GetLast4())}
		if brand := card.GetCardBrand(); brand != nil {
			row.Brand = string(*brand)
		}
		if m := card.GetExpMonth(); m != nil {
			row.ExpMonth = *m
		}
		if y := card.GetExpYear(); y != nil {
			row.ExpYear = *y
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DeleteCard removes a saved card.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	if _, err := s.guard.RequireUser(ctx); err != nil {
		return err
	}
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card id is required")
	}
	if err := s.api.DeleteCustomerCard(ctx, storefront.CurrentCustomer, cardID); err != nil {
		s.logger.Error(s.logger.WithField(ctx, "card_id", cardID), "account.card_delete_failed", err)
		return err
	}
	return nil
}

func (p Profile) trimmed() Profile {
	p.GivenName = strings.TrimSpace(p.GivenName)
	p.FamilyName = strings.TrimSpace(p.FamilyName)
	p.Email = strings.TrimSpace(p.Email)
	p.AddressLine1 = strings.TrimSpace(p.AddressLine1)
	p.AddressLine2 = strings.TrimSpace(p.AddressLine2)
	p.Locality = strings.TrimSpace(p.Locality)
	p.State = strings.TrimSpace(p.State)
	p.PostalCode = strings.TrimSpace(p.PostalCode)
	return p
}

func profileFrom(c *sq.Customer) Profile {
	if c == nil {
		return Profile{}
	}
	p := Profile{
		GivenName:  str(c.GetGivenName()),
		FamilyName: str(c.GetFamilyName()),
		Email:      str(c.GetEmailAddress()),
	}
	if addr := c.GetAddress(); addr != nil {
		p.AddressLine1 = str(addr.GetAddressLine1())
		p.AddressLine2 = str(addr.GetAddressLine2())
		p.Locality = str(addr.GetLocality())
		p.State = str(addr.GetAdministrativeDistrictLevel1())
		p.PostalCode = str(addr.GetPostalCode())
	}
	return p
}

func orderRow(order *sq.Order) OrderRow {
	row := OrderRow{
		ID:        str(order.GetID()),
		CreatedAt: str(order.GetCreatedAt()),
		Total:     money.FormatSquare(order.GetTotalMoney()),
		Items:     []string{},
	}
	if state := order.GetState(); state != nil {
		row.State = string(*state)
	}
	for _, line := range order.GetLineItems() {
		if line == nil {
			continue
		}
		row.Items = append(row.Items, line.GetQuantity()+" x "+str(line.GetName()))
	}
	return row
}

func str(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
