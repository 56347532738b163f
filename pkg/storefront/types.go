package storefront

import (
	sq "github.com/square/square-go-sdk"
)

// Money is an amount in minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Category struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Ordinal    int      `json:"ordinal"`
	ImageURLs  []string `json:"image_urls"`
	IsTopLevel bool     `json:"is_top_level"`
	CreatedAt  string   `json:"created_at,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

type Variation struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SKU                 *string  `json:"sku"`
	PriceMoney          Money    `json:"price_money"`
	PricingType         string   `json:"pricing_type"`
	ImageURLs           []string `json:"image_urls"`
	Ordinal             int      `json:"ordinal"`
	AvailableForBooking *bool    `json:"available_for_booking"`
}

type Product struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Abbreviation       string      `json:"abbreviation"`
	CategoryIDs        []string    `json:"category_ids"`
	ImageURLs          []string    `json:"image_urls"`
	Variations         []Variation `json:"variations"`
	ProductType        string      `json:"product_type"`
	AvailableOnline    *bool       `json:"available_online"`
	AvailableForPickup *bool       `json:"available_for_pickup"`
	CreatedAt          string      `json:"created_at,omitempty"`
	UpdatedAt          string      `json:"updated_at,omitempty"`
}

// Variation returns the variation with id, or nil.
func (p Product) Variation(id string) *Variation {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i]
		}
	}
	return nil
}

// PrimaryImage returns the first variation image, falling back to the product images.
func (p Product) PrimaryImage(v *Variation) string {
	if v != nil && len(v.ImageURLs) > 0 {
		return v.ImageURLs[0]
	}
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// SquareConfig is the Web Payments configuration served by GET /config/square.
type SquareConfig struct {
	ApplicationID string `json:"application_id"`
	LocationID    string `json:"location_id"`
	Environment   string `json:"environment"`
}

// OrderLineItem is one {catalog_object_id, quantity} pair. Quantity is a decimal string.
type OrderLineItem struct {
	CatalogObjectID string `json:"catalog_object_id"`
	Quantity        string `json:"quantity"`
}

type CalculateRequest struct {
	LineItems []OrderLineItem `json:"line_items"`
}

type CalculatedLineItem struct {
	CatalogObjectID string `json:"catalog_object_id"`
	Quantity        string `json:"quantity"`
	Name            string `json:"name"`
	TotalMoney      Money  `json:"total_money"`
}

type CalculateResponse struct {
	Subtotal  int64                `json:"subtotal"`
	Taxes     int64                `json:"taxes"`
	Shipping  int64                `json:"shipping"`
	Total     int64                `json:"total"`
	LineItems []CalculatedLineItem `json:"line_items,omitempty"`
}

type CustomerInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

type ShippingAddress struct {
	AddressLine1                 string `json:"address_line_1,omitempty"`
	Locality                     string `json:"locality,omitempty"`
	AdministrativeDistrictLevel1 string `json:"administrative_district_level_1,omitempty"`
	PostalCode                   string `json:"postal_code,omitempty"`
}

type CreateOrderRequest struct {
	LineItems       []OrderLineItem  `json:"line_items"`
	PaymentToken    string           `json:"payment_token"`
	CustomerInfo    CustomerInfo     `json:"customer_info"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
}

// CreateOrderResponse carries the order and Square payment created by POST /orders.
type CreateOrderResponse struct {
	Order   *Order      `json:"order"`
	Payment *sq.Payment `json:"payment,omitempty"`
}

type Address struct {
	AddressLine1                 string `json:"address_line_1,omitempty"`
	AddressLine2                 string `json:"address_line_2,omitempty"`
	Locality                     string `json:"locality,omitempty"`
	AdministrativeDistrictLevel1 string `json:"administrative_district_level_1,omitempty"`
	PostalCode                   string `json:"postal_code,omitempty"`
	Country                      string `json:"country,omitempty"`
}

type UpdateCustomerRequest struct {
	GivenName   string   `json:"given_name,omitempty"`
	FamilyName  string   `json:"family_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Address     *Address `json:"address,omitempty"`
}

type ServiceRequestForm struct {
	CustomerName                string `json:"customer_name"`
	Company                     string `json:"company"`
	ServiceRequested            string `json:"service_requested"`
	PickupDate                  string `json:"pickup_date"`
	ReturnDate                  string `json:"return_date"`
	DroppedOrImpacted           bool   `json:"dropped_or_impacted"`
	NeedsReplacementAccessories bool   `json:"needs_replacement_accessories"`
	NeedsRush                   bool   `json:"needs_rush"`
	NeedsRental                 bool   `json:"needs_rental"`
	Manufacturer                string `json:"manufacturer"`
	Model                       string `json:"model"`
	SerialNumber                string `json:"serial_number"`
}

type ServiceRequest struct {
	ID            int64  `json:"id"`
	UserID        *int64 `json:"user_id"`
	CustomerEmail string `json:"customer_email"`
	ServiceRequestForm
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ServiceRequestResponse struct {
	ServiceRequest ServiceRequest `json:"service_request"`
	Message        string         `json:"message"`
}

type RentalRequestForm struct {
	CustomerFirstName       string `json:"customer_first_name"`
	CustomerLastName        string `json:"customer_last_name"`
	CustomerEmail           string `json:"customer_email"`
	CustomerPhone           string `json:"customer_phone"`
	EquipmentType           string `json:"equipment_type"`
	PickupDate              string `json:"pickup_date"`
	ReturnDate              string `json:"return_date"`
	RentalAgreementAccepted bool   `json:"rental_agreement_accepted"`
	PaymentMethod           string `json:"payment_method"`
}

type RentalRequest struct {
	ID     int64  `json:"id"`
	UserID *int64 `json:"user_id"`
	RentalRequestForm
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type RentalRequestResponse struct {
	EquipmentRentalRequest RentalRequest `json:"equipment_rental_request"`
	Message                string        `json:"message"`
}
