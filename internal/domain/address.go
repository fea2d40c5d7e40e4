package domain

import "strings"

const DefaultCountry = "India"

// ShippingAddress is collected at checkout and attached to the order it is
// submitted with. It is never persisted on its own.
type ShippingAddress struct {
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Email    string `json:"email" validate:"required,emailshape"`
	Street   string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	ZipCode  string `json:"zipCode" validate:"required"`
	Country  string `json:"country"`
}

// Normalize trims every field, keeps only the digits of the phone number and
// fills in the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	out := ShippingAddress{
		FullName: strings.TrimSpace(a.FullName),
		Phone:    DigitsOnly(a.Phone),
		Email:    strings.TrimSpace(a.Email),
		Street:   strings.TrimSpace(a.Street),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		ZipCode:  strings.TrimSpace(a.ZipCode),
		Country:  strings.TrimSpace(a.Country),
	}
	if out.Country == "" {
		out.Country = DefaultCountry
	}
	return out
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// User is the authenticated principal together with the saved profile used to
// seed the shipping form.
type User struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone,omitempty"`
	Address ShippingAddress `json:"address"`
	Token   string          `json:"-"`
}
