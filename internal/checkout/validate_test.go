package checkout

import (
	"testing"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_AcceptsNormalizedAddress(t *testing.T) {
	addr, err := NewValidator().Address(validAddress)

	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", addr.FullName)
	assert.Equal(t, "9876543210", addr.Phone)
	assert.Equal(t, "India", addr.Country)
}

func TestValidator_FieldScopedMessages(t *testing.T) {
	_, err := NewValidator().Address(domain.ShippingAddress{
		FullName: "   ",
		Phone:    "12345",
		Email:    "asha@example",
		Street:   "12 MG Road",
		City:     "Pune",
		State:    "Maharashtra",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"fullName": "full name is required",
		"phone":    "phone must contain exactly 10 digits",
		"email":    "email must look like name@example.com",
		"zipCode":  "zip code is required",
	}, verr.Fields)
	assert.Equal(t, "invalid shipping details: email, fullName, phone, zipCode", verr.Error())
}

func TestValidator_Phone(t *testing.T) {
	v := NewValidator()
	cases := map[string]bool{
		"9876543210":       true,
		"+91 98765 43210":  false,
		"98765-43210":      true,
		"987654321":        false,
		"98765432100":      false,
		"phone: 987654321": false,
	}
	for phone, ok := range cases {
		addr := validAddress
		addr.Phone = phone
		_, err := v.Address(addr)
		assert.Equal(t, ok, err == nil, "phone %q", phone)
	}
}

func TestValidator_Email(t *testing.T) {
	v := NewValidator()
	cases := map[string]bool{
		"a@b.co":           true,
		"first.last@x.org": true,
		"a@b":              false,
		"@b.co":            false,
		"a b@c.co":         false,
		"a@b.":             false,
	}
	for email, ok := range cases {
		addr := validAddress
		addr.Email = email
		_, err := v.Address(addr)
		assert.Equal(t, ok, err == nil, "email %q", email)
	}
}
