package validation

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type signup struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,pwd"`
	UserType string `json:"userType" validate:"omitempty,oneof=customer service_provider admin"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestToDetails_UsesJSONNames(t *testing.T) {
	err := newValidator().Struct(signup{Phone: "12ab", Password: "123", UserType: "guest"})

	d := ToDetails(err)
	assert.Equal(t, "is required", d["name"])
	assert.Equal(t, "must be a valid phone number", d["phone"])
	assert.Equal(t, "must be between 6 and 72 characters long", d["password"])
	assert.Equal(t, "must be one of: customer, service_provider, admin", d["userType"])
}

func TestPhoneTag(t *testing.T) {
	v := newValidator()
	assert.NoError(t, v.Var("9876543210", "phone"))
	assert.NoError(t, v.Var("+919876543210", "phone"))
	assert.Error(t, v.Var("98765", "phone"))
}

func TestToDetails_InvalidJSON(t *testing.T) {
	var out map[string]any
	err := json.Unmarshal([]byte("{"), &out)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Nil(t, ToDetails(nil))
}
