package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// Feature: cart-pricing, Property 13: Required field validation works
func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a request passes only with every required field present", prop.ForAll(
		func(withProduct, withQuantity bool) bool {
			body := map[string]interface{}{}
			if withProduct {
				body["product_id"] = "0b8c1f7e-6f5d-4a51-9f40-1f9cc3c0a7d2"
			}
			if withQuantity {
				body["quantity"] = 2
			}
			raw, _ := json.Marshal(body)

			req := httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewReader(raw))
			var parsed addItemRequest
			err := DecodeAndValidate(req, &parsed)

			if withProduct && withQuantity {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: cart-pricing, Property 14: Non-positive quantities are rejected
func TestProperty_QuantityBelowOneRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantity must be at least 1", prop.ForAll(
		func(quantity int) bool {
			err := ValidateRequest(&addItemRequest{
				ProductID: "0b8c1f7e-6f5d-4a51-9f40-1f9cc3c0a7d2",
				Quantity:  quantity,
			})
			return (quantity >= 1) == (err == nil)
		},
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	err := ValidateRequest(&addItemRequest{ProductID: "not-a-uuid"})
	require.Error(t, err)

	errs := FormatValidationErrors(err)
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "Must be a valid UUID", fields["product_id"])
	assert.Equal(t, "This field is required", fields["quantity"])
}

func TestRespondWithDecodeError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("{not json"))
	var parsed addItemRequest
	err := DecodeAndValidate(req, &parsed)
	require.Error(t, err)

	w := httptest.NewRecorder()
	RespondWithDecodeError(w, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")

	err = ValidateRequest(&addItemRequest{})
	w = httptest.NewRecorder()
	RespondWithDecodeError(w, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_errors")
}
