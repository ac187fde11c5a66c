package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/naili/storefront/pkg/errors"
)

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

// Delivery is where and how an order should be delivered.
type Delivery struct {
	Address string `json:"delivery_address" validate:"required,max=500"`
	Phone   string `json:"delivery_phone" validate:"required,max=32"`
	Note    string `json:"delivery_note,omitempty" validate:"max=500"`
}

// Normalized returns a copy with surrounding whitespace removed.
func (d Delivery) Normalized() Delivery {
	return Delivery{
		Address: strings.TrimSpace(d.Address),
		Phone:   strings.TrimSpace(d.Phone),
		Note:    strings.TrimSpace(d.Note),
	}
}

// NotePtr returns nil for an empty note so it is stored as NULL.
func (d Delivery) NotePtr() *string {
	note := strings.TrimSpace(d.Note)
	if note == "" {
		return nil
	}
	return &note
}

// ValidateDelivery checks the normalized delivery fields. Failures are VALIDATION_ERROR
// with details keyed by field name.
func ValidateDelivery(d Delivery) error {
	err := validate.Struct(d.Normalized())
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery details")
	}

	details := map[string]string{}
	var first string
	for _, fieldErr := range errs {
		if first == "" {
			first = fieldErr.Field()
		}
		details[fieldErr.Field()] = validationMessage(fieldErr)
	}
	message := fmt.Sprintf("%s %s", strings.ReplaceAll(first, "_", " "), details[first])
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}

// PayableTotal adds the delivery fee to the item total.
func PayableTotal(itemTotal, deliveryFee decimal.Decimal) decimal.Decimal {
	return itemTotal.Add(deliveryFee)
}
