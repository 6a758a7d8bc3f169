package wire

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-invoice/internal/domain/order"
)

// orderRequest is the body of an invoice request. json tags only name fields
// in validation messages; decoding is done by hand with jx.
type orderRequest struct {
	Items []itemRequest `json:"items" validate:"dive"`
}

type itemRequest struct {
	ProductName string          `json:"productName" validate:"required"`
	Category    *string         `json:"category"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SyntaxError reports a request body that is not a well-formed invoice
// request.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string { return "malformed request body: " + e.Err.Error() }

func (e *SyntaxError) Unwrap() error { return e.Err }

// Bounds for decoded numbers. Prices fit NUMERIC(19,4); quantities fit a
// 32-bit integer column.
const (
	MaxPriceIntDigits  = 15
	MaxPriceFracDigits = 4
	MaxQuantity        = math.MaxInt32
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string // e.g. "items[0].unitPrice"
	Message string
}

// ValidationError reports structurally valid input with missing or
// out-of-range fields.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+" "+f.Message)
	}
	return strings.Join(msgs, "; ")
}

// fieldPath drops the root struct name: "orderRequest.items[0].productName"
// becomes "items[0].productName".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// DecodeOrderRequest parses {"items":[...]} into unsaved order items.
//
// Numbers too large to store are rejected with a ValidationError; the sign
// and zero rules for quantity and unit price belong to the invoice
// validator. A missing or null items array yields an empty slice.
func DecodeOrderRequest(data []byte) ([]order.OrderItem, error) {
	var req orderRequest
	if err := decodeOrderRequest(jx.DecodeBytes(data), &req); err != nil {
		return nil, &SyntaxError{Err: err}
	}

	var fields []FieldError
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, errors.Wrap(err, "validate request")
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Message: msgForTag(fe)})
		}
	}
	for i, it := range req.Items {
		if it.Quantity > MaxQuantity {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: fmt.Sprintf("must be at most %d", MaxQuantity),
			})
		}
		if !priceInRange(it.UnitPrice) {
			fields = append(fields, FieldError{
				Field: fmt.Sprintf("items[%d].unitPrice", i),
				Message: fmt.Sprintf("must have at most %d integer and %d fraction digits",
					MaxPriceIntDigits, MaxPriceFracDigits),
			})
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.OrderItem{
			ProductName: it.ProductName,
			Category:    it.Category,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return items, nil
}

// priceInRange reports whether the magnitude of d fits MaxPriceIntDigits
// integer and MaxPriceFracDigits fraction digits. Trailing fraction zeros
// do not count. Only the coefficient digits are inspected, so a huge
// exponent is never expanded. Sign is left to the invoice validator.
func priceInRange(d decimal.Decimal) bool {
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return true
	}
	digits := coef.Abs(coef).Text(10)
	exp := int(d.Exponent())
	if len(digits)+exp > MaxPriceIntDigits {
		return false
	}
	extra := -exp - MaxPriceFracDigits
	if extra <= 0 {
		return true
	}
	if extra >= len(digits) {
		return false
	}
	return strings.TrimRight(digits[len(digits)-extra:], "0") == ""
}

func decodeOrderRequest(d *jx.Decoder, req *orderRequest) error {
	if d.Next() != jx.Object {
		return errors.New("expected object")
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var it itemRequest
				if err := decodeItemRequest(d, &it); err != nil {
					return errors.Wrapf(err, "items[%d]", len(req.Items))
				}
				req.Items = append(req.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return err
	}
	if d.Next() != jx.Invalid {
		return errors.New("unexpected data after request object")
	}
	return nil
}

func decodeItemRequest(d *jx.Decoder, it *itemRequest) error {
	if d.Next() != jx.Object {
		return errors.New("expected object")
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		k := string(key)
		switch k {
		case "productName":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, k)
			}
			it.ProductName = v
		case "category":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, k)
			}
			it.Category = &v
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, k)
			}
			it.Quantity = v
		case "unitPrice":
			if d.Next() != jx.Number {
				return errors.Errorf("%s: expected number", k)
			}
			n, err := d.Num()
			if err != nil {
				return errors.Wrap(err, k)
			}
			v, err := decimal.NewFromString(n.String())
			if err != nil {
				return errors.Wrap(err, k)
			}
			it.UnitPrice = v
		default:
			return d.Skip()
		}
		return nil
	})
}
