package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mmynk/debtbook/internal/models"
)

// ExcerptLength is the number of runes of raw model output kept in a ParseError.
const ExcerptLength = 200

var (
	// ErrSyntax means the sanitized text is not valid JSON.
	ErrSyntax = errors.New("model output is not valid JSON")
	// ErrSchema means the JSON is valid but does not match the receipt contract.
	ErrSchema = errors.New("model output does not match receipt schema")
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	SyntaxError ErrorKind = iota + 1
	SchemaError
)

func (k ErrorKind) String() string {
	switch k {
	case SyntaxError:
		return "syntax"
	case SchemaError:
		return "schema"
	default:
		return "unknown"
	}
}

// ParseError describes why model output was rejected.
type ParseError struct {
	Kind    ErrorKind
	Excerpt string // truncated sanitized text, safe to show to a client
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the ErrSyntax and ErrSchema sentinels by kind.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrSyntax:
		return e.Kind == SyntaxError
	case ErrSchema:
		return e.Kind == SchemaError
	}
	return false
}

// ResultKind tags which branch of Result is populated.
type ResultKind int

const (
	// KindItems means the model returned a list of line items.
	KindItems ResultKind = iota + 1
	// KindDeclaredError means the model declined with {"error": "..."}.
	KindDeclaredError
)

// Result is the validated model response.
type Result struct {
	Kind          ResultKind
	Items         []models.LineItem
	DeclaredError string
}

// Parse sanitizes raw and validates it against the receipt contract: either an
// object with a string "error" field, or an array of {item, price} objects.
func Parse(raw string) (Result, error) {
	cleaned := Sanitize(raw)

	// Unmarshal validates the whole input, including trailing data, before decoding.
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return Result{}, newParseError(SyntaxError, cleaned, err)
	}

	var value any
	dec := json.NewDecoder(bytes.NewReader(probe))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return Result{}, newParseError(SyntaxError, cleaned, err)
	}

	switch v := value.(type) {
	case map[string]any:
		msg, err := declaredError(v)
		if err != nil {
			return Result{}, newParseError(SchemaError, cleaned, err)
		}
		return Result{Kind: KindDeclaredError, DeclaredError: msg}, nil
	case []any:
		items, err := lineItems(v)
		if err != nil {
			return Result{}, newParseError(SchemaError, cleaned, err)
		}
		return Result{Kind: KindItems, Items: items}, nil
	default:
		return Result{}, newParseError(SchemaError, cleaned, fmt.Errorf("unexpected top-level %T", value))
	}
}

func newParseError(kind ErrorKind, cleaned string, err error) *ParseError {
	return &ParseError{Kind: kind, Excerpt: Excerpt(cleaned, ExcerptLength), Err: err}
}

func declaredError(obj map[string]any) (string, error) {
	raw, ok := obj["error"]
	if !ok {
		return "", errors.New(`object without "error" field`)
	}
	msg, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf(`"error" field is %T, want string`, raw)
	}
	if strings.TrimSpace(msg) == "" {
		return "", errors.New(`"error" field is empty`)
	}
	return msg, nil
}

func lineItems(arr []any) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want object", i, elem)
		}

		name, ok := obj["item"].(string)
		if !ok {
			return nil, fmt.Errorf(`element %d: "item" missing or not a string`, i)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf(`element %d: "item" is empty`, i)
		}

		num, ok := obj["price"].(json.Number)
		if !ok {
			return nil, fmt.Errorf(`element %d: "price" missing or not a number`, i)
		}
		price, err := num.Float64()
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf(`element %d: "price" %q is not a finite number`, i, num.String())
		}

		items = append(items, models.LineItem{Item: name, Price: price})
	}
	return items, nil
}
