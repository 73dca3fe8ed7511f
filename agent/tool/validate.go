package tool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrInvalidArgs = errors.New("invalid tool arguments")
	// ErrMissingArgs marks a failure caused only by absent required fields.
	ErrMissingArgs = fmt.Errorf("%w: missing required fields", ErrInvalidArgs)
)

const requiredErrorType = "required"

// validator checks decoded arguments against each tool's parameter schema.
type validator struct {
	schemas map[string]*gojsonschema.Schema
}

func newValidator(specs []Spec) (*validator, error) {
	v := &validator{schemas: make(map[string]*gojsonschema.Schema, len(specs))}
	for _, s := range specs {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.ValidationSchema()))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", s.Name, err)
		}
		v.schemas[s.Name] = compiled
	}
	return v, nil
}

func (v *validator) validate(tool string, args Args) error {
	compiled, ok := v.schemas[tool]
	if !ok {
		return nil
	}
	doc := map[string]any(args)
	if doc == nil {
		doc = map[string]any{}
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	missingOnly := true
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
		if desc.Type() != requiredErrorType {
			missingOnly = false
		}
	}
	if missingOnly {
		return fmt.Errorf("%w: %s", ErrMissingArgs, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgs, strings.Join(msgs, "; "))
}
