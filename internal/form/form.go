// Package form describes the account forms served to clients.
package form

import (
	"encoding/json"
	"fmt"
)

// Field types.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeSelect   = "select"
	TypeTextarea = "textarea"
	TypeCheckbox = "checkbox"
	TypePassword = "password"
	TypeHidden   = "hidden"
)

var fieldTypes = map[string]bool{
	TypeText:     true,
	TypeEmail:    true,
	TypeSelect:   true,
	TypeTextarea: true,
	TypeCheckbox: true,
	TypePassword: true,
	TypeHidden:   true,
}

// Restriction names.
const (
	MinLength = "min_length"
	MaxLength = "max_length"
)

// Option is one choice of a select field.
type Option struct {
	Value   string `json:"value"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Field is one input of a form.
type Field struct {
	Name          string            `json:"name"`
	Label         string            `json:"label"`
	Type          string            `json:"type"`
	Placeholder   string            `json:"placeholder"`
	Instructions  string            `json:"instructions"`
	Required      bool              `json:"required"`
	Restrictions  map[string]int    `json:"restrictions"`
	Options       []Option          `json:"options,omitempty"`
	DefaultValue  any               `json:"defaultValue"`
	ErrorMessages map[string]string `json:"errorMessages"`
}

// Description is a form sent to clients so they can render it without
// hard-coding the fields.
type Description struct {
	Method    string   `json:"method"`
	SubmitURL string   `json:"submit_url"`
	Fields    []*Field `json:"fields"`
}

// FieldOptions configures AddField.
type FieldOptions struct {
	Type                 string
	Label                string
	Placeholder          string
	Instructions         string
	Optional             bool
	Restrictions         map[string]int
	Options              [][2]string
	IncludeDefaultOption bool
	Default              any
	ErrorMessages        map[string]string
}

// New creates an empty form description.
func New(method, submitURL string) *Description {
	return &Description{Method: method, SubmitURL: submitURL, Fields: []*Field{}}
}

// AddField appends a field. An empty type means text.
func (d *Description) AddField(name string, opts FieldOptions) error {
	fieldType := opts.Type
	if fieldType == "" {
		fieldType = TypeText
	}
	if !fieldTypes[fieldType] {
		return fmt.Errorf("field type %q is not supported", fieldType)
	}

	field := &Field{
		Name:          name,
		Label:         opts.Label,
		Type:          fieldType,
		Placeholder:   opts.Placeholder,
		Instructions:  opts.Instructions,
		Required:      !opts.Optional,
		Restrictions:  map[string]int{},
		DefaultValue:  opts.Default,
		ErrorMessages: map[string]string{},
	}
	if field.DefaultValue == nil {
		field.DefaultValue = ""
	}
	for k, v := range opts.Restrictions {
		field.Restrictions[k] = v
	}
	for k, v := range opts.ErrorMessages {
		field.ErrorMessages[k] = v
	}

	if fieldType == TypeSelect {
		if opts.IncludeDefaultOption {
			field.Options = append(field.Options, Option{Value: "", Name: "--", Default: true})
		}
		for _, o := range opts.Options {
			field.Options = append(field.Options, Option{Value: o[0], Name: o[1]})
		}
	}

	d.Fields = append(d.Fields, field)
	return nil
}

// Override changes properties of a field that was already added.
type Override struct {
	Type         *string
	Label        *string
	Instructions *string
	Required     *bool
	Restrictions map[string]int
	Default      any
}

// OverrideField applies o to the named field.
func (d *Description) OverrideField(name string, o Override) error {
	field := d.Field(name)
	if field == nil {
		return fmt.Errorf("field %q has not been added", name)
	}

	if o.Type != nil {
		if !fieldTypes[*o.Type] {
			return fmt.Errorf("field type %q is not supported", *o.Type)
		}
		field.Type = *o.Type
	}
	if o.Label != nil {
		field.Label = *o.Label
	}
	if o.Instructions != nil {
		field.Instructions = *o.Instructions
	}
	if o.Required != nil {
		field.Required = *o.Required
	}
	if o.Restrictions != nil {
		field.Restrictions = o.Restrictions
	}
	if o.Default != nil {
		field.DefaultValue = o.Default
	}
	return nil
}

// Field returns the named field or nil.
func (d *Description) Field(name string) *Field {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// JSON renders the description.
func (d *Description) JSON() ([]byte, error) {
	return json.Marshal(d)
}
