// Package schema defines the versioned, nested schema of the structured results collection
// and the mapper that projects a loaded artifact onto it.
//
// A descriptor is fixed once a collection has been provisioned with it. Evolving the
// artifact shape means adding a new descriptor version and provisioning a new collection,
// never widening an existing one in place.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is the primitive type of a field.
type FieldType string

// Supported field types. Names follow the analytics store's standard SQL type names.
const (
	TypeString    FieldType = "STRING"
	TypeInteger   FieldType = "INTEGER"
	TypeFloat     FieldType = "FLOAT"
	TypeBoolean   FieldType = "BOOLEAN"
	TypeTimestamp FieldType = "TIMESTAMP"
	TypeRecord    FieldType = "RECORD"
)

// Mode is the cardinality of a field.
type Mode string

// Cardinalities: single (required), optional (nullable) and repeated.
const (
	ModeNullable Mode = "NULLABLE"
	ModeRequired Mode = "REQUIRED"
	ModeRepeated Mode = "REPEATED"
)

// Encoding marks a STRING field that stores a serialized substructure.
type Encoding string

const (
	// EncodingNone stores scalar text as-is.
	EncodingNone Encoding = ""
	// EncodingJSON stores the canonical JSON encoding of a nested value.
	EncodingJSON Encoding = "json"
)

// Field is one node of a descriptor tree.
//
// KeyField names the subfield that receives the mapping key when an artifact
// mapping of named aggregates is lifted into a repeated record.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Mode        Mode      `json:"mode" yaml:"mode"`
	Encoding    Encoding  `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	KeyField    string    `json:"key_field,omitempty" yaml:"key_field,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Repeated reports whether the field holds a sequence.
func (f Field) Repeated() bool {
	return f.Mode == ModeRepeated
}

// Descriptor is a versioned schema for one collection.
type Descriptor struct {
	Name    string  `json:"name" yaml:"name"`
	Version int     `json:"version" yaml:"version"`
	Fields  []Field `json:"fields" yaml:"fields"`
}

// Field returns the top-level field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the descriptor tree for structural errors.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.New("schema descriptor is nil")
	}
	if d.Name == "" {
		return errors.New("schema descriptor name is required")
	}
	if d.Version < 1 {
		return fmt.Errorf("schema %s: version must be >= 1, got %d", d.Name, d.Version)
	}
	return validateFields(d.Name, d.Fields)
}

func validateFields(path string, fields []Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("%s: at least one field is required", path)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		fp := path + "." + f.Name
		if f.Name == "" {
			return fmt.Errorf("%s: field name is required", path)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field", fp)
		}
		seen[f.Name] = struct{}{}

		switch f.Mode {
		case ModeNullable, ModeRequired, ModeRepeated:
		default:
			return fmt.Errorf("%s: invalid mode %q", fp, f.Mode)
		}

		switch f.Type {
		case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp:
			if len(f.Fields) > 0 {
				return fmt.Errorf("%s: scalar field must not have subfields", fp)
			}
		case TypeRecord:
			if err := validateFields(fp, f.Fields); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: invalid type %q", fp, f.Type)
		}

		if f.Encoding == EncodingJSON && f.Type != TypeString {
			return fmt.Errorf("%s: json encoding requires a STRING field", fp)
		}
		if f.KeyField != "" {
			if f.Type != TypeRecord || !f.Repeated() {
				return fmt.Errorf("%s: key_field requires a REPEATED RECORD", fp)
			}
			key, ok := findField(f.Fields, f.KeyField)
			if !ok || key.Type != TypeString {
				return fmt.Errorf("%s: key_field %q must name a STRING subfield", fp, f.KeyField)
			}
		}
	}
	return nil
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FlatField is one row of a flattened descriptor listing.
type FlatField struct {
	Path     string `json:"path" yaml:"path"`
	Type     string `json:"type" yaml:"type"`
	Mode     string `json:"mode" yaml:"mode"`
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// Flatten lists every field in depth-first order with dotted paths.
func (d *Descriptor) Flatten() []FlatField {
	var out []FlatField
	flatten(&out, nil, d.Fields)
	return out
}

func flatten(out *[]FlatField, prefix []string, fields []Field) {
	for _, f := range fields {
		path := append(append([]string(nil), prefix...), f.Name)
		*out = append(*out, FlatField{
			Path:     strings.Join(path, "."),
			Type:     string(f.Type),
			Mode:     string(f.Mode),
			Encoding: string(f.Encoding),
		})
		if f.Type == TypeRecord {
			flatten(out, path, f.Fields)
		}
	}
}
