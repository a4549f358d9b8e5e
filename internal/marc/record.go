// Package marc models MARC21 bibliographic records and renders them as
// MARC21-slim XML.
package marc

import (
	"fmt"
	"strings"
)

// ControlTags are the control fields every record carries, in order.
var ControlTags = [...]string{"001", "003", "005", "007", "008"}

// Subfield is a one-character code with its text value.
type Subfield struct {
	Code  byte
	Value string
}

// DataField is a numbered field with two indicators and ordered subfields.
type DataField struct {
	Tag       string
	Ind1      byte
	Ind2      byte
	Subfields []Subfield
}

// NewDataField starts a data field; indicators are single characters, blank
// is ' '.
func NewDataField(tag string, ind1, ind2 byte) DataField {
	return DataField{Tag: tag, Ind1: ind1, Ind2: ind2}
}

// Add appends a subfield unless value is empty.
func (f *DataField) Add(code byte, value string) *DataField {
	if value == "" {
		return f
	}
	f.Subfields = append(f.Subfields, Subfield{Code: code, Value: value})
	return f
}

// Value returns the first subfield value with the given code.
func (f DataField) Value(code byte) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// Values returns every subfield value with the given code.
func (f DataField) Values(code byte) []string {
	var values []string
	for _, sf := range f.Subfields {
		if sf.Code == code {
			values = append(values, sf.Value)
		}
	}
	return values
}

// ValidSubfieldCode reports whether code is a lowercase ASCII letter or digit.
func ValidSubfieldCode(code rune) bool {
	return (code >= 'a' && code <= 'z') || (code >= '0' && code <= '9')
}

// ControlField is a fixed-text field without indicators or subfields.
type ControlField struct {
	Tag   string
	Value string
}

// Record is one bibliographic record: leader, control fields, data fields.
type Record struct {
	Leader  string
	Control []ControlField
	Fields  []DataField
}

// Append adds data fields in derivation order.
func (r *Record) Append(fields ...DataField) {
	r.Fields = append(r.Fields, fields...)
}

// ControlValue returns the value of a control field.
func (r *Record) ControlValue(tag string) string {
	for _, cf := range r.Control {
		if cf.Tag == tag {
			return cf.Value
		}
	}
	return ""
}

// FieldsByTag returns the data fields with the given tag in record order.
func (r *Record) FieldsByTag(tag string) []DataField {
	var out []DataField
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// Tags lists the data field tags in record order.
func (r *Record) Tags() []string {
	tags := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		tags[i] = f.Tag
	}
	return tags
}

// Validate checks the structural invariants: a leader, exactly the five
// control fields in fixed order, well-formed data field tags and subfield codes.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Leader) == "" {
		return fmt.Errorf("marc: record has no leader")
	}
	if len(r.Control) != len(ControlTags) {
		return fmt.Errorf("marc: expected %d control fields, got %d", len(ControlTags), len(r.Control))
	}
	for i, cf := range r.Control {
		if cf.Tag != ControlTags[i] {
			return fmt.Errorf("marc: control field %d has tag %s, want %s", i, cf.Tag, ControlTags[i])
		}
	}
	for _, f := range r.Fields {
		if len(f.Tag) != 3 || f.Tag < "010" {
			return fmt.Errorf("marc: invalid data field tag %q", f.Tag)
		}
		for _, sf := range f.Subfields {
			if !ValidSubfieldCode(rune(sf.Code)) {
				return fmt.Errorf("marc: field %s has invalid subfield code %q", f.Tag, sf.Code)
			}
		}
	}
	return nil
}
