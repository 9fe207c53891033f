package dataset

import (
	"fmt"
	"strings"
)

// AttributeType is the declared type of a column
type AttributeType string

const (
	AttributeNumeric AttributeType = "numeric"
	AttributeNominal AttributeType = "nominal"
)

// Attribute is one named, typed column of a schema
type Attribute struct {
	Name   string        `json:"name"`
	Type   AttributeType `json:"type"`
	Values []string      `json:"values,omitempty"` // nominal values in declaration order
}

// ParseAttribute parses a "name type" declaration such as "LOC numeric" or
// "Buggy {No,Yes}". Numeric aliases real and integer are accepted.
func ParseAttribute(decl string) (Attribute, error) {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return Attribute{}, fmt.Errorf("empty attribute declaration")
	}

	if open := strings.Index(decl, "{"); open >= 0 {
		closing := strings.LastIndex(decl, "}")
		if closing < open {
			return Attribute{}, fmt.Errorf("attribute %q: unterminated nominal value list", decl)
		}
		name := strings.TrimSpace(decl[:open])
		if name == "" {
			return Attribute{}, fmt.Errorf("attribute %q: missing name", decl)
		}
		var values []string
		for _, v := range strings.Split(decl[open+1:closing], ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Attribute{}, fmt.Errorf("attribute %q: empty nominal value list", decl)
		}
		return Attribute{Name: name, Type: AttributeNominal, Values: values}, nil
	}

	fields := strings.Fields(decl)
	if len(fields) != 2 {
		return Attribute{}, fmt.Errorf("attribute %q: expected \"name type\"", decl)
	}
	switch strings.ToLower(fields[1]) {
	case "numeric", "real", "integer":
		return Attribute{Name: fields[0], Type: AttributeNumeric}, nil
	default:
		return Attribute{}, fmt.Errorf("attribute %q: unsupported type %q", decl, fields[1])
	}
}

// Declaration renders the attribute back in "name type" form
func (a Attribute) Declaration() string {
	if a.Type == AttributeNominal {
		return fmt.Sprintf("%s {%s}", a.Name, strings.Join(a.Values, ","))
	}
	return fmt.Sprintf("%s %s", a.Name, a.Type)
}

// Schema is the ordered feature list plus the class attribute
type Schema struct {
	Features []Attribute `json:"features"`
	Class    Attribute   `json:"class"`
}

// NewSchema builds a schema from declarations; the last one is the class
func NewSchema(declarations []string) (Schema, error) {
	if len(declarations) < 2 {
		return Schema{}, fmt.Errorf("schema needs at least one feature and a class attribute, got %d declarations", len(declarations))
	}

	attrs := make([]Attribute, 0, len(declarations))
	seen := make(map[string]bool, len(declarations))
	for _, decl := range declarations {
		attr, err := ParseAttribute(decl)
		if err != nil {
			return Schema{}, err
		}
		if seen[attr.Name] {
			return Schema{}, fmt.Errorf("duplicate attribute %q", attr.Name)
		}
		seen[attr.Name] = true
		attrs = append(attrs, attr)
	}

	features := attrs[:len(attrs)-1]
	for _, f := range features {
		if f.Type != AttributeNumeric {
			return Schema{}, fmt.Errorf("feature attribute %q must be numeric", f.Name)
		}
	}

	return Schema{Features: features, Class: attrs[len(attrs)-1]}, nil
}

// Width returns the number of feature attributes
func (s Schema) Width() int {
	return len(s.Features)
}

// FeatureNames returns feature names in schema order
func (s Schema) FeatureNames() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of a feature, or -1
func (s Schema) Index(name string) int {
	for i, f := range s.Features {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both schemas have the same attributes in the same order
func (s Schema) Equal(other Schema) bool {
	if len(s.Features) != len(other.Features) {
		return false
	}
	for i := range s.Features {
		if !sameAttribute(s.Features[i], other.Features[i]) {
			return false
		}
	}
	return sameAttribute(s.Class, other.Class)
}

// Project returns the schema restricted to the given feature indices, in that order
func (s Schema) Project(indices []int) (Schema, error) {
	features := make([]Attribute, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(s.Features) {
			return Schema{}, fmt.Errorf("feature index %d out of range [0,%d)", idx, len(s.Features))
		}
		features[i] = s.Features[idx]
	}
	return Schema{Features: features, Class: s.Class}, nil
}

func sameAttribute(a, b Attribute) bool {
	if a.Name != b.Name || a.Type != b.Type || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}
