package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is a single JSON-LD property value. It is one of Reference,
// LocalizedLiteral or Scalar.
type Value interface {
	isValue()
}

// Reference points to another resource by IRI.
type Reference struct {
	IRI string
}

// LocalizedLiteral is a string tagged with a language. Language may be empty.
type LocalizedLiteral struct {
	Value    string `json:"value"`
	Language string `json:"language,omitempty"`
}

// Scalar is a plain literal (string, number or boolean) kept in its lexical form.
type Scalar struct {
	Value string
}

func (Reference) isValue()        {}
func (LocalizedLiteral) isValue() {}
func (Scalar) isValue()           {}

// ValueString returns the lexical form of v.
func ValueString(v Value) string {
	switch val := v.(type) {
	case Reference:
		return val.IRI
	case LocalizedLiteral:
		return val.Value
	case Scalar:
		return val.Value
	default:
		panic(fmt.Sprintf("domain: unexpected value type %T", v))
	}
}

// FormatValue renders v for display: references in angle brackets, localized
// literals with their language tag.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Reference:
		return "<" + val.IRI + ">"
	case LocalizedLiteral:
		if val.Language == "" {
			return strconv.Quote(val.Value)
		}
		return strconv.Quote(val.Value) + "@" + val.Language
	case Scalar:
		return val.Value
	default:
		panic(fmt.Sprintf("domain: unexpected value type %T", v))
	}
}

// DecodeValues converts a raw JSON-LD property value into values. Arrays are
// flattened, objects with @id become references, objects with @value become
// literals and any other object is read as a language map.
func DecodeValues(raw json.RawMessage) ([]Value, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decodeAny(decoded)
}

func decodeAny(v any) ([]Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []Value{Scalar{Value: val}}, nil
	case bool:
		return []Value{Scalar{Value: strconv.FormatBool(val)}}, nil
	case float64:
		return []Value{Scalar{Value: strconv.FormatFloat(val, 'f', -1, 64)}}, nil
	case []any:
		var out []Value
		for _, item := range val {
			values, err := decodeAny(item)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	case map[string]any:
		return decodeObject(val)
	default:
		return nil, fmt.Errorf("unsupported JSON-LD value %T", v)
	}
}

func decodeObject(obj map[string]any) ([]Value, error) {
	if id, ok := obj["@id"]; ok {
		iri, ok := id.(string)
		if !ok {
			return nil, fmt.Errorf("@id must be a string, got %T", id)
		}
		return []Value{Reference{IRI: iri}}, nil
	}
	if raw, ok := obj["@value"]; ok {
		lang, _ := obj["@language"].(string)
		switch lit := raw.(type) {
		case string:
			if lang == "" {
				if _, typed := obj["@type"]; typed {
					return []Value{Scalar{Value: lit}}, nil
				}
			}
			return []Value{LocalizedLiteral{Value: lit, Language: lang}}, nil
		default:
			return decodeAny(lit)
		}
	}

	// Language map, e.g. {"en": "Building", "cs": "Budova"}
	langs := make([]string, 0, len(obj))
	for lang := range obj {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	var out []Value
	for _, lang := range langs {
		texts, err := decodeAny(obj[lang])
		if err != nil {
			return nil, err
		}
		tag := lang
		if tag == "@none" {
			tag = ""
		}
		for _, t := range texts {
			out = append(out, LocalizedLiteral{Value: ValueString(t), Language: tag})
		}
	}
	return out, nil
}
