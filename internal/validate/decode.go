package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/fontintel/fontintel/internal/model"
)

// Field names in model output.
const (
	FieldStylePrimary      = "style_primary"
	FieldSubstyle          = "substyle"
	FieldMoods             = "moods"
	FieldUseCases          = "use_cases"
	FieldHistoricalContext = "historical_context"
	FieldNotes             = "notes"
)

var jsonNull = []byte("null")

// Decode parses model output into a RawAnalysis. Only a document that is not
// a JSON object is an error; fields in the wrong shape are recorded in
// RawAnalysis.Malformed and left unset so Validate can report them.
func Decode(data []byte) (*model.RawAnalysis, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, eris.Wrap(err, "validate: decode analysis")
	}
	if fields == nil {
		return nil, eris.New("validate: analysis is null")
	}

	raw := &model.RawAnalysis{Malformed: map[string]string{}}

	if v, ok := present(fields, FieldStylePrimary); ok {
		item, err := decodeItem(v)
		if err != nil {
			raw.Malformed[FieldStylePrimary] = err.Error()
		} else {
			raw.StylePrimary = item
		}
	}
	if v, ok := present(fields, FieldSubstyle); ok {
		item, err := decodeItem(v)
		if err != nil {
			raw.Malformed[FieldSubstyle] = err.Error()
		} else {
			raw.Substyle = item
		}
	}
	if v, ok := present(fields, FieldMoods); ok {
		raw.Moods = decodeList(FieldMoods, v, raw.Malformed)
	}
	if v, ok := present(fields, FieldUseCases); ok {
		raw.UseCases = decodeList(FieldUseCases, v, raw.Malformed)
	}
	if v, ok := present(fields, FieldHistoricalContext); ok {
		if err := json.Unmarshal(v, &raw.HistoricalContext); err != nil {
			raw.Malformed[FieldHistoricalContext] = "expected a string"
		}
	}
	if v, ok := present(fields, FieldNotes); ok {
		if err := json.Unmarshal(v, &raw.Notes); err != nil {
			raw.Malformed[FieldNotes] = "expected a string"
		}
	}
	return raw, nil
}

// present returns the raw field value, treating JSON null as absent.
func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	v, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(v), jsonNull) {
		return nil, false
	}
	return v, true
}

// decodeList decodes an array of items. A non-array value marks the whole
// field malformed; a bad element marks only that element and is skipped.
func decodeList(field string, v json.RawMessage, malformed map[string]string) *[]model.RawItem {
	var elems []json.RawMessage
	if err := json.Unmarshal(v, &elems); err != nil {
		malformed[field] = "expected an array"
		return nil
	}
	items := make([]model.RawItem, 0, len(elems))
	for i, e := range elems {
		item, err := decodeItem(e)
		if err != nil {
			malformed[fmt.Sprintf("%s[%d]", field, i)] = err.Error()
			continue
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return &items
}

type itemFields struct {
	Value        json.RawMessage `json:"value"`
	Confidence   json.RawMessage `json:"confidence"`
	EvidenceKeys json.RawMessage `json:"evidence_keys"`
}

// decodeItem accepts either {"value", "confidence", "evidence_keys"} or a
// bare string shorthand for the value.
func decodeItem(v json.RawMessage) (*model.RawItem, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, jsonNull) {
		return nil, nil
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, eris.New("invalid string")
		}
		return &model.RawItem{Value: s}, nil
	case '{':
	default:
		return nil, eris.New("expected an object or string")
	}

	var f itemFields
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, eris.New("invalid object")
	}

	item := &model.RawItem{}
	if err := json.Unmarshal(f.Value, &item.Value); err != nil || item.Value == "" {
		return nil, eris.New("value must be a non-empty string")
	}
	if len(f.Confidence) > 0 && !bytes.Equal(f.Confidence, jsonNull) {
		var c float64
		if err := json.Unmarshal(f.Confidence, &c); err != nil {
			return nil, eris.New("confidence must be a number")
		}
		item.Confidence = &c
	}
	if len(f.EvidenceKeys) > 0 && !bytes.Equal(f.EvidenceKeys, jsonNull) {
		if err := json.Unmarshal(f.EvidenceKeys, &item.EvidenceKeys); err != nil {
			return nil, eris.New("evidence_keys must be an array of strings")
		}
		if item.EvidenceKeys == nil {
			item.EvidenceKeys = []string{}
		}
	}
	return item, nil
}
