package auditboard

import "encoding/json"

const (
	recordIDFieldConstant   = "id"
	recordUIDFieldConstant  = "uid"
	recordNameFieldConstant = "name"
)

// Record is one loosely-typed object returned by the API. The client never
// validates its schema beyond the presence of the keys a caller asks for.
type Record map[string]any

// ID returns the numeric identifier or zero when absent.
func (record Record) ID() int64 {
	identifier, _ := record.IntField(recordIDFieldConstant)
	return identifier
}

// UID returns the uid field or an empty string when absent.
func (record Record) UID() string {
	uidValue, _ := record.StringField(recordUIDFieldConstant)
	return uidValue
}

// Name returns the name field or an empty string when absent.
func (record Record) Name() string {
	nameValue, _ := record.StringField(recordNameFieldConstant)
	return nameValue
}

// IntField reads a numeric field, accepting the numeric representations the
// JSON decoder produces.
func (record Record) IntField(fieldName string) (int64, bool) {
	rawValue, exists := record[fieldName]
	if !exists {
		return 0, false
	}

	switch typedValue := rawValue.(type) {
	case float64:
		return int64(typedValue), true
	case int64:
		return typedValue, true
	case int:
		return int64(typedValue), true
	case json.Number:
		parsedValue, parseError := typedValue.Int64()
		if parseError != nil {
			return 0, false
		}
		return parsedValue, true
	default:
		return 0, false
	}
}

// StringField reads a string field, reporting whether it was present.
func (record Record) StringField(fieldName string) (string, bool) {
	rawValue, exists := record[fieldName]
	if !exists || rawValue == nil {
		return "", false
	}

	stringValue, isString := rawValue.(string)
	if !isString {
		return "", false
	}
	return stringValue, true
}
