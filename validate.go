package turborest

// RequireFields verifies that the caller-supplied payload body carries the
// named mandatory fields. A missing, nil or empty-string value raises
// NotNullViolated before the record touches the store.
func RequireFields(rec PayloadRecord, objectName string, fields ...string) error {
	for _, f := range fields {
		v, ok := rec.Data[f]
		if !ok || v == nil {
			return NewNotNullViolated(objectName)
		}
		if s, isString := v.(string); isString && s == "" {
			return NewNotNullViolated(objectName)
		}
	}
	return nil
}
