package turborest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies one member of the closed set of domain failures.
type Kind string

const (
	KindMissingTenantID            Kind = "MissingTenantId"
	KindMissingAuditData           Kind = "MissingAuditData"
	KindRecordNotFound             Kind = "RecordNotFound"
	KindTooManyRows                Kind = "TooManyRows"
	KindRecordExistsAlready        Kind = "RecordExistsAlready"
	KindRecordChangedByAnotherUser Kind = "RecordChangedByAnotherUser"
	KindNotNullViolated            Kind = "NotNullViolated"
	KindAuthenticationError        Kind = "AuthenticationError"
	KindServerError                Kind = "ServerError"
)

// statusForKind maps every kind to its fixed HTTP status.
func statusForKind(k Kind) int {
	switch k {
	case KindRecordNotFound:
		return http.StatusNotFound
	case KindTooManyRows:
		return http.StatusNotImplemented
	case KindRecordExistsAlready, KindRecordChangedByAnotherUser:
		return http.StatusConflict
	case KindNotNullViolated:
		return http.StatusForbidden
	case KindAuthenticationError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RestError is the single error type behind the whole taxonomy. Instances are
// immutable once constructed; the dispatcher renders them via WriteResponse.
type RestError struct {
	Kind            Kind
	InternalMessage string
	Additional      map[string]any
}

func (e *RestError) Error() string {
	return fmt.Sprintf("turborest: %s: %s", e.Kind, e.InternalMessage)
}

// Status returns the HTTP status code fixed for this error's kind.
func (e *RestError) Status() int {
	return statusForKind(e.Kind)
}

// errorEnvelope is the wire shape of a rendered RestError.
type errorEnvelope struct {
	Code                 int            `json:"code"`
	ExceptionName        string         `json:"exceptionName"`
	InternalMessage      string         `json:"internalMessage"`
	AdditionalProperties map[string]any `json:"additionalProperties"`
}

// WriteResponse renders the error as its JSON envelope with the kind's status.
func (e *RestError) WriteResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Code:                 e.Status(),
		ExceptionName:        string(e.Kind),
		InternalMessage:      e.InternalMessage,
		AdditionalProperties: e.Additional,
	})
}

// AsRestError unwraps err into a *RestError when it is (or wraps) one.
func AsRestError(err error) (*RestError, bool) {
	var re *RestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// NewMissingTenantID reports a call made without a tenant context. This is an
// integration fault, not a user error.
func NewMissingTenantID() *RestError {
	return &RestError{
		Kind:            KindMissingTenantID,
		InternalMessage: "internal error: request without tenant ID",
	}
}

// NewMissingAuditData reports a mutating call without version metadata.
func NewMissingAuditData() *RestError {
	return &RestError{
		Kind:            KindMissingAuditData,
		InternalMessage: "internal error: request without audit data",
	}
}

// NewRecordNotFound reports that no record exists for the given id and tenant.
func NewRecordNotFound(id string) *RestError {
	return &RestError{
		Kind:            KindRecordNotFound,
		InternalMessage: fmt.Sprintf("no record found for id %q", id),
		Additional:      map[string]any{"id": id},
	}
}

// NewTooManyRows reports more than one record for an id that must be unique
// within its tenant. It signals a violated storage invariant.
func NewTooManyRows(id string) *RestError {
	return &RestError{
		Kind:            KindTooManyRows,
		InternalMessage: fmt.Sprintf("more than one record found for id %q", id),
		Additional:      map[string]any{"id": id},
	}
}

// NewRecordExistsAlready reports an insert that collided with an existing
// unique key, carrying the conflicting record's last-change metadata.
func NewRecordExistsAlready(changedAt time.Time, changedBy string) *RestError {
	return &RestError{
		Kind:            KindRecordExistsAlready,
		InternalMessage: "record exists already",
		Additional:      map[string]any{"changedAt": changedAt, "changedBy": changedBy},
	}
}

// NewRecordChangedByAnotherUser reports a failed optimistic-lock check on an
// update or delete.
func NewRecordChangedByAnotherUser(id string) *RestError {
	return &RestError{
		Kind:            KindRecordChangedByAnotherUser,
		InternalMessage: fmt.Sprintf("record %q was changed by another user in the meantime", id),
		Additional:      map[string]any{"id": id},
	}
}

// NewNotNullViolated reports a caller-supplied payload missing mandatory fields.
func NewNotNullViolated(objectName string) *RestError {
	return &RestError{
		Kind:            KindNotNullViolated,
		InternalMessage: fmt.Sprintf("mandatory fields in %s are missing", objectName),
		Additional:      map[string]any{"objectName": objectName},
	}
}

// NewAuthenticationError reports a failed identity resolution.
func NewAuthenticationError(errorName string, errorMessage string) *RestError {
	return &RestError{
		Kind:            KindAuthenticationError,
		InternalMessage: fmt.Sprintf("not able to authenticate (%s)", errorName),
		Additional:      map[string]any{"errorName": errorName, "errorMessage": errorMessage},
	}
}

// NewServerError wraps any unclassified failure as the 500 catch-all.
func NewServerError(err error) *RestError {
	msg := "unknown server error"
	if err != nil {
		msg = err.Error()
	}
	return &RestError{
		Kind:            KindServerError,
		InternalMessage: msg,
	}
}
