// Package apperr is the structured error taxonomy every module and the
// broker return across their HTTP surfaces, grounded on the logistics
// platform example's shared errors package and adapted from its CRUD/resource
// vocabulary to the co-simulation domain's own failure modes.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is across package boundaries.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrNotReservable       = errors.New("not reservable")
	ErrAlreadyReserved     = errors.New("already reserved")
	ErrInvalidVehicleState = errors.New("invalid vehicle state")
	ErrSpecIncompatible    = errors.New("specification incompatible")
	ErrProtocol            = errors.New("protocol error")
	ErrInternal            = errors.New("internal error")
)

// AppError is the structured error shape returned from module/broker HTTP
// handlers: a stable Code for programmatic dispatch, a human Message, and
// optional Details for debugging context.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Details: make(map[string]interface{})}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: make(map[string]interface{})}
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	e.Details[key] = value
	return e
}

// ValidationError reports a malformed request body or query parameter.
func ValidationError(message, field string, value interface{}) *AppError {
	return New("VALIDATION_ERROR", message).WithDetail("field", field).WithDetail("value", value)
}

// NotFoundError reports an unknown entity id (user, demand, vehicle, trip).
func NotFoundError(resourceType, id string) *AppError {
	return New("NOT_FOUND", fmt.Sprintf("%s not found", resourceType)).WithDetail("resource_type", resourceType).WithDetail("id", id)
}

// NotReservableError reports that a requested reservation can't be
// accommodated within the feasible window (spec §4.2.1/§4.3.2's is_reservable
// gate failing).
func NotReservableError(reason string) *AppError {
	return New("NOT_RESERVABLE", reason)
}

// InvalidVehicleStateError reports an operation attempted against a vehicle
// in the wrong lifecycle state (spec §4.2.5).
func InvalidVehicleStateError(vehicleID, current, expected string) *AppError {
	return New("INVALID_VEHICLE_STATE", fmt.Sprintf("vehicle %s in state %s, expected %s", vehicleID, current, expected)).
		WithDetail("vehicle_id", vehicleID).WithDetail("current_state", current).WithDetail("expected_state", expected)
}

// SpecIncompatibleError reports a broker-side compatibility gate failure
// (spec §4.5.2): a module's declared tx/rx or feature set can't satisfy the
// run's scenario requirements.
func SpecIncompatibleError(moduleID, reason string) *AppError {
	return New("SPEC_INCOMPATIBLE", reason).WithDetail("module_id", moduleID)
}

// ProtocolError reports a non-2xx response or malformed payload from a
// runner (spec §7), fatal for the enclosing run.
func ProtocolError(moduleID string, err error) *AppError {
	return Wrap(err, "PROTOCOL_ERROR", fmt.Sprintf("protocol error from module %s", moduleID)).WithDetail("module_id", moduleID)
}

// InternalError reports a failure with no more specific classification.
func InternalError(err error) *AppError {
	return Wrap(err, "INTERNAL_ERROR", "internal error")
}
