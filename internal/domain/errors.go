package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("estado inválido para la transición")
	// ErrLockTimeout es el único error transitorio: la operación se puede reintentar.
	ErrLockTimeout = errors.New("tiempo de espera de bloqueo agotado")
)

// ValidationError entrada mal formada (sucursales iguales, cantidades no positivas, etc.).
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError identifica el recurso inexistente (variación, sucursal o traslado).
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError construye un NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError incluye la cantidad disponible para diagnóstico.
type InsufficientStockError struct {
	VariationID string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en variación %s: solicitado %d, disponible %d",
		e.VariationID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Shortfall unidades que faltan para cubrir lo solicitado.
func (e *InsufficientStockError) Shortfall() int64 {
	if e.Available < 0 {
		return e.Requested
	}
	return e.Requested - e.Available
}

// InvalidStateError el estado actual no permite la transición pedida.
type InvalidStateError struct {
	TransferID string
	Current    string
	Target     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("traslado %s en estado %q no admite pasar a %q", e.TransferID, e.Current, e.Target)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// IsRetryable indica si el caller puede reintentar la operación sin corregir la entrada.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
