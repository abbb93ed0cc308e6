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
	ErrConflict          = errors.New("operación fallida, intente de nuevo")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrIntegrity         = errors.New("inconsistencia en los registros de inventario")
	ErrOrderInUse        = errors.New("la orden tiene lotes consumidos")
	ErrLegacyConsumer    = errors.New("el registro de consumo es legacy y no admite nuevas asignaciones")

	// ErrAmbiguousConsumption el documento trae asignaciones y datos legacy a la vez.
	ErrAmbiguousConsumption = errors.New("registro de consumo con asignaciones y datos legacy a la vez")
)

// ValidationError entrada rechazada antes de abrir la transacción.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para construir un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IntegrityError los contadores de lotes, órdenes y registros de consumo no cuadran.
// Siempre aborta la transacción sin mutar nada. Cause, si existe, es el sentinel concreto.
type IntegrityError struct {
	Reason     string
	ProductID  string
	BatchID    string
	OrderID    string
	ConsumerID string
	Cause      error
}

func (e *IntegrityError) Error() string {
	msg := "integridad: " + e.Reason
	if e.ProductID != "" {
		msg += " producto=" + e.ProductID
	}
	if e.BatchID != "" {
		msg += " lote=" + e.BatchID
	}
	if e.OrderID != "" {
		msg += " orden=" + e.OrderID
	}
	if e.ConsumerID != "" {
		msg += " registro=" + e.ConsumerID
	}
	return msg
}

func (e *IntegrityError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrIntegrity, e.Cause}
	}
	return []error{ErrIntegrity}
}

// InsufficientInventoryError la cantidad pedida supera lo disponible en todos los lotes.
type InsufficientInventoryError struct {
	ProductID string
	Requested int64
	Available int64
	Shortfall int64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d, faltan %d",
		e.ProductID, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientStock }

// IsClientError indica si el error se debe a la petición y no a la infraestructura.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLegacyConsumer) ||
		errors.Is(err, ErrOrderInUse)
}
