package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/Inventario-lotes/internal/domain"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate aplica las etiquetas validate del request. El primer campo inválido se
// devuelve como domain.ValidationError; todos quedan en ValidationFields.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return domain.NewValidationError("body", err.Error())
	}
	return &RequestError{Fields: fieldsOf(ves)}
}

// RequestError errores de validación de un request, por campo.
type RequestError struct {
	Fields map[string]string
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, f+": "+tag)
	}
	return "datos inválidos: " + strings.Join(parts, ", ")
}

func (e *RequestError) Unwrap() error { return domain.ErrInvalidInput }

func fieldsOf(ves validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ves))
	for _, ve := range ves {
		out[ve.Namespace()] = ve.Tag()
	}
	return out
}
