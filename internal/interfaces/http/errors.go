package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Inventario-lotes/internal/application/dto"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
)

// writeError traduce errores de dominio a código HTTP y ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	var reqErr *dto.RequestError
	var valErr *domain.ValidationError
	var invErr *domain.InsufficientInventoryError
	var intErr *domain.IntegrityError

	switch {
	case errors.As(err, &reqErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Fields: reqErr.Fields})
	case errors.As(err, &valErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: valErr.Error(), Fields: map[string]string{valErr.Field: valErr.Reason},
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.As(err, &invErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":      "INSUFFICIENT_STOCK",
			"message":   invErr.Error(),
			"requested": invErr.Requested,
			"available": invErr.Available,
			"shortfall": invErr.Shortfall,
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrOrderInUse):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ORDER_IN_USE", Message: err.Error()})
	case errors.Is(err, domain.ErrLegacyConsumer):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LEGACY_CONSUMER", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: domain.ErrConflict.Error()})
	case errors.As(err, &intErr):
		log.Error().Err(err).Str("product_id", intErr.ProductID).Str("order_id", intErr.OrderID).Msg("inconsistencia de inventario")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INTEGRITY", Message: err.Error()})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// parseBody decodifica y valida el body.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.NewValidationError("body", "cuerpo inválido")
	}
	return dto.Validate(out)
}
