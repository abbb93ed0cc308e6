package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/application/dto"
)

// ClothesHandler ventas de ropa con auditoría de asignaciones (protegido).
type ClothesHandler struct {
	uc *allocation.UseCase
}

// NewClothesHandler construye el handler.
func NewClothesHandler(uc *allocation.UseCase) *ClothesHandler {
	return &ClothesHandler{uc: uc}
}

// CreateSale godoc
// @Summary      Registrar venta de ropa
// @Tags         clothes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.GarmentSaleRequest  true  "sale_id (opcional), product_id, quantity"
// @Success      201   {object}  dto.GarmentSaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/clothes/sales [post]
func (h *ClothesHandler) CreateSale(c *fiber.Ctx) error {
	var in dto.GarmentSaleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.AllocateGarments(c.UserContext(), allocation.GarmentSaleInput{SaleID: in.SaleID, ProductID: in.ProductID, Quantity: in.Quantity})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.GarmentSaleResponse{SaleID: res.SaleID, TotalCost: res.TotalCost, Records: make([]dto.AuditRecordDTO, 0, len(res.Records))}
	for _, r := range res.Records {
		out.Records = append(out.Records, dto.AuditRecordDTO{
			ID:            r.ID,
			BatchID:       r.BatchID,
			SourceOrderID: r.SourceOrderID,
			Units:         r.Units,
			ReversesID:    r.ReversesID,
			Seq:           r.Seq,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RestoreSale godoc
// @Summary      Devolver prendas de una venta
// @Tags         clothes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la venta"
// @Param        body  body  dto.GarmentRestoreRequest  true  "quantity"
// @Success      200   {object}  dto.RestoreResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/clothes/sales/{id}/restore [post]
func (h *ClothesHandler) RestoreSale(c *fiber.Ctx) error {
	var in dto.GarmentRestoreRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.RestoreGarments(c.UserContext(), c.Params("id"), in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toRestoreResponse(res))
}

// DeleteSale godoc
// @Summary      Devolver todo y eliminar la venta de ropa
// @Tags         clothes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.RestoreResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/clothes/sales/{id} [delete]
func (h *ClothesHandler) DeleteSale(c *fiber.Ctx) error {
	res, err := h.uc.DeleteGarmentSale(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toRestoreResponse(res))
}
