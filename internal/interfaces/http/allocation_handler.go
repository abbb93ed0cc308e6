package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/application/dto"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// AllocationHandler asignación y devolución de lotes (protegido).
type AllocationHandler struct {
	uc *allocation.UseCase
}

// NewAllocationHandler construye el handler.
func NewAllocationHandler(uc *allocation.UseCase) *AllocationHandler {
	return &AllocationHandler{uc: uc}
}

// Allocate godoc
// @Summary      Consumir lotes en orden FIFO
// @Tags         allocations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AllocateRequest  true  "consumer_id (opcional), kind, product_id, packages"
// @Success      201   {object}  dto.AllocateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/allocations [post]
func (h *AllocationHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.Allocate(c.UserContext(), allocation.AllocateInput{
		ConsumerID: in.ConsumerID,
		Kind:       in.Kind,
		ProductID:  in.ProductID,
		Packages:   in.Packages,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.AllocateResponse{ConsumerID: res.ConsumerID, TotalCost: res.TotalCost, Allocations: make([]dto.AllocationDTO, 0, len(res.Allocations))}
	for _, a := range res.Allocations {
		out.Allocations = append(out.Allocations, toAllocationDTO(a))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Restore godoc
// @Summary      Devolver paquetes de un registro de consumo
// @Description  Exacta (LIFO) si el registro tiene asignaciones; aproximada (legacy) si no.
// @Tags         allocations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del registro"
// @Param        body  body  dto.RestoreRequest  true  "packages"
// @Success      200   {object}  dto.RestoreResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/consumers/{id}/restore [post]
func (h *AllocationHandler) Restore(c *fiber.Ctx) error {
	var in dto.RestoreRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := h.uc.Restore(c.UserContext(), c.Params("id"), in.Packages)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toRestoreResponse(res))
}

// Delete godoc
// @Summary      Devolver todo y eliminar el registro de consumo
// @Tags         allocations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.RestoreResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/consumers/{id} [delete]
func (h *AllocationHandler) Delete(c *fiber.Ctx) error {
	res, err := h.uc.DeleteAndRestore(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toRestoreResponse(res))
}

// Stock godoc
// @Summary      Saldo por lote de un producto
// @Tags         allocations
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{productId} [get]
func (h *AllocationHandler) Stock(c *fiber.Ctx) error {
	v, err := h.uc.GetStock(c.UserContext(), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.StockResponse{
		ProductID:      v.ProductID,
		TotalRemaining: v.TotalRemaining,
		RemainingUnits: v.RemainingUnits,
		Value:          v.Value,
		AverageCost:    v.AverageCost,
		PerBatch:       make([]dto.BatchStockDTO, 0, len(v.PerBatch)),
	}
	for _, b := range v.PerBatch {
		out.PerBatch = append(out.PerBatch, dto.BatchStockDTO{
			BatchID:           b.BatchID,
			SourceOrderID:     b.SourceOrderID,
			ReceivedAt:        b.ReceivedAt,
			UnitsPerPackage:   b.UnitsPerPackage,
			TotalUnits:        b.TotalUnits,
			RemainingUnits:    b.RemainingUnits,
			RemainingPackages: b.RemainingPackages,
			UnitCost:          b.UnitCost,
		})
	}
	return c.JSON(out)
}

func toAllocationDTO(a entity.Allocation) dto.AllocationDTO {
	return dto.AllocationDTO{
		BatchID:         a.BatchID,
		SourceOrderID:   a.SourceOrderID,
		Units:           a.Units,
		Packages:        a.Packages(),
		UnitsPerPackage: a.UnitsPerPackage,
		UnitCost:        a.UnitCost,
	}
}

func toRestoreResponse(r *allocation.RestoreResult) dto.RestoreResponse {
	return dto.RestoreResponse{
		ConsumerID:       r.ConsumerID,
		RestoredPackages: r.RestoredPackages,
		Mode:             r.Mode,
		State:            r.State,
	}
}
