package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
	"github.com/jhoicas/Inventario-lotes/internal/application/dto"
	"github.com/jhoicas/Inventario-lotes/internal/domain"
	"github.com/jhoicas/Inventario-lotes/internal/domain/entity"
)

// OrderHandler órdenes de origen y catálogo mínimo (protegido).
type OrderHandler struct {
	uc *allocation.UseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *allocation.UseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Place godoc
// @Summary      Registrar orden de origen (crea un lote por línea)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PlaceOrderRequest  true  "order_id (opcional), received_at, items"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var in dto.PlaceOrderRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	var received time.Time
	if in.ReceivedAt != "" {
		t, err := time.Parse("2006-01-02", in.ReceivedAt)
		if err != nil {
			return writeError(c, domain.NewValidationError("received_at", "formato YYYY-MM-DD"))
		}
		received = t
	}
	items := make([]allocation.OrderItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, allocation.OrderItemInput{
			ProductID:       it.ProductID,
			Packages:        it.Packages,
			UnitsPerPackage: it.UnitsPerPackage,
			UnitCost:        it.UnitCost,
		})
	}
	res, err := h.uc.PlaceOrder(c.UserContext(), allocation.PlaceOrderInput{OrderID: in.OrderID, ReceivedAt: received, Items: items})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.OrderResponse{ID: res.Order.ID}
	for _, it := range res.Order.Items {
		out.Items = append(out.Items, dto.OrderItemDTO{ProductID: it.ProductID, Packages: it.Packages, RemainingPackages: it.RemainingPackages})
	}
	for _, b := range res.Batches {
		out.Batches = append(out.Batches, dto.BatchStockDTO{
			BatchID:           b.ID,
			SourceOrderID:     b.SourceOrderID,
			ReceivedAt:        b.ReceivedAt,
			UnitsPerPackage:   b.UnitsPerPackage,
			TotalUnits:        b.TotalUnits,
			RemainingUnits:    b.RemainingUnits,
			RemainingPackages: b.RemainingPackages,
			UnitCost:          b.UnitCost,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Delete godoc
// @Summary      Eliminar orden y sus lotes (solo sin consumo)
// @Tags         orders
// @Security     Bearer
// @Param        id   path  string  true  "ID de la orden"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteOrder(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Check godoc
// @Summary      Verificar que la orden cuadre con sus lotes
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/check [get]
func (h *OrderHandler) Check(c *fiber.Ctx) error {
	rep, err := h.uc.CheckOrderLedger(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.LedgerCheckResponse{OrderID: rep.OrderID, Consistent: rep.Consistent}
	for _, it := range rep.Items {
		out.Items = append(out.Items, dto.ItemCheckDTO{
			ProductID:      it.ProductID,
			OrderRemaining: it.OrderRemaining,
			BatchRemaining: it.BatchRemaining,
			Drift:          it.Drift,
		})
	}
	return c.JSON(out)
}

// RegisterProduct godoc
// @Summary      Alta de metadatos de catálogo (factor de conversión)
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProductRequest  true  "id, name, line, units_per_package"
// @Success      201   {object}  dto.ProductRequest
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *OrderHandler) RegisterProduct(c *fiber.Ctx) error {
	var in dto.ProductRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	p, err := h.uc.RegisterProduct(c.UserContext(), entity.Product{ID: in.ID, Name: in.Name, Line: in.Line, UnitsPerPackage: in.UnitsPerPackage})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ProductRequest{ID: p.ID, Name: p.Name, Line: p.Line, UnitsPerPackage: p.UnitsPerPackage})
}
