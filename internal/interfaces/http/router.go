package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-lotes/internal/application/allocation"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Allocation *allocation.UseCase
	Auth       AuthConfig
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.Auth))
	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	sales := RequireRole(RoleAdmin, RoleVendedor)
	warehouse := RequireRole(RoleAdmin, RoleBodeguero)

	allocHandler := NewAllocationHandler(deps.Allocation)
	api.Post("/allocations", sales, allocHandler.Allocate)
	api.Post("/consumers/:id/restore", sales, allocHandler.Restore)
	api.Delete("/consumers/:id", sales, allocHandler.Delete)
	api.Get("/stock/:productId", anyRole, allocHandler.Stock)

	orderHandler := NewOrderHandler(deps.Allocation)
	api.Post("/orders", warehouse, orderHandler.Place)
	api.Delete("/orders/:id", warehouse, orderHandler.Delete)
	api.Get("/orders/:id/check", anyRole, orderHandler.Check)
	api.Post("/products", warehouse, orderHandler.RegisterProduct)

	clothes := api.Group("/clothes/sales", sales)
	clothesHandler := NewClothesHandler(deps.Allocation)
	clothes.Post("/", clothesHandler.CreateSale)
	clothes.Post("/:id/restore", clothesHandler.RestoreSale)
	clothes.Delete("/:id", clothesHandler.DeleteSale)
}
