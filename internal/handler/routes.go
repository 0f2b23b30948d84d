package handler

import "github.com/gofiber/fiber/v2"

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health   *HealthHandler
	Orders   *OrderHandler
	Merchant *MerchantHandler
	Catalog  *CatalogHandler
}

// RegisterRoutes mounts the public, catalog and merchant routes on app.
func RegisterRoutes(app fiber.Router, h Handlers) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")
	api.Post("/orders", h.Orders.CreateOrder)
	api.Get("/orders/:id", h.Orders.GetOrder)

	api.Get("/merchants", h.Catalog.ListMerchants)
	api.Get("/merchants/:id", h.Catalog.GetMerchant)
	api.Get("/merchants/:id/products", h.Catalog.ListMerchantProducts)
	api.Get("/products", h.Catalog.ListProducts)
	api.Get("/products/:id", h.Catalog.GetProduct)
	api.Get("/categories", h.Catalog.Categories)

	h.Merchant.Register(api.Group("/merchant"))
}
