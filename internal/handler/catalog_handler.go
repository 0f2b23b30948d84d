package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/giftlink/internal/model"
)

// CatalogReader is the read side of the merchant and product catalog.
type CatalogReader interface {
	GetMerchant(ctx context.Context, id string) (*model.Merchant, error)
	GetProduct(ctx context.Context, id string) (*model.GiftProduct, error)
	ListMerchants(ctx context.Context, city, category string) ([]model.Merchant, error)
	ListProducts(ctx context.Context, merchantID, category string) ([]model.GiftProduct, error)
	Categories() []string
}

// CatalogHandler serves the browse routes used before checkout.
type CatalogHandler struct {
	catalog CatalogReader
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListMerchants handles GET /api/merchants?city=&category=.
func (h *CatalogHandler) ListMerchants(c *fiber.Ctx) error {
	merchants, err := h.catalog.ListMerchants(c.Context(), c.Query("city"), c.Query("category"))
	if err != nil {
		return serviceError(c, err, "failed to list merchants")
	}
	return c.JSON(fiber.Map{"merchants": merchants})
}

// GetMerchant handles GET /api/merchants/:id.
func (h *CatalogHandler) GetMerchant(c *fiber.Ctx) error {
	merchant, err := h.catalog.GetMerchant(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "failed to get merchant")
	}
	if merchant == nil || !merchant.IsActive {
		return errorResponse(c, fiber.StatusNotFound, "merchant not found")
	}
	return c.JSON(merchant)
}

// ListMerchantProducts handles GET /api/merchants/:id/products.
func (h *CatalogHandler) ListMerchantProducts(c *fiber.Ctx) error {
	merchant, err := h.catalog.GetMerchant(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "failed to get merchant")
	}
	if merchant == nil || !merchant.IsActive {
		return errorResponse(c, fiber.StatusNotFound, "merchant not found")
	}
	products, err := h.catalog.ListProducts(c.Context(), merchant.ID, c.Query("category"))
	if err != nil {
		return serviceError(c, err, "failed to list products")
	}
	return c.JSON(fiber.Map{"products": products})
}

// ListProducts handles GET /api/products?category=.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.catalog.ListProducts(c.Context(), "", c.Query("category"))
	if err != nil {
		return serviceError(c, err, "failed to list products")
	}
	return c.JSON(fiber.Map{"products": products})
}

// GetProduct handles GET /api/products/:id.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.GetProduct(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err, "failed to get product")
	}
	if product == nil || !product.IsActive {
		return errorResponse(c, fiber.StatusNotFound, "product not found")
	}
	return c.JSON(product)
}

// Categories handles GET /api/categories.
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": h.catalog.Categories()})
}
