package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoni-app/sokoni_wallet/internal/catalog"
)

type productResponse struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterCatalogRoutes wires the public product listing endpoint.
func RegisterCatalogRoutes(r fiber.Router, products catalog.Catalog) {
	r.Get("/products", func(c *fiber.Ctx) error {
		list, err := products.List(c.UserContext(), c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "catalog unavailable")
		}
		out := make([]productResponse, 0, len(list))
		for _, p := range list {
			out = append(out, productResponse{
				ID:        p.ID,
				SellerID:  p.SellerID,
				Name:      p.Name,
				Price:     p.Price,
				CreatedAt: p.CreatedAt,
			})
		}
		return c.JSON(fiber.Map{"products": out})
	})
}
