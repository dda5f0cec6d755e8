package routes

import (
	"coffeetrace/internal/relay/config"
	"coffeetrace/internal/relay/handlers"

	"github.com/gofiber/fiber/v2"
)

// Setup wires all handlers to their routes.
func Setup(app *fiber.App, cfg *config.Config, chain handlers.Invoker, store handlers.ContentStore) {
	healthHandler := handlers.NewHealthHandler(cfg)
	coffeeHandler := handlers.NewCoffeeHandler(chain, store)
	userHandler := handlers.NewUserHandler(chain)
	ipfsHandler := handlers.NewIPFSHandler(store)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api")

	coffee := api.Group("/coffee")
	coffee.Post("/add", coffeeHandler.Add)
	coffee.Get("/stats/total", coffeeHandler.Total)
	coffee.Get("/", coffeeHandler.List)
	coffee.Get("/:id", coffeeHandler.Get)
	coffee.Put("/:id/stage", coffeeHandler.UpdateStage)
	coffee.Get("/:id/history", coffeeHandler.History)
	coffee.Get("/:id/verify", coffeeHandler.Verify)

	users := api.Group("/users")
	users.Post("/authorize", userHandler.Authorize)
	users.Post("/revoke", userHandler.Revoke)
	users.Get("/roles", userHandler.ListRoles)
	users.Get("/:id/role", userHandler.GetRole)
	users.Get("/:id/authorized", userHandler.GetAuthorized)

	ipfsRoutes := api.Group("/ipfs")
	ipfsRoutes.Post("/upload/json", ipfsHandler.UploadJSON)
	ipfsRoutes.Post("/upload/file", ipfsHandler.UploadFile)
	ipfsRoutes.Post("/pin/:hash", ipfsHandler.Pin)
	ipfsRoutes.Delete("/pin/:hash", ipfsHandler.Unpin)
	ipfsRoutes.Get("/:hash", ipfsHandler.Get)
}
