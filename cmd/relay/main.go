package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"coffeetrace/internal/relay/config"
	"coffeetrace/internal/relay/gateway"
	"coffeetrace/internal/relay/ipfs"
	"coffeetrace/internal/relay/middleware"
	"coffeetrace/internal/relay/routes"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	chain, err := gateway.Connect(cfg.Fabric)
	if err != nil {
		log.Fatalf("Failed to connect to Fabric gateway: %v", err)
	}
	defer chain.Close()

	store := ipfs.New(cfg.IPFS.APIURL, cfg.IPFS.GatewayURL)

	app := fiber.New(fiber.Config{
		AppName: "Coffee Provenance Relay",
	})
	middleware.Setup(app, cfg)
	routes.Setup(app, cfg, chain, store)

	go gracefulShutdown(app)

	log.Printf("Relay starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down relay...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Relay stopped")
}
