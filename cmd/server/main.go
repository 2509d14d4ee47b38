package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hkhalid/estatechain-server/internal/api"
	"github.com/hkhalid/estatechain-server/internal/config"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/repository"
	"github.com/hkhalid/estatechain-server/internal/service"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Connect to the property contract
	ledgerClient, err := ledger.Dial(
		cfg.Ledger.RPCURL,
		cfg.Ledger.ContractAddress,
		cfg.Ledger.OperatorKey,
		cfg.Ledger.ChainID,
	)
	if err != nil {
		log.Fatalf("Failed to connect to ledger: %v", err)
	}
	defer ledgerClient.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, ledgerClient, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
