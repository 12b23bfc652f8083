package main

import (
	"log"

	_ "github.com/ITH-Pros/ith-tea-pro-backend/docs"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/config"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/server"
)

// @title           Tea Pro API
// @version         1.0
// @description     Multi-tenant task management with role-based authorization and task ratings.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("Server initialization failed: %v", err)
	}

	s.Run()
}
