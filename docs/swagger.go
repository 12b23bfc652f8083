package docs

import "github.com/swaggo/swag"

// @title           Tea Pro API
// @version         1.0
// @description     Multi-tenant task management with role-based authorization and task ratings

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @tag.name Users
// @tag.description Registration and authentication

// @tag.name Tasks
// @tag.description Task lifecycle, listings and analytics

// @tag.name Ratings
// @tag.description Task ratings and monthly aggregates

// Register swagger info
func SwaggerInfo() *swag.Spec {
	spec, _ := swag.GetSwagger(swag.Name).(*swag.Spec)
	return spec
}
