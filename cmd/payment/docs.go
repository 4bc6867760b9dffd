package main

// @title Payment Service API
// @version 1.0
// @description Payment lifecycle service: create, capture, refund and cancel payments

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Payments
// @tag.description Payment lifecycle endpoints

// @tag.name Webhooks
// @tag.description Processor callbacks

// @tag.name Health
// @tag.description Health check endpoint
