package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the app host.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>mealbox API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "mealbox", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Start an interactive login in the system browser",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"source":{"type":"string","enum":["web","mobile"]}}}}}},
        "responses": { "202": { "description": "login started" }, "400": { "description": "invalid source" }, "409": { "description": "login in progress, cooling down or not ready" } }
      }
    },
    "/auth/session": { "get": { "summary": "Current session state, user and destination", "responses": { "200": { "description": "session snapshot" } } } },
    "/auth/logout": { "post": { "summary": "End the session", "responses": { "200": { "description": "logged out" } } } },
    "/auth/error": { "delete": { "summary": "Dismiss the sign-in error", "responses": { "200": { "description": "cleared" } } } },
    "/api/me": { "get": { "summary": "Signed-in user", "responses": { "200": { "description": "user" }, "401": { "description": "not signed in" } } } },
    "/api/me/setup": { "post": { "summary": "Complete restaurant onboarding", "responses": { "200": { "description": "session snapshot" }, "400": { "description": "restaurant name required" }, "403": { "description": "not a restaurant user" } } } },
    "/api/users": { "get": { "summary": "List, page (?limit&after) or search (?prefix) users", "responses": { "200": { "description": "users" } } } },
    "/api/restaurants": {
      "get": { "summary": "List, page or search restaurants", "responses": { "200": { "description": "restaurants" } } },
      "post": { "summary": "Create a restaurant", "responses": { "201": { "description": "created" } } }
    },
    "/api/restaurants/{id}": {
      "get": { "summary": "Get a restaurant", "responses": { "200": { "description": "restaurant" }, "404": { "description": "not found" } } },
      "put": { "summary": "Update a restaurant", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete a restaurant", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/categories": {
      "get": { "summary": "List, page or search menu categories", "responses": { "200": { "description": "categories" } } },
      "post": { "summary": "Create a menu category", "responses": { "201": { "description": "created" } } }
    },
    "/api/orders": {
      "get": { "summary": "List, page or search orders by reference", "responses": { "200": { "description": "orders" } } },
      "post": { "summary": "Place an order, optionally with a meal subscription plan", "responses": { "201": { "description": "created" }, "400": { "description": "invalid order" } } }
    },
    "/api/uploads/images": {
      "post": {
        "summary": "Upload an image (multipart field 'file', max 10 MiB)",
        "responses": { "201": { "description": "image URL" }, "413": { "description": "too large" }, "415": { "description": "not an image" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
