// Command catalog serves the document-store collections on their own,
// without the session host. Useful for seeding and back-office tools.
package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/catalog"
	"github.com/mealbox/mealbox/internal/database"
	"github.com/mealbox/mealbox/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	port := os.Getenv("CATALOG_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Prefer Mongo-backed collections when MONGODB_URI is provided.
	cols := catalog.MemoryCollections()
	if mongoURI := os.Getenv("MONGODB_URI"); mongoURI != "" {
		ctx := context.Background()
		client, err := database.ConnectMongo(ctx, mongoURI, 10*time.Second)
		if err != nil {
			logger.Warnf("cannot connect to MongoDB (%v); using memory-backed collections", err)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			dbName := os.Getenv("MONGODB_DATABASE")
			if dbName == "" {
				dbName = "mealbox"
			}
			mc, err := catalog.MongoCollections(ctx, client.Database(dbName))
			if err != nil {
				logger.Warnf("MongoDB collections unavailable (%v); using memory", err)
			} else {
				cols = mc
			}
		}
	}

	api := r.Group("/api")
	cols.Register(api, nil)
	cols.RegisterUsers(api)

	logger.Infof("catalog service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
