package catalog

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collections are the document-store collections of the platform.
type Collections struct {
	Users       repository.Repository[*models.User]
	Restaurants repository.Repository[*models.Restaurant]
	Categories  repository.Repository[*models.Category]
	Orders      repository.Repository[*models.Order]
}

func MemoryCollections() *Collections {
	return &Collections{
		Users:       repository.NewMemoryRepo[*models.User](),
		Restaurants: repository.NewMemoryRepo[*models.Restaurant](),
		Categories:  repository.NewMemoryRepo[*models.Category](),
		Orders:      repository.NewMemoryRepo[*models.Order](),
	}
}

// MongoCollections binds the collections to db and ensures their search indexes.
func MongoCollections(ctx context.Context, db *mongo.Database) (*Collections, error) {
	users := repository.NewMongoRepo(db.Collection("users"), "name", func() *models.User { return &models.User{} })
	restaurants := repository.NewMongoRepo(db.Collection("restaurants"), "name", func() *models.Restaurant { return &models.Restaurant{} })
	categories := repository.NewMongoRepo(db.Collection("categories"), "name", func() *models.Category { return &models.Category{} })
	orders := repository.NewMongoRepo(db.Collection("orders"), "reference", func() *models.Order { return &models.Order{} })
	for name, ix := range map[string]interface{ EnsureIndexes(context.Context) error }{
		"users": users, "restaurants": restaurants, "categories": categories, "orders": orders,
	} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	return &Collections{Users: users, Restaurants: restaurants, Categories: categories, Orders: orders}, nil
}

// Register mounts the restaurant, category and order collections. owner, when
// set, names the signed-in user; new restaurants and orders are attributed to it.
func (cs *Collections) Register(rg *gin.RouterGroup, owner func(c *gin.Context) string) {
	Routes[*models.Restaurant]{
		Service: NewService[*models.Restaurant](cs.Restaurants, ValidateRestaurant),
		New:     func() *models.Restaurant { return &models.Restaurant{} },
		Prepare: func(c *gin.Context, r *models.Restaurant) {
			if r.OwnerUID == "" && owner != nil {
				r.OwnerUID = owner(c)
			}
		},
	}.Register(rg, "/restaurants")

	Routes[*models.Category]{
		Service: NewService[*models.Category](cs.Categories, ValidateCategory),
		New:     func() *models.Category { return &models.Category{} },
	}.Register(rg, "/categories")

	Routes[*models.Order]{
		Service: NewService[*models.Order](cs.Orders, OrderHook(nil)),
		New:     func() *models.Order { return &models.Order{} },
		Prepare: func(c *gin.Context, o *models.Order) {
			if o.CustomerUID == "" && owner != nil {
				o.CustomerUID = owner(c)
			}
		},
	}.Register(rg, "/orders")
}

// RegisterUsers mounts the users collection.
func (cs *Collections) RegisterUsers(rg *gin.RouterGroup) {
	Routes[*models.User]{
		Service: NewService[*models.User](cs.Users, nil),
		New:     func() *models.User { return &models.User{} },
	}.Register(rg, "/users")
}
