package models

import (
	"time"

	"github.com/mealbox/mealbox/internal/schedule"
)

// Restaurant is a venue onboarded by a restaurant user.
type Restaurant struct {
	ID          string    `bson:"_id" json:"id"`
	OwnerUID    string    `bson:"ownerUid" json:"ownerUid"`
	Name        string    `bson:"name" json:"name" binding:"required"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Phone       string    `bson:"phone,omitempty" json:"phone,omitempty"`
	ImageURL    string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (r *Restaurant) GetID() string                        { return r.ID }
func (r *Restaurant) SetID(id string)                      { r.ID = id }
func (r *Restaurant) SearchKey() string                    { return r.Name }
func (r *Restaurant) Timestamps() (*time.Time, *time.Time) { return &r.CreatedAt, &r.UpdatedAt }

// MenuItem is a dish offered within a category. Prices are in minor units.
type MenuItem struct {
	Name       string `bson:"name" json:"name"`
	PriceCents int64  `bson:"priceCents" json:"priceCents"`
	ImageURL   string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Available  bool   `bson:"available" json:"available"`
}

// Category groups menu items of one restaurant.
type Category struct {
	ID           string     `bson:"_id" json:"id"`
	RestaurantID string     `bson:"restaurantId" json:"restaurantId"`
	Name         string     `bson:"name" json:"name" binding:"required"`
	ImageURL     string     `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Items        []MenuItem `bson:"items" json:"items"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (c *Category) GetID() string                        { return c.ID }
func (c *Category) SetID(id string)                      { c.ID = id }
func (c *Category) SearchKey() string                    { return c.Name }
func (c *Category) Timestamps() (*time.Time, *time.Time) { return &c.CreatedAt, &c.UpdatedAt }

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	Name       string `bson:"name" json:"name"`
	Quantity   int    `bson:"quantity" json:"quantity"`
	PriceCents int64  `bson:"priceCents" json:"priceCents"`
}

// Order is a cart checked out by a customer. Subscription orders carry a
// weekly plan and the next computed delivery slots.
type Order struct {
	ID           string         `bson:"_id" json:"id"`
	CustomerUID  string         `bson:"customerUid" json:"customerUid"`
	RestaurantID string         `bson:"restaurantId" json:"restaurantId"`
	Reference    string         `bson:"reference" json:"reference"`
	Items        []OrderItem    `bson:"items" json:"items"`
	TotalCents   int64          `bson:"totalCents" json:"totalCents"`
	Status       OrderStatus    `bson:"status" json:"status"`
	Subscription *schedule.Plan `bson:"subscription,omitempty" json:"subscription,omitempty"`
	Deliveries   []time.Time    `bson:"deliveries,omitempty" json:"deliveries,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt" json:"updatedAt"`
}

func (o *Order) GetID() string                        { return o.ID }
func (o *Order) SetID(id string)                      { o.ID = id }
func (o *Order) SearchKey() string                    { return o.Reference }
func (o *Order) Timestamps() (*time.Time, *time.Time) { return &o.CreatedAt, &o.UpdatedAt }
