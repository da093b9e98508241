package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/mealbox/mealbox/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UpcomingDeliveries is how many subscription slots an order carries.
const UpcomingDeliveries = 4

func ValidateRestaurant(ctx context.Context, r *models.Restaurant, prev *models.Restaurant, isNew bool) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return invalid("restaurant name is required")
	}
	if prev != nil && r.OwnerUID == "" {
		r.OwnerUID = prev.OwnerUID
	}
	return nil
}

func ValidateCategory(ctx context.Context, c *models.Category, prev *models.Category, isNew bool) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("category name is required")
	}
	if c.RestaurantID == "" {
		return invalid("category needs a restaurantId")
	}
	for i, it := range c.Items {
		if strings.TrimSpace(it.Name) == "" {
			return invalid("item %d has no name", i)
		}
		if it.PriceCents < 0 {
			return invalid("item %q has a negative price", it.Name)
		}
	}
	if c.Items == nil {
		c.Items = []models.MenuItem{}
	}
	return nil
}

// OrderHook validates line items, derives the total, reference and status,
// and computes the upcoming deliveries of a subscription order.
func OrderHook(now func() time.Time) func(ctx context.Context, o *models.Order, prev *models.Order, isNew bool) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, o *models.Order, prev *models.Order, isNew bool) error {
		if o.RestaurantID == "" {
			return invalid("order needs a restaurantId")
		}
		if len(o.Items) == 0 {
			return invalid("order has no items")
		}
		var total int64
		for i, it := range o.Items {
			if strings.TrimSpace(it.Name) == "" {
				return invalid("item %d has no name", i)
			}
			if it.Quantity <= 0 {
				return invalid("item %q needs a positive quantity", it.Name)
			}
			if it.PriceCents < 0 {
				return invalid("item %q has a negative price", it.Name)
			}
			total += int64(it.Quantity) * it.PriceCents
		}
		o.TotalCents = total

		switch o.Status {
		case "":
			o.Status = models.OrderPending
			if prev != nil {
				o.Status = prev.Status
			}
		case models.OrderPending, models.OrderConfirmed, models.OrderDelivered, models.OrderCancelled:
		default:
			return invalid("unknown order status %q", o.Status)
		}

		t := now()
		switch {
		case prev != nil:
			o.Reference = prev.Reference
			if o.CustomerUID == "" {
				o.CustomerUID = prev.CustomerUID
			}
		case o.Reference == "":
			o.Reference = reference(t)
		}

		o.Deliveries = nil
		if o.Subscription != nil {
			if err := o.Subscription.Validate(); err != nil {
				return invalid("%v", err)
			}
			o.Deliveries = o.Subscription.Next(t, UpcomingDeliveries)
		}
		return nil
	}
}

// reference is a short human-readable order number.
func reference(t time.Time) string {
	id := primitive.NewObjectIDFromTimestamp(t).Hex()
	return "ORD-" + t.UTC().Format("20060102") + "-" + strings.ToUpper(id[len(id)-6:])
}
