package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/repository"
	"github.com/mealbox/mealbox/internal/schedule"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC) } // a Monday

func TestOrderHook_TotalsStatusReference(t *testing.T) {
	ctx := context.Background()
	svc := NewService[*models.Order](repository.NewMemoryRepo[*models.Order](), OrderHook(fixedNow))

	o, err := svc.Create(ctx, &models.Order{
		RestaurantID: "r1",
		CustomerUID:  "abc123",
		Items: []models.OrderItem{
			{Name: "Feijoada", Quantity: 2, PriceCents: 1850},
			{Name: "Guaraná", Quantity: 1, PriceCents: 500},
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, 4200, o.TotalCents)
	require.Equal(t, models.OrderPending, o.Status)
	require.True(t, strings.HasPrefix(o.Reference, "ORD-20240304-"), o.Reference)
	require.Empty(t, o.Deliveries)

	// update keeps reference and customer, recomputes the total
	upd, err := svc.Update(ctx, o.ID, &models.Order{
		RestaurantID: "r1",
		Status:       models.OrderConfirmed,
		Items:        []models.OrderItem{{Name: "Feijoada", Quantity: 1, PriceCents: 1850}},
	})
	require.NoError(t, err)
	require.Equal(t, o.Reference, upd.Reference)
	require.Equal(t, "abc123", upd.CustomerUID)
	require.EqualValues(t, 1850, upd.TotalCents)
	require.Equal(t, models.OrderConfirmed, upd.Status)
}

func TestOrderHook_Subscription(t *testing.T) {
	hook := OrderHook(fixedNow)
	o := &models.Order{
		RestaurantID: "r1",
		Items:        []models.OrderItem{{Name: "Marmita", Quantity: 1, PriceCents: 2500}},
		Subscription: &schedule.Plan{
			Weekdays: []time.Weekday{time.Monday, time.Thursday},
			Hour:     12,
			Start:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, hook(context.Background(), o, nil, true))
	require.Len(t, o.Deliveries, UpcomingDeliveries)
	require.Equal(t, time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC), o.Deliveries[0])
	require.Equal(t, time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC), o.Deliveries[1])

	o.Subscription.Weekdays = nil
	require.ErrorIs(t, hook(context.Background(), o, nil, true), ErrInvalid)
}

func TestOrderHook_Rejects(t *testing.T) {
	hook := OrderHook(fixedNow)
	item := models.OrderItem{Name: "x", Quantity: 1, PriceCents: 1}
	cases := map[string]*models.Order{
		"no restaurant":  {Items: []models.OrderItem{item}},
		"no items":       {RestaurantID: "r1"},
		"zero quantity":  {RestaurantID: "r1", Items: []models.OrderItem{{Name: "x", PriceCents: 1}}},
		"negative price": {RestaurantID: "r1", Items: []models.OrderItem{{Name: "x", Quantity: 1, PriceCents: -1}}},
		"bad status":     {RestaurantID: "r1", Items: []models.OrderItem{item}, Status: "lost"},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, hook(context.Background(), o, nil, true), ErrInvalid)
		})
	}
}

func TestValidateCategoryAndRestaurant(t *testing.T) {
	ctx := context.Background()
	c := &models.Category{Name: " Pratos ", RestaurantID: "r1"}
	require.NoError(t, ValidateCategory(ctx, c, nil, true))
	require.Equal(t, "Pratos", c.Name)
	require.NotNil(t, c.Items)
	require.ErrorIs(t, ValidateCategory(ctx, &models.Category{Name: "x"}, nil, true), ErrInvalid)
	require.ErrorIs(t, ValidateCategory(ctx, &models.Category{Name: "x", RestaurantID: "r1", Items: []models.MenuItem{{Name: "a", PriceCents: -5}}}, nil, true), ErrInvalid)

	r := &models.Restaurant{Name: "Casa Ana"}
	require.NoError(t, ValidateRestaurant(ctx, r, &models.Restaurant{OwnerUID: "abc123"}, false))
	require.Equal(t, "abc123", r.OwnerUID)
	require.ErrorIs(t, ValidateRestaurant(ctx, &models.Restaurant{Name: "  "}, nil, true), ErrInvalid)
}
