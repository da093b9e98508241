package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restaurantRouter() *gin.Engine {
	g := gin.New()
	Routes[*models.Restaurant]{
		Service: NewService[*models.Restaurant](repository.NewMemoryRepo[*models.Restaurant](), ValidateRestaurant),
		New:     func() *models.Restaurant { return &models.Restaurant{} },
		Prepare: func(c *gin.Context, r *models.Restaurant) {
			if r.OwnerUID == "" {
				r.OwnerUID = "owner-1"
			}
		},
	}.Register(g.Group("/api"), "/restaurants")
	return g
}

func do(g *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func TestRestaurantCRUD(t *testing.T) {
	g := restaurantRouter()

	// CREATE
	w := do(g, http.MethodPost, "/api/restaurants", `{"name":"Casa Ana","address":"Rua A, 1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Restaurant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "owner-1", created.OwnerUID)
	assert.False(t, created.CreatedAt.IsZero())

	// GET
	w = do(g, http.MethodGet, "/api/restaurants/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// PUT
	w = do(g, http.MethodPut, "/api/restaurants/"+created.ID, `{"name":"Casa Ana II"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Restaurant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Casa Ana II", updated.Name)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	// LIST
	w = do(g, http.MethodGet, "/api/restaurants", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Restaurant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// DELETE
	w = do(g, http.MethodDelete, "/api/restaurants/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(g, http.MethodGet, "/api/restaurants/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(g, http.MethodDelete, "/api/restaurants/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestaurantValidation(t *testing.T) {
	g := restaurantRouter()
	w := do(g, http.MethodPost, "/api/restaurants", `{"address":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(g, http.MethodPost, "/api/restaurants", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(g, http.MethodPut, "/api/restaurants/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(g, http.MethodGet, "/api/restaurants?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestaurantPageAndSearch(t *testing.T) {
	g := restaurantRouter()
	for _, n := range []string{"Pizza Roma", "pizzaria Sol", "Sushi Bar", "Pão Quente", "Burger Co"} {
		w := do(g, http.MethodPost, "/api/restaurants", fmt.Sprintf(`{"name":%q}`, n))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(g, http.MethodGet, "/api/restaurants?prefix=PIZZ", "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []models.Restaurant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found, 2)

	seen := map[string]bool{}
	after := ""
	for pages := 0; pages < 5; pages++ {
		w = do(g, http.MethodGet, "/api/restaurants?limit=2&after="+after, "")
		require.Equal(t, http.StatusOK, w.Code)
		var page repository.Page[*models.Restaurant]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		require.LessOrEqual(t, len(page.Items), 2)
		for _, r := range page.Items {
			require.False(t, seen[r.ID], "no record repeats across pages")
			seen[r.ID] = true
		}
		if page.Next == "" {
			break
		}
		after = page.Next
	}
	require.Len(t, seen, 5)
}

func TestOrdersRoute(t *testing.T) {
	g := gin.New()
	Routes[*models.Order]{
		Service: NewService[*models.Order](repository.NewMemoryRepo[*models.Order](), OrderHook(fixedNow)),
		New:     func() *models.Order { return &models.Order{} },
	}.Register(g.Group("/api"), "/orders")

	w := do(g, http.MethodPost, "/api/orders", `{"restaurantId":"r1","items":[{"name":"Marmita","quantity":3,"priceCents":2000}],"subscription":{"weekdays":[1,3,5],"hour":12,"minute":30,"start":"2024-03-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var o models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.EqualValues(t, 6000, o.TotalCents)
	assert.Len(t, o.Deliveries, UpcomingDeliveries)

	w = do(g, http.MethodPost, "/api/orders", `{"restaurantId":"r1","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodGet, "/api/orders?prefix=ord-2024", "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Len(t, found, 1)
}
