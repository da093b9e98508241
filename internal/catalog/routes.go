package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/internal/repository"
	"github.com/mealbox/mealbox/pkg/logger"
)

// Routes exposes a Service as a REST collection.
type Routes[T repository.Entity] struct {
	Service *Service[T]
	New     func() T
	// Prepare, when set, runs on every decoded body before it is saved.
	Prepare func(c *gin.Context, v T)
}

// Register mounts:
//
//	GET    path          all records, ?limit&after for a page, ?prefix for a search
//	POST   path
//	GET    path/:id
//	PUT    path/:id
//	DELETE path/:id
func (r Routes[T]) Register(rg *gin.RouterGroup, path string) {
	rg.GET(path, r.list)
	rg.POST(path, r.create)
	rg.GET(path+"/:id", r.get)
	rg.PUT(path+"/:id", r.update)
	rg.DELETE(path+"/:id", r.delete)
}

func (r Routes[T]) list(c *gin.Context) {
	ctx := c.Request.Context()
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	if prefix, ok := c.GetQuery("prefix"); ok {
		out, err := r.Service.Search(ctx, prefix, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}
	after, hasAfter := c.GetQuery("after")
	if limit > 0 || hasAfter {
		page, err := r.Service.Page(ctx, repository.PageRequest{Limit: limit, After: after})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}
	out, err := r.Service.List(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []T{}
	}
	c.JSON(http.StatusOK, out)
}

func (r Routes[T]) create(c *gin.Context) {
	v := r.New()
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r.Prepare != nil {
		r.Prepare(c, v)
	}
	out, err := r.Service.Create(c.Request.Context(), v)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r Routes[T]) get(c *gin.Context) {
	v, err := r.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (r Routes[T]) update(c *gin.Context) {
	v := r.New()
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r.Prepare != nil {
		r.Prepare(c, v)
	}
	out, err := r.Service.Update(c.Request.Context(), c.Param("id"), v)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r Routes[T]) delete(c *gin.Context) {
	if err := r.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
