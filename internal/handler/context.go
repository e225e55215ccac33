package handler

import (
	"net/http"
	"strconv"
	"time"

	"distribuidora/internal/middleware"
	"distribuidora/internal/model"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/pkg/pagination"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
)

// actorFrom reads the identity RequireRole stored on the context.
func actorFrom(c *gin.Context) service.Actor {
	var actor service.Actor
	if v, ok := c.Get(middleware.ContextUserID); ok {
		actor.UserID, _ = v.(uint)
	}
	if v, ok := c.Get(middleware.ContextUserRole); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}

// idParam parses a positive numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return 0, false
	}
	return uint(id), true
}

// optionalUintQuery returns nil when the query parameter is absent.
func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// optionalBoolQuery returns nil when the query parameter is absent.
func optionalBoolQuery(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return nil, false
	}
	return &v, true
}

func toPage(p pagination.Params) repository.Page {
	return repository.Page{Page: p.Page, Limit: p.Limit}
}

func paged[T any](c *gin.Context, items []T, total int64, p pagination.Params) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewResult(items, total, p)))
}

// dateRangeQuery reads the from/to (YYYY-MM-DD, both inclusive) query parameters.
func dateRangeQuery(c *gin.Context, loc *time.Location) (model.DateRange, bool) {
	from, to, err := service.DateRangeFromStrings(c.Query("from"), c.Query("to"), loc)
	if err != nil {
		respondError(c, "dateRangeQuery", err)
		return model.DateRange{}, false
	}
	return model.DateRange{From: from, To: to}, true
}
