package handler

import (
	"errors"
	"net/http"

	"distribuidora/internal/config"
	"distribuidora/internal/service"
	"distribuidora/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// stockShortfall is the details payload of a 409 insufficient stock response.
type stockShortfall struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// respondError renders a service error with the status matching its kind.
// Errors of no known kind are logged and answered with 500.
func respondError(c *gin.Context, funcName string, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusConflict, response.ErrorWithDetails(http.StatusConflict, err.Error(), stockShortfall{
			ProductID:   stockErr.ProductID,
			ProductName: stockErr.ProductName,
			Available:   stockErr.Available,
			Requested:   stockErr.Requested,
		}))
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handler", funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		c.JSON(status, response.Error(status, "Internal server error"))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrIntegrityConflict),
		errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondBindError answers 400 for a payload that failed to decode or validate.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
		}
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(http.StatusBadRequest, "Invalid request payload", fields))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
