package handler

import (
	"sync"

	"distribuidora/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain tags used in request binding:
// bo_mobile (Bolivian mobile number), unit (unit of measure) and return_reason.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("bo_mobile", func(fl validator.FieldLevel) bool {
			return model.IsValidMobile(fl.Field().String())
		})
		_ = v.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
			return model.IsValidUnit(fl.Field().String())
		})
		_ = v.RegisterValidation("return_reason", func(fl validator.FieldLevel) bool {
			return model.IsValidReturnReason(fl.Field().String())
		})
	})
}
