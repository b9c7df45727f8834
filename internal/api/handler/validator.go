package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"share-worker/backend/internal/wage"
)

// RegisterValidators 注册自定义校验规则，需在路由初始化前调用
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := wage.ParseClock(fl.Field().String())
		return err == nil
	})
}
