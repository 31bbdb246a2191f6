package controllers

import (
	"civicconnect-be/directory"
	"civicconnect-be/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the domain tags used in request bindings:
// category, status and priority.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	tags := map[string]validator.Func{
		"category": func(fl validator.FieldLevel) bool {
			return directory.ValidCategory(models.IssueCategory(fl.Field().String()))
		},
		"status": func(fl validator.FieldLevel) bool {
			_, ok := models.ParseStatus(fl.Field().String())
			return ok
		},
		"priority": func(fl validator.FieldLevel) bool {
			_, ok := models.ParsePriority(fl.Field().String())
			return ok
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
