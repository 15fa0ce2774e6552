package utils

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oszuidwest/zwfm-soundscape/internal/models"
)

var validatorsOnce sync.Once

// InitializeValidators registers the custom binding tags and reports JSON
// field names in validation errors. It panics if registration fails.
func InitializeValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)

		if err := v.RegisterValidation("notblank", notBlankValidator); err != nil {
			panic(fmt.Sprintf("Failed to register notblank validator: %v", err))
		}
		if err := v.RegisterValidation("slot", slotValidator); err != nil {
			panic(fmt.Sprintf("Failed to register slot validator: %v", err))
		}
	})
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// notBlankValidator rejects empty and whitespace-only strings.
func notBlankValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// slotValidator accepts only slots of the mixer topology.
func slotValidator(fl validator.FieldLevel) bool {
	return models.SlotID(fl.Field().String()).IsValid()
}
