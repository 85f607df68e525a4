// Package validators builds the request validator used by the API handlers.
package validators

import (
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/fdk/resource-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// MinTTLHours is the smallest automatic refresh interval; 0 disables refresh.
const MinTTLHours = 3

var (
	once     sync.Once
	validate *validator.Validate
)

// New returns the shared validator with the API's custom tags registered:
//
//	ttl_hours      0, or greater than MinTTLHours
//	https_url      absolute https URL with a host
//	resource_type  a known resource type name, any case
func New() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("ttl_hours", func(fl validator.FieldLevel) bool {
			h := fl.Field().Int()
			return h == 0 || h > MinTTLHours
		})
		_ = v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
			u, err := url.Parse(fl.Field().String())
			return err == nil && u.Scheme == "https" && u.Host != ""
		})
		_ = v.RegisterValidation("resource_type", func(fl validator.FieldLevel) bool {
			_, err := models.ParseResourceType(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}
