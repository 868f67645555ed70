package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "llamachat/internal/httpapi/docs"
)

// swaggerEnabled toggles the /swagger UI.
var swaggerEnabled = true

// SetSwaggerEnabled turns the /swagger routes on or off.
func SetSwaggerEnabled(on bool) { swaggerEnabled = on }

// MountSwagger serves the registered OpenAPI document and its UI under /swagger.
func MountSwagger(r chi.Router) {
	if !swaggerEnabled {
		return
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
