package http

import (
	_ "embed"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	swaggerOnce sync.Once
	swagger     *openapi3.T
	swaggerErr  error
)

// GetSwagger returns the parsed OpenAPI document served at /openapi.yaml.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		swagger, swaggerErr = openapi3.NewLoader().LoadFromData(rawSpec)
	})
	return swagger, swaggerErr
}
