// Package docs embeds the OpenAPI document served under /swagger.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed swagger.json
var SwaggerJSON []byte

func Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(SwaggerJSON)
}
