package api

import _ "embed"

// openapiYAML is the API description served at /api/openapi.yaml and
// rendered by the swagger UI.
//
//go:embed openapi.yaml
var openapiYAML []byte
