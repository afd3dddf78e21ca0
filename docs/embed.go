package docs

import _ "embed"

//go:embed botify.openapi.yaml
var embeddedOpenAPI []byte

//go:embed swagger.html
var embeddedSwaggerHTML []byte

// BotifyOpenAPI is the OpenAPI document served at /docs/openapi.yaml.
var BotifyOpenAPI = embeddedOpenAPI

// BotifySwaggerHTML is the Swagger UI page served at /docs.
var BotifySwaggerHTML = embeddedSwaggerHTML
