package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenAPI serves a static OpenAPI 3 description of the proxy endpoints.
func (h *ProxyHandler) OpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, openAPIDocument)
}

var openAPIDocument = gin.H{
	"openapi": "3.0.3",
	"info": gin.H{
		"title":       "PokeAPI Proxy",
		"description": "Forwards GET requests to the PokeAPI and optionally prunes version- and language-tagged array elements from responses.",
		"version":     "1.0.0",
	},
	"paths": gin.H{
		"/": gin.H{
			"get": gin.H{
				"summary":     "Service description",
				"description": "Returns a short usage document with example proxy paths.",
				"responses": gin.H{
					"200": gin.H{
						"description": "Usage document",
						"content": gin.H{
							"application/json": gin.H{
								"schema": gin.H{"type": "object"},
							},
						},
					},
				},
			},
		},
		"/proxy/{pokeapi_path}": gin.H{
			"get": gin.H{
				"summary":     "Proxy a request to the PokeAPI",
				"description": "Forwards the request to the upstream API. Query parameters are passed through except for the reserved version and language parameters, which filter tagged array elements out of the response.",
				"parameters": []gin.H{
					{
						"name":        "pokeapi_path",
						"in":          "path",
						"required":    true,
						"description": "Path below the upstream API root, e.g. pokemon/pikachu.",
						"schema":      gin.H{"type": "string"},
					},
					{
						"name":        "version",
						"in":          "query",
						"required":    false,
						"description": "Keep only array elements tagged with this game version.",
						"schema":      gin.H{"type": "string"},
					},
					{
						"name":        "language",
						"in":          "query",
						"required":    false,
						"description": "Keep only array elements tagged with this language.",
						"schema":      gin.H{"type": "string"},
					},
				},
				"responses": gin.H{
					"200": gin.H{
						"description": "Upstream response, filtered when a reserved parameter was given",
						"content": gin.H{
							"application/json": gin.H{
								"schema": gin.H{"type": "object"},
							},
						},
					},
					"502": gin.H{
						"description": "Upstream unreachable or returned a malformed body",
					},
					"504": gin.H{
						"description": "Upstream request timed out",
					},
				},
			},
		},
	},
	"externalDocs": gin.H{
		"description": "PokeAPI documentation",
		"url":         "https://pokeapi.co/docs/v2",
	},
}
