// Package docs registers the tokengate OpenAPI document with swag so that
// /swagger/* can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/token": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue a token",
                "parameters": [
                    {"type": "string", "description": "Basic base64(username:password)", "name": "Authorization", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/verify": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify a token",
                "parameters": [
                    {"type": "string", "description": "Bearer token", "name": "Authorization", "in": "header", "required": true},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Required roles", "name": "role", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.verifyResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/users": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create a user",
                "parameters": [
                    {"description": "User details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/users/{username}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a user",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/users/{username}/active": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Activate or deactivate a user",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true},
                    {"description": "Activation flag", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.setActiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.activeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "applicationType": {"type": "string"},
                "username": {"type": "string"},
                "isActive": {"type": "boolean"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "handler.tokenResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "token": {"type": "string"},
                "expiresAt": {"type": "integer"}
            }
        },
        "handler.verifyResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "expiresAt": {"type": "integer"}
            }
        },
        "handler.createUserRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string", "maxLength": 128},
                "password": {"type": "string", "minLength": 8, "maxLength": 72},
                "roles": {"type": "array", "items": {"type": "string"}},
                "isActive": {"type": "boolean"}
            }
        },
        "handler.setActiveRequest": {
            "type": "object",
            "required": ["isActive"],
            "properties": {
                "isActive": {"type": "boolean"}
            }
        },
        "handler.activeResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "isActive": {"type": "boolean"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "tokengate API",
	Description:      "Token issuance, verification and user provisioning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
