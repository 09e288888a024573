// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/main.go
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
        "/api/v1/notifications": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "List my notifications",
                "parameters": [
                    {"type": "integer", "description": "Max items (default 20, max 100)", "name": "limit", "in": "query"},
                    {"type": "boolean", "description": "Include already read items (default true)", "name": "include_read", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/unread-count": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Unread notification count",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/{id}/read": {
            "put": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Mark one notification read",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/notifications/read-all": {
            "put": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Mark every visible notification read",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/preferences": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "My push preferences",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Update my push preferences",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/notifications/stream": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["Notifications"],
                "summary": "Live notification stream (SSE)",
                "parameters": [
                    {"type": "string", "name": "connectionId", "in": "query"},
                    {"type": "string", "name": "token", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/ws": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Live notification stream (WebSocket)",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/push/vapid-key": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Push"],
                "summary": "Web Push public key",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/push/subscribe": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Push"],
                "summary": "Register a push subscription for the caller",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            },
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Push"],
                "summary": "Remove a push subscription",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/admin/notifications": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Raise a notification (admin)",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/admin/notifications/retention": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Notifications"],
                "summary": "Delete notifications older than N days (admin)",
                "parameters": [{"type": "integer", "name": "days", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/admin/notifications/report": {
            "get": {
                "produces": ["application/json", "text/csv", "application/pdf"],
                "tags": ["Reports"],
                "summary": "Notification read-receipt report (admin)",
                "parameters": [
                    {"type": "string", "name": "date_range", "in": "query"},
                    {"type": "string", "name": "start_date", "in": "query"},
                    {"type": "string", "name": "end_date", "in": "query"},
                    {"type": "string", "name": "type", "in": "query"},
                    {"type": "string", "name": "format", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/admin/users/{id}/status": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Change a user's account status (admin)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/admin/audit-logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["AuditLog"],
                "summary": "Get audit logs",
                "responses": {"200": {"description": "OK"}}
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
	Title:            "Church Notification API",
	Description:      "Real-time notifications, push delivery and read tracking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
