// Package swagger registers the OpenAPI document served at /swagger.
// Regenerate from the handler annotations with:
//
//	swag init -g cmd/api/main.go -o api/swagger
package swagger

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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.LoginUserRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "429": {"description": "Too Many Requests"}}
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "List orders",
                "parameters": [
                    {"type": "integer", "name": "customer_id", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Create order",
                "description": "Numbers the order PED-YYYYMMDD-NNN and takes its quantities out of stock atomically",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.CreateOrderRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Insufficient stock"}}
            }
        },
        "/orders/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Change order status",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.ChangeOrderStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/orders/day-summary": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Orders of a day grouped by customer",
                "parameters": [{"type": "string", "name": "date", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/returns": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["returns"],
                "summary": "Register a return",
                "description": "Numbers the return DEV-YYYYMMDD-NNN and puts the returned goods back into stock",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.CreateReturnRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/products/{id}/adjust-stock": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Adjust stock manually",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.AdjustStockRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Insufficient stock"}}
            }
        }
    },
    "definitions": {
        "service.LoginUserRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "service.OrderLineInput": {
            "type": "object",
            "required": ["product_id"],
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "number"}, "unit_price": {"type": "number"}}
        },
        "service.CreateOrderRequest": {
            "type": "object",
            "required": ["customer_id", "lines"],
            "properties": {
                "customer_id": {"type": "integer"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/service.OrderLineInput"}},
                "discount": {"type": "number"},
                "notes": {"type": "string"},
                "delivery_date": {"type": "string"}
            }
        },
        "service.ChangeOrderStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "enum": ["pending", "delivered", "cancelled"]}}
        },
        "service.ReturnLineInput": {
            "type": "object",
            "required": ["product_id"],
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "number"}, "replacement_product_id": {"type": "integer"}, "note": {"type": "string"}}
        },
        "service.CreateReturnRequest": {
            "type": "object",
            "required": ["customer_id", "reason", "lines"],
            "properties": {
                "customer_id": {"type": "integer"},
                "origin_order_id": {"type": "integer"},
                "reason": {"type": "string", "enum": ["expired", "bad_condition", "delivery_error", "other"]},
                "reason_detail": {"type": "string"},
                "notes": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/service.ReturnLineInput"}}
            }
        },
        "service.AdjustStockRequest": {
            "type": "object",
            "required": ["operation", "quantity"],
            "properties": {"operation": {"type": "string", "enum": ["add", "subtract"]}, "quantity": {"type": "integer"}, "reason": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Distribuidora API",
	Description:      "Orders, returns and stock for a beverage and grocery distributor.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
