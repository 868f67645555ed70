// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/complete": {
            "post": {
                "summary": "Generate one assistant reply for a conversation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CompleteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Model not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Hook failure", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Too busy", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Generation failure", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Model load failure", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/complete/stream": {
            "post": {
                "summary": "Stream partial replies for a raw instruction as NDJSON",
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteRequest"}}],
                "responses": {
                    "200": {"description": "One StreamEvent per line", "schema": {"$ref": "#/definitions/StreamEvent"}}
                }
            }
        },
        "/models": {
            "get": {
                "summary": "List registered models",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ModelsResponse"}}}
            }
        },
        "/models/{id}/preload": {
            "post": {
                "summary": "Load a model in the background",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"202": {"description": "Accepted"}, "404": {"description": "Model not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/models/{id}": {
            "delete": {
                "summary": "Drain and unload a resident model",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Unloaded"}, "404": {"description": "Not resident", "schema": {"$ref": "#/definitions/ErrorResponse"}}, "429": {"description": "Drain timed out", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/status": {
            "get": {
                "summary": "Engine status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/healthz": {"get": {"summary": "Liveness", "responses": {"200": {"description": "ok"}}}},
        "/readyz": {"get": {"summary": "Readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "loading"}}}}
    },
    "definitions": {
        "ConversationTurn": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["System", "User", "Assistant", "Function"], "example": "User"},
                "content": {"type": "string", "example": "Hello"}
            }
        },
        "CompleteRequest": {
            "type": "object",
            "properties": {
                "agent_id": {"type": "string", "example": "support-bot"},
                "instruction": {"type": "string", "example": "You are helpful."},
                "model": {"type": "string", "example": "tinyllama-q4.gguf"},
                "conversation_id": {"type": "string", "example": "conv-42"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/ConversationTurn"}}
            }
        },
        "GeneratedMessage": {
            "type": "object",
            "properties": {
                "message_id": {"type": "string"},
                "role": {"type": "string", "example": "Assistant"},
                "content": {"type": "string"},
                "source_agent_id": {"type": "string"},
                "rendered_instruction": {"type": "string"},
                "model": {"type": "string"},
                "partial": {"type": "boolean"}
            }
        },
        "CompleteResponse": {
            "type": "object",
            "properties": {
                "message": {"$ref": "#/definitions/GeneratedMessage"},
                "hook_error": {"type": "string"}
            }
        },
        "StreamEvent": {
            "type": "object",
            "properties": {
                "message": {"$ref": "#/definitions/GeneratedMessage"},
                "done": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "quant": {"type": "string"},
                "family": {"type": "string"},
                "size_mb": {"type": "integer"}
            }
        },
        "ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/Model"}}}
        },
        "InstanceStatus": {
            "type": "object",
            "properties": {
                "model_id": {"type": "string"},
                "state": {"type": "string"},
                "last_used_unix": {"type": "integer"},
                "est_vram_mb": {"type": "integer"},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"},
                "max_queue_depth": {"type": "integer"}
            }
        },
        "StatusResponse": {
            "type": "object",
            "properties": {
                "instances": {"type": "array", "items": {"$ref": "#/definitions/InstanceStatus"}},
                "budget_mb": {"type": "integer"},
                "used_est_mb": {"type": "integer"},
                "margin_mb": {"type": "integer"},
                "error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "evictions_total": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "state": {"type": "string"},
                "single_resident": {"type": "boolean"},
                "load_errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llamachat API",
	Description:      "Completion orchestration over a local llama.cpp engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
