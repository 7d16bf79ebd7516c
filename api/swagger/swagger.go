package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "College ERP API",
        "description": "Role-based portals for college administration, attendance and internal assessment",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Per-portal session endpoints"},
        {"name": "Admin", "description": "Catalog and account administration"},
        {"name": "Teacher", "description": "Teacher portal"},
        {"name": "Attendance", "description": "Per-class attendance ledger"},
        {"name": "Marks", "description": "Internal marks ledger"},
        {"name": "Student", "description": "Student portal"},
        {"name": "Office", "description": "Office staff portal"},
        {"name": "QuestionPapers", "description": "AI-assisted question paper drafting"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/admin/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Admin login",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/teacher/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for one class day",
                "responses": {
                    "200": {"description": "Ledger row written"},
                    "403": {"description": "Subject not assigned"},
                    "409": {"description": "Concurrent mark for the same day"}
                }
            },
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "parameters": [
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "division", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Records with entries"}
                }
            }
        },
        "/teacher/marks": {
            "post": {
                "tags": ["Marks"],
                "summary": "Record internal marks for a class",
                "responses": {
                    "200": {"description": "Saved and rejected entries reported"}
                }
            }
        },
        "/student/dashboard": {
            "get": {
                "tags": ["Student"],
                "summary": "Student dashboard rollup",
                "responses": {
                    "200": {"description": "Aggregated attendance and marks"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
