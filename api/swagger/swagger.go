package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Vapor Share API",
        "description": "Self-destructing file sharing with one-time access codes",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "CleanupToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Files", "description": "Upload, inspect and claim shared files"},
        {"name": "Notifications", "description": "Share notifications for registered recipients"},
        {"name": "Maintenance", "description": "Blob cleanup"}
    ],
    "paths": {
        "/upload": {
            "post": {
                "tags": ["Files"],
                "summary": "Upload a file and receive a one-time access code",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "recipientEmail", "in": "formData", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "Uploaded", "schema": {"$ref": "#/definitions/UploadResponse"}},
                    "400": {"description": "No file, file too large or invalid email", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Upload failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/retrieve": {
            "post": {
                "tags": ["Files"],
                "summary": "Look up the file behind an access code without consuming it",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RetrieveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Live file", "schema": {"$ref": "#/definitions/RetrieveResponse"}},
                    "400": {"description": "Access code missing", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "404": {"description": "Invalid, claimed or expired code", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "429": {"description": "Too many failed attempts", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            },
            "get": {
                "tags": ["Files"],
                "summary": "Claim a file and get redirected to it",
                "parameters": [
                    {"name": "code", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "302": {"description": "Redirect to the blob URL"},
                    "400": {"description": "Access code missing", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "404": {"description": "Invalid, claimed or expired code", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "429": {"description": "Too many failed attempts", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/cleanup": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Delete blobs of claimed or expired files",
                "security": [{"CleanupToken": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Sweep finished", "schema": {"$ref": "#/definitions/CleanupResponse"}},
                    "401": {"description": "Bad cleanup token", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications for the current user",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Newest first", "schema": {"$ref": "#/definitions/NotificationListResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Marked", "schema": {"$ref": "#/definitions/SuccessResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/blobs/{token}": {
            "get": {
                "tags": ["Files"],
                "summary": "Download a locally stored blob through a signed token",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Blob content"},
                    "404": {"description": "Unknown or expired token", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "FileMetadata": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "filename": {"type": "string"},
                "size": {"type": "integer"},
                "mimeType": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "UploadResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "accessCode": {"type": "string"},
                "filename": {"type": "string"},
                "size": {"type": "integer"},
                "fileId": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "RetrieveRequest": {
            "type": "object",
            "properties": {
                "accessCode": {"type": "string"}
            }
        },
        "RetrieveResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "file": {"$ref": "#/definitions/FileMetadata"}
            }
        },
        "CleanupResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "cleaned": {"type": "integer"},
                "deletedFromCloudinary": {"type": "integer"},
                "failed": {"type": "integer"},
                "durationMs": {"type": "integer"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "sender_email": {"type": "string"},
                "file_code": {"type": "string"},
                "filename": {"type": "string"},
                "read": {"type": "boolean"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "NotificationListResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "notifications": {"type": "array", "items": {"$ref": "#/definitions/Notification"}}
            }
        },
        "SuccessResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"}
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
