// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageResponse represents a simple message response (typed alternative to gin.H).
type MessageResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps a collection (typed alternative to gin.H).
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// Success responds with HTTP 200 OK status and the provided data.
func Success(c *gin.Context, data any) {
	if c == nil {
		return
	}
	c.JSON(http.StatusOK, data)
}

// NoContent responds with HTTP 204 No Content.
func NoContent(c *gin.Context) {
	if c == nil {
		return
	}
	c.Status(http.StatusNoContent)
}

// List responds with HTTP 200 and the items wrapped in a ListResponse.
func List[T any](c *gin.Context, items []T) {
	if c == nil {
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, ListResponse{Data: items, Total: len(items)})
}

// CreatedWithLocation responds with HTTP 201 Created and the new resource,
// setting the Location header per RFC 7231.
// The resourcePath should be the base path (e.g., "/api/v1/presets"), the ID will be appended.
func CreatedWithLocation(c *gin.Context, id any, resourcePath string, body any) {
	if c == nil {
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%v", resourcePath, id))
	c.JSON(http.StatusCreated, body)
}

// RFC 9457 Problem Details compatible error response functions.

// ProblemValidationError responds with HTTP 422 for input validation failures.
func ProblemValidationError(c *gin.Context, detail string, errors []ValidationError) {
	if c == nil {
		return
	}
	problem := NewValidationProblem(detail, c.Request.URL.Path, errors)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemNotFound responds with HTTP 404 Not Found.
func ProblemNotFound(c *gin.Context, resource string) {
	if c == nil {
		return
	}
	problem := NewNotFoundProblem(resource, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemAuthentication responds with HTTP 401 Unauthorized.
// Per RFC 7235, includes WWW-Authenticate header.
func ProblemAuthentication(c *gin.Context, detail string) {
	if c == nil {
		return
	}
	c.Header("WWW-Authenticate", `Session realm="Soundscape API"`)
	problem := NewAuthenticationProblem(detail, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemForbidden responds with HTTP 403 Forbidden.
func ProblemForbidden(c *gin.Context, detail string) {
	if c == nil {
		return
	}
	problem := NewAuthorizationProblem(detail, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemDuplicate responds with HTTP 409 Conflict for an existing resource.
func ProblemDuplicate(c *gin.Context, resource string) {
	if c == nil {
		return
	}
	problem := NewDuplicateProblem(resource, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemInternalServer responds with HTTP 500 Internal Server Error.
func ProblemInternalServer(c *gin.Context, detail string) {
	if c == nil {
		return
	}
	problem := NewInternalServerProblem(detail, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemBadRequest responds with HTTP 400 Bad Request.
func ProblemBadRequest(c *gin.Context, detail string) {
	if c == nil {
		return
	}
	problem := NewBadRequestProblem(detail, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemCustom responds with a custom problem type.
func ProblemCustom(c *gin.Context, problemType, title string, status int, detail string) {
	if c == nil {
		return
	}
	problem := NewProblemDetail(problemType, title, status, detail, c.Request.URL.Path)
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}

// ProblemExtended responds with an RFC 9457 problem including code and hint fields.
// This is used by handleServiceError for typed error responses.
func ProblemExtended(c *gin.Context, status int, detail, code, hint string) {
	if c == nil {
		return
	}
	problem := NewProblemDetail(
		"https://soundscape.api/problems/"+code,
		http.StatusText(status),
		status,
		detail,
		c.Request.URL.Path,
	)
	problem.Code = code
	problem.Hint = hint
	if traceID := getTraceID(c); traceID != "" {
		problem.WithTraceID(traceID)
	}
	SendProblem(c, problem)
}
