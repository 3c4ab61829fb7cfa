// Package response writes the {success,data,error} envelope every endpoint returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func send(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Error: msg})
}

// OK sends 200 with data.
func OK(c *gin.Context, data any) { send(c, http.StatusOK, data) }

// Created sends 201 with data.
func Created(c *gin.Context, data any) { send(c, http.StatusCreated, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400. Validation failures of the lifecycle land here.
func BadRequest(c *gin.Context, msg string) { fail(c, http.StatusBadRequest, msg) }

// Unauthorized sends 401 for a missing or invalid bearer token.
func Unauthorized(c *gin.Context, msg string) { fail(c, http.StatusUnauthorized, msg) }

// Forbidden sends 403: wrong registration secret, or a requester outside the event team.
func Forbidden(c *gin.Context, msg string) { fail(c, http.StatusForbidden, msg) }

func NotFound(c *gin.Context, msg string) { fail(c, http.StatusNotFound, msg) }

// Conflict sends 409 for a transition the status table does not allow.
func Conflict(c *gin.Context, msg string) { fail(c, http.StatusConflict, msg) }

func ServiceUnavailable(c *gin.Context, msg string) { fail(c, http.StatusServiceUnavailable, msg) }

// Internal sends 500. msg should not carry the underlying error.
func Internal(c *gin.Context, msg string) { fail(c, http.StatusInternalServerError, msg) }
