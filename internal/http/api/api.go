package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the error half of every handler result. It renders as
// {"error": Message} with status Code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func BadRequest(msg string) *APIError { return &APIError{Code: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *APIError   { return &APIError{Code: http.StatusNotFound, Message: msg} }
func Internal(msg string) *APIError   { return &APIError{Code: http.StatusInternalServerError, Message: msg} }

// Unprocessable carries a validation error message to the client.
func Unprocessable(err error) *APIError {
	return &APIError{Code: http.StatusUnprocessableEntity, Message: err.Error()}
}

// Created wraps a result that should be answered with 201.
type Created struct{ Body any }

type HandlerFunc func(ctx *gin.Context) (any, *APIError)

// Controller is the router group a Module mounts its endpoints on. Its verb
// methods take HandlerFuncs and wrap them with ResolveEndpoint.
type Controller struct {
	Group *gin.RouterGroup
}

func (c *Controller) GET(path string, h HandlerFunc)    { c.Group.GET(path, ResolveEndpoint(h)) }
func (c *Controller) POST(path string, h HandlerFunc)   { c.Group.POST(path, ResolveEndpoint(h)) }
func (c *Controller) PUT(path string, h HandlerFunc)    { c.Group.PUT(path, ResolveEndpoint(h)) }
func (c *Controller) PATCH(path string, h HandlerFunc)  { c.Group.PATCH(path, ResolveEndpoint(h)) }
func (c *Controller) DELETE(path string, h HandlerFunc) { c.Group.DELETE(path, ResolveEndpoint(h)) }

// Raw mounts a plain gin handler, for endpoints that take over the connection.
func (c *Controller) Raw(method, path string, h gin.HandlerFunc) { c.Group.Handle(method, path, h) }

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}

		switch r := result.(type) {
		case Created:
			ctx.JSON(http.StatusCreated, r.Body)
		case nil:
			ctx.Status(http.StatusNoContent)
		default:
			ctx.JSON(http.StatusOK, result)
		}
	}
}
