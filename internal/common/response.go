package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes a success JSON response. Extra fields are merged into the body
// next to "success": true.
func OK(c *gin.Context, body gin.H) {
	JSON(c, http.StatusOK, body)
}

// Created writes a 201 success response
func Created(c *gin.Context, body gin.H) {
	JSON(c, http.StatusCreated, body)
}

// JSON writes a success response with an explicit status code
func JSON(c *gin.Context, status int, body gin.H) {
	out := gin.H{"success": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(status, out)
}

// Error writes an error JSON response as {success:false, msg}
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "msg": msg})
}

// HandleError maps a service error to an HTTP status and writes the response
func HandleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrStatusNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrUpload):
		status = http.StatusBadGateway
	}
	Error(c, status, err.Error())
}
