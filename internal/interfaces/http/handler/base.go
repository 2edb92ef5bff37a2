package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/interfaces/http/dto"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// Accepted sends a 202 response for work that finished in the background
// or was queued
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.OK(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.Fail(dto.ErrorInfo{Code: dto.ErrCodeBadRequest, Message: message, RequestID: c.GetString("request_id")}))
}

// HandleError converts an error to the error envelope. The code decides
// the status; uncoded errors are logged by the request logger and hidden.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	status, info := dto.FromError(err)
	info.RequestID = c.GetString("request_id")
	c.JSON(status, dto.Fail(info))
}

// tenant returns the tenant set by the tenant middleware
func (h *BaseHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, dto.Fail(dto.ErrorInfo{Code: dto.ErrCodeTenantRequired, Message: "Tenant is not set", RequestID: c.GetString("request_id")}))
	}
	return id, ok
}

// pathUUID parses a UUID path parameter and answers 400 when it is malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and validates a request body
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.BadRequest(c, middleware.ValidationMessage(err))
		return false
	}
	return true
}

// actor names who triggered a manual operation
func actor(c *gin.Context) string {
	if a := c.GetHeader("X-Actor"); a != "" {
		return a
	}
	return "api"
}

// tenantAndID resolves the tenant and the :id path parameter
func (h *BaseHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := h.pathUUID(c, "id")
	return tenantID, id, ok
}
