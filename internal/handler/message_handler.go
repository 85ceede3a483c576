package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/pkg/response"
	"github.com/xxxsen/anonmsg/internal/pkg/validate"
	"github.com/xxxsen/anonmsg/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type sendMessageRequest struct {
	Username string `json:"username" binding:"required"`
	Content  string `json:"content"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validate.FromBinding(err, ""))
		return
	}
	if _, err := h.messages.Send(c.Request.Context(), req.Username, req.Content); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Message sent successfully", nil)
}

func (h *MessageHandler) List(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User found", gin.H{"messages": msgs})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), getUserID(c), c.Param("messageid")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Message deleted", nil)
}
