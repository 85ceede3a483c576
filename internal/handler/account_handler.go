package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/pkg/response"
	"github.com/xxxsen/anonmsg/internal/pkg/validate"
	"github.com/xxxsen/anonmsg/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type acceptMessagesRequest struct {
	IsAcceptingMessages *bool `json:"isAcceptingMessages" binding:"required"`
}

func (h *AccountHandler) GetAccepting(c *gin.Context) {
	accepting, err := h.accounts.GetAccepting(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User found", gin.H{"isAcceptingMessages": accepting})
}

func (h *AccountHandler) SetAccepting(c *gin.Context) {
	var req acceptMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validate.FromBinding(err, ""))
		return
	}
	account, err := h.accounts.SetAccepting(c.Request.Context(), getUserID(c), *req.IsAcceptingMessages)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Message accepting status updated", gin.H{"updatedUser": account.View()})
}

func (h *AccountHandler) PublicProfile(c *gin.Context) {
	profile, err := h.accounts.PublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User found", gin.H{
		"username":            profile.Username,
		"isAcceptingMessages": profile.IsAcceptingMessages,
	})
}
