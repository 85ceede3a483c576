package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/middleware"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/pkg/response"
	"github.com/xxxsen/anonmsg/internal/pkg/validate"
	"github.com/xxxsen/anonmsg/internal/service"
)

type AuthHandler struct {
	auth         *service.AuthService
	verifier     *service.VerificationService
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, verifier *service.VerificationService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, verifier: verifier, cookieSecure: cookieSecure}
}

type signUpRequest struct {
	Username string `json:"username" binding:"required,min=2,max=20,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type verifyCodeRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
}

type signInRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validate.FromBinding(err, ""))
		return
	}
	if _, err := h.auth.SignUp(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, appErr.ErrUpstream) {
			logFailure(c, err)
			response.Fail(c, http.StatusInternalServerError, userMessage(err, "Error registering user"), nil)
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "User registered successfully. Please verify your email", nil)
}

func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validate.FromBinding(err, ""))
		return
	}
	if err := h.verifier.Verify(c.Request.Context(), req.Username, req.Code); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User verified successfully", nil)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validate.FromBinding(err, ""))
		return
	}
	sess, err := h.auth.SignIn(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	maxAge := int(time.Until(sess.Claims.ExpiresAt.Time).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, sess.Token, maxAge, "/", "", h.cookieSecure, true)
	response.Success(c, http.StatusOK, "Signed in successfully", gin.H{
		"token": sess.Token,
		"user":  sess.Account.View(),
	})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	h.auth.SignOut(middleware.Claims(c))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cookieSecure, true)
	response.Success(c, http.StatusOK, "Signed out successfully", nil)
}

func (h *AuthHandler) CheckUsernameUnique(c *gin.Context) {
	username := c.Query("username")
	if err := validate.Username(username); err != nil {
		handleError(c, err)
		return
	}
	available, err := h.auth.CheckUsername(c.Request.Context(), username)
	if err != nil {
		handleError(c, err)
		return
	}
	if !available {
		response.Fail(c, http.StatusBadRequest, "Username is already taken", nil)
		return
	}
	response.Success(c, http.StatusOK, "Username is available", nil)
}
