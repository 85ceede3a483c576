package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/middleware"
	"github.com/xxxsen/anonmsg/internal/pkg/validate"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Accounts    *AccountHandler
	Messages    *MessageHandler
	Suggestions *SuggestionHandler
	Sessions    middleware.SessionParser
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	validate.RegisterBinding()

	api.POST("/sign-up", deps.Auth.SignUp)
	api.POST("/verify-code", deps.Auth.VerifyCode)
	api.POST("/sign-in", deps.Auth.SignIn)
	api.GET("/check-username-unique", deps.Auth.CheckUsernameUnique)
	api.POST("/send-message", deps.Messages.Send)
	api.GET("/u/:username", deps.Accounts.PublicProfile)
	api.POST("/suggest-messages", deps.Suggestions.Suggest)

	authGroup := api.Group("")
	authGroup.Use(middleware.SessionAuth(deps.Sessions))
	authGroup.POST("/sign-out", deps.Auth.SignOut)
	authGroup.GET("/accept-messages", deps.Accounts.GetAccepting)
	authGroup.POST("/accept-messages", deps.Accounts.SetAccepting)
	authGroup.GET("/get-messages", deps.Messages.List)
	authGroup.DELETE("/delete-message/:messageid", deps.Messages.Delete)
}
