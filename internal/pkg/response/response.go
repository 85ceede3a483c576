package response

import "github.com/gin-gonic/gin"

// Success writes {success: true, message, ...payload}.
func Success(c *gin.Context, status int, message string, payload gin.H) {
	c.JSON(status, envelope(true, message, payload))
}

// Fail writes {success: false, message, ...extra}.
func Fail(c *gin.Context, status int, message string, extra gin.H) {
	c.JSON(status, envelope(false, message, extra))
}

func envelope(ok bool, message string, payload gin.H) gin.H {
	body := gin.H{}
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = ok
	body["message"] = message
	return body
}
