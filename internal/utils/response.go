package utils

import "github.com/gin-gonic/gin"

// JSON writes obj as the response body.
func JSON(c *gin.Context, code int, obj any) {
	c.JSON(code, obj)
}

// Error writes the flat {"error": msg} body used by every failing endpoint.
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// AbortError is Error for middleware: the rest of the chain is skipped.
func AbortError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
