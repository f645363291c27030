package common

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ErrorResp logs the error with its stack and writes the error body.
func ErrorResp(c *gin.Context, err error, code int) {
	log.Errorf("%+v", err)
	c.JSON(code, gin.H{"error": err.Error()})
	c.Abort()
}

// ErrorStrResp writes a plain error message with the given status code.
func ErrorStrResp(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
	c.Abort()
}
