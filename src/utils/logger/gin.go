package logger

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyRequestId = "request-id"
	ContextKeyLogger    = "logger"
)

// Middleware attaching a request id and a logger to every request
func Middleware() gin.HandlerFunc {
	log := NewSublogger("api")
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = xid.New().String()
		}
		c.Header("X-Request-Id", id)
		c.Set(ContextKeyRequestId, id)
		c.Set(ContextKeyLogger, log.WithField("request_id", id))
		c.Next()
	}
}

// Request scoped logger
func LOG(c *gin.Context) *logrus.Entry {
	v, _ := c.Get(ContextKeyLogger)
	entry, ok := v.(*logrus.Entry)
	if !ok {
		return NewSublogger("api")
	}
	return entry
}

// Request scoped logger that also responds with the error and status
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	body := gin.H{"status": status}
	if err != nil {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
	return LOG(c).WithError(err).WithField("status", status)
}
