package helper

import (
	"github.com/gin-gonic/gin"
)

const (
	ErrInvalidRequest   = "ERR_INVALID_REQUEST"
	ErrInvalidOperation = "ERR_INVALID_OPERATION"
	ErrUnauthorized     = "ERR_UNAUTHORIZED"
	ErrNotFound         = "ERR_NOT_FOUND"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func SendSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SendError(c *gin.Context, status int, err error, code string) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, Response{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}
