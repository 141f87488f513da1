package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgNotFoundURL      = "The requested URL was not found on the server."
	msgMethodNotAllowed = "The method is not allowed for the requested URL."
	msgInternalError    = "Internal Server Error"
	msgUndecodableBody  = "Failed to decode JSON object"
)

// ErrorResponse 定义了标准的API错误响应结构
type ErrorResponse struct {
	Message string `json:"message"`
}

// ArgErrorResponse 参数校验失败时的响应，key是字段名，value是该字段的说明
type ArgErrorResponse struct {
	Message map[string]string `json:"message"`
}

// sendErrorResponse 是一个辅助函数，用于发送标准格式的错误响应
func sendErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Message: message})
}

// NotFound 给router的NoRoute使用
func NotFound(c *gin.Context) {
	sendErrorResponse(c, http.StatusNotFound, msgNotFoundURL)
}

// MethodNotAllowed 给router的NoMethod使用
func MethodNotAllowed(c *gin.Context) {
	sendErrorResponse(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// 未预期的错误统一返回500，细节只写日志
func internalError(c *gin.Context) {
	sendErrorResponse(c, http.StatusInternalServerError, msgInternalError)
}
