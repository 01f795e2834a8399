package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"
)

// Response 统一响应结构
type Response struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// StatusFor 错误类别对应的 HTTP 状态码
func StatusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindConfigurationError, errs.KindInvalidKey,
		errs.KindUnsupportedDeviceType, errs.KindUnsupportedOperation:
		return http.StatusBadRequest
	case errs.KindInvalidState:
		return http.StatusConflict
	case errs.KindConnectionTimeout, errs.KindPromptTimeout:
		return http.StatusGatewayTimeout
	case errs.KindAuthenticationFailed, errs.KindHostUnreachable, errs.KindChannelUnavailable,
		errs.KindCommandRejected, errs.KindCommitFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: "SUCCESS", Message: "ok", Data: data, RequestID: c.GetString("request_id")})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: "INVALID_REQUEST", Message: msg, RequestID: c.GetString("request_id")})
}

// fail 按错误类别返回，data 可携带失败时的部分结果
func fail(c *gin.Context, err error, data interface{}) {
	kind := errs.KindOf(err)
	c.JSON(StatusFor(kind), Response{Code: string(kind), Message: err.Error(), Data: data, RequestID: c.GetString("request_id")})
}
