package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应包
// HTTP 状态固定 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 分页响应包
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: "success", Data: data},
		Pagination: pagination,
	})
}

// BuildPagination 根据总数计算页数
func BuildPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

// Error 错误响应，data 中带上 request_id 方便排查
func Error(c *gin.Context, code int, msg string) {
	ErrorWithData(c, code, msg, nil)
}

// ErrorWithData 带附加数据的错误响应
func ErrorWithData(c *gin.Context, code int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: code, Msg: msg, Data: withRequestID(c, data)})
}

// NotFound 404
func NotFound(c *gin.Context, msg string) { Error(c, CodeNotFound, msg) }

// Unauthorized 401
func Unauthorized(c *gin.Context, msg string) { Error(c, CodeUnauthorized, msg) }

// Forbidden 403
func Forbidden(c *gin.Context, msg string) { Error(c, CodeForbidden, msg) }

// BadRequest 400
func BadRequest(c *gin.Context, msg string) { Error(c, CodeBadRequest, msg) }

func withRequestID(c *gin.Context, data interface{}) interface{} {
	if c == nil {
		return data
	}
	id := c.GetString("request_id")
	if id == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{"request_id": id}
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = id
		}
		return v
	default:
		return gin.H{"request_id": id, "detail": data}
	}
}
