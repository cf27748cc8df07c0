package public

import (
	"net/http"
	"strings"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"

	"github.com/gin-gonic/gin"
)

// clickIDTransport 按配置的来源读写点击ID（cookie / header / body）
type clickIDTransport struct {
	source     string
	cookieName string
	headerName string
	maxAge     int
}

func newClickIDTransport(cfg *config.Config) clickIDTransport {
	t := clickIDTransport{
		source:     constants.ClickIDSourceCookie,
		cookieName: "jg_click_id",
		headerName: "X-Click-ID",
		maxAge:     30 * 24 * 3600,
	}
	if cfg == nil {
		return t
	}
	attr := cfg.Attribution
	if source := strings.ToLower(strings.TrimSpace(attr.ClickIDSource)); source != "" {
		t.source = source
	}
	if name := strings.TrimSpace(attr.ClickIDCookie); name != "" {
		t.cookieName = name
	}
	if name := strings.TrimSpace(attr.ClickIDHeader); name != "" {
		t.headerName = name
	}
	if attr.CookieMaxAgeDays > 0 {
		t.maxAge = attr.CookieMaxAgeDays * 24 * 3600
	}
	return t
}

// read 读取请求携带的点击ID，body 来源由调用方传入已绑定的字段值
func (t clickIDTransport) read(c *gin.Context, bodyValue string) string {
	switch t.source {
	case constants.ClickIDSourceHeader:
		return strings.TrimSpace(c.GetHeader(t.headerName))
	case constants.ClickIDSourceBody:
		return strings.TrimSpace(bodyValue)
	default:
		value, err := c.Cookie(t.cookieName)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(value)
	}
}

// write 将点击ID回写给客户端
func (t clickIDTransport) write(c *gin.Context, clickID string) {
	if clickID == "" {
		return
	}
	switch t.source {
	case constants.ClickIDSourceHeader:
		c.Header(t.headerName, clickID)
	case constants.ClickIDSourceBody:
	default:
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(t.cookieName, clickID, t.maxAge, "/", "", c.Request.TLS != nil, true)
	}
}
