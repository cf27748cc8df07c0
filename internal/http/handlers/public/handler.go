package public

import "github.com/jobguard/internal/provider"

// Handler 面向求职者、雇主和推广者的接口：点击追踪、注册归因、投递额度、设备指纹上报
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
