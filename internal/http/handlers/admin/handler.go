package admin

import "github.com/jobguard/internal/provider"

// Handler 运营后台接口：活动与链接管理、注册审核、佣金补录、额度上限、风险查询、角色授权
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
