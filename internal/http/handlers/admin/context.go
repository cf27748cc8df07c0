package admin

import (
	handlershared "github.com/jobguard/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParamUint(c, name)
}
