package public

import (
	handlershared "github.com/jobguard/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "user_id", "error.user_id_invalid", "error.user_id_type_invalid")
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	return handlershared.ParamUint(c, name)
}
