package router

import (
	"errors"
	"strings"
	"time"

	"github.com/jobguard/internal/authz"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	handlershared "github.com/jobguard/internal/http/handlers/shared"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/logger"
	"github.com/jobguard/internal/metrics"
	"github.com/jobguard/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

// AdminClaims 管理端 JWT 声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Super    bool   `json:"super,omitempty"`
	jwt.RegisteredClaims
}

// UserClaims 用户端 JWT 声明
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if len(cfg.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowedHeaders
	} else {
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Content-Length",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	if cfg.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	wildcard := len(cfg.AllowedOrigins) == 0
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			wildcard = true
			continue
		}
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	switch {
	case wildcard && cfg.AllowCredentials:
		// 携带凭证时不能返回 *，改为回显请求来源
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	case wildcard:
		corsConfig.AllowAllOrigins = true
	default:
		corsConfig.AllowOrigins = origins
	}
	return cors.New(corsConfig)
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// MetricsMiddleware 请求计数与耗时指标中间件，按路由模板聚合
func MetricsMiddleware(recorder metrics.Recorder) gin.HandlerFunc {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		endpoint = c.Request.Method + " " + endpoint
		recorder.IncRequestsTotal(endpoint, c.Writer.Status())
		recorder.ObserveRequestDuration(endpoint, time.Since(start))
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, handlershared.Message(key))
	c.Abort()
}

// bearerToken 解析 Authorization 头中的 Bearer token
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "error.token_missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", "error.token_invalid"
	}
	return strings.TrimSpace(parts[1]), ""
}

func newJWTParser(cfg config.JWTConfig) *jwt.Parser {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return jwt.NewParser(opts...)
}

// parseClaims 校验签名与有效期，返回 messageKey 表示失败原因
func parseClaims(c *gin.Context, cfg config.JWTConfig, claims jwt.Claims) string {
	if cfg.SecretKey == "" {
		return "error.unauthorized"
	}
	tokenString, failKey := bearerToken(c)
	if failKey != "" {
		return failKey
	}
	token, err := newJWTParser(cfg).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "error.token_expired"
		}
		return "error.token_invalid"
	}
	if !token.Valid {
		return "error.token_invalid"
	}
	return ""
}

// JWTAuthMiddleware 管理端 JWT 鉴权中间件
func JWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &AdminClaims{}
		if failKey := parseClaims(c, cfg, claims); failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}
		if claims.AdminID == 0 {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		c.Set("admin_id", claims.AdminID)
		c.Set("username", claims.Username)
		c.Set("admin_super", claims.Super)
		c.Next()
	}
}

// AdminRBACMiddleware 按角色策略校验后台路由，超级管理员直接放行
func AdminRBACMiddleware(svc *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil || c.GetBool("admin_super") {
			c.Next()
			return
		}
		allowed, err := svc.AllowOperator(c.GetUint("admin_id"), c.Request.URL.Path, c.Request.Method)
		if err != nil {
			handlershared.RespondError(c, response.CodeUnavailable, "error.authz_unavailable", err)
			c.Abort()
			return
		}
		if !allowed {
			response.Forbidden(c, handlershared.Message("error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserJWTAuthMiddleware 用户 JWT 鉴权中间件，停用账号直接拒绝
func UserJWTAuthMiddleware(cfg config.JWTConfig, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userRepo == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		claims := &UserClaims{}
		if failKey := parseClaims(c, cfg, claims); failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}
		if claims.UserID == 0 {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		user, err := userRepo.WithContext(c.Request.Context()).GetByID(claims.UserID)
		if err != nil {
			handlershared.RespondError(c, response.CodeUnavailable, "error.storage_unavailable", err)
			c.Abort()
			return
		}
		if user == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		if !isActiveUserStatus(user.Status) {
			abortUnauthorized(c, "error.user_disabled")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Next()
	}
}

func isActiveUserStatus(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return status == "" || status == constants.UserStatusActive
}
