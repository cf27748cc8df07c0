package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jobguard/internal/cache"
	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/http/response"
	"github.com/jobguard/internal/models"
	"github.com/jobguard/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type routerEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type routerTestEnv struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	return setupRouterTestWith(t, nil)
}

func setupRouterTestWith(t *testing.T, mutate func(cfg *config.Config)) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cache.SetClient(nil, "")
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	cfg := &config.Config{
		Server:      config.ServerConfig{Mode: "debug"},
		JWT:         config.JWTConfig{SecretKey: "admin-secret-for-tests"},
		UserJWT:     config.JWTConfig{SecretKey: "user-secret-for-tests"},
		Quota:       config.QuotaConfig{DefaultAllowedPerDay: 5, DefaultCumulativeLimit: 50},
		Attribution: config.AttributionConfig{ClickIDSource: constants.ClickIDSourceHeader, ClickIDHeader: "X-Click-ID", DefaultCurrency: "USD"},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "jobguard"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	return &routerTestEnv{engine: SetupRouter(cfg, container), db: db, cfg: cfg}
}

func (e *routerTestEnv) createUser(t *testing.T, email string, role constants.UserRole, country string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role, Country: country, Status: constants.UserStatusActive}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (e *routerTestEnv) userToken(t *testing.T, userID uint) string {
	return signToken(t, e.cfg.UserJWT.SecretKey, UserClaims{UserID: userID})
}

func (e *routerTestEnv) adminToken(t *testing.T) string {
	return e.operatorToken(t, 1, true)
}

func (e *routerTestEnv) operatorToken(t *testing.T, adminID uint, super bool) string {
	return signToken(t, e.cfg.JWT.SecretKey, AdminClaims{
		AdminID:          adminID,
		Username:         "ops",
		Super:            super,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
}

func (e *routerTestEnv) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, routerEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var env routerEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
		}
	}
	return w, env
}

func mustDecode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("decode data failed: %v raw=%s", err, string(raw))
	}
}

func TestAffiliateFlowThroughRouter(t *testing.T) {
	env := setupRouterTest(t)
	affiliate := env.createUser(t, "aff@example.com", constants.UserRoleCandidate, "")
	employer := env.createUser(t, "emp@example.com", constants.UserRoleEmployer, "DE")
	adminToken := env.adminToken(t)

	_, resp := env.do(t, http.MethodPost, "/api/v1/admin/affiliate/offers", adminToken, map[string]interface{}{
		"name":               "Employer signup",
		"target_role":        "employer",
		"payout_model":       "cpa",
		"default_cpa_amount": "50",
		"currency":           "USD",
	}, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("create offer failed: %+v", resp)
	}
	var offer models.AffiliateOffer
	mustDecode(t, resp.Data, &offer)

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/affiliate/links", env.userToken(t, affiliate.ID), map[string]interface{}{
		"offer_id": offer.ID,
	}, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("create link failed: %+v", resp)
	}
	var link models.AffiliateLink
	mustDecode(t, resp.Data, &link)

	w, resp := env.do(t, http.MethodPost, "/api/v1/public/affiliate/click", "", map[string]interface{}{
		"code":    strings.ToLower(link.Code),
		"country": "de",
	}, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("track click failed: %+v", resp)
	}
	clickID := w.Header().Get("X-Click-ID")
	if clickID == "" {
		t.Fatalf("click id should be returned in header")
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/public/affiliate/click", "", map[string]interface{}{
		"code": link.Code,
	}, map[string]string{"X-Click-ID": clickID})
	var click struct {
		ClickID   string `json:"click_id"`
		Duplicate bool   `json:"duplicate"`
	}
	mustDecode(t, resp.Data, &click)
	if !click.Duplicate || click.ClickID != clickID {
		t.Fatalf("repeated click should be idempotent, got %+v", click)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/affiliate/attribute", env.userToken(t, employer.ID), map[string]interface{}{
		"code": link.Code,
		"role": "employer",
	}, map[string]string{"X-Click-ID": clickID})
	if resp.StatusCode != 0 {
		t.Fatalf("attribute failed: %+v", resp)
	}
	var attributed struct {
		Existing     bool                         `json:"existing"`
		Registration models.AffiliateRegistration `json:"registration"`
	}
	mustDecode(t, resp.Data, &attributed)
	if attributed.Existing {
		t.Fatalf("first attribution should create a registration, got %+v", attributed)
	}
	if attributed.Registration.Status != constants.RegistrationStatusPending || attributed.Registration.PayoutAmount != nil {
		t.Fatalf("registration should stay pending without payout until qualified, got %+v", attributed.Registration)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/affiliate/payouts/rollup", adminToken, nil, nil)
	var emptyRollup []map[string]interface{}
	mustDecode(t, resp.Data, &emptyRollup)
	if len(emptyRollup) != 0 {
		t.Fatalf("pending registration must not appear in payout rollup: %+v", emptyRollup)
	}

	_, resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/affiliate/registrations/%d/qualify", attributed.Registration.ID), adminToken, nil, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("qualify failed: %+v", resp)
	}
	var qualified struct {
		Outcome      constants.QualificationOutcome `json:"outcome"`
		Registration models.AffiliateRegistration   `json:"registration"`
	}
	mustDecode(t, resp.Data, &qualified)
	if qualified.Outcome != constants.QualificationQualified || qualified.Registration.Status != constants.RegistrationStatusQualified {
		t.Fatalf("qualify trigger should qualify the registration, got %+v", qualified)
	}
	if qualified.Registration.PayoutAmount == nil || qualified.Registration.PayoutAmount.StringFixed(2) != "50.00" {
		t.Fatalf("payout snapshot want 50.00 got %+v", qualified.Registration.PayoutAmount)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/affiliate/attribute", env.userToken(t, employer.ID), map[string]interface{}{
		"code": link.Code,
		"role": "employer",
	}, nil)
	mustDecode(t, resp.Data, &attributed)
	if !attributed.Existing {
		t.Fatalf("second attribution should return the existing registration")
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/affiliate/payouts/rollup", adminToken, nil, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("rollup failed: %+v", resp)
	}
	var rollup []struct {
		Currency     string `json:"currency"`
		PayoutStatus string `json:"payout_status"`
		Count        int64  `json:"count"`
	}
	mustDecode(t, resp.Data, &rollup)
	if len(rollup) != 1 || rollup[0].Count != 1 || rollup[0].Currency != "USD" {
		t.Fatalf("unexpected rollup: %+v", rollup)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/affiliate/attribute", env.userToken(t, affiliate.ID), map[string]interface{}{
		"code": link.Code,
		"role": "candidate",
	}, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("self referral should be rejected with 400, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/public/affiliate/click", "", map[string]interface{}{
		"code": "NOPE0000",
	}, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("unknown link should map to 404, got %+v", resp)
	}
}

func TestQuotaFlowThroughRouter(t *testing.T) {
	env := setupRouterTest(t)
	candidate := env.createUser(t, "cand@example.com", constants.UserRoleCandidate, "")
	other := env.createUser(t, "other@example.com", constants.UserRoleCandidate, "")
	adminToken := env.adminToken(t)

	_, resp := env.do(t, http.MethodPut, "/api/v1/admin/quota/jobs/42/caps", adminToken, map[string]interface{}{
		"allowed_per_day":  1,
		"cumulative_limit": 10,
	}, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("set caps failed: %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/jobs/42/admit", env.userToken(t, candidate.ID), nil, nil)
	var result struct {
		Outcome string `json:"outcome"`
	}
	mustDecode(t, resp.Data, &result)
	if result.Outcome != string(constants.AdmissionAdmitted) {
		t.Fatalf("first admit should succeed, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/jobs/42/admit", env.userToken(t, other.ID), nil, nil)
	mustDecode(t, resp.Data, &result)
	if result.Outcome != string(constants.AdmissionDailyCapReached) {
		t.Fatalf("second admit should hit the daily cap, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/public/jobs/42/quota", "", nil, nil)
	var usage struct {
		AllowedPerDay  int64 `json:"allowed_per_day"`
		UsedPerDay     int64 `json:"used_per_day"`
		CumulativeUsed int64 `json:"cumulative_used"`
	}
	mustDecode(t, resp.Data, &usage)
	if usage.AllowedPerDay != 1 || usage.UsedPerDay != 1 || usage.CumulativeUsed != 1 {
		t.Fatalf("unexpected usage: %+v", usage)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/jobs/0/admit", env.userToken(t, candidate.ID), nil, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("zero job id should be rejected, got %+v", resp)
	}

	_, resp = env.do(t, http.MethodPost, "/api/v1/user/jobs/42/admit", "", nil, nil)
	if resp.StatusCode != 401 {
		t.Fatalf("missing token should be unauthorized, got %+v", resp)
	}
}

func TestHealthMetricsAndRouteCatalog(t *testing.T) {
	env := setupRouterTest(t)

	w, _ := env.do(t, http.MethodGet, "/health", "", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("health check failed: %d %s", w.Code, w.Body.String())
	}

	env.do(t, http.MethodGet, "/api/v1/public/jobs/7/quota", "", nil, nil)

	w, _ = env.do(t, http.MethodGet, "/metrics", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "jobguard_http_requests_total") {
		t.Fatalf("metrics should expose request counters, got %s", w.Body.String())
	}

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/routes", env.adminToken(t), nil, nil)
	var routes []adminRouteCatalogItem
	mustDecode(t, resp.Data, &routes)
	found := false
	for _, item := range routes {
		if item.Method == http.MethodPut && item.Path == "/api/v1/admin/quota/jobs/:job_id/caps" {
			found = item.Module == "quota"
		}
	}
	if !found {
		t.Fatalf("route catalog should list quota caps route: %+v", routes)
	}
}

func TestDeriveAdminRouteModule(t *testing.T) {
	cases := map[string]string{
		"/api/v1/admin/affiliate/offers": "affiliate",
		"/api/v1/admin/routes":           "routes",
		"/api/v1/public/jobs":            "public",
		"":                               "system",
	}
	for path, want := range cases {
		if got := deriveAdminRouteModule(path); got != want {
			t.Fatalf("module for %q want %s got %s", path, want, got)
		}
	}
}

func TestAdminRoleAuthorizationThroughRouter(t *testing.T) {
	env := setupRouterTestWith(t, func(cfg *config.Config) {
		cfg.Authz = config.AuthzConfig{Enabled: true, BootstrapBuiltin: true}
	})
	superToken := env.adminToken(t)
	financeToken := env.operatorToken(t, 7, false)

	_, resp := env.do(t, http.MethodGet, "/api/v1/admin/affiliate/payouts/rollup", financeToken, nil, nil)
	if resp.StatusCode != response.CodeForbidden {
		t.Fatalf("operator without roles want 403, got=%d", resp.StatusCode)
	}

	w, resp := env.do(t, http.MethodPut, "/api/v1/admin/authz/operators/7/roles", superToken, map[string]interface{}{
		"roles": []string{"finance"},
	}, nil)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("assign roles want ok, got=%d body=%s", resp.StatusCode, w.Body.String())
	}
	var assigned struct {
		Roles []string `json:"roles"`
	}
	mustDecode(t, resp.Data, &assigned)
	if len(assigned.Roles) != 1 || assigned.Roles[0] != "role:finance" {
		t.Fatalf("assigned roles want [role:finance], got=%v", assigned.Roles)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/admin/affiliate/payouts/rollup", financeToken, nil, nil)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("finance read want ok, got=%d body=%s", resp.StatusCode, w.Body.String())
	}
	_, resp = env.do(t, http.MethodPut, "/api/v1/admin/quota/jobs/5/caps", financeToken, map[string]interface{}{
		"allowed_per_day":  1,
		"cumulative_limit": 2,
	}, nil)
	if resp.StatusCode != response.CodeForbidden {
		t.Fatalf("finance caps update want 403, got=%d", resp.StatusCode)
	}
	_, resp = env.do(t, http.MethodPut, "/api/v1/admin/authz/operators/8/roles", financeToken, map[string]interface{}{
		"roles": []string{"finance"},
	}, nil)
	if resp.StatusCode != response.CodeForbidden {
		t.Fatalf("finance role assignment want 403, got=%d", resp.StatusCode)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/admin/authz/operators/7", financeToken, nil, nil)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("operator authz read want ok, got=%d", resp.StatusCode)
	}
	var detail struct {
		Grants []struct {
			Path   string `json:"path"`
			Method string `json:"method"`
		} `json:"grants"`
	}
	mustDecode(t, resp.Data, &detail)
	if len(detail.Grants) != 3 {
		t.Fatalf("finance grants want 3, got=%v", detail.Grants)
	}
}
