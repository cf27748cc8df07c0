package service

import (
	"time"

	"github.com/jobguard/internal/config"
	"github.com/jobguard/internal/models"
)

// RiskRules 风险评分规则
type RiskRules struct {
	SybilWindow         time.Duration
	SybilFreeIPs        int
	SybilPointsPerIP    int
	ProxyPoints         int
	HostingPoints       int
	RepeatThreshold     int64
	RepeatPointsPerSeen int
	RepeatPointsCap     int
}

const (
	riskScoreMin = 0
	riskScoreMax = 100
)

// DefaultRiskRules 默认评分规则
func DefaultRiskRules() RiskRules {
	return RiskRules{
		SybilWindow:         30 * 24 * time.Hour,
		SybilFreeIPs:        3,
		SybilPointsPerIP:    15,
		ProxyPoints:         25,
		HostingPoints:       40,
		RepeatThreshold:     10,
		RepeatPointsPerSeen: 5,
		RepeatPointsCap:     50,
	}
}

// RiskRulesFromConfig 从配置构建评分规则，未配置项沿用默认值
func RiskRulesFromConfig(cfg config.RiskConfig) RiskRules {
	rules := DefaultRiskRules()
	if cfg.SybilWindowDays > 0 {
		rules.SybilWindow = time.Duration(cfg.SybilWindowDays) * 24 * time.Hour
	}
	if cfg.SybilFreeIPs > 0 {
		rules.SybilFreeIPs = cfg.SybilFreeIPs
	}
	if cfg.SybilPointsPerIP > 0 {
		rules.SybilPointsPerIP = cfg.SybilPointsPerIP
	}
	if cfg.ProxyPoints > 0 {
		rules.ProxyPoints = cfg.ProxyPoints
	}
	if cfg.HostingPoints > 0 {
		rules.HostingPoints = cfg.HostingPoints
	}
	if cfg.RepeatThreshold > 0 {
		rules.RepeatThreshold = cfg.RepeatThreshold
	}
	if cfg.RepeatPointsPerSeen > 0 {
		rules.RepeatPointsPerSeen = cfg.RepeatPointsPerSeen
	}
	if cfg.RepeatPointsCap > 0 {
		rules.RepeatPointsCap = cfg.RepeatPointsCap
	}
	return rules
}

// RiskBreakdown 评分明细
type RiskBreakdown struct {
	Score         int `json:"score"`
	SybilPoints   int `json:"sybil_points"`
	ProxyPoints   int `json:"proxy_points"`
	HostingPoints int `json:"hosting_points"`
	RepeatPoints  int `json:"repeat_points"`
}

// ScoreObservations 根据用户全部观测记录计算风险评分（纯函数）
func ScoreObservations(observations []models.FingerprintObservation, now time.Time, rules RiskRules) int {
	return ExplainObservations(observations, now, rules).Score
}

// ExplainObservations 计算评分并返回各项明细
func ExplainObservations(observations []models.FingerprintObservation, now time.Time, rules RiskRules) RiskBreakdown {
	var out RiskBreakdown
	if len(observations) == 0 {
		return out
	}

	windowStart := now.Add(-rules.SybilWindow)
	ipsByFingerprint := make(map[string]map[string]struct{})
	anyProxy := false
	anyHosting := false
	repeat := 0

	for _, obs := range observations {
		if obs.IsProxy {
			anyProxy = true
		}
		if obs.IsHosting {
			anyHosting = true
		}
		if excess := obs.SeenCount - rules.RepeatThreshold; excess > 0 {
			repeat += int(excess) * rules.RepeatPointsPerSeen
		}
		if obs.LastSeenAt.Before(windowStart) {
			continue
		}
		ips, ok := ipsByFingerprint[obs.FingerprintHash]
		if !ok {
			ips = make(map[string]struct{})
			ipsByFingerprint[obs.FingerprintHash] = ips
		}
		ips[obs.IP] = struct{}{}
	}

	for _, ips := range ipsByFingerprint {
		if extra := len(ips) - rules.SybilFreeIPs; extra > 0 {
			out.SybilPoints += extra * rules.SybilPointsPerIP
		}
	}
	if anyProxy {
		out.ProxyPoints = rules.ProxyPoints
	}
	if anyHosting {
		out.HostingPoints = rules.HostingPoints
	}
	if repeat > rules.RepeatPointsCap {
		repeat = rules.RepeatPointsCap
	}
	out.RepeatPoints = repeat

	out.Score = clampScore(out.SybilPoints + out.ProxyPoints + out.HostingPoints + out.RepeatPoints)
	return out
}

func clampScore(score int) int {
	if score < riskScoreMin {
		return riskScoreMin
	}
	if score > riskScoreMax {
		return riskScoreMax
	}
	return score
}
