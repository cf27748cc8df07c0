package service

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPClassification 外部 IP 情报分类结果
type IPClassification struct {
	IsProxy   bool
	IsHosting bool
}

// IPClassifier IP 情报分类器（代理 / 机房出口判定由外部提供）
type IPClassifier interface {
	Classify(ip string) IPClassification
}

// CIDRClassifier 基于网段列表的分类器
type CIDRClassifier struct {
	proxy   []netip.Prefix
	hosting []netip.Prefix
}

// NewCIDRClassifier 解析代理与机房网段
func NewCIDRClassifier(proxyCIDRs, hostingCIDRs []string) (*CIDRClassifier, error) {
	proxy, err := parsePrefixes(proxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("proxy cidrs: %w", err)
	}
	hosting, err := parsePrefixes(hostingCIDRs)
	if err != nil {
		return nil, fmt.Errorf("hosting cidrs: %w", err)
	}
	return &CIDRClassifier{proxy: proxy, hosting: hosting}, nil
}

// Classify 判定 IP 所属分类，无法解析的 IP 视为普通地址
func (c *CIDRClassifier) Classify(ip string) IPClassification {
	if c == nil {
		return IPClassification{}
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return IPClassification{}
	}
	addr = addr.Unmap()
	return IPClassification{
		IsProxy:   containsAddr(c.proxy, addr),
		IsHosting: containsAddr(c.hosting, addr),
	}
}

func parsePrefixes(raw []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			addr, err := netip.ParseAddr(item)
			if err != nil {
				return nil, err
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(item)
		if err != nil {
			return nil, err
		}
		out = append(out, prefix.Masked())
	}
	return out, nil
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
