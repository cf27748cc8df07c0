package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/jobguard/internal/repository"
)

const (
	linkCodeLength   = 8
	linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	linkCodeMaxRetry = 8
	linkCodeMaxLen   = 32
	clickIDMaxLen    = 64
)

func generateLinkCode() (string, error) {
	var builder strings.Builder
	builder.Grow(linkCodeLength)
	max := big.NewInt(int64(len(linkCodeAlphabet)))
	for i := 0; i < linkCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(linkCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

func normalizeLinkCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) > linkCodeMaxLen {
		return ""
	}
	return code
}

func normalizeCountry(raw string) string {
	country := strings.ToUpper(strings.TrimSpace(raw))
	if len(country) < 2 || len(country) > 3 {
		return ""
	}
	for _, r := range country {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return country
}

func normalizeCurrency(raw, fallback string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if len(currency) != 3 {
		return strings.ToUpper(strings.TrimSpace(fallback))
	}
	return currency
}

// createWithUniqueCode 生成随机码并写入，唯一约束冲突时重试
func createWithUniqueCode(create func(code string) error) (string, error) {
	for i := 0; i < linkCodeMaxRetry; i++ {
		code, err := generateLinkCode()
		if err != nil {
			return "", err
		}
		if err := create(code); err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", ErrLinkCodeExhausted
}

func wrapCodeError(op string, err error) error {
	if errors.Is(err, ErrLinkCodeExhausted) {
		return err
	}
	return wrapStorageError(op, err)
}
