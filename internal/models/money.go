package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyScale 佣金金额与分成比例统一两位小数
const moneyScale = 2

// Money 两位小数的定点数，用于佣金金额和分成百分比
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 四舍五入到两位小数
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyScale)}
}

// MoneyPtr 可空列赋值用
func MoneyPtr(amount decimal.Decimal) *Money {
	m := NewMoneyFromDecimal(amount)
	return &m
}

// Positive nil 安全的 > 0 判断
func (m *Money) Positive() bool {
	return m != nil && m.Decimal.IsPositive()
}

// MarshalJSON 输出 "12.50" 形式的字符串，避免浮点误差
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受字符串或数字，拒绝负数
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("invalid money %s: %w", b, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("negative money %s", b)
	}
	m.Decimal = d.Round(moneyScale)
	return nil
}

// Value 写库
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyScale).Value()
}

// Scan 读库
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyScale)
	return nil
}

// String 固定两位小数
func (m Money) String() string {
	return m.Decimal.StringFixed(moneyScale)
}
