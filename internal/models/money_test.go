package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `"12.345"`, want: "12.35"},
		{raw: `80`, want: "80.00"},
		{raw: `null`, want: "0.00"},
		{raw: `"-1"`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.raw), &m)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("raw=%s want error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("raw=%s unexpected error: %v", tc.raw, err)
		}
		if m.String() != tc.want {
			t.Fatalf("raw=%s want %s got %s", tc.raw, tc.want, m.String())
		}
	}
}

func TestMoneyMarshalAndPositive(t *testing.T) {
	raw, err := json.Marshal(struct {
		Amount *Money `json:"amount"`
	}{Amount: MoneyPtr(decimal.NewFromFloat(7.5))})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"amount":"7.50"}` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var nilMoney *Money
	if nilMoney.Positive() {
		t.Fatalf("nil money must not be positive")
	}
	if MoneyPtr(decimal.Zero).Positive() {
		t.Fatalf("zero must not be positive")
	}
	if !MoneyPtr(decimal.NewFromInt(1)).Positive() {
		t.Fatalf("one must be positive")
	}
}
