package output

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.567", "$1,234.57"},
		{"0", "$0.00"},
		{"999.995", "$1,000.00"},
		{"1000000", "$1,000,000.00"},
		{"-2500.5", "-$2,500.50"},
	}
	for _, tt := range tests {
		got := FormatCurrency(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	v := decimal.RequireFromString("0.123456")
	got := FormatPercentage(v)
	want := "12.35%"
	if got != want {
		t.Errorf("FormatPercentage(%v) = %q, want %q", v, got, want)
	}
}

func TestFormatOptional(t *testing.T) {
	if got := FormatOptional(nil); got != "-" {
		t.Errorf("FormatOptional(nil) = %q", got)
	}
	d := decimal.NewFromInt(12)
	if got := FormatOptional(&d); got != "$12.00" {
		t.Errorf("FormatOptional(12) = %q", got)
	}
}
