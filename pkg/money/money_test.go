package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := []struct{ in, out string }{
		{"123.454", "123.45"},
		{"123.455", "123.46"},
		{"123.456", "123.46"},
		{"2.365", "2.37"},
		{"-123.455", "-123.46"},
		{"1339.075", "1339.08"},
		{"0.005", "0.01"},
		{"0.0049", "0.00"},
	}
	for _, c := range cases {
		d := decimal.RequireFromString(c.in)
		assert.Equal(t, c.out, RoundHalfUp(d).StringFixed(2), "round(%s)", c.in)
	}
}

func TestMulRate(t *testing.T) {
	got := MulRate(decimal.NewFromInt(46175), decimal.RequireFromString("0.029"))
	assert.True(t, got.Equal(decimal.RequireFromString("1339.08")), "got %s", got)

	got = MulRate(decimal.NewFromInt(50000), decimal.RequireFromString("0.9235"))
	assert.True(t, got.Equal(decimal.NewFromInt(46175)), "got %s", got)
}

func TestNonNegativeAndOrZero(t *testing.T) {
	assert.True(t, NonNegative(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, NonNegative(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))

	assert.True(t, OrZero(nil).IsZero())
	assert.True(t, OrZero(Ptr(decimal.NewFromInt(7))).Equal(decimal.NewFromInt(7)))
}

func TestPtrCopies(t *testing.T) {
	d := decimal.NewFromInt(1)
	p := Ptr(d)
	d = decimal.NewFromInt(2)
	assert.True(t, p.Equal(decimal.NewFromInt(1)))
}

func TestMoneyArithmetic(t *testing.T) {
	a, err := NewMoneyFromString("10.10")
	require.NoError(t, err)
	b := NewMoneyFromDecimal(decimal.RequireFromString("5.05"))

	assert.Equal(t, "15.15", a.Add(b).String())
	assert.Equal(t, "5.05", a.Sub(b).String())
	assert.Equal(t, "1.25", a.MulRate(decimal.RequireFromString("0.124")).String())
	assert.Equal(t, "0.00", Zero().String())

	_, err = NewMoneyFromString("not-a-number")
	assert.Error(t, err)
}

func TestQuarterly(t *testing.T) {
	m := NewMoneyFromDecimal(decimal.RequireFromString("5161.50"))
	assert.Equal(t, "1290.38", m.Quarterly().String())

	m = NewMoneyFromDecimal(decimal.NewFromInt(4000))
	assert.Equal(t, "1000.00", m.Quarterly().String())
}

func TestFormat(t *testing.T) {
	cases := []struct{ in, out string }{
		{"0", "$0.00"},
		{"999.999", "$1,000.00"},
		{"5161.5", "$5,161.50"},
		{"188769.75", "$188,769.75"},
		{"1234567.891", "$1,234,567.89"},
		{"-12345.6", "-$12,345.60"},
	}
	for _, c := range cases {
		m := NewMoneyFromDecimal(decimal.RequireFromString(c.in))
		assert.Equal(t, c.out, m.Format(), "format(%s)", c.in)
	}
}
