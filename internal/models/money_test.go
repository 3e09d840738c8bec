package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"50.00", 5000},
		{"50", 5000},
		{"0.1", 10},
		{"12.34", 1234},
		{"-3.50", -350},
	}
	for _, c := range cases {
		got, err := ParseMoney(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseMoney("1.005")
	assert.ErrorIs(t, err, ErrAmountPrecision)

	_, err = ParseMoney("abc")
	assert.Error(t, err)
}

func TestMoneyNoFloatDrift(t *testing.T) {
	balance, err := ParseMoney("100.00")
	require.NoError(t, err)
	dime, err := ParseMoney("0.10")
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		balance -= dime
	}
	assert.Equal(t, "0.00", balance.String())
}

func TestMoneyJSON(t *testing.T) {
	var body struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 50.25, "b": "7.5"}`), &body))
	assert.Equal(t, Money(5025), body.A)
	assert.Equal(t, Money(750), body.B)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"50.25","b":"7.50"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a": 1.001}`), &body))
}

func TestMoneyRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"184467440737095517.16", "92233720368547758.08", "-92233720368547758.09", "1e30"} {
		_, err := ParseMoney(in)
		assert.ErrorIs(t, err, ErrAmountRange, in)
	}

	top, err := ParseMoney("92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, Money(math.MaxInt64), top)

	var body struct {
		A Money `json:"a"`
	}
	err = json.Unmarshal([]byte(`{"a": 184467440737095517.16}`), &body)
	assert.ErrorIs(t, err, ErrAmountRange)
	assert.Equal(t, Money(0), body.A)
}

func TestMoneyAdd(t *testing.T) {
	sum, err := Money(150).Add(250)
	require.NoError(t, err)
	assert.Equal(t, Money(400), sum)

	_, err = Money(math.MaxInt64).Add(1)
	assert.ErrorIs(t, err, ErrAmountRange)
	_, err = Money(math.MinInt64).Add(-1)
	assert.ErrorIs(t, err, ErrAmountRange)
}
