package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		number string
		want   CardProvider
		ok     bool
	}{
		{"4111 1111 1111 1111", ProviderVisa, true},
		{"5555-5555-5555-4444", ProviderMastercard, true},
		{"378282246310005", ProviderAmex, true},
		{"4111111111111112", "", false},
		{"6011111111111117", "", false},
		{"", "", false},
		{"41x1111111111111", "", false},
	}
	for _, c := range cases {
		got, ok := DetectProvider(c.number)
		assert.Equal(t, c.ok, ok, c.number)
		assert.Equal(t, c.want, got, c.number)
	}
}

func TestCardFieldValidation(t *testing.T) {
	assert.True(t, ValidExpiry("09/28"))
	assert.False(t, ValidExpiry("13/28"))
	assert.False(t, ValidExpiry("9/28"))
	assert.True(t, ValidCVV("123"))
	assert.True(t, ValidCVV("1234"))
	assert.False(t, ValidCVV("12a"))
}

func TestCardMasked(t *testing.T) {
	assert.Equal(t, "**** **** **** 1111", Card{Number: "4111111111111111"}.Masked())
}
