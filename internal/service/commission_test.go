package service_test

import (
	"testing"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCommission(t *testing.T) {
	cases := []struct {
		name           string
		commissionType models.CommissionType
		value          string
		amount         *decimal.Decimal
		want           string
	}{
		{"fixed ignores amount", models.CommissionFixed, "3.00", dec("120.00"), "3.00"},
		{"fixed without amount", models.CommissionFixed, "3", nil, "3.00"},
		{"ten percent of fifty", models.CommissionPercentage, "10", dec("50.00"), "5.00"},
		{"percentage without amount", models.CommissionPercentage, "10", nil, "0.00"},
		{"rounds down", models.CommissionPercentage, "10", dec("33.33"), "3.33"},
		{"rounds half away from zero", models.CommissionPercentage, "12.5", dec("0.20"), "0.03"},
		{"unknown type", models.CommissionType("bogus"), "10", dec("50"), "0.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := service.CalculateCommission(tc.commissionType, decimal.RequireFromString(tc.value), tc.amount)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}
