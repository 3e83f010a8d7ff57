package service

import (
	"time"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateCommission считает комиссию реферера.
// fixed: значение комиссии независимо от суммы заказа.
// percentage: amount * value / 100, без суммы заказа комиссия нулевая.
// Результат округляется до 2 знаков (half away from zero).
func CalculateCommission(commissionType models.CommissionType, value decimal.Decimal, amount *decimal.Decimal) decimal.Decimal {
	switch commissionType {
	case models.CommissionFixed:
		return value.Round(2)
	case models.CommissionPercentage:
		if amount == nil {
			return decimal.Zero
		}
		return amount.Mul(value).Div(hundred).Round(2)
	default:
		return decimal.Zero
	}
}

// newCredit строит кредит для конверсии по политике разблокировки кампании.
// immediate сразу available, остальные pending до прохода разблокировки.
func newCredit(campaign *models.Campaign, conversion *models.Conversion, now time.Time) *models.Credit {
	credit := &models.Credit{
		ContactID:    conversion.ReferrerContactID,
		CampaignID:   campaign.ID,
		ConversionID: conversion.ID,
		Amount:       conversion.CommissionAmount,
		Status:       models.CreditPending,
	}
	if campaign.CreditUnlockType == models.UnlockImmediate {
		unlockedAt := now
		credit.Status = models.CreditAvailable
		credit.UnlockedAt = &unlockedAt
	}
	return credit
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
