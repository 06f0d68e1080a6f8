package businessflow

import (
	"strings"

	"github.com/amirphl/Injera-Promo/app/dto"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/shopspring/decimal"
)

// ValidateAudienceFilter checks every provided (min, max) pair in the order orders,
// recency, spend, average order value. The first violation is returned.
func ValidateAudienceFilter(f models.AudienceFilter) error {
	if f.OrdersMin != nil && f.OrdersMax != nil && *f.OrdersMin > *f.OrdersMax {
		return rangeError("orders_min", "orders_max")
	}
	if f.RecencyMinDays != nil && f.RecencyMaxDays != nil && *f.RecencyMinDays > *f.RecencyMaxDays {
		return rangeError("recency_min_days", "recency_max_days")
	}
	if decimalAbove(f.TotalSpentMin, f.TotalSpentMax) {
		return rangeError("total_spent_min", "total_spent_max")
	}
	if decimalAbove(f.AvgOrderValueMin, f.AvgOrderValueMax) {
		return rangeError("avg_order_value_min", "avg_order_value_max")
	}
	return nil
}

func rangeError(minField, maxField string) error {
	return NewBusinessErrorf("INVALID_FILTER_RANGE", "%s cannot be greater than %s", ErrInvalidRange, minField, maxField)
}

func decimalAbove(min, max *decimal.Decimal) bool {
	return min != nil && max != nil && min.GreaterThan(*max)
}

// ToAudienceFilter converts and validates a filter request
func ToAudienceFilter(req *dto.PromoFilterRequest) (models.AudienceFilter, error) {
	platform := models.PromoPlatform(strings.ToLower(strings.TrimSpace(req.Platform)))
	if !platform.Valid() {
		return models.AudienceFilter{}, NewBusinessError("INVALID_PLATFORM", "platform must be sms or telegram", ErrInvalidPlatform)
	}

	for _, field := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"total_spent_min", req.TotalSpentMin},
		{"total_spent_max", req.TotalSpentMax},
		{"avg_order_value_min", req.AvgOrderValueMin},
		{"avg_order_value_max", req.AvgOrderValueMax},
	} {
		if field.value != nil && field.value.IsNegative() {
			return models.AudienceFilter{}, NewBusinessErrorf("INVALID_FILTER_RANGE", "%s cannot be negative", ErrInvalidRange, field.name)
		}
	}

	f := models.AudienceFilter{
		Platform:           platform,
		Search:             strings.TrimSpace(req.Search),
		BranchIDs:          utils.UniqueUints(req.BranchIDs),
		IncludeMenuItemIDs: utils.UniqueUints(req.IncludeMenuItemIDs),
		ExcludeMenuItemIDs: utils.UniqueUints(req.ExcludeMenuItemIDs),
		OrdersMin:          req.OrdersMin,
		OrdersMax:          req.OrdersMax,
		RecencyMinDays:     req.RecencyMinDays,
		RecencyMaxDays:     req.RecencyMaxDays,
		TotalSpentMin:      req.TotalSpentMin,
		TotalSpentMax:      req.TotalSpentMax,
		AvgOrderValueMin:   req.AvgOrderValueMin,
		AvgOrderValueMax:   req.AvgOrderValueMax,
	}

	if err := ValidateAudienceFilter(f); err != nil {
		return models.AudienceFilter{}, err
	}
	return f, nil
}
