// Package pricing computes order totals from rates and itemized adjustments.
package pricing

import (
	"backoffice/internal/apperrors"
	"backoffice/internal/model"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Adjustment is the pricing input of one cost or discount line.
type Adjustment struct {
	Kind     model.AdjustmentKind
	CalcType model.CalcType
	Value    decimal.Decimal
}

// Input is everything a price depends on.
type Input struct {
	Qty         decimal.Decimal
	WeightType  model.WeightType
	RateKg      decimal.Decimal
	RateCbm     decimal.Decimal
	Adjustments []Adjustment
}

// Result holds the derived amounts. AdjustmentAmounts is index-aligned with Input.Adjustments.
type Result struct {
	BasePrice         decimal.Decimal
	AdjustmentAmounts []decimal.Decimal
	AdjustmentsTotal  decimal.Decimal
	TotalPrice        decimal.Decimal
}

// EffectiveRate picks the rate matching the weight type.
func EffectiveRate(weightType model.WeightType, rateKg, rateCbm decimal.Decimal) decimal.Decimal {
	if weightType == model.WeightVolumetric {
		return rateCbm
	}
	return rateKg
}

// Price is a pure function of its input. A zero rate yields a zero base price.
// Percentage adjustments are always taken against the base price being computed.
func Price(in Input) Result {
	base := in.Qty.Mul(EffectiveRate(in.WeightType, in.RateKg, in.RateCbm)).Round(moneyPlaces)

	amounts := make([]decimal.Decimal, len(in.Adjustments))
	total := decimal.Zero
	for i, adj := range in.Adjustments {
		amounts[i] = AdjustmentAmount(base, adj)
		total = total.Add(amounts[i])
	}

	return Result{
		BasePrice:         base,
		AdjustmentAmounts: amounts,
		AdjustmentsTotal:  total,
		TotalPrice:        base.Add(total).Round(moneyPlaces),
	}
}

// AdjustmentAmount is the signed, rounded contribution of one adjustment.
func AdjustmentAmount(base decimal.Decimal, adj Adjustment) decimal.Decimal {
	amount := adj.Value
	if adj.CalcType == model.CalcPercentage {
		amount = base.Mul(adj.Value).Div(hundred)
	}
	if adj.Kind == model.AdjustmentDiscount {
		amount = amount.Neg()
	}
	return amount.Round(moneyPlaces)
}

// ValidateAdjustment rejects adjustments pricing cannot interpret.
func ValidateAdjustment(adj Adjustment) error {
	if adj.Kind != model.AdjustmentCost && adj.Kind != model.AdjustmentDiscount {
		return apperrors.Validation("adjustment kind must be cost or discount")
	}
	if adj.CalcType != model.CalcAmount && adj.CalcType != model.CalcPercentage {
		return apperrors.Validation("adjustment calc_type must be amount or percentage")
	}
	if adj.Value.IsNegative() {
		return apperrors.Validation("adjustment value must not be negative")
	}
	if adj.Kind == model.AdjustmentDiscount && adj.CalcType == model.CalcPercentage && adj.Value.GreaterThan(hundred) {
		return apperrors.Validation("percentage discount cannot exceed 100")
	}
	return nil
}

// FromModel converts stored adjustments into pricing input.
func FromModel(adjustments []model.OrderAdjustment) []Adjustment {
	out := make([]Adjustment, len(adjustments))
	for i, a := range adjustments {
		out[i] = Adjustment{Kind: a.Kind, CalcType: a.CalcType, Value: a.Value}
	}
	return out
}

// Reprice recomputes an order in place, including each adjustment's computed amount.
func Reprice(order *model.Order) {
	res := Price(Input{
		Qty:         order.Qty,
		WeightType:  order.WeightType,
		RateKg:      order.RateKg,
		RateCbm:     order.RateCbm,
		Adjustments: FromModel(order.Adjustments),
	})
	for i := range order.Adjustments {
		order.Adjustments[i].ComputedAmount = res.AdjustmentAmounts[i]
	}
	order.BasePrice = res.BasePrice
	order.AdjustmentsTotal = res.AdjustmentsTotal
	order.TotalPrice = res.TotalPrice
}
