package pricing

import (
	"testing"

	"backoffice/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPrice_CostAmountAdjustment(t *testing.T) {
	res := Price(Input{
		Qty:        d("10"),
		WeightType: model.WeightActual,
		RateKg:     d("5.00"),
		Adjustments: []Adjustment{
			{Kind: model.AdjustmentCost, CalcType: model.CalcAmount, Value: d("3.00")},
		},
	})

	assert.Equal(t, "50.00", res.BasePrice.StringFixed(2))
	assert.Equal(t, "3.00", res.AdjustmentsTotal.StringFixed(2))
	assert.Equal(t, "53.00", res.TotalPrice.StringFixed(2))
	require.Len(t, res.AdjustmentAmounts, 1)
	assert.Equal(t, "3.00", res.AdjustmentAmounts[0].StringFixed(2))
}

func TestPrice_PercentageDiscount(t *testing.T) {
	res := Price(Input{
		Qty:        d("10"),
		WeightType: model.WeightActual,
		RateKg:     d("5.00"),
		Adjustments: []Adjustment{
			{Kind: model.AdjustmentDiscount, CalcType: model.CalcPercentage, Value: d("10")},
		},
	})

	assert.Equal(t, "-5.00", res.AdjustmentAmounts[0].StringFixed(2))
	assert.Equal(t, "45.00", res.TotalPrice.StringFixed(2))
}

func TestPrice_VolumetricUsesCbmRate(t *testing.T) {
	res := Price(Input{
		Qty:        d("2.5"),
		WeightType: model.WeightVolumetric,
		RateKg:     d("5"),
		RateCbm:    d("120"),
	})

	assert.Equal(t, "300.00", res.BasePrice.StringFixed(2))
	assert.Equal(t, "300.00", res.TotalPrice.StringFixed(2))
}

func TestPrice_ZeroRateIsNotAnError(t *testing.T) {
	res := Price(Input{
		Qty:        d("7"),
		WeightType: model.WeightActual,
		Adjustments: []Adjustment{
			{Kind: model.AdjustmentCost, CalcType: model.CalcPercentage, Value: d("50")},
			{Kind: model.AdjustmentCost, CalcType: model.CalcAmount, Value: d("4")},
		},
	})

	assert.True(t, res.BasePrice.IsZero())
	assert.True(t, res.AdjustmentAmounts[0].IsZero())
	assert.Equal(t, "4.00", res.TotalPrice.StringFixed(2))
}

func TestPrice_RoundsEachStep(t *testing.T) {
	res := Price(Input{
		Qty:        d("3"),
		WeightType: model.WeightActual,
		RateKg:     d("3.335"),
		Adjustments: []Adjustment{
			{Kind: model.AdjustmentDiscount, CalcType: model.CalcPercentage, Value: d("12.5")},
		},
	})

	// 3 * 3.335 = 10.005 -> 10.01; 12.5% of 10.01 = 1.25125 -> 1.25
	assert.Equal(t, "10.01", res.BasePrice.StringFixed(2))
	assert.Equal(t, "-1.25", res.AdjustmentAmounts[0].StringFixed(2))
	assert.Equal(t, "8.76", res.TotalPrice.StringFixed(2))
}

func TestPrice_Deterministic(t *testing.T) {
	in := Input{
		Qty:        d("13.7"),
		WeightType: model.WeightActual,
		RateKg:     d("4.15"),
		Adjustments: []Adjustment{
			{Kind: model.AdjustmentCost, CalcType: model.CalcPercentage, Value: d("7.5")},
			{Kind: model.AdjustmentDiscount, CalcType: model.CalcAmount, Value: d("2.2")},
		},
	}

	first := Price(in)
	for i := 0; i < 20; i++ {
		again := Price(in)
		assert.True(t, first.TotalPrice.Equal(again.TotalPrice))
		assert.True(t, first.AdjustmentsTotal.Equal(again.AdjustmentsTotal))
	}
}

func TestValidateAdjustment(t *testing.T) {
	tests := []struct {
		name    string
		adj     Adjustment
		wantErr bool
	}{
		{"cost amount", Adjustment{Kind: model.AdjustmentCost, CalcType: model.CalcAmount, Value: d("3")}, false},
		{"full discount", Adjustment{Kind: model.AdjustmentDiscount, CalcType: model.CalcPercentage, Value: d("100")}, false},
		{"discount over 100 percent", Adjustment{Kind: model.AdjustmentDiscount, CalcType: model.CalcPercentage, Value: d("100.01")}, true},
		{"cost over 100 percent", Adjustment{Kind: model.AdjustmentCost, CalcType: model.CalcPercentage, Value: d("150")}, false},
		{"negative value", Adjustment{Kind: model.AdjustmentCost, CalcType: model.CalcAmount, Value: d("-1")}, true},
		{"unknown kind", Adjustment{Kind: "tax", CalcType: model.CalcAmount, Value: d("1")}, true},
		{"unknown calc type", Adjustment{Kind: model.AdjustmentCost, CalcType: "ratio", Value: d("1")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdjustment(tt.adj)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReprice_UpdatesOrderInPlace(t *testing.T) {
	order := &model.Order{
		Qty:        d("10"),
		WeightType: model.WeightActual,
		RateKg:     d("6"),
		Adjustments: []model.OrderAdjustment{
			{Kind: model.AdjustmentCost, CalcType: model.CalcAmount, Value: d("3")},
			{Kind: model.AdjustmentDiscount, CalcType: model.CalcPercentage, Value: d("10")},
		},
	}

	Reprice(order)

	assert.Equal(t, "60.00", order.BasePrice.StringFixed(2))
	assert.Equal(t, "3.00", order.Adjustments[0].ComputedAmount.StringFixed(2))
	assert.Equal(t, "-6.00", order.Adjustments[1].ComputedAmount.StringFixed(2))
	assert.Equal(t, "-3.00", order.AdjustmentsTotal.StringFixed(2))
	assert.Equal(t, "57.00", order.TotalPrice.StringFixed(2))
}
