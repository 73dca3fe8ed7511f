package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.Len(t, c.Services, 7)
	assert.True(t, c.Known("SVC_PED"))
	assert.False(t, c.Known("SVC_PEA"))
	assert.Equal(t, "Análisis de Colas", c.Label("SVC_COLAS"))
	assert.Equal(t, "SVC_NOPE", c.Label("SVC_NOPE"))
	assert.Equal(t, "COP", c.Currency)
	assert.InDelta(t, 0.19, c.TaxRate, 1e-9)
	assert.Equal(t, "SVC_VEH", c.APIServiceID("SVC_VEH"))
}

func TestParseCatalogRejectsUnknownComboCode(t *testing.T) {
	_, err := ParseCatalog([]byte(`
services:
  - {code: A, name: A, price: 1}
combos:
  - {services: [A, B], total_price: 1}
`))
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestFilterKeepsInputOrderAndReportsUnknown(t *testing.T) {
	c := DefaultCatalog()

	known, unknown := c.Filter([]string{"SVC_COLAS", "SVC_X", " SVC_VEH ", "SVC_COLAS", ""})
	assert.Equal(t, []string{"SVC_COLAS", "SVC_VEH"}, known)
	assert.Equal(t, []string{"SVC_X"}, unknown)
}

func TestCalculateCostComboInAnyOrder(t *testing.T) {
	c := DefaultCatalog()

	for _, codes := range [][]string{
		{"SVC_VEH", "SVC_PED"},
		{"SVC_PED", "SVC_VEH"},
	} {
		cost := c.CalculateCost(codes)
		assert.True(t, cost.ComboApplied)
		assert.InDelta(t, 1500000, cost.Amount, 1e-9)
		assert.InDelta(t, 1600000, cost.BaseSum, 1e-9)
		assert.Equal(t, "$1.500.000 COP", cost.Formatted)
	}
}

func TestCalculateCostWithoutCombo(t *testing.T) {
	c := DefaultCatalog()

	cost := c.CalculateCost([]string{"SVC_VEH", "SVC_COLAS"})
	assert.False(t, cost.ComboApplied)
	assert.InDelta(t, 1900000, cost.Amount, 1e-9)
	assert.Equal(t, "$1.900.000 COP", cost.Formatted)

	cost = c.CalculateCost([]string{"SVC_VEH", "SVC_PED", "SVC_COLAS"})
	assert.False(t, cost.ComboApplied, "superset must not match the combo")
}

func TestBuildItemsProratesCombo(t *testing.T) {
	c := DefaultCatalog()

	out := c.BuildItems([]string{"SVC_PED", "SVC_VEH"})
	require.Len(t, out.Items, 2)
	assert.InDelta(t, 609375, out.Items[0].LineTotal, 1e-9)
	assert.InDelta(t, 890625, out.Items[1].LineTotal, 1e-9)
	assert.Equal(t, 1, out.Items[0].Quantity)
	assert.Equal(t, "Análisis Peatonal", out.Items[0].Description)
	assert.InDelta(t, 1500000, out.Totals.Subtotal, 1e-9)
	assert.Equal(t, "$", out.Totals.Symbol)
}

func TestBuildItemsWithoutComboKeepsUnitPrices(t *testing.T) {
	c := DefaultCatalog()

	out := c.BuildItems([]string{"SVC_COLAS", "SVC_ANDEN"})
	require.Len(t, out.Items, 2)
	for _, item := range out.Items {
		assert.InDelta(t, item.UnitPrice, item.LineTotal, 1e-9)
	}
}

func TestBuildItemsSumsExactlyForEverySubset(t *testing.T) {
	catalogs := map[string]*Catalog{
		"default": DefaultCatalog(),
		"awkward": mustParse(t, `
services:
  - {code: A, name: A, price: 100}
  - {code: B, name: B, price: 200}
  - {code: C, name: C, price: 300.33}
  - {code: D, name: D, price: 0.07}
combos:
  - {services: [A, B, C], total_price: 333.33}
  - {services: [A, B, C, D], total_price: 1000.01}
  - {services: [B, D], total_price: 7}
`),
	}

	for name, c := range catalogs {
		codes := c.Codes()
		for mask := 1; mask < 1<<len(codes); mask++ {
			var subset []string
			for i, code := range codes {
				if mask&(1<<i) != 0 {
					subset = append(subset, code)
				}
			}
			out := c.BuildItems(subset)
			cost := c.CalculateCost(subset)

			var sumCents int64
			for _, item := range out.Items {
				sumCents += int64(math.Round(item.LineTotal * 100))
			}
			require.Equalf(t, int64(math.Round(cost.Amount*100)), sumCents, "%s subset %v", name, subset)
			require.InDeltaf(t, cost.Amount, out.Totals.Subtotal, 1e-9, "%s subset %v", name, subset)
		}
	}
}

func TestBuildItemsIgnoresUnknownCodes(t *testing.T) {
	c := DefaultCatalog()

	out := c.BuildItems([]string{"SVC_X", "SVC_AFORO"})
	require.Len(t, out.Items, 1)
	assert.Equal(t, "SVC_AFORO", out.Items[0].Code)
}

func TestTaxAndFormat(t *testing.T) {
	c := DefaultCatalog()

	assert.InDelta(t, 285000, c.Tax(1500000), 1e-9)
	assert.InDelta(t, 0.19, c.Tax(1), 1e-9)
	assert.Equal(t, "$0 COP", c.Format(0))
	assert.Equal(t, "$950 COP", c.Format(950))
	assert.Equal(t, "$12.345.678 COP", c.Format(12345678.4))
}

func mustParse(t *testing.T, raw string) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(raw))
	require.NoError(t, err)
	return c
}
