package quote

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type Cost struct {
	Amount       float64 `json:"amount"`
	BaseSum      float64 `json:"base_sum"`
	ComboApplied bool    `json:"combo_applied"`
	Currency     string  `json:"currency"`
	Formatted    string  `json:"formatted"`
}

type Item struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	TaxRate  float64 `json:"tax_rate"`
	Currency string  `json:"currency"`
	Symbol   string  `json:"symbol"`
}

type Breakdown struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// CalculateCost prices codes, applying a combo when the set matches one exactly.
// Unknown codes are ignored.
func (c *Catalog) CalculateCost(codes []string) Cost {
	known, _ := c.Filter(codes)

	var base float64
	for _, code := range known {
		base += c.index[code].Price
	}

	cost := Cost{
		Amount:   base,
		BaseSum:  base,
		Currency: c.Currency,
	}
	if combo, ok := c.matchCombo(known); ok {
		cost.Amount = combo.TotalPrice
		cost.ComboApplied = true
	}
	cost.Formatted = c.Format(cost.Amount)
	return cost
}

// BuildItems returns one line per known code. When a combo changes the total,
// line totals are prorated and the last line absorbs the rounding residual so
// the lines always add up to the total.
func (c *Catalog) BuildItems(codes []string) Breakdown {
	known, _ := c.Filter(codes)
	cost := c.CalculateCost(known)

	items := make([]Item, 0, len(known))
	for _, code := range known {
		svc := c.index[code]
		items = append(items, Item{
			Code:        code,
			Description: c.Label(code),
			UnitPrice:   svc.Price,
			Quantity:    1,
			LineTotal:   svc.Price,
		})
	}

	if cost.BaseSum > 0 && math.Abs(cost.Amount-cost.BaseSum) >= 0.01 && len(items) > 0 {
		totalCents := toCents(cost.Amount)
		var assigned int64
		for i := range items {
			if i == len(items)-1 {
				items[i].LineTotal = fromCents(totalCents - assigned)
				break
			}
			cents := toCents(items[i].UnitPrice / cost.BaseSum * cost.Amount)
			assigned += cents
			items[i].LineTotal = fromCents(cents)
		}
	}

	return Breakdown{
		Items: items,
		Totals: Totals{
			Subtotal: cost.Amount,
			TaxRate:  c.TaxRate,
			Currency: c.Currency,
			Symbol:   c.CurrencySymbol,
		},
	}
}

// Tax returns subtotal*rate rounded to cents.
func (c *Catalog) Tax(subtotal float64) float64 {
	return Round2(subtotal * c.TaxRate)
}

// Format renders an amount as "$1.500.000 COP".
func (c *Catalog) Format(amount float64) string {
	return c.CurrencySymbol + groupThousands(int64(math.Round(amount))) + " " + c.Currency
}

func (c *Catalog) matchCombo(codes []string) (Combo, bool) {
	if len(codes) == 0 {
		return Combo{}, false
	}
	key := setKey(codes)
	for _, combo := range c.Combos {
		if setKey(combo.Services) == key {
			return combo, true
		}
	}
	return Combo{}, false
}

/* ---------------------------------- helpers --------------------------------- */

func setKey(codes []string) string {
	uniq := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		uniq[code] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for code := range uniq {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
