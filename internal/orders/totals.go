package orders

import (
	"sort"

	"koop-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Line is one order item as shown to members and staff.
type Line struct {
	ItemID        uint            `json:"item_id"`
	ProductID     uint            `json:"product_id"`
	ProducerShort string          `json:"producer_short"`
	ProductName   string          `json:"product_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
}

// Totals are the values derived from an order's items and its owner's profile.
// Nothing here is rounded; rounding happens when values are formatted.
type Totals struct {
	Cost         decimal.Decimal     `json:"order_cost"`
	Fund         decimal.Decimal     `json:"user_fund"`
	CostWithFund decimal.Decimal     `json:"order_cost_with_fund"`
	Balance      decimal.NullDecimal `json:"order_balance"`
	IsSettled    bool                `json:"is_settled"`
}

// Cost sums quantity times price. Items must have Product loaded.
func Cost(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Quantity.Mul(it.Product.Price))
	}
	return total
}

func ComputeTotals(order *models.Order, items []models.OrderItem, fund decimal.Decimal) Totals {
	cost := Cost(items)
	t := Totals{
		Cost:         cost,
		Fund:         fund,
		CostWithFund: cost.Mul(fund),
	}
	if order.PaidAmount.Valid {
		balance := order.PaidAmount.Decimal.Sub(t.CostWithFund)
		t.Balance = decimal.NewNullDecimal(balance)
		t.IsSettled = !balance.IsNegative()
	}
	return t
}

// Lines converts items to display lines sorted by producer short, then product name.
// Items must have Product and Product.Producer loaded.
func Lines(items []models.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{
			ItemID:        it.ID,
			ProductID:     it.ProductID,
			ProducerShort: it.Product.Producer.Short,
			ProductName:   it.Product.Name,
			Quantity:      it.Quantity,
			Price:         it.Product.Price,
			Cost:          it.Quantity.Mul(it.Product.Price),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].ProducerShort != lines[j].ProducerShort {
			return lines[i].ProducerShort < lines[j].ProducerShort
		}
		return lines[i].ProductName < lines[j].ProductName
	})
	return lines
}
