package domain

// Totals — результат подсчёта стоимости набора позиций.
// В текущей системе нет налогов и скидок, поэтому Total всегда равен Subtotal.
type Totals struct {
	SubtotalMinor int64 `json:"subtotalMinor"`
	TotalMinor    int64 `json:"totalMinor"`
}

// CalculateTotals суммирует quantity*unitPrice по позициям.
// Нулевые количество или цена дают нулевой вклад: функция применяется и к
// частично заполненным представлениям корзины/заказа и не должна паниковать.
func CalculateTotals(lines []CartLine) Totals {
	var subtotal int64
	for _, line := range lines {
		subtotal += int64(line.Quantity) * line.UnitPriceMinor
	}
	return Totals{SubtotalMinor: subtotal, TotalMinor: subtotal}
}

// OrderLineTotals считает стоимость по позициям заказа.
func OrderLineTotals(lines []OrderLine) Totals {
	snapshot := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		snapshot = append(snapshot, CartLine{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPriceMinor: l.UnitPriceMinor,
		})
	}
	return CalculateTotals(snapshot)
}
