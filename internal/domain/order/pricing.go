package order

// Breakdown is the price decomposition of an order in integer minor units.
// total = subtotal - discount + fee, always reconciling to the cent.
type Breakdown struct {
	SubtotalCents int64
	DiscountCents int64
	FeeCents      int64
	TotalCents    int64
}

// ComputeBreakdown derives the breakdown from snapshotted line items.
// discountCents has already been clamped by the promo evaluator; the platform
// fee applies to the discounted subtotal.
func ComputeBreakdown(items []Item, discountCents int64, feeRateBps int64) Breakdown {
	var subtotal int64
	for _, item := range items {
		subtotal += item.SubtotalCents()
	}

	if discountCents > subtotal {
		discountCents = subtotal
	}
	if discountCents < 0 {
		discountCents = 0
	}

	fee := RoundRateBps(subtotal-discountCents, feeRateBps)

	return Breakdown{
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		FeeCents:      fee,
		TotalCents:    subtotal - discountCents + fee,
	}
}

// RoundRateBps computes amount * bps/10000 rounded half up. All financial
// rounding in this package goes through here so percentage discounts and
// platform fees round identically.
func RoundRateBps(amountCents int64, bps int64) int64 {
	if amountCents <= 0 || bps <= 0 {
		return 0
	}
	return (amountCents*bps + 5000) / 10000
}
