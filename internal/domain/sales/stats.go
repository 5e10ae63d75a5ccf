package sales

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// StatusBucket groups order status codes for revenue totals.
type StatusBucket string

const (
	BucketPaid       StatusBucket = "paid"
	BucketProcessing StatusBucket = "processing"
	BucketCancelled  StatusBucket = "cancelled"
	BucketOther      StatusBucket = "other"
)

var statusBuckets = map[string]StatusBucket{
	"complete":        BucketPaid,
	"processing":      BucketPaid,
	"shipped":         BucketPaid,
	"delivered":       BucketPaid,
	"pending":         BucketProcessing,
	"pending_payment": BucketProcessing,
	"payment_review":  BucketProcessing,
	"holded":          BucketProcessing,
	"canceled":        BucketCancelled,
	"closed":          BucketCancelled,
	"refunded":        BucketCancelled,
}

// BucketOf returns the bucket a status code belongs to.
func BucketOf(status string) StatusBucket {
	if b, ok := statusBuckets[strings.ToLower(status)]; ok {
		return b
	}
	return BucketOther
}

// Stats aggregates the orders of a run. Amounts are grand totals.
type Stats struct {
	TotalSales      decimal.Decimal            `json:"total_sales"`
	PaidSales       decimal.Decimal            `json:"paid_sales"`
	ProcessingSales decimal.Decimal            `json:"processing_sales"`
	CancelledSales  decimal.Decimal            `json:"cancelled_sales"`
	AverageTicket   decimal.Decimal            `json:"average_ticket"`
	OrderCount      int                        `json:"order_count"`
	RowCount        int                        `json:"row_count"`
	OrdersByStatus  map[string]int             `json:"orders_by_status"`
	RevenueByCity   map[string]decimal.Decimal `json:"revenue_by_city"`
	RevenueByRegion map[string]decimal.Decimal `json:"revenue_by_region"`
	RevenueByDay    map[string]decimal.Decimal `json:"revenue_by_day"`
}

// Summarize computes the statistics of orders.
func Summarize(orders []Order) Stats {
	s := Stats{
		TotalSales:      decimal.Zero,
		PaidSales:       decimal.Zero,
		ProcessingSales: decimal.Zero,
		CancelledSales:  decimal.Zero,
		AverageTicket:   decimal.Zero,
		OrdersByStatus:  make(map[string]int),
		RevenueByCity:   make(map[string]decimal.Decimal),
		RevenueByRegion: make(map[string]decimal.Decimal),
		RevenueByDay:    make(map[string]decimal.Decimal),
	}

	for i := range orders {
		o := &orders[i]
		total := o.GrandTotal

		s.TotalSales = s.TotalSales.Add(total)
		s.OrderCount++
		s.RowCount += len(o.TopLevelItems())
		s.OrdersByStatus[o.Status]++

		switch BucketOf(o.Status) {
		case BucketPaid:
			s.PaidSales = s.PaidSales.Add(total)
		case BucketProcessing:
			s.ProcessingSales = s.ProcessingSales.Add(total)
		case BucketCancelled:
			s.CancelledSales = s.CancelledSales.Add(total)
		}

		addTo(s.RevenueByCity, o.City(), total)
		addTo(s.RevenueByRegion, o.Region(), total)
		addTo(s.RevenueByDay, o.Day(), total)
	}

	if s.OrderCount > 0 {
		s.AverageTicket = s.TotalSales.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(moneyPlaces)
	}
	return s
}

func addTo(m map[string]decimal.Decimal, key string, amount decimal.Decimal) {
	if key == "" {
		return
	}
	m[key] = m[key].Add(amount)
}

// Ranked is one entry of a ranking.
type Ranked struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// TopN returns the n entries of m with the highest amount, ties broken by
// key. n <= 0 returns every entry.
func TopN(m map[string]decimal.Decimal, n int) []Ranked {
	out := make([]Ranked, 0, len(m))
	for k, v := range m {
		out = append(out, Ranked{Key: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DailyTrend returns RevenueByDay sorted by day.
func (s Stats) DailyTrend() []Ranked {
	out := make([]Ranked, 0, len(s.RevenueByDay))
	for k, v := range s.RevenueByDay {
		out = append(out, Ranked{Key: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
