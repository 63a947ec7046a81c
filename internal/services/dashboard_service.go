package services

import (
	"sort"

	"mermanager/internal/domain"
)

// DeriveStats projects aggregate sales figures from the current listing
// snapshot. Revenue and profit count SOLD listings only.
func DeriveStats(items []domain.Listing) domain.UserStats {
	var st domain.UserStats
	for _, l := range items {
		switch l.Status {
		case domain.StatusSold:
			st.TotalSales += l.Price
			st.TotalProfit += l.Profit()
			st.SoldCount++
		case domain.StatusActive:
			st.ActiveListings++
		}
	}
	return st
}

// StatusBuckets breaks the snapshot down by status for the chart.
func StatusBuckets(items []domain.Listing) []domain.StatusBucket {
	var active, sold, draft int
	for _, l := range items {
		switch l.Status {
		case domain.StatusActive:
			active++
		case domain.StatusSold:
			sold++
		case domain.StatusDraft:
			draft++
		}
	}
	return []domain.StatusBucket{
		{Name: "出品中", Value: active},
		{Name: "売却済", Value: sold},
		{Name: "下書き", Value: draft},
	}
}

// RecentSales returns the five most recently updated SOLD listings.
func RecentSales(items []domain.Listing) []domain.Listing {
	sold := make([]domain.Listing, 0, len(items))
	for _, l := range items {
		if l.Status == domain.StatusSold {
			sold = append(sold, l)
		}
	}
	sort.SliceStable(sold, func(i, j int) bool { return sold[i].UpdatedAt > sold[j].UpdatedAt })
	if len(sold) > 5 {
		sold = sold[:5]
	}
	return sold
}
