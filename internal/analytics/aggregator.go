package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"live-auction/internal/models"
	"live-auction/utils"
)

const (
	// BucketSize is the width of one activity bucket
	BucketSize = 5 * time.Minute

	// TopBidderCount is the number of window-wide top bidders reported
	TopBidderCount = 5

	// NoMultiplierItem names the best item when no sale had a known starting price
	NoMultiplierItem = "N/A"

	testUserPrefix = "TEST-"
	testUserMarker = "TEST"
)

// Input is everything one report is computed from
type Input struct {
	RoomID    string
	Window    Window
	Audience  []models.AudienceRecord // join order
	History   []models.AuctionHistoryRecord
	Events    []models.AnalyticsEvent
	Inventory map[string]int64
	Location  *time.Location // bucket labels, UTC when nil
}

// BidderTotal is one bidder's pledged total across the window
type BidderTotal struct {
	User  string `json:"user"`
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

// UnsoldItem is a showcased item that closed without a winner
type UnsoldItem struct {
	Name          string `json:"name"`
	StartingPrice int64  `json:"startingPrice"`
}

// Bucket is one fixed-width slice of the window
type Bucket struct {
	Label string `json:"label"`
	Start int64  `json:"start"`
	Bids  int    `json:"bids"`
	Joins int    `json:"joins"`
}

// Multipliers summarizes final price over starting price for sold items
type Multipliers struct {
	Average     float64 `json:"average"`
	Highest     float64 `json:"highest"`
	HighestItem string  `json:"highestItem"`
}

// Metrics is the flat result of one aggregation run
type Metrics struct {
	RoomID            string        `json:"roomId"`
	Window            Window        `json:"window"`
	Revenue           int64         `json:"revenue"`
	RealUsers         int           `json:"realUsers"`
	ItemsSold         int           `json:"itemsSold"`
	ItemsShowcased    int           `json:"itemsShowcased"`
	AvgViewers        int           `json:"avgViewers"`
	TotalBids         int           `json:"totalBids"`
	ConversionPercent int           `json:"conversionPercent"`
	Multipliers       Multipliers   `json:"multipliers"`
	TopBidders        []BidderTotal `json:"topBidders"`
	Unsold            []UnsoldItem  `json:"unsold"`
	BucketLabels      []string      `json:"bucketLabels"`
	BidCounts         []int         `json:"bidCounts"`
	JoinCounts        []int         `json:"joinCounts"`
}

// Aggregate computes every metric for in. It is a pure function of its input.
func Aggregate(in Input) Metrics {
	users := RealUsers(in.Audience)
	bids := ValidBids(in.Events, in.Window)
	history := InWindow(in.History, in.Window)
	sold, unsold := ClassifySales(history)
	buckets := Buckets(in.Window, bids, users, in.Location)

	m := Metrics{
		RoomID:            in.RoomID,
		Window:            in.Window,
		Revenue:           Revenue(sold),
		RealUsers:         len(users),
		ItemsSold:         len(sold),
		ItemsShowcased:    len(history),
		AvgViewers:        EstimateViewers(in.Events, in.Window),
		TotalBids:         len(bids),
		ConversionPercent: Conversion(len(sold), len(users)),
		Multipliers:       PriceMultipliers(sold, in.Inventory),
		TopBidders:        TopBidders(history, TopBidderCount),
		Unsold:            make([]UnsoldItem, 0, len(unsold)),
		BucketLabels:      make([]string, 0, len(buckets)),
		BidCounts:         make([]int, 0, len(buckets)),
		JoinCounts:        make([]int, 0, len(buckets)),
	}
	for _, h := range unsold {
		m.Unsold = append(m.Unsold, UnsoldItem{Name: h.ItemName, StartingPrice: in.Inventory[h.ItemName]})
	}
	for _, b := range buckets {
		m.BucketLabels = append(m.BucketLabels, b.Label)
		m.BidCounts = append(m.BidCounts, b.Bids)
		m.JoinCounts = append(m.JoinCounts, b.Joins)
	}
	return m
}

// RealUsers drops staff and test accounts, then keeps the first record seen
// for each phone number
func RealUsers(audience []models.AudienceRecord) []models.AudienceRecord {
	seen := make(map[string]struct{}, len(audience))
	out := make([]models.AudienceRecord, 0, len(audience))
	for _, rec := range audience {
		if rec.Role.IsStaff() || strings.HasPrefix(rec.UserID, testUserPrefix) {
			continue
		}
		if _, dup := seen[rec.Phone]; dup {
			continue
		}
		seen[rec.Phone] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// ValidBids keeps placed-bid events inside the window from non-test users
func ValidBids(events []models.AnalyticsEvent, w Window) []models.AnalyticsEvent {
	out := make([]models.AnalyticsEvent, 0)
	for _, ev := range events {
		if ev.EventType != models.EventBidPlaced && ev.Type != models.EventBidPlaced {
			continue
		}
		if !w.Contains(ev.Timestamp) || strings.Contains(ev.User, testUserMarker) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// InWindow keeps the history records closed inside the window
func InWindow(history []models.AuctionHistoryRecord, w Window) []models.AuctionHistoryRecord {
	out := make([]models.AuctionHistoryRecord, 0, len(history))
	for _, h := range history {
		if w.Contains(h.Timestamp) {
			out = append(out, h)
		}
	}
	return out
}

// ClassifySales splits records into sold and unsold, keeping their order
func ClassifySales(history []models.AuctionHistoryRecord) (sold, unsold []models.AuctionHistoryRecord) {
	for _, h := range history {
		if h.Sold() {
			sold = append(sold, h)
		} else {
			unsold = append(unsold, h)
		}
	}
	return sold, unsold
}

// Revenue sums the final price of sold items
func Revenue(sold []models.AuctionHistoryRecord) int64 {
	var total int64
	for _, h := range sold {
		total += h.FinalPrice
	}
	return total
}

// Conversion is items sold per real user as a rounded percentage
func Conversion(itemsSold, realUsers int) int {
	if realUsers == 0 {
		return 0
	}
	return roundHalfUp(float64(itemsSold) / float64(realUsers) * 100)
}

// PriceMultipliers averages finalPrice/startingPrice over sold items whose
// starting price is known and positive. Items without one are left out of
// both the sum and the count.
func PriceMultipliers(sold []models.AuctionHistoryRecord, inventory map[string]int64) Multipliers {
	m := Multipliers{HighestItem: NoMultiplierItem}
	var sum float64
	priced := 0
	for _, h := range sold {
		start := inventory[h.ItemName]
		if start <= 0 {
			continue
		}
		ratio := float64(h.FinalPrice) / float64(start)
		sum += ratio
		priced++
		if ratio > m.Highest {
			m.Highest = ratio
			m.HighestItem = h.ItemName
		}
	}
	if priced > 0 {
		m.Average = sum / float64(priced)
	}
	return m
}

// TopBidders sums each user's amounts over every record's top bidders and
// returns the largest totals. Equal totals keep first-seen order.
func TopBidders(history []models.AuctionHistoryRecord, limit int) []BidderTotal {
	index := make(map[string]int)
	totals := make([]BidderTotal, 0)
	for _, h := range history {
		for _, b := range h.TopBidders {
			i, ok := index[b.User]
			if !ok {
				i = len(totals)
				index[b.User] = i
				totals = append(totals, BidderTotal{User: b.User, Name: utils.Pseudonym(b.User)})
			}
			totals[i].Total += b.Amount
		}
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total > totals[j].Total
	})
	if len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}

// EstimateViewers divides total session time by the window length, both in
// minutes, giving the average number of concurrent viewers
func EstimateViewers(events []models.AnalyticsEvent, w Window) int {
	minutes := w.Minutes()
	if minutes <= 0 {
		return 0
	}
	var totalMs int64
	for _, ev := range events {
		if ev.Kind() == models.EventSessionEnd && ev.Duration > 0 {
			totalMs += ev.Duration
		}
	}
	return roundHalfUp(float64(totalMs) / float64(time.Minute/time.Millisecond) / minutes)
}

// Buckets cuts [Start, End) into BucketSize slices and counts the bids and
// first joins of real users in each
func Buckets(w Window, bids []models.AnalyticsEvent, users []models.AudienceRecord, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}
	size := BucketSize.Milliseconds()
	span := w.End - w.Start
	if span <= 0 {
		return []Bucket{}
	}
	count := (span + size - 1) / size

	buckets := make([]Bucket, count)
	for i := range buckets {
		start := w.Start + int64(i)*size
		buckets[i] = Bucket{
			Label: time.UnixMilli(start).In(loc).Format("15:04"),
			Start: start,
		}
	}

	slot := func(ts int64) (int, bool) {
		if ts < w.Start || ts >= w.End {
			return 0, false
		}
		return int((ts - w.Start) / size), true
	}
	for _, b := range bids {
		if i, ok := slot(b.Timestamp); ok {
			buckets[i].Bids++
		}
	}
	for _, u := range users {
		if i, ok := slot(u.JoinedAt); ok {
			buckets[i].Joins++
		}
	}
	return buckets
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
