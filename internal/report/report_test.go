package report

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"live-auction/internal/analytics"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func sampleMetrics() analytics.Metrics {
	return analytics.Metrics{
		RoomID:            "room1",
		Window:            analytics.Window{Start: 0, End: 600_000},
		Revenue:           1234567,
		RealUsers:         3,
		ItemsSold:         1,
		ItemsShowcased:    2,
		TotalBids:         7,
		ConversionPercent: 33,
		Multipliers:       analytics.Multipliers{Average: 2.5, Highest: 2.5, HighestItem: "Lamp"},
		TopBidders:        []analytics.BidderTotal{{User: "USER-A", Name: "<b>Rack_Rat</b>", Total: 250}},
		Unsold:            []analytics.UnsoldItem{{Name: "Vase", StartingPrice: 80}},
		BucketLabels:      []string{"00:00", "00:05"},
		BidCounts:         []int{0, 1},
		JoinCounts:        []int{2, 0},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleMetrics(), nil))
	out := buf.String()

	require.Contains(t, out, "₹1,234,567")
	require.Contains(t, out, "2.5x")
	require.Contains(t, out, "33%")
	require.Contains(t, out, "Vase")
	require.Contains(t, out, "&lt;b&gt;Rack_Rat&lt;/b&gt;", "names are escaped")
	require.NotContains(t, out, "All items sold!")
	require.Contains(t, out, `["00:00","00:05"]`)
	require.Contains(t, out, "[0,1]")
}

func TestRender_AllSold(t *testing.T) {
	t.Parallel()

	m := sampleMetrics()
	m.Unsold = nil
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, m, nil))
	require.Contains(t, buf.String(), "All items sold!")
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path, err := WriteHTML(dir, sampleMetrics(), nil)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "report_room1.html"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "room1 Report")

	path, err = WriteJSON(dir, sampleMetrics())
	require.NoError(t, err)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)

	var back analytics.Metrics
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, sampleMetrics(), back)
}

func TestGroupThousands(t *testing.T) {
	t.Parallel()

	for in, want := range map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"} {
		require.Equal(t, want, groupThousands(in))
	}
}
