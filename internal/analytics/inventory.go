package analytics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"live-auction/utils"
)

// LoadInventory reads starting prices from a CSV with Name and Price columns.
// Prices keep their digits only, so "₹1,200" reads as 1200. A missing file is
// not an error: the report runs without reference prices.
func LoadInventory(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		utils.Warn("analytics: inventory file not found, multipliers will be 0", map[string]any{"path": path})
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to open inventory: %w", err)
	}
	defer f.Close()

	inv, err := ParseInventory(f)
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to read inventory %s: %w", path, err)
	}
	utils.Info("analytics: inventory loaded", map[string]any{"path": path, "items": len(inv)})
	return inv, nil
}

// ParseInventory reads inventory rows from r. The first row is the header.
func ParseInventory(r io.Reader) (map[string]int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, err
	}

	nameCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "Name":
			nameCol = i
		case "Price":
			priceCol = i
		}
	}
	if nameCol < 0 {
		return nil, errors.New("missing Name column")
	}

	inv := make(map[string]int64)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if nameCol >= len(row) {
			continue
		}
		var price int64
		if priceCol >= 0 && priceCol < len(row) {
			price = digitsOnly(row[priceCol])
		}
		inv[row[nameCol]] = price
	}
	return inv, nil
}

func digitsOnly(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
