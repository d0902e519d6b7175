package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CartItem is one configured banner line as the storefront sends it.
type CartItem struct {
	ID             string          `json:"id"`
	WidthIn        float64         `json:"width_in"`
	HeightIn       float64         `json:"height_in"`
	Material       string          `json:"material"`
	Grommets       string          `json:"grommets,omitempty"`
	PolePockets    string          `json:"pole_pockets,omitempty"`
	Rope           bool            `json:"rope,omitempty"`
	FileKey        string          `json:"file_key,omitempty"`
	TextLayers     json.RawMessage `json:"text_layers,omitempty"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	LineTotalCents int64           `json:"line_total_cents"`
}

// ConfigKey identifies items that describe the same physical product.
func (i CartItem) ConfigKey() string {
	layers := i.TextLayers
	var compact bytes.Buffer
	if len(layers) > 0 && json.Compact(&compact, layers) == nil {
		layers = compact.Bytes()
	}
	return fmt.Sprintf("%g|%g|%s|%s|%s|%t|%s|%s",
		i.WidthIn, i.HeightIn, i.Material, i.Grommets, i.PolePockets, i.Rope, i.FileKey, layers)
}

// CartTotal returns the sum of line totals in dollars.
func CartTotal(items []CartItem) decimal.Decimal {
	var cents int64
	for _, item := range items {
		cents += item.LineTotalCents
	}
	return decimal.New(cents, -2)
}

// MergeCartItems combines two item lists. An item whose id is already
// present replaces that line; items with different ids but the same
// configuration are collapsed, summing quantities. A replacement whose new
// configuration matches another line is folded into that line.
func MergeCartItems(existing, incoming []CartItem) []CartItem {
	merged := make([]CartItem, 0, len(existing)+len(incoming))
	byID := make(map[string]int)
	byKey := make(map[string]int)
	dropped := make(map[int]bool)

	fold := func(i int, item CartItem) {
		line := &merged[i]
		line.Quantity += item.Quantity
		line.LineTotalCents = line.UnitPriceCents * int64(line.Quantity)
	}

	add := func(item CartItem) {
		key := item.ConfigKey()
		if item.ID != "" {
			if i, ok := byID[item.ID]; ok {
				oldKey := merged[i].ConfigKey()
				if byKey[oldKey] == i {
					delete(byKey, oldKey)
				}
				if j, ok := byKey[key]; ok && j != i {
					fold(j, item)
					dropped[i] = true
					for id, idx := range byID {
						if idx == i {
							byID[id] = j
						}
					}
					return
				}
				merged[i] = item
				byKey[key] = i
				return
			}
		}

		if i, ok := byKey[key]; ok {
			fold(i, item)
			if item.ID != "" {
				byID[item.ID] = i
			}
			return
		}

		merged = append(merged, item)
		byKey[key] = len(merged) - 1
		if item.ID != "" {
			byID[item.ID] = len(merged) - 1
		}
	}

	for _, item := range existing {
		add(item)
	}
	for _, item := range incoming {
		add(item)
	}
	if len(dropped) == 0 {
		return merged
	}

	out := make([]CartItem, 0, len(merged)-len(dropped))
	for i, item := range merged {
		if !dropped[i] {
			out = append(out, item)
		}
	}
	return out
}
