package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UncategorizedID is the sentinel category for items whose categoryId does
// not match any category.
const UncategorizedID = "uncategorized"

// Grams is a weight in grams. Older records stored form input verbatim, so
// decoding also accepts numeric strings and empty strings.
type Grams float64

// UnmarshalJSON implements json.Unmarshaler.
func (g *Grams) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*g = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*g = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("parsing weight %q: %w", str, err)
		}
		*g = Grams(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*g = Grams(f)
	return nil
}

// Item is one piece of gear in the master inventory.
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Weight       Grams      `json:"weight"`
	Unit         WeightUnit `json:"unit"`
	CategoryID   string     `json:"categoryId"`
	IsWorn       bool       `json:"isWorn"`
	IsConsumable bool       `json:"isConsumable"`
	Servings     int        `json:"servings"`
	IsOwned      bool       `json:"isOwned"`
	Notes        string     `json:"notes"`
	PhotoRef     string     `json:"photoRef,omitempty"`
}

// Category groups inventory items and walk lines.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
