package data

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Record is one SKU observation for a store at a point in time. Price and
// InStock are null when the page did not say.
type Record struct {
	StoreID   string              `json:"store_id"`
	SKU       string              `json:"sku"`
	Price     decimal.NullDecimal `json:"price"`
	InStock   *bool               `json:"in_stock"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Key identifies the record within a snapshot.
func (r *Record) Key() string {
	return r.StoreID + "/" + r.SKU
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid JSON")
	}

	for _, path := range []string{"store_id", "sku"} {
		if v := gjson.GetBytes(data, path); !v.Exists() || v.String() == "" {
			return errors.Errorf("JSON object does not have a value for path: %s", path)
		}
	}

	type record Record
	var v record
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Record(v)
	return nil
}

// Price returns a valid NullDecimal for s, or an invalid one if s is not a
// decimal number.
func Price(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func Bool(b bool) *bool {
	return &b
}
