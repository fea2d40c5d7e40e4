package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fjod/autoparts-storefront/internal/domain"
)

var errMalformed = errors.New("malformed cart entry")

// decodeItems accepts only an array of objects carrying a non-empty string id,
// a string name, a numeric price and a positive integer quantity.
func decodeItems(raw json.RawMessage) ([]domain.LineItem, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var entries []map[string]any
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: not an array", errMalformed)
	}

	items := make([]domain.LineItem, 0, len(entries))
	for i, entry := range entries {
		item, err := decodeItem(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", errMalformed, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(entry map[string]any) (domain.LineItem, error) {
	if entry == nil {
		return domain.LineItem{}, errors.New("not an object")
	}

	id, ok := entry["id"].(string)
	if !ok || id == "" {
		return domain.LineItem{}, errors.New("id must be a non-empty string")
	}
	name, ok := entry["name"].(string)
	if !ok {
		return domain.LineItem{}, errors.New("name must be a string")
	}

	priceNum, ok := entry["price"].(json.Number)
	if !ok {
		return domain.LineItem{}, errors.New("price must be a number")
	}
	price, err := priceNum.Float64()
	if err != nil || math.IsInf(price, 0) {
		return domain.LineItem{}, errors.New("price must be a number")
	}

	qtyNum, ok := entry["quantity"].(json.Number)
	if !ok {
		return domain.LineItem{}, errors.New("quantity must be a number")
	}
	qty, err := qtyNum.Int64()
	if err != nil || qty < 1 || qty > math.MaxInt32 {
		return domain.LineItem{}, errors.New("quantity must be a positive integer")
	}

	image, _ := entry["image"].(string)

	return domain.LineItem{
		ID:       id,
		Name:     name,
		Image:    image,
		Price:    price,
		Quantity: int(qty),
	}, nil
}
