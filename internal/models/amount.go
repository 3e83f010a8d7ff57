package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount разбирает сумму из JSON числа или строки.
// null, "" и строка из пробелов означают отсутствие суммы.
func parseAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return &d, nil
}

func (p *PurchasePayload) UnmarshalJSON(data []byte) error {
	type plain PurchasePayload
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	amount, err := parseAmount(aux.Amount)
	if err != nil {
		return err
	}
	p.Amount = amount
	return nil
}

func (in *ConversionInput) UnmarshalJSON(data []byte) error {
	type plain ConversionInput
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(in)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	amount, err := parseAmount(aux.Amount)
	if err != nil {
		return err
	}
	in.Amount = amount
	return nil
}
