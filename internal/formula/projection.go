package formula

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ErrEmptyProjection is returned when a process response carries no rows.
var ErrEmptyProjection = errors.New("formula projection is empty")

// Row is one month of a server-side projection.
type Row struct {
	Month     int     `json:"month"`
	BeforeTax float64 `json:"beforeTax"`
	AfterTax  float64 `json:"afterTax"`
}

// Tax is the amount withheld in the month.
func (r Row) Tax() float64 {
	return r.BeforeTax - r.AfterTax
}

// Projection is the canonical result of processing a formula.
type Projection struct {
	FormulaID     int     `json:"formulaId"`
	FormulaName   string  `json:"formulaName"`
	InitialAmount float64 `json:"initialAmount"`
	Rows          []Row   `json:"rows"`
}

// Last returns the final row, if any.
func (p Projection) Last() (Row, bool) {
	if len(p.Rows) == 0 {
		return Row{}, false
	}
	return p.Rows[len(p.Rows)-1], true
}

// number decodes a JSON number or a numeric string; null decodes as zero.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("invalid numeric string %s: %w", text, err)
		}
		text = unquoted
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", string(data), err)
	}
	*n = number(value)
	return nil
}

type processEnvelope struct {
	ProcessedAmounts *[][]json.RawMessage `json:"processedAmounts"`
	ProcessedAmount  *[]json.RawMessage   `json:"processedAmount"`
}

type headerRow struct {
	FormulaID     number `json:"formulaId"`
	FormulaName   string `json:"formulaName"`
	InitialAmount number `json:"initialAmount"`
}

type processedRow struct {
	Month     number `json:"month"`
	BeforeTax number `json:"beforeTax"`
	AfterTax  number `json:"afterTax"`
}

// NormalizeProjection decodes a process response. Both the
// {"processedAmounts": [[header, rows...], ...]} and the
// {"processedAmount": [header, rows...]} shapes are accepted; the first
// element is a header row and the remaining elements are monthly rows.
func NormalizeProjection(raw []byte) (Projection, error) {
	var envelope processEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Projection{}, fmt.Errorf("decode process response: %w", err)
	}

	var elements []json.RawMessage
	switch {
	case envelope.ProcessedAmounts != nil:
		if len(*envelope.ProcessedAmounts) == 0 {
			return Projection{}, ErrEmptyProjection
		}
		elements = (*envelope.ProcessedAmounts)[0]
	case envelope.ProcessedAmount != nil:
		elements = *envelope.ProcessedAmount
	default:
		return Projection{}, ErrEmptyProjection
	}
	if len(elements) == 0 {
		return Projection{}, ErrEmptyProjection
	}

	var header headerRow
	if err := json.Unmarshal(elements[0], &header); err != nil {
		return Projection{}, fmt.Errorf("decode projection header: %w", err)
	}

	projection := Projection{
		FormulaID:     int(header.FormulaID),
		FormulaName:   header.FormulaName,
		InitialAmount: float64(header.InitialAmount),
		Rows:          make([]Row, 0, len(elements)-1),
	}
	for i, element := range elements[1:] {
		var row processedRow
		if err := json.Unmarshal(element, &row); err != nil {
			return Projection{}, fmt.Errorf("decode projection row %d: %w", i+1, err)
		}
		projection.Rows = append(projection.Rows, Row{
			Month:     int(row.Month),
			BeforeTax: float64(row.BeforeTax),
			AfterTax:  float64(row.AfterTax),
		})
	}

	return projection, nil
}
