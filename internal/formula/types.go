package formula

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// InvestmentType is the asset class of an investment. Values are the labels
// the remote API uses on the wire.
type InvestmentType string

// Investment types.
const (
	FixedIncome    InvestmentType = "Renda Fixa"
	Stock          InvestmentType = "Ação"
	RealEstateFund InvestmentType = "Fundo Imobiliário"
	Crypto         InvestmentType = "Criptomoeda"
)

var investmentTypeNames = map[InvestmentType]string{
	FixedIncome:    "fixed-income",
	Stock:          "stock",
	RealEstateFund: "real-estate-fund",
	Crypto:         "crypto",
}

// InvestmentTypes lists every investment type in display order.
func InvestmentTypes() []InvestmentType {
	return []InvestmentType{FixedIncome, Stock, RealEstateFund, Crypto}
}

// Name returns the short English identifier, e.g. "real-estate-fund".
func (t InvestmentType) Name() string {
	return investmentTypeNames[t]
}

// Valid reports whether t is a known investment type.
func (t InvestmentType) Valid() bool {
	_, ok := investmentTypeNames[t]
	return ok
}

// ParseInvestmentType accepts either a wire label or a short identifier.
func ParseInvestmentType(value string) (InvestmentType, error) {
	trimmed := strings.TrimSpace(value)
	for t, name := range investmentTypeNames {
		if string(t) == trimmed || strings.EqualFold(name, trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown investment type %q", value)
}

// UnmarshalJSON rejects unknown labels.
func (t *InvestmentType) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("investment type: %w", err)
	}
	parsed, err := ParseInvestmentType(label)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TaxType selects how a tax rule's factor is interpreted by the remote API.
type TaxType string

// Tax types.
const (
	TaxPercent     TaxType = "Percent"
	TaxFixed       TaxType = "Fixed"
	TaxMultiplier  TaxType = "Multiplier"
	TaxProgressive TaxType = "Progressive"
	TaxRegressive  TaxType = "Regressive"
	TaxCapped      TaxType = "Capped"
)

// TaxTypes lists every tax type in display order.
func TaxTypes() []TaxType {
	return []TaxType{TaxPercent, TaxFixed, TaxMultiplier, TaxProgressive, TaxRegressive, TaxCapped}
}

// Valid reports whether t is a known tax type.
func (t TaxType) Valid() bool {
	for _, known := range TaxTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTaxType matches a tax type label case-insensitively.
func ParseTaxType(value string) (TaxType, error) {
	trimmed := strings.TrimSpace(value)
	for _, known := range TaxTypes() {
		if strings.EqualFold(string(known), trimmed) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown tax type %q", value)
}

// UnmarshalJSON rejects unknown labels.
func (t *TaxType) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("tax type: %w", err)
	}
	parsed, err := ParseTaxType(label)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TaxBase is what a tax rule is charged on.
type TaxBase string

// Tax bases.
const (
	AppliesGain    TaxBase = "gain"
	AppliesCapital TaxBase = "capital"
)

// Valid reports whether b is a known tax base.
func (b TaxBase) Valid() bool {
	return b == AppliesGain || b == AppliesCapital
}

// ParseTaxBase matches a tax base case-insensitively.
func ParseTaxBase(value string) (TaxBase, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(AppliesGain):
		return AppliesGain, nil
	case string(AppliesCapital):
		return AppliesCapital, nil
	default:
		return "", fmt.Errorf("unknown tax base %q", value)
	}
}

// UnmarshalJSON rejects unknown values.
func (b *TaxBase) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("tax applies: %w", err)
	}
	parsed, err := ParseTaxBase(label)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Role is a user's permission level.
type Role string

// Roles.
const (
	RoleAdmin   Role = "admin"
	RoleDefault Role = "default"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDefault
}
