package formula

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMalformedResponse is returned when a response lacks its expected envelope.
var ErrMalformedResponse = errors.New("malformed API response")

// wireFormula is a formula as the remote API sends it: investments and
// taxes arrive as capitalized arrays.
type wireFormula struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	UserID      int          `json:"userId"`
	Investments []Investment `json:"Investments"`
	Taxes       []Tax        `json:"Taxes"`
}

func (w wireFormula) canonical() Formula {
	f := Formula{
		ID:     w.ID,
		Name:   w.Name,
		UserID: w.UserID,
		Taxes:  w.Taxes,
	}
	if len(w.Investments) > 0 {
		investment := w.Investments[0]
		f.Investment = &investment
	}
	if f.Taxes == nil {
		f.Taxes = []Tax{}
	}
	return f
}

// DecodeFormulas decodes a {"formulas": [...]} list response.
func DecodeFormulas(raw []byte) ([]Formula, error) {
	var envelope struct {
		Formulas *[]wireFormula `json:"formulas"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode formulas: %w", err)
	}
	if envelope.Formulas == nil {
		return nil, fmt.Errorf("decode formulas: %w: missing \"formulas\"", ErrMalformedResponse)
	}

	formulas := make([]Formula, 0, len(*envelope.Formulas))
	for _, wire := range *envelope.Formulas {
		formulas = append(formulas, wire.canonical())
	}
	return formulas, nil
}

// DecodeFormula decodes a {"formula": {...}} response.
func DecodeFormula(raw []byte) (Formula, error) {
	var envelope struct {
		Formula *wireFormula `json:"formula"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Formula{}, fmt.Errorf("decode formula: %w", err)
	}
	if envelope.Formula == nil {
		return Formula{}, fmt.Errorf("decode formula: %w: missing \"formula\"", ErrMalformedResponse)
	}
	return envelope.Formula.canonical(), nil
}

// DecodeUser decodes a {"user": {...}} response.
func DecodeUser(raw []byte) (User, error) {
	var envelope struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}
	if envelope.User == nil {
		return User{}, fmt.Errorf("decode user: %w: missing \"user\"", ErrMalformedResponse)
	}
	return *envelope.User, nil
}

// DecodeAuth decodes a {"token": ..., "user": {...}} login or registration
// response.
func DecodeAuth(raw []byte) (Auth, error) {
	var auth Auth
	if err := json.Unmarshal(raw, &auth); err != nil {
		return Auth{}, fmt.Errorf("decode auth: %w", err)
	}
	if auth.Token == "" {
		return Auth{}, fmt.Errorf("decode auth: %w: missing \"token\"", ErrMalformedResponse)
	}
	return auth, nil
}
