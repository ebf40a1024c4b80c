// Package formula models the investment formulas owned by the remote API and
// normalizes the API's response shapes into one canonical form.
package formula

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Investment is the single asset a formula simulates.
type Investment struct {
	ID        int            `json:"id,omitempty"`
	Amount    float64        `json:"amount"`
	Factor    float64        `json:"factor"`
	Type      InvestmentType `json:"type"`
	FormulaID int            `json:"formulaId,omitempty"`
}

// Validate reports every problem with the investment.
func (i Investment) Validate() error {
	var err error
	if i.Amount <= 0 {
		err = multierr.Append(err, fmt.Errorf("investment amount: must be greater than zero, got %g", i.Amount))
	}
	if !i.Type.Valid() {
		err = multierr.Append(err, fmt.Errorf("investment type: unknown value %q", i.Type))
	}
	return err
}

// Tax is one tax rule of a formula. Initial and End bound an inclusive
// window of months; nil means unbounded on that side.
type Tax struct {
	ID        int     `json:"id,omitempty"`
	Initial   *int    `json:"initial"`
	End       *int    `json:"end"`
	Factor    float64 `json:"factor"`
	Type      TaxType `json:"type"`
	Applies   TaxBase `json:"applies"`
	FormulaID int     `json:"formulaId,omitempty"`
}

// ActiveIn reports whether the rule's window covers month.
func (t Tax) ActiveIn(month int) bool {
	if t.Initial != nil && month < *t.Initial {
		return false
	}
	if t.End != nil && month > *t.End {
		return false
	}
	return true
}

// Validate reports every problem with the tax rule.
func (t Tax) Validate() error {
	var err error
	if !t.Type.Valid() {
		err = multierr.Append(err, fmt.Errorf("tax type: unknown value %q", t.Type))
	}
	if !t.Applies.Valid() {
		err = multierr.Append(err, fmt.Errorf("tax applies: unknown value %q", t.Applies))
	}
	if t.Initial != nil && t.End != nil && *t.Initial > *t.End {
		err = multierr.Append(err, fmt.Errorf("tax window: initial %d is after end %d", *t.Initial, *t.End))
	}
	return err
}

// Window renders the rule's month window, e.g. "1-12", "6+" or "all".
func (t Tax) Window() string {
	switch {
	case t.Initial == nil && t.End == nil:
		return "all"
	case t.End == nil:
		return fmt.Sprintf("%d+", *t.Initial)
	case t.Initial == nil:
		return fmt.Sprintf("..%d", *t.End)
	default:
		return fmt.Sprintf("%d-%d", *t.Initial, *t.End)
	}
}

// Formula is the canonical local copy of a remote formula.
type Formula struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	UserID     int         `json:"userId"`
	Investment *Investment `json:"investment,omitempty"`
	Taxes      []Tax       `json:"taxes"`
}

// Draft is the payload that creates a formula.
type Draft struct {
	Name       string     `json:"formulaName"`
	Investment Investment `json:"investment"`
	Taxes      []Tax      `json:"taxes"`
}

// Validate reports every problem with the draft.
func (d Draft) Validate() error {
	var err error
	if strings.TrimSpace(d.Name) == "" {
		err = multierr.Append(err, fmt.Errorf("formula name: must not be empty"))
	}
	err = multierr.Append(err, d.Investment.Validate())
	for i, tax := range d.Taxes {
		if taxErr := tax.Validate(); taxErr != nil {
			err = multierr.Append(err, fmt.Errorf("tax %d: %w", i+1, taxErr))
		}
	}
	return err
}

// User is an account of the remote API.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Auth is the result of a successful login or registration.
type Auth struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
