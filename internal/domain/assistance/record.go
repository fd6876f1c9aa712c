package assistance

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Nature discriminates donated material from lent material.
type Nature string

const (
	NatureDonation Nature = "DONATION"
	NatureLoan     Nature = "LOAN"
)

// Record is a read-only snapshot of a medical-assistance record as supplied
// by the record source.
type Record struct {
	ID              int64
	Nature          Nature
	Returned        bool
	DueDate         *time.Time // Only meaningful for an unreturned loan
	ReturnDate      *time.Time
	BeneficiaryName string
	EquipmentLabel  string
}

func (r Record) IsLoan() bool {
	return r.Nature == NatureLoan
}

// loanStems are matched against the accent-folded, lower-cased label.
var loanStems = []string{"pret", "loan"}

// NatureFromLabel maps a free-text "nature of donation" label to a Nature.
// The label is accent-folded so "Prêt", "PRET" and "prêt de matériel" all
// resolve to NatureLoan. Anything else is a donation.
func NatureFromLabel(label string) Nature {
	folded := foldLabel(label)
	for _, word := range strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		for _, stem := range loanStems {
			if word == stem || word == stem+"s" {
				return NatureLoan
			}
		}
	}
	return NatureDonation
}

func foldLabel(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, label)
	if err != nil {
		folded = label
	}
	return strings.ToLower(folded)
}
