package scraper

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var balancePrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBalance formats a balance in cents as reais.
func FormatBalance(cents int64) string {
	return balancePrinter.Sprint(currency.Symbol(currency.BRL.Amount(float64(cents) / 100)))
}
