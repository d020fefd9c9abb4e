/*
number.go - Sequential invoice numbering

  Invoice numbers are RE-YYYY-NNNN, a zero-padded sequence scoped by
  year that restarts at 0001 every January. "Read last number, add one"
  is a shared-counter hazard under concurrent requests, so the store
  allocates the next number inside the same database transaction that
  inserts the invoice.
*/
package invoicing

import (
	"fmt"
	"strconv"
	"strings"
)

const numberPrefix = "RE"

// NumberPrefix returns the prefix all invoice numbers of a year share,
// e.g. "RE-2025-". Used by the store to find the latest number.
func NumberPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", numberPrefix, year)
}

// FormatNumber renders an invoice number, e.g. FormatNumber(2025, 7)
// yields "RE-2025-0007".
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", numberPrefix, year, seq)
}

// NextNumber derives the follow-up to the latest existing number of a
// year. An empty or unparseable latest number starts the sequence at 1.
func NextNumber(year int, latest string) string {
	seq := 1
	if parts := strings.Split(latest, "-"); len(parts) == 3 {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			seq = n + 1
		}
	}
	return FormatNumber(year, seq)
}
