package orders

import "fmt"

// FormatOrderNumber renders the display number for a type and sequence
// value, e.g. SO-00042. Pure formatting; the sequence comes from storage.
func FormatOrderNumber(t OrderType, seq int64) string {
	return fmt.Sprintf("%s-%05d", t.Prefix(), seq)
}
