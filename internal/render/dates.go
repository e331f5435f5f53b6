package render

import (
	"fmt"
	"time"
)

// ptBRMonths are the lowercase pt-BR month abbreviations, January first.
var ptBRMonths = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// FormatPublicationDate formats t as "dd MMM yyyy" in pt-BR, e.g. "15 mar 2021".
// The date is taken in t's own location. A nil date formats as the empty string.
func FormatPublicationDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d %s %04d", t.Day(), ptBRMonths[t.Month()-1], t.Year())
}
