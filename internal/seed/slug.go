package seed

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Namespace roots every seed ID.
var Namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("seed.pgben"))

// ID is the stable primary key of a seeded row, so re-running a set updates
// the rows it wrote before instead of duplicating them.
func ID(table, code string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(table+":"+code))
}

// Slug folds accents and joins words with underscores:
// "Auxílio Natalidade" becomes "auxilio_natalidade".
func Slug(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	return b.String()
}
