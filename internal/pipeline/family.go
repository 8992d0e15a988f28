package pipeline

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fontintel/fontintel/internal/model"
)

var familyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://fontintel.dev/ns/family"))

// FamilyID derives a stable identifier for the family a font belongs to, so
// every style of one family from one foundry maps to the same value. The
// reconciled foundry is preferred over the name table.
func FamilyID(facts *model.ParsedFontFacts, merged *model.MergedFacts) string {
	if facts == nil || strings.TrimSpace(facts.FamilyName) == "" {
		return ""
	}
	foundry := facts.Foundry
	if merged != nil && merged.Foundry.Present() {
		foundry = merged.Foundry.Value
	}
	key := foldKey(facts.FamilyName) + "\x00" + foldKey(foundry)
	return uuid.NewSHA1(familyNamespace, []byte(key)).String()
}

func foldKey(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}
