package contacts

import (
	"strings"
	"unicode"

	"github.com/sells-group/warmline/internal/model"
)

// prefixLen is the number of leading last-name characters compared by the
// fallback rule. Shorter last names only match exactly.
const prefixLen = 3

// Match finds the first contact matching first and last name. An exact
// case-insensitive match on both names wins; otherwise, when last has at
// least three characters, a contact with the same first name whose last
// name starts with the first three characters of last is accepted. Last
// names are compared on their letters and digits only, so "O'Brien" and
// "Obrien-Smith" share the prefix "obr". Ties resolve to input order.
func Match(first, last string, candidates []model.Contact) (model.Contact, bool) {
	first = normalize(first)
	last = lettersOnly(last)
	if first == "" {
		return model.Contact{}, false
	}

	for _, c := range candidates {
		if normalize(c.FirstName) == first && lettersOnly(c.LastName) == last {
			return c, true
		}
	}

	runes := []rune(last)
	if len(runes) < prefixLen {
		return model.Contact{}, false
	}
	prefix := string(runes[:prefixLen])
	for _, c := range candidates {
		if normalize(c.FirstName) == first && strings.HasPrefix(lettersOnly(c.LastName), prefix) {
			return c, true
		}
	}
	return model.Contact{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// lettersOnly lowercases s and drops everything but letters and digits.
func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
