// ABOUTME: Input normalization and validation for phones, names and edit keywords
// ABOUTME: Pure functions; the dialog handlers decide what to do with the results

package conversation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/2389/raketa/internal/store"
)

// PhoneRules configure phone normalization for one country.
type PhoneRules struct {
	CountryCode string // digits only, e.g. "7"
	TrunkPrefix string // national dialing prefix replaced by the country code, e.g. "8"

	valid *regexp.Regexp
}

// DefaultPhoneRules normalize Russian numbers.
var DefaultPhoneRules = NewPhoneRules("7", "8")

// NewPhoneRules builds rules accepting +<cc> followed by ten digits.
func NewPhoneRules(countryCode, trunkPrefix string) PhoneRules {
	return PhoneRules{
		CountryCode: countryCode,
		TrunkPrefix: trunkPrefix,
		valid:       regexp.MustCompile(`^\+` + regexp.QuoteMeta(countryCode) + `\d{10}$`),
	}
}

// Normalize strips everything but digits and '+', then rewrites national
// forms to +<cc>. Normalize(Normalize(x)) == Normalize(x).
func (r PhoneRules) Normalize(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if c == '+' || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	clean := b.String()

	if strings.HasPrefix(clean, "+") {
		return "+" + strings.ReplaceAll(clean, "+", "")
	}

	national := len(r.CountryCode) + 10
	switch {
	case r.TrunkPrefix != "" && len(clean) == len(r.TrunkPrefix)+10 && strings.HasPrefix(clean, r.TrunkPrefix):
		return "+" + r.CountryCode + clean[len(r.TrunkPrefix):]
	case len(clean) == national && strings.HasPrefix(clean, r.CountryCode):
		return "+" + clean
	default:
		return "+" + r.CountryCode + clean
	}
}

// Valid reports whether a normalized phone has the expected shape.
func (r PhoneRules) Valid(phone string) bool {
	if r.valid == nil {
		r = NewPhoneRules(r.CountryCode, r.TrunkPrefix)
	}
	return r.valid.MatchString(phone)
}

var validName = regexp.MustCompile(`^[А-Яа-яЁё\s-]{3,}$`)

// maxNameWords caps how many words of the input are kept.
const maxNameWords = 3

// NormalizeName returns the display name built from the first words of raw.
// empty is true when raw has no words at all; ok is false when the result
// is not a plausible Cyrillic name.
func NormalizeName(raw string) (name string, ok bool, empty bool) {
	words := strings.Fields(norm.NFC.String(raw))
	if len(words) == 0 {
		return "", false, true
	}
	if len(words) > maxNameWords {
		words = words[:maxNameWords]
	}
	name = strings.Join(words, " ")
	return name, validName.MatchString(name), false
}

// keywordMatch compares s with a keyword ignoring surrounding space and case.
func keywordMatch(s, keyword string) bool {
	if keyword == "" {
		return false
	}
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(s)) == fold.String(strings.TrimSpace(keyword))
}

// isSkip reports whether the input means "skip this step".
func (e *Engine) isSkip(in Inbound) bool {
	switch in.Kind {
	case KindButton:
		return in.Text == payloadSkip
	case KindText:
		return keywordMatch(in.Text, e.texts.SkipKeyword)
	default:
		return false
	}
}

// isClearKeyword reports whether the input asks to clear the field.
func (e *Engine) isClearKeyword(in Inbound) bool {
	return in.Kind == KindText && keywordMatch(in.Text, e.texts.ClearKeyword)
}

// editValue turns an edit-step text input into a patch field: skip keeps,
// the clear keyword clears, anything else sets the trimmed text.
func (e *Engine) editValue(in Inbound) store.Optional[string] {
	switch {
	case e.isSkip(in):
		return store.Keep[string]()
	case e.isClearKeyword(in):
		return store.Clear[string]()
	default:
		return store.Set(strings.TrimSpace(in.Text))
	}
}
