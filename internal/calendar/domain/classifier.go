package domain

import "strings"

// Event categories assigned by Classify.
const (
	CategoryMeeting  = "meeting"
	CategoryFocus    = "focus"
	CategoryHealth   = "health"
	CategoryPersonal = "personal"
	CategoryTravel   = "travel"
	CategorySocial   = "social"
	CategoryOther    = "other"
)

// CorrectionLookup returns the category a user previously assigned to a
// normalized title.
type CorrectionLookup interface {
	Lookup(normalizedTitle string) (string, bool)
}

// Corrections is an in-memory CorrectionLookup.
type Corrections map[string]string

// Lookup implements CorrectionLookup.
func (c Corrections) Lookup(normalizedTitle string) (string, bool) {
	category, ok := c[normalizedTitle]
	return category, ok
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryMeeting, []string{"meeting", "sync", "standup", "stand-up", "1:1", "interview", "call", "review", "retro", "demo", "planning"}},
	{CategoryFocus, []string{"focus", "deep", "work", "write", "writing", "study", "code", "coding", "research"}},
	{CategoryHealth, []string{"gym", "run", "yoga", "workout", "doctor", "dentist", "therapy", "walk"}},
	{CategoryTravel, []string{"flight", "train", "travel", "commute", "airport", "trip"}},
	{CategorySocial, []string{"dinner", "lunch", "drinks", "party", "birthday", "coffee", "wedding"}},
	{CategoryPersonal, []string{"errand", "errands", "groceries", "family", "kids", "home", "personal"}},
}

// Classify assigns a category to a title. A user correction for the same
// normalized title always wins over the keyword rules.
func Classify(title string, corrections CorrectionLookup) string {
	key := NormalizeTitle(title)
	if key == "" {
		return CategoryOther
	}
	if corrections != nil {
		if category, ok := corrections.Lookup(key); ok && category != "" {
			return category
		}
	}

	words := strings.Fields(key)
	for _, rule := range categoryKeywords {
		for _, kw := range rule.words {
			for _, w := range words {
				if w == kw {
					return rule.category
				}
			}
		}
	}
	return CategoryOther
}

// NormalizeTitle lower-cases a title and collapses its whitespace. It is the
// key under which corrections are remembered.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
