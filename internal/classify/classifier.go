// Package classify infers the category, title and intent of a free-text
// scheduling request.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sandeepkv93/phantom/internal/model"
)

// Result is the outcome of classifying one request. Category is empty when
// the intent does not need one (delete, query).
type Result struct {
	Category model.Category
	Title    string
	Intent   Intent
}

type intentMatcher struct {
	intent  Intent
	phrases []string
}

type Classifier struct {
	categories []CategoryKeywords
	intents    []intentMatcher
	stop       map[string]bool
	actions    map[string]bool
	temporal   []*regexp.Regexp
}

// temporalPatterns are stripped from titles. They mirror the phrases the
// temporal interpreter consumes.
var temporalPatterns = []string{
	`\b(?:for\s+)?\d+(?:\.\d+)?\s*(?:hours|hour|hrs|hr|minutes|minute|mins|min)\b`,
	`\b(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`,
	`\b(?:right\s+now|now|currently|today|tonight|tomorrow)\b`,
	`\b(?:next|this)\s+(?:week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
	`\bin\s+\d+\s+(?:days?|weeks?)\b`,
	`\b(?:on\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`,
	`\b(?:in\s+the\s+)?(?:morning|afternoon|evening|night)\b`,
}

func NewClassifier(kw Keywords) *Classifier {
	c := &Classifier{
		categories: kw.Categories,
		stop:       make(map[string]bool, len(kw.StopWords)),
		actions:    make(map[string]bool),
	}
	for _, w := range kw.StopWords {
		c.stop[w] = true
	}
	for _, ip := range kw.Intents {
		m := intentMatcher{intent: ip.Intent}
		for _, p := range ip.Phrases {
			m.phrases = append(m.phrases, normalize(p))
			if ip.Intent != IntentQuery && !strings.Contains(p, " ") {
				c.actions[p] = true
			}
		}
		c.intents = append(c.intents, m)
	}
	for _, p := range temporalPatterns {
		c.temporal = append(c.temporal, regexp.MustCompile(p))
	}
	return c
}

func Default() *Classifier { return NewClassifier(DefaultKeywords()) }

// Classify returns model.ErrAmbiguous, alongside a partially filled Result,
// when a creating request names no known category.
func (c *Classifier) Classify(text string) (Result, error) {
	lower := normalize(text)
	tokens := tokenize(lower)
	res := Result{Intent: c.detectIntent(tokens)}
	res.Category = c.category(tokens)
	res.Title = c.title(lower, text, res.Category)

	if len(strings.TrimSpace(text)) < 3 {
		return res, model.ErrAmbiguous
	}
	if res.Category == "" && res.Intent != IntentDelete && res.Intent != IntentQuery {
		return res, model.ErrAmbiguous
	}
	return res, nil
}

func (c *Classifier) Category(text string) model.Category {
	return c.category(tokenize(normalize(text)))
}

func (c *Classifier) detectIntent(tokens []string) Intent {
	joined := " " + strings.Join(tokens, " ") + " "
	for _, m := range c.intents {
		for _, p := range m.phrases {
			if strings.Contains(joined, " "+p+" ") {
				return m.intent
			}
		}
	}
	return IntentGeneral
}

func (c *Classifier) category(tokens []string) model.Category {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, ck := range c.categories {
		for _, w := range ck.Words {
			if set[w] {
				return ck.Category
			}
		}
	}
	return ""
}

func (c *Classifier) title(lower, original string, category model.Category) string {
	cleaned := lower
	for _, re := range c.temporal {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	kept := make([]string, 0)
	for _, tok := range tokenize(cleaned) {
		if c.stop[tok] || c.actions[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	switch {
	case len(kept) > 0:
		return capitalize(strings.Join(kept, " "))
	case category != "":
		return string(category)
	default:
		return strings.TrimSpace(original)
	}
}

// contentWords returns the tokens of text that carry meaning for matching.
func (c *Classifier) contentWords(text string) []string {
	out := make([]string, 0)
	for _, tok := range tokenize(normalize(text)) {
		if len(tok) <= 2 || c.stop[tok] || c.actions[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "’", "'")
	return cases.Lower(language.Und).String(s)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, rest, _ := strings.Cut(s, " ")
	first = cases.Title(language.English).String(first)
	if rest == "" {
		return first
	}
	return first + " " + rest
}
