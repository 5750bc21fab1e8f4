package classify

import "github.com/sandeepkv93/phantom/internal/model"

type Intent string

const (
	IntentCreate     Intent = "create"
	IntentUpdate     Intent = "update"
	IntentDelete     Intent = "delete"
	IntentReschedule Intent = "reschedule"
	IntentQuery      Intent = "query"
	IntentGeneral    Intent = "general"
)

type CategoryKeywords struct {
	Category model.Category
	Words    []string
}

// Keywords is the immutable vocabulary for classification. Categories are
// listed in the order they are tested, most important first.
type Keywords struct {
	Categories []CategoryKeywords
	// Intents is checked in order; the first intent with a matching phrase wins.
	Intents   []IntentPhrases
	StopWords []string
}

type IntentPhrases struct {
	Intent  Intent
	Phrases []string
}

func DefaultKeywords() Keywords {
	return Keywords{
		Categories: []CategoryKeywords{
			{Category: model.CategoryExam, Words: []string{"exam", "exams", "test", "quiz", "midterm", "final", "finals"}},
			{Category: model.CategoryStudy, Words: []string{"study", "studying", "review", "homework", "assignment", "reading", "revision"}},
			{Category: model.CategoryGym, Words: []string{"gym", "workout", "exercise", "fitness", "training", "run", "jog", "yoga"}},
			{Category: model.CategorySocial, Words: []string{"meet", "meeting", "hangout", "party", "dinner", "lunch", "coffee", "friend", "friends", "sleep", "rest", "nap", "bedtime", "wake", "call"}},
			{Category: model.CategoryGaming, Words: []string{"game", "games", "gaming", "play", "stream", "esports"}},
		},
		Intents: []IntentPhrases{
			{Intent: IntentDelete, Phrases: []string{"delete", "remove", "cancel", "banish", "get rid of", "erase", "clear", "eliminate", "drop"}},
			{Intent: IntentReschedule, Phrases: []string{"reschedule", "move", "shift", "postpone", "push back"}},
			{Intent: IntentUpdate, Phrases: []string{"update", "change", "modify", "edit", "adjust", "alter", "revise", "rename"}},
			{Intent: IntentQuery, Phrases: []string{"what", "when", "where", "which", "how many", "show me", "show", "list", "tell me", "do i have", "display", "view"}},
			{Intent: IntentCreate, Phrases: []string{"schedule", "add", "create", "make", "set up", "book", "plan", "arrange", "organize", "put", "insert", "new"}},
		},
		StopWords: []string{
			"a", "an", "the", "my", "me", "i", "please", "can", "could", "you", "to", "for", "at", "on", "in",
			"some", "need", "want", "would", "like", "lets", "let's", "also", "and", "of",
		},
	}
}
