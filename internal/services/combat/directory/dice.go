package directory

// Attribute ids with game rules attached.
const (
	StrengthAttributeID = "strength"
	MobilityAttributeID = "mobility"
)

// Attribute dice by rank.
const (
	AspectDie    = 8
	SecondaryDie = 6
	BaseDie      = 4
)

// DefaultAttributes is the attribute table used when a roster omits one.
func DefaultAttributes() []Attribute {
	return []Attribute{
		{ID: "strength", Name: "Strength", Emoji: "💪"},
		{ID: "sense", Name: "Sense", Emoji: "👁️"},
		{ID: "mobility", Name: "Mobility", Emoji: "🏃"},
		{ID: "intellect", Name: "Intellect", Emoji: "🧠"},
		{ID: "wit", Name: "Wit", Emoji: "✨"},
		{ID: "aspect", Name: "Aspect", Emoji: "⚡"},
	}
}

// DeriveDice assigns the aspect attribute a d8, the secondary attribute a d6,
// and every other attribute a d4.
func DeriveDice(attributes []Attribute, aspectAttributeID, secondaryAttributeID string) map[string]int {
	dice := make(map[string]int, len(attributes))
	for _, attribute := range attributes {
		switch attribute.ID {
		case aspectAttributeID:
			dice[attribute.ID] = AspectDie
		case secondaryAttributeID:
			dice[attribute.ID] = SecondaryDie
		default:
			dice[attribute.ID] = BaseDie
		}
	}
	return dice
}

// MaxHealth is twice the strength die.
func MaxHealth(dice map[string]int) int {
	die, ok := dice[StrengthAttributeID]
	if !ok || die <= 0 {
		die = BaseDie
	}
	return die * 2
}

var raceEmoji = map[string]string{
	"aquilian":  "🕊️",
	"cetacian":  "🐳",
	"felirian":  "🐈",
	"lagorei":   "🐇",
	"marenti":   "🐁",
	"myrmadon":  "🦔",
	"pyra":      "🐉",
	"renari":    "🦊",
	"sylvanix":  "🦌",
	"umbraleth": "😈",
}

// RaceEmoji returns the emoji for a playable race, or "" if unknown.
func RaceEmoji(race string) string {
	return raceEmoji[normalizeKey(race)]
}
