package domain

// ChoiceOption is one selectable answer to a stage question
type ChoiceOption struct {
	Description string
	ID          string
	Title       string
}

// defaultOptions is used whenever the service has no curated options for a stage
var defaultOptions = map[StageID][]ChoiceOption{
	StageDevelopment: {
		{ID: "A", Title: "They discovered something mysterious", Description: "Something sparkling turned up"},
		{ID: "B", Title: "They met a new friend", Description: "A special friendship begins"},
	},
	StageCrisis: {
		{ID: "A", Title: "A villain appeared", Description: "A greedy troublemaker showed up"},
		{ID: "B", Title: "A difficult situation arose", Description: "An unexpected problem happened"},
	},
	StageClimax: {
		{ID: "A", Title: "They found the courage to solve it", Description: "Fear was overcome"},
		{ID: "B", Title: "Everyone joined forces", Description: "Friends worked together"},
	},
	StageEnding: {
		{ID: "A", Title: "Everyone lived happily", Description: "A happy ending!"},
		{ID: "B", Title: "The world became a better place", Description: "An ending where everyone smiles"},
	},
}

// DefaultOptions returns the built-in options for a stage. The intro has none.
func DefaultOptions(id StageID) []ChoiceOption {
	opts := defaultOptions[id]
	out := make([]ChoiceOption, len(opts))
	copy(out, opts)
	return out
}

// DefaultOptionTexts returns the titles of the built-in options for a stage
func DefaultOptionTexts(id StageID) []string {
	opts := defaultOptions[id]
	texts := make([]string, 0, len(opts))
	for _, o := range opts {
		texts = append(texts, o.Title)
	}
	return texts
}

// OptionID returns the identifier of the option at position i ("A", "B", ...)
func OptionID(i int) string {
	if i < 0 || i >= 26 {
		return CustomChoiceID
	}
	return string(rune('A' + i))
}
