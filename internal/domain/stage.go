package domain

import "fmt"

// StageID identifies one of the five narrative stages of a story
type StageID string

const (
	StageIntro       StageID = "intro"
	StageDevelopment StageID = "development"
	StageCrisis      StageID = "crisis"
	StageClimax      StageID = "climax"
	StageEnding      StageID = "ending"
)

// Stage is a fixed narrative phase of a session
type Stage struct {
	HasChoices bool
	ID         StageID
	Index      int
	Name       string
	Question   string
}

// Stages holds the stages in narrative order. The intro has no choice and is
// generated as soon as the job starts.
var Stages = []Stage{
	{Index: 0, ID: StageIntro, Name: "Introduction", HasChoices: false, Question: ""},
	{Index: 1, ID: StageDevelopment, Name: "Development", HasChoices: true, Question: "What happened to our hero?"},
	{Index: 2, ID: StageCrisis, Name: "Crisis", HasChoices: true, Question: "What kind of trouble came along?"},
	{Index: 3, ID: StageClimax, Name: "Climax", HasChoices: true, Question: "The decisive moment! How was it resolved?"},
	{Index: 4, ID: StageEnding, Name: "Ending", HasChoices: true, Question: "How did the story end?"},
}

// StageCount is the number of stages in every session
const StageCount = 5

// LastStageIndex is the index of the ending stage
const LastStageIndex = StageCount - 1

// StageAt returns the stage at the given zero-based index
func StageAt(index int) (Stage, error) {
	if index < 0 || index >= len(Stages) {
		return Stage{}, fmt.Errorf("%w: %d", ErrUnknownStage, index)
	}
	return Stages[index], nil
}

// StageByID returns the stage with the given id
func StageByID(id StageID) (Stage, error) {
	for _, s := range Stages {
		if s.ID == id {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("%w: %q", ErrUnknownStage, id)
}

// Number returns the one-based stage number used by the generation service
func (s Stage) Number() int {
	return s.Index + 1
}

// IsLast reports whether this is the ending stage
func (s Stage) IsLast() bool {
	return s.Index == LastStageIndex
}

// CompletionTargets returns the job statuses that mark this stage as generated.
// The service may fold the ending into the overall completion marker, so the
// last stage accepts both.
func (s Stage) CompletionTargets() []JobStatusValue {
	if s.IsLast() {
		return []JobStatusValue{StageCompleteStatus(s.Number()), JobComplete}
	}
	return []JobStatusValue{StageCompleteStatus(s.Number())}
}
