package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledSession() *Session {
	now := time.Now()
	s := NewSession("job-9")
	for i := 0; i < 4; i++ {
		rec := s.EnsureRecord(i)
		rec.Completed = true
		rec.CompletedAt = &now
		rec.ArtifactURL = "http://svc/" + string(Stages[i].ID) + ".mp4"
		if i > 0 {
			rec.Choice = &Choice{ID: "A", Text: "pick"}
			rec.SubmittedAt = &now
		}
	}
	s.CurrentStageIndex = 3
	return s
}

func TestNewSession(t *testing.T) {
	s := NewSession("job-1")
	assert.Equal(t, "job-1", s.JobID)
	assert.Equal(t, 0, s.CurrentStageIndex)
	require.NotNil(t, s.Record(0))
	assert.Nil(t, s.Record(1))
	assert.Nil(t, s.Record(9))
	assert.Equal(t, 0, s.HighestRecordedStage())
}

func TestEnsureRecord_Idempotent(t *testing.T) {
	s := &Session{}
	rec := s.EnsureRecord(2)
	rec.StoryText = "kept"
	assert.Same(t, rec, s.EnsureRecord(2))
	assert.Equal(t, 2, s.HighestRecordedStage())
}

func TestDiscardFrom(t *testing.T) {
	s := filledSession()
	s.FinalArtifact = "http://svc/final.mp4"

	s.DiscardFrom(2)

	assert.Equal(t, []StageID{StageIntro, StageDevelopment}, s.OrderedRecords())
	assert.Empty(t, s.FinalArtifact)
}

func TestResultArtifacts(t *testing.T) {
	s := filledSession()
	s.EnsureRecord(4)

	artifacts := s.ResultArtifacts()
	assert.Len(t, artifacts, 4)
	assert.Equal(t, "http://svc/climax.mp4", artifacts[StageClimax])
	assert.NotContains(t, artifacts, StageEnding)
}

func TestClone_IsDeep(t *testing.T) {
	s := filledSession()
	cp := s.Clone()

	cp.Record(1).Choice.Text = "changed"
	cp.EnsureRecord(4)
	*cp.Record(2).SubmittedAt = time.Time{}

	assert.Equal(t, "pick", s.Record(1).Choice.Text)
	assert.Nil(t, s.Record(4))
	assert.False(t, s.Record(2).SubmittedAt.IsZero())

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}

func TestChoiceIsCustom(t *testing.T) {
	assert.True(t, Choice{ID: CustomChoiceID, Text: "x"}.IsCustom())
	assert.False(t, Choice{ID: "A"}.IsCustom())
}
