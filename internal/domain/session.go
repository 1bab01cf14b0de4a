package domain

import "time"

// CustomChoiceID marks a choice authored by the user instead of picked from the options
const CustomChoiceID = "custom"

// Choice is the user's committed selection for a stage
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// IsCustom reports whether the choice is free-form text
func (c Choice) IsCustom() bool {
	return c.ID == CustomChoiceID
}

// StageRecord tracks one stage of a session. It is created empty when the
// stage becomes active, filled when a choice is submitted and frozen once
// Completed is set. Only a redo discards it.
type StageRecord struct {
	ArtifactURL       string         `json:"artifact_url,omitempty"`
	Choice            *Choice        `json:"choice,omitempty"`
	Completed         bool           `json:"completed"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	JobStatusAtSubmit JobStatusValue `json:"job_status_at_submit,omitempty"`
	StoryText         string         `json:"story_text,omitempty"`
	SubmittedAt       *time.Time     `json:"submitted_at,omitempty"`
}

// Session is one generation attempt for a single job
type Session struct {
	CurrentStageIndex int
	FinalArtifact     string
	JobID             string
	StageRecords      map[StageID]*StageRecord
}

// NewSession creates a session positioned at the intro with an empty intro record
func NewSession(jobID string) *Session {
	return &Session{
		CurrentStageIndex: 0,
		JobID:             jobID,
		StageRecords: map[StageID]*StageRecord{
			StageIntro: {},
		},
	}
}

// Record returns the record for the stage at index, or nil when absent
func (s *Session) Record(index int) *StageRecord {
	stage, err := StageAt(index)
	if err != nil {
		return nil
	}
	return s.StageRecords[stage.ID]
}

// EnsureRecord returns the record for the stage at index, creating an empty one if needed
func (s *Session) EnsureRecord(index int) *StageRecord {
	stage := Stages[index]
	if s.StageRecords == nil {
		s.StageRecords = make(map[StageID]*StageRecord)
	}
	rec, ok := s.StageRecords[stage.ID]
	if !ok {
		rec = &StageRecord{}
		s.StageRecords[stage.ID] = rec
	}
	return rec
}

// HighestRecordedStage returns the index of the last stage with a record, or -1
func (s *Session) HighestRecordedStage() int {
	highest := -1
	for _, stage := range Stages {
		if _, ok := s.StageRecords[stage.ID]; ok {
			highest = stage.Index
		}
	}
	return highest
}

// OrderedRecords returns the existing records in stage order
func (s *Session) OrderedRecords() []StageID {
	var ids []StageID
	for _, stage := range Stages {
		if _, ok := s.StageRecords[stage.ID]; ok {
			ids = append(ids, stage.ID)
		}
	}
	return ids
}

// DiscardFrom drops the records of the stage at index and every later stage
func (s *Session) DiscardFrom(index int) {
	for _, stage := range Stages {
		if stage.Index >= index {
			delete(s.StageRecords, stage.ID)
		}
	}
	s.FinalArtifact = ""
}

// ResultArtifacts maps every completed stage to its produced media reference
func (s *Session) ResultArtifacts() map[StageID]string {
	artifacts := make(map[StageID]string)
	for id, rec := range s.StageRecords {
		if rec != nil && rec.Completed && rec.ArtifactURL != "" {
			artifacts[id] = rec.ArtifactURL
		}
	}
	return artifacts
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		CurrentStageIndex: s.CurrentStageIndex,
		FinalArtifact:     s.FinalArtifact,
		JobID:             s.JobID,
		StageRecords:      make(map[StageID]*StageRecord, len(s.StageRecords)),
	}
	for id, rec := range s.StageRecords {
		if rec == nil {
			out.StageRecords[id] = nil
			continue
		}
		cp := *rec
		if rec.Choice != nil {
			choice := *rec.Choice
			cp.Choice = &choice
		}
		if rec.SubmittedAt != nil {
			t := *rec.SubmittedAt
			cp.SubmittedAt = &t
		}
		if rec.CompletedAt != nil {
			t := *rec.CompletedAt
			cp.CompletedAt = &t
		}
		out.StageRecords[id] = &cp
	}
	return out
}
