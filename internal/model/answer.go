package model

import "time"

// Answer is the assembled response to one planner question. Every answer
// cites the claims or evidence that justify it.
type Answer struct {
	Text      string                 `json:"answer_text"`
	JSON      map[string]interface{} `json:"answer_json"`
	Citations []Citation             `json:"citations"`
	TraceID   string                 `json:"trace_id"`
}

// TraceStep is one recorded reasoning step. Summaries are short strings,
// not full payloads.
type TraceStep struct {
	Step     string        `json:"step"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// Trace is the ordered record of reasoning steps behind one answered
// question. A closed trace is never mutated.
type Trace struct {
	ID        string      `json:"id"`
	Question  string      `json:"question"`
	Steps     []TraceStep `json:"steps"`
	StartedAt time.Time   `json:"started_at"`
	ClosedAt  time.Time   `json:"closed_at"`
}
