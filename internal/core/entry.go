package core

import (
	"cmp"
	"strings"
	"time"
)

// Entry is one billable model response, normalized across sources.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	LocalDate   string    `json:"local_date"`
	MessageID   string    `json:"message_id,omitempty"`
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path,omitempty"`
	Model       string    `json:"model"`
	Tokens      Tokens    `json:"tokens"`
	StopReason  *string   `json:"stop_reason,omitempty"`
}

// Completed reports whether the record carries a stop reason, i.e. it was
// written after the response finished streaming.
func (e Entry) Completed() bool {
	return e.StopReason != nil
}

// CompareEntries is a total order over entries: timestamp first, then the
// remaining fields. Sorting with it makes every fold independent of file and
// worker ordering.
func CompareEntries(a, b Entry) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SessionID, b.SessionID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.MessageID, b.MessageID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Model, b.Model); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ProjectPath, b.ProjectPath); c != 0 {
		return c
	}
	if c := compareTokens(a.Tokens, b.Tokens); c != 0 {
		return c
	}
	return strings.Compare(stopReasonKey(a.StopReason), stopReasonKey(b.StopReason))
}

func compareTokens(a, b Tokens) int {
	for _, pair := range [][2]int64{
		{a.Input, b.Input},
		{a.Output, b.Output},
		{a.Reasoning, b.Reasoning},
		{a.CacheCreation, b.CacheCreation},
		{a.CacheRead, b.CacheRead},
	} {
		if c := cmp.Compare(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return 0
}

func stopReasonKey(v *string) string {
	if v == nil {
		return ""
	}
	return "\x01" + *v
}

func StringPtr(v string) *string {
	vv := v
	return &vv
}
