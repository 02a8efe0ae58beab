package claude_code

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

const syntheticModel = "<synthetic>"

type jsonlEntry struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp string    `json:"timestamp"`
	Message   *jsonlMsg `json:"message,omitempty"`
}

type jsonlMsg struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	StopReason *string     `json:"stop_reason"`
	Usage      *jsonlUsage `json:"usage,omitempty"`
}

type jsonlUsage struct {
	InputTokens              int64           `json:"input_tokens"`
	OutputTokens             int64           `json:"output_tokens"`
	CacheCreationInputTokens int64           `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64           `json:"cache_read_input_tokens"`
	CacheCreation            *cacheBreakdown `json:"cache_creation,omitempty"`
}

type cacheBreakdown struct {
	Ephemeral5mInputTokens int64 `json:"ephemeral_5m_input_tokens"`
	Ephemeral1hInputTokens int64 `json:"ephemeral_1h_input_tokens"`
}

func (u jsonlUsage) cacheCreationTokens() int64 {
	if u.CacheCreationInputTokens > 0 || u.CacheCreation == nil {
		return u.CacheCreationInputTokens
	}
	return u.CacheCreation.Ephemeral5mInputTokens + u.CacheCreation.Ephemeral1hInputTokens
}

// ParseConversationFile parses one conversation log. Lines that are not valid
// JSON, lack usage, or carry a synthetic model are skipped. The returned
// error only reports a read failure; entries parsed before it are kept.
func ParseConversationFile(path string, loc *time.Location) ([]core.Entry, error) {
	project, fileSession := locateConversation(path)

	var out []core.Entry
	err := shared.ScanJSONL(path, func(_ int, line []byte) {
		var raw jsonlEntry
		if err := json.Unmarshal(line, &raw); err != nil {
			return
		}
		if entry, ok := convertEntry(raw, project, fileSession, loc); ok {
			out = append(out, entry)
		}
	})
	return out, err
}

func convertEntry(raw jsonlEntry, project, fileSession string, loc *time.Location) (core.Entry, bool) {
	if raw.Message == nil || raw.Message.Usage == nil {
		return core.Entry{}, false
	}
	model := strings.TrimSpace(raw.Message.Model)
	if model == "" || model == syntheticModel {
		return core.Entry{}, false
	}
	ts, err := shared.ParseTimestampString(raw.Timestamp)
	if err != nil {
		return core.Entry{}, false
	}

	u := raw.Message.Usage
	return core.Entry{
		Timestamp:   ts,
		LocalDate:   core.LocalDate(ts, loc),
		MessageID:   strings.TrimSpace(raw.Message.ID),
		SessionID:   shared.FirstNonEmpty(raw.SessionID, fileSession),
		ProjectPath: project,
		Model:       core.NormalizeModel(model),
		Tokens: core.Tokens{
			Input:         max(0, u.InputTokens),
			Output:        max(0, u.OutputTokens),
			CacheCreation: max(0, u.cacheCreationTokens()),
			CacheRead:     max(0, u.CacheReadInputTokens),
		},
		StopReason: raw.Message.StopReason,
	}, true
}

// locateConversation derives the project directory name and session id from
// the log path. Subagent logs live under <project>/<session>/subagents/ and
// belong to the parent session.
func locateConversation(path string) (project, session string) {
	dir := filepath.Dir(path)
	if filepath.Base(dir) == "subagents" {
		sessionDir := filepath.Dir(dir)
		return filepath.Base(filepath.Dir(sessionDir)), filepath.Base(sessionDir)
	}
	return filepath.Base(dir), shared.FileStem(path)
}
