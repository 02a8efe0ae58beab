package codex

import (
	"encoding/json"
	"time"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

type sessionEvent struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

type sessionMeta struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type turnContext struct {
	Model string `json:"model"`
}

type tokenInfo struct {
	TotalTokenUsage *Usage `json:"total_token_usage"`
	LastTokenUsage  *Usage `json:"last_token_usage"`
	Model           string `json:"model"`
	ModelName       string `json:"model_name"`
	Metadata        struct {
		Model string `json:"model"`
	} `json:"metadata"`
}

type eventPayload struct {
	Type  string     `json:"type"`
	Info  *tokenInfo `json:"info"`
	Model string     `json:"model"`
}

// ParseSessionFile parses one session log, threading acc through every
// token_count event, and returns the updated accumulator.
func ParseSessionFile(path string, loc *time.Location, acc Accumulator) ([]core.Entry, Accumulator, error) {
	if acc == nil {
		acc = NewAccumulator()
	}
	sessionID := shared.FileStem(path)
	model := ""

	var out []core.Entry
	err := shared.ScanJSONL(path, func(_ int, line []byte) {
		var ev sessionEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return
		}

		switch ev.Type {
		case "session_meta":
			var meta sessionMeta
			if json.Unmarshal(ev.Payload, &meta) == nil {
				if sid := shared.FirstNonEmpty(meta.SessionID, meta.ID); sid != "" {
					sessionID = sid
				}
				model = shared.FirstNonEmpty(meta.Model, model)
			}
		case "turn_context":
			var tc turnContext
			if json.Unmarshal(ev.Payload, &tc) == nil {
				model = shared.FirstNonEmpty(tc.Model, model)
			}
		case "event_msg":
			var payload eventPayload
			if json.Unmarshal(ev.Payload, &payload) != nil || payload.Type != "token_count" || payload.Info == nil {
				return
			}
			var delta Usage
			var ok bool
			acc, delta, ok = acc.Step(sessionID, payload.Info.TotalTokenUsage, payload.Info.LastTokenUsage)
			if !ok {
				return
			}
			ts, err := shared.ParseTimestampString(ev.Timestamp)
			if err != nil {
				return
			}
			eventModel := shared.FirstNonEmpty(
				payload.Info.Model, payload.Info.ModelName, payload.Info.Metadata.Model, payload.Model, model, defaultModel)
			out = append(out, core.Entry{
				Timestamp:  ts,
				LocalDate:  core.LocalDate(ts, loc),
				SessionID:  sessionID,
				Model:      core.NormalizeModel(eventModel),
				Tokens:     delta.Canonical(),
				StopReason: core.StringPtr(completedStopReason),
			})
		}
	})
	return out, acc, err
}
