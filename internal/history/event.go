package history

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
)

// Event types recorded for a build.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStageCompleted = "StageCompleted"
	TypeReceiptWritten = "ReceiptWritten"
	TypeBuildFinished  = "BuildFinished"
)

// Event is one stored build event.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   []byte
	Metadata  map[string]string
}

// BuildStarted is the payload of TypeBuildStarted.
type BuildStarted struct {
	Target        string `json:"target"`
	Platform      string `json:"platform"`
	Configuration string `json:"configuration"`
	Architecture  string `json:"architecture,omitempty"`
}

// StageCompleted is the payload of TypeStageCompleted.
type StageCompleted struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ReceiptWritten is the payload of TypeReceiptWritten.
type ReceiptWritten struct {
	Path          string `json:"path"`
	BuildProducts int    `json:"build_products"`
}

// BuildFinished is the payload of TypeBuildFinished.
type BuildFinished struct {
	Status       string `json:"status"`
	DurationMS   int64  `json:"duration_ms"`
	Binaries     int    `json:"binaries"`
	FilesCleaned int    `json:"files_cleaned"`
	ErrorStage   string `json:"error_stage,omitempty"`
	Error        string `json:"error,omitempty"`
}

func marshalPayload(buildID, eventType string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.HistoryError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("build_id", buildID).
			Build()
	}
	return payload, nil
}

// Decode unmarshals the payload of e into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.HistoryError("failed to unmarshal "+e.Type+" payload").
			WithCause(err).
			WithContext("build_id", e.BuildID).
			Build()
	}
	return nil
}
