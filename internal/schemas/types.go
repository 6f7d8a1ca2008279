package schemas

import (
	"time"

	"autism-screening/internal/screening"
)

// Signal is one classifier output as a caller submits it.
type Signal struct {
	Modality   string   `json:"modality"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type QuestionnaireRequest struct {
	Answers []string `json:"answers"`
}

type QuestionnaireOut struct {
	Label     screening.QuestionnaireLabel `json:"label"`
	Score     float64                      `json:"score"`
	MaxScore  float64                      `json:"max_score"`
	Threshold float64                      `json:"threshold"`
}

type ScreeningRequest struct {
	Signals []Signal `json:"signals"`
	Answers []string `json:"answers,omitempty"`
}

type ScreeningStatus string

const (
	StatusPending  ScreeningStatus = "pending"
	StatusComplete ScreeningStatus = "complete"
	StatusFailed   ScreeningStatus = "failed"
)

type ScreeningOut struct {
	ID        string                    `json:"id"`
	Status    ScreeningStatus           `json:"status"`
	CreatedAt time.Time                 `json:"created_at,omitzero"`
	Report    *screening.ReportDocument `json:"report,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// ClassifyMediaPayload is the queue payload for a media screening.
type ClassifyMediaPayload struct {
	ScreeningID string   `json:"screening_id"`
	PhotoRef    string   `json:"photo_ref,omitempty"`
	AudioRef    string   `json:"audio_ref,omitempty"`
	Answers     []string `json:"answers,omitempty"`
}

type HealthOut struct {
	Status    string    `json:"status"`
	Policy    PolicyOut `json:"policy"`
	Questions int       `json:"questions"`
}

type PolicyOut struct {
	Modalities          map[screening.Modality]float64 `json:"modalities"`
	MinAvailableSignals int                            `json:"min_available_signals"`
	TieBreak            screening.TieBreak             `json:"tie_break"`
	Confidence          screening.ConfidenceMode       `json:"confidence"`
}
