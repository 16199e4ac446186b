package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/metrics"
)

type Outcome string

const (
	OutcomeSuccess        Outcome = metrics.OutcomeSuccess
	OutcomeAppError       Outcome = metrics.OutcomeAppError
	OutcomeTransportError Outcome = metrics.OutcomeTransport
	OutcomeRecordError    Outcome = metrics.OutcomeRecordError
)

// Result is one rendered classification, shown once.
type Result struct {
	Outcome      Outcome             `json:"outcome"`
	Text         string              `json:"text"`
	Prediction   string              `json:"prediction,omitempty"`
	Confidence   float64             `json:"confidence,omitempty"`
	EnglishLabel string              `json:"english_label,omitempty"`
	Severity     classifier.Severity `json:"severity,omitempty"`
	ClipName     string              `json:"clip_name,omitempty"`
	At           time.Time           `json:"at"`
}

func (r Result) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

// Title is the first line of Text.
func (r Result) Title() string {
	if r.Outcome == OutcomeSuccess {
		return fmt.Sprintf("Prediction: %s (%s%%)", r.Prediction, FormatConfidence(r.Confidence))
	}
	return r.Text
}

// Render turns an upload outcome into what the user sees. Transport errors
// and application errors take different paths on purpose: an application
// error is shown verbatim.
func Render(pred *classifier.Prediction, err error) Result {
	now := time.Now()

	if err != nil {
		return Result{
			Outcome: OutcomeTransportError,
			Text:    "Prediction failed: " + err.Error(),
			At:      now,
		}
	}
	if pred == nil {
		return Result{Outcome: OutcomeTransportError, Text: "Prediction failed: empty response", At: now}
	}
	if pred.Failed() {
		return Result{Outcome: OutcomeAppError, Text: pred.Error, At: now}
	}

	r := Result{
		Outcome:      OutcomeSuccess,
		Prediction:   pred.Prediction,
		Confidence:   pred.Confidence,
		EnglishLabel: pred.EnglishLabel,
		Severity:     classifier.SeverityFor(pred.Confidence),
		At:           now,
	}
	r.Text = r.Title()
	if r.EnglishLabel != "" {
		r.Text += "\nEnglish: " + r.EnglishLabel
	}
	return r
}

func recordingFailure(err error) Result {
	return Result{
		Outcome: OutcomeRecordError,
		Text:    "Recording failed: " + err.Error(),
		At:      time.Now(),
	}
}

// FormatConfidence prints 92 as "92" and 87.25 as "87.25".
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
