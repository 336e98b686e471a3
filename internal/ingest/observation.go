// Package ingest turns raw traffic observations into lineage edge upserts.
// Observations arrive from a Kafka topic or the HTTP API by way of the task
// queue; both paths end in Processor.Process.
package ingest

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/devportal/engine/internal/models"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Observation is the traffic one service account moved on one topic during
// an aggregation window. WindowEnd is required: it tells two windows with
// identical counts apart.
type Observation struct {
	ServiceAccountID uuid.UUID        `json:"service_account_id" validate:"required"`
	TopicID          uuid.UUID        `json:"topic_id" validate:"required"`
	Direction        models.Direction `json:"direction" validate:"required,oneof=produce consume"`
	Bytes            int64            `json:"bytes" validate:"gte=0"`
	Messages         int64            `json:"messages" validate:"gte=0"`
	WindowEnd        time.Time        `json:"window_end" validate:"required"`
}

// DecodeObservations accepts a JSON array of observations or a single object.
func DecodeObservations(data []byte) ([]Observation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "empty observation payload")
	}
	if data[0] == '[' {
		var out []Observation
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "malformed observation batch")
		}
		return out, nil
	}
	var one Observation
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "malformed observation")
	}
	return []Observation{one}, nil
}

// Validate checks one observation.
func (o Observation) Validate() error {
	if err := validate.Struct(o); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid observation")
	}
	return nil
}

// ValidateObservations rejects the batch at the first invalid observation.
func ValidateObservations(observations []Observation) error {
	for i, o := range observations {
		if err := o.Validate(); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid observation batch").WithMeta("index", i)
		}
	}
	return nil
}
