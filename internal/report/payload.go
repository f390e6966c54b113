package report

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jpalmerr/beacon/internal/store"
)

// Kind identifies the variant of a [Report].
type Kind string

const (
	KindLoad   Kind = "load"
	KindHealth Kind = "health"
)

// Report is a decoded node report: a [LoadReport] or a [HealthReport].
type Report interface {
	Kind() Kind
	ReplicaID() string
	ReportInterval() time.Duration
}

// LoadReport carries system load pushed by a push-mode replica.
//
// Missing cpu or ram values decode as NaN so that [Classify] can reject them
// after the mode check.
type LoadReport struct {
	Replica  string
	Interval time.Duration
	CPU      float64
	RAM      float64
}

func (LoadReport) Kind() Kind                      { return KindLoad }
func (r LoadReport) ReplicaID() string             { return r.Replica }
func (r LoadReport) ReportInterval() time.Duration { return r.Interval }

// HealthReport carries a locally asserted health value.
type HealthReport struct {
	Replica  string
	Interval time.Duration
	Health   store.Status
}

func (HealthReport) Kind() Kind                      { return KindHealth }
func (r HealthReport) ReplicaID() string             { return r.Replica }
func (r HealthReport) ReportInterval() time.Duration { return r.Interval }

type wireLoad struct {
	CPU *float64 `json:"cpu"`
	RAM *float64 `json:"ram"`
}

type wireReport struct {
	Replica  string    `json:"replica"`
	Interval uint64    `json:"interval"`
	Load     *wireLoad `json:"load"`
	Health   *string   `json:"health"`
}

// maxIntervalSeconds keeps interval conversion to time.Duration from overflowing.
const maxIntervalSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Decode parses a JSON report body.
//
// The body must contain exactly one of "load" or "health". The interval is
// expressed in seconds.
func Decode(data []byte) (Report, error) {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Interval > maxIntervalSeconds {
		return nil, fmt.Errorf("%w: interval %d out of range", ErrMalformed, w.Interval)
	}
	interval := time.Duration(w.Interval) * time.Second

	switch {
	case w.Load != nil && w.Health != nil:
		return nil, fmt.Errorf("%w: both load and health present", ErrMalformed)

	case w.Load != nil:
		r := LoadReport{Replica: w.Replica, Interval: interval, CPU: math.NaN(), RAM: math.NaN()}
		if w.Load.CPU != nil {
			r.CPU = *w.Load.CPU
		}
		if w.Load.RAM != nil {
			r.RAM = *w.Load.RAM
		}
		return r, nil

	case w.Health != nil:
		health, err := store.ParseStatus(*w.Health)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return HealthReport{Replica: w.Replica, Interval: interval, Health: health}, nil

	default:
		return nil, fmt.Errorf("%w: neither load nor health present", ErrMalformed)
	}
}
