// Package asyncjob implements the submit/poll protocol some carriers
// expose for bulk tracking queries, including decoding of the
// delimiter-separated report a finished job returns.
package asyncjob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

// State is the carrier-reported job state.
type State string

const (
	StateNew        State = "NEW"
	StateInProgress State = "INPROGRESS"
	StateReady      State = "READY"
	StateError      State = "ERROR"
)

// PollResult is one poll response.
type PollResult struct {
	State        State
	ReportFields string // delimiter-separated header line, set when READY
	Report       string // delimiter-separated rows, set when READY
	Errors       []string
}

// SubmitFunc submits the job and returns its GUID.
type SubmitFunc func(ctx context.Context) (string, error)

// PollFunc polls the job by GUID.
type PollFunc func(ctx context.Context, guid string) (*PollResult, error)

// Runner drives a submit/poll job with growing backoff.
type Runner struct {
	CarrierID       string
	InitialInterval time.Duration // defaults to 500ms
	MaxInterval     time.Duration // defaults to 10s, hard-capped at 60s
}

func (r Runner) intervals() (time.Duration, time.Duration) {
	initial := r.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	max := r.MaxInterval
	if max <= 0 {
		max = 10 * time.Second
	}
	if max > time.Minute {
		max = time.Minute
	}
	return initial, max
}

// Run submits the job and polls until READY or ERROR. ERROR becomes a
// Permanent failure listing the reported codes; an unrecognized state is
// Transient.
func (r Runner) Run(ctx context.Context, submit SubmitFunc, poll PollFunc) (*Report, error) {
	guid, err := submit(ctx)
	if err != nil {
		return nil, err
	}
	if guid == "" {
		return nil, carrier.NewError(r.CarrierID, carrier.Transient, "carrier returned an empty job GUID")
	}

	interval, max := r.intervals()
	for {
		result, err := poll(ctx, guid)
		if err != nil {
			return nil, err
		}

		switch result.State {
		case StateReady:
			return DecodeReport(result.ReportFields, result.Report, ";")
		case StateError:
			return nil, carrier.NewError(r.CarrierID, carrier.Permanent,
				fmt.Sprintf("tracking job %s failed: %s", guid, strings.Join(result.Errors, ", ")))
		case StateNew, StateInProgress:
			select {
			case <-ctx.Done():
				return nil, carrier.WrapError(r.CarrierID, ctx.Err())
			case <-time.After(interval):
			}
			interval *= 2
			if interval > max {
				interval = max
			}
		default:
			return nil, carrier.NewError(r.CarrierID, carrier.Transient,
				fmt.Sprintf("tracking job %s reported unknown state %q", guid, result.State))
		}
	}
}

// Report is a decoded job report: a header and one row per record.
type Report struct {
	Fields []string
	Rows   [][]string
}

// DecodeReport parses the delimiter-separated header and rows. The
// carrier's dialect is unquoted, so plain splitting is the whole parse.
func DecodeReport(fields, report, delim string) (*Report, error) {
	header := strings.Split(strings.TrimSpace(fields), delim)
	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, carrier.NewError("", carrier.Permanent, "tracking report has no header fields")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0)
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row := strings.Split(line, delim)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}
	return &Report{Fields: header, Rows: rows}, nil
}

// Records returns each row as a field-keyed map. Short rows leave the
// missing fields empty.
func (r *Report) Records() []map[string]string {
	records := make([]map[string]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]string, len(r.Fields))
		for i, f := range r.Fields {
			if i < len(row) {
				rec[f] = row[i]
			} else {
				rec[f] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}
