// Package adaptertest provides a vendor-agnostic conformance suite for radio adapters.
package adaptertest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/radio-control/chanhop/internal/adapter"
)

// Capabilities describes what the adapter under test is expected to report.
type Capabilities struct {
	// Channels is the total number of channels ListFrequencies returns.
	Channels int
	// UnsupportedFrequency must be refused with INVALID_RANGE.
	UnsupportedFrequency int
}

// ConformanceResult represents the result of a conformance check.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
}

// ConformanceReport collects the results of one suite run.
type ConformanceReport struct {
	Results       []ConformanceResult
	PassedTests   int
	FailedTests   int
	OverallPassed bool
}

func (r *ConformanceReport) addResult(result ConformanceResult) {
	r.Results = append(r.Results, result)
	if result.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
}

// RunConformance runs the complete suite. newAdapter must return a fresh
// adapter each call.
func RunConformance(t *testing.T, newAdapter func() adapter.IRadioAdapter, caps Capabilities) {
	t.Helper()

	report := &ConformanceReport{OverallPassed: true}

	checkListFrequencies(newAdapter, caps, report)
	checkTuneEveryChannel(newAdapter, report)
	checkUnsupportedFrequency(newAdapter, caps, report)
	checkCancelledContext(newAdapter, report)

	for _, r := range report.Results {
		if !r.Passed {
			t.Errorf("%s: %s", r.TestName, r.Error)
		} else {
			t.Logf("%s: ok (%v)", r.TestName, r.Duration)
		}
	}
	if !report.OverallPassed {
		t.Fatalf("Adapter conformance failed: %d/%d checks passed",
			report.PassedTests, report.PassedTests+report.FailedTests)
	}
}

func checkListFrequencies(newAdapter func() adapter.IRadioAdapter, caps Capabilities, report *ConformanceReport) {
	a := newAdapter()
	result := ConformanceResult{TestName: "ListFrequencies_Count"}
	start := time.Now()

	bands, err := a.ListFrequencies(context.Background())
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		result.Error = fmt.Sprintf("ListFrequencies failed: %v", err)
	case adapter.CountChannels(bands) != caps.Channels:
		result.Error = fmt.Sprintf("ListFrequencies returned %d channels, want %d",
			adapter.CountChannels(bands), caps.Channels)
	default:
		result.Passed = true
	}
	report.addResult(result)
}

func checkTuneEveryChannel(newAdapter func() adapter.IRadioAdapter, report *ConformanceReport) {
	a := newAdapter()
	ctx := context.Background()

	bands, err := a.ListFrequencies(ctx)
	if err != nil {
		report.addResult(ConformanceResult{TestName: "SetFrequency_Listed", Error: err.Error()})
		return
	}

	for _, band := range bands {
		for _, ch := range band.Channels {
			result := ConformanceResult{TestName: fmt.Sprintf("SetFrequency_%s_%d", band.Name, ch.Number)}
			start := time.Now()

			err := a.SetFrequency(ctx, ch.FrequencyMhz)
			result.Duration = time.Since(start)
			if err != nil {
				result.Error = fmt.Sprintf("SetFrequency(%d) failed: %v", ch.FrequencyMhz, err)
				report.addResult(result)
				continue
			}

			got, err := a.GetFrequency(ctx)
			switch {
			case err != nil:
				result.Error = fmt.Sprintf("GetFrequency failed: %v", err)
			case got != ch.FrequencyMhz:
				result.Error = fmt.Sprintf("GetFrequency = %d after tuning %d", got, ch.FrequencyMhz)
			default:
				result.Passed = true
			}
			report.addResult(result)
		}
	}
}

func checkUnsupportedFrequency(newAdapter func() adapter.IRadioAdapter, caps Capabilities, report *ConformanceReport) {
	a := newAdapter()
	ctx := context.Background()
	result := ConformanceResult{TestName: "SetFrequency_Unsupported"}

	before, _ := a.GetFrequency(ctx)
	start := time.Now()
	err := a.SetFrequency(ctx, caps.UnsupportedFrequency)
	result.Duration = time.Since(start)
	after, _ := a.GetFrequency(ctx)

	switch {
	case err == nil:
		result.Error = fmt.Sprintf("SetFrequency(%d) should have failed", caps.UnsupportedFrequency)
	case !errors.Is(err, adapter.ErrInvalidRange):
		result.Error = fmt.Sprintf("SetFrequency(%d) should return INVALID_RANGE, got %v", caps.UnsupportedFrequency, err)
	case before != after:
		result.Error = fmt.Sprintf("refused tune moved frequency from %d to %d", before, after)
	default:
		result.Passed = true
	}
	report.addResult(result)
}

func checkCancelledContext(newAdapter func() adapter.IRadioAdapter, report *ConformanceReport) {
	a := newAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ConformanceResult{TestName: "SetFrequency_Cancelled"}
	if err := a.SetFrequency(ctx, 2412); err == nil {
		result.Error = "SetFrequency with cancelled context succeeded"
	} else {
		result.Passed = true
	}
	report.addResult(result)
}
