package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestQuoteMetricsCountsTransitionsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQuoteMetrics(reg)
	m.ObserveTransition("submit", nil)
	m.ObserveTransition("submit", errors.New("boom"))
	m.ObserveTransition("submit", errors.New("boom again"))
	m.ObserveTransition("", nil)
	m.IncAutosaveFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "quote_transitions_total", map[string]string{"transition": "submit", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "quote_transitions_total", map[string]string{"transition": "submit", "outcome": OutcomeFailure}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failure=2, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "quote_transitions_total", map[string]string{"transition": "unknown"}); err != nil {
		t.Fatalf("empty transition should be labelled unknown: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "quote_draft_autosave_failures_total", nil); err != nil {
		t.Fatalf("fetch autosave: %v", err)
	} else if got != 1 {
		t.Fatalf("expected autosave failures=1, got %f", got)
	}
}

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("quote_submitted")
	m.IncPublished("quote_submitted")
	m.IncFailed("quote_accepted")
	m.IncDeadLettered("quote_rejected")
	m.ObserveBatch(150 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	cases := []struct {
		name      string
		eventType string
		want      float64
	}{
		{"outbox_published_total", "quote_submitted", 2},
		{"outbox_publish_failures_total", "quote_accepted", 1},
		{"outbox_dead_lettered_total", "quote_rejected", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, map[string]string{"event_type": tc.eventType})
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}

	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected batch histogram")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestCronJobMetricsRecordsRunsAndRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("outbox-retention", 20*time.Millisecond, nil)
	m.ObserveRun("outbox-retention", 10*time.Millisecond, errors.New("db down"))
	m.AddRowsDeleted("outbox-retention", 12)
	m.AddRowsDeleted("outbox-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for outcome, want := range map[string]float64{OutcomeSuccess: 1, OutcomeFailure: 1} {
		got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "outbox-retention", "outcome": outcome})
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("%s: expected %f, got %f", outcome, want, got)
		}
	}
	if got, err := fetchCounterValue(mfs, "cron_job_rows_deleted_total", map[string]string{"job": "outbox-retention"}); err != nil || got != 12 {
		t.Fatalf("expected 12 rows deleted, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var q *QuoteMetrics
	q.ObserveTransition("accept", nil)
	q.IncAutosaveFailure()
	NewQuoteMetrics(nil).ObserveTransition("accept", nil)

	var o *OutboxMetrics
	o.IncPublished("x")
	o.ObserveBatch(time.Second)
	NewOutboxMetrics(nil).IncDeadLettered("x")

	var c *CronJobMetrics
	c.ObserveRun("x", time.Second, nil)
	NewCronJobMetrics(nil).AddRowsDeleted("x", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
