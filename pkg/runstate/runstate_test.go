package runstate

import (
	"testing"

	"github.com/flashpointintel/pipeline/pkg/model"
)

func TestCanTransitionJob(t *testing.T) {
	cases := []struct {
		from, to model.JobStatus
		want     bool
	}{
		{model.JobStatusQueued, model.JobStatusFetching, true},
		{model.JobStatusFetching, model.JobStatusExtracted, true},
		{model.JobStatusFetching, model.JobStatusFailed, true},
		{model.JobStatusFetching, model.JobStatusSkippedDuplicate, true},
		{model.JobStatusExtracted, model.JobStatusClustered, true},
		{model.JobStatusExtracted, model.JobStatusEmbedded, true},
		{model.JobStatusEmbedded, model.JobStatusClustered, true},
		{model.JobStatusClustered, model.JobStatusSummarized, true},
		{model.JobStatusSummarized, model.JobStatusScored, true},
		// invalid / backwards
		{model.JobStatusQueued, model.JobStatusExtracted, false},
		{model.JobStatusScored, model.JobStatusQueued, false},
		{model.JobStatusFailed, model.JobStatusFetching, false},
		{model.JobStatusSummarized, model.JobStatusClustered, false},
	}

	for _, c := range cases {
		got := CanTransitionJob(c.from, c.to)
		if got != c.want {
			t.Errorf("CanTransitionJob(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalJobStatus(t *testing.T) {
	for _, s := range []model.JobStatus{model.JobStatusScored, model.JobStatusFailed, model.JobStatusSkippedDuplicate} {
		if !IsTerminalJobStatus(s) {
			t.Errorf("expected %s to be terminal", s)
		}
		if CanTransitionJob(s, model.JobStatusFetching) {
			t.Errorf("terminal status %s must be absorbing", s)
		}
	}

	for _, s := range []model.JobStatus{model.JobStatusQueued, model.JobStatusFetching, model.JobStatusExtracted} {
		if IsTerminalJobStatus(s) {
			t.Errorf("did not expect %s to be terminal", s)
		}
	}
}

func TestIsTerminalSuccessJobStatus(t *testing.T) {
	if !IsTerminalSuccessJobStatus(model.JobStatusSummarized) {
		t.Errorf("summarized should be a terminal success")
	}
	if !IsTerminalSuccessJobStatus(model.JobStatusScored) {
		t.Errorf("scored should be a terminal success")
	}
	if IsTerminalSuccessJobStatus(model.JobStatusFailed) {
		t.Errorf("failed must not be a terminal success")
	}
}

func TestCanTransitionRun(t *testing.T) {
	if !CanTransitionRun(model.RunStatusPending, model.RunStatusRunning) {
		t.Errorf("pending -> running must be allowed")
	}
	if !CanTransitionRun(model.RunStatusRunning, model.RunStatusFailed) {
		t.Errorf("running -> failed must be allowed (stale-run recovery)")
	}
	if CanTransitionRun(model.RunStatusCompleted, model.RunStatusRunning) {
		t.Errorf("completed must be absorbing")
	}
}
