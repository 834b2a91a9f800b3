// Package runstate defines the Run/Job state machines (spec.md §4.1): the
// allowed-transition tables and pure validation logic. The SQL-backed
// claim/select/fail operations live in pkg/datastore, which does not import
// this package.
package runstate

import "github.com/flashpointintel/pipeline/pkg/model"

// jobTransitions enumerates, for each Job status, the statuses it may
// transition into. Terminal states map to an empty (absorbing) set.
var jobTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusQueued: {
		model.JobStatusFetching,
	},
	model.JobStatusFetching: {
		model.JobStatusExtracted,
		model.JobStatusFailed,
		model.JobStatusSkippedDuplicate,
	},
	model.JobStatusExtracted: {
		model.JobStatusEmbedded,  // tier B/C
		model.JobStatusClustered, // without an embedded step
		model.JobStatusDeduped,
		model.JobStatusFailed,
		model.JobStatusSkippedDuplicate,
	},
	model.JobStatusDeduped: {
		model.JobStatusEmbedded,
		model.JobStatusClustered,
	},
	model.JobStatusEmbedded: {
		model.JobStatusClustered,
	},
	model.JobStatusClustered: {
		model.JobStatusSummarized,
	},
	model.JobStatusSummarized: {
		model.JobStatusScored,
	},
	// Terminal / absorbing states.
	model.JobStatusScored:            {},
	model.JobStatusFailed:            {},
	model.JobStatusSkippedDuplicate:  {},
}

// CanTransitionJob reports whether a Job may move from `from` to `to`.
func CanTransitionJob(from, to model.JobStatus) bool {
	allowed, ok := jobTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalJobStatus reports whether a Job status is absorbing.
func IsTerminalJobStatus(s model.JobStatus) bool {
	switch s {
	case model.JobStatusScored, model.JobStatusFailed, model.JobStatusSkippedDuplicate:
		return true
	default:
		return false
	}
}

// IsTerminalSuccessJobStatus reports whether a Job status counts as a
// terminal *success* (spec.md §4.1 selection contract: entries with a Job
// at summarized/scored in ANY run are excluded from future selection).
func IsTerminalSuccessJobStatus(s model.JobStatus) bool {
	return s == model.JobStatusSummarized || s == model.JobStatusScored
}

var runTransitions = map[model.RunStatus][]model.RunStatus{
	model.RunStatusPending: {
		model.RunStatusRunning,
	},
	model.RunStatusRunning: {
		model.RunStatusCompleted,
		model.RunStatusFailed,
		model.RunStatusPartial,
	},
	model.RunStatusCompleted: {},
	model.RunStatusFailed:    {},
	model.RunStatusPartial:   {},
}

// CanTransitionRun reports whether a Run may move from `from` to `to`.
func CanTransitionRun(from, to model.RunStatus) bool {
	allowed, ok := runTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
