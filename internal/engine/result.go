package engine

// Outcome classifies a document after one run.
type Outcome string

const (
	// OutcomeUnchanged means every region's output already matched; the
	// file was not rewritten.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeChanged means at least one region's body changed and the
	// file was atomically rewritten.
	OutcomeChanged Outcome = "changed"

	// OutcomeFailed means at least one region or the document itself
	// failed. Failed regions keep their prior bytes; healthy regions in
	// the same document still regenerate.
	OutcomeFailed Outcome = "failed"
)

// DocumentResult is the per-document outcome of one run.
type DocumentResult struct {
	Path    string         `json:"path"`
	Outcome Outcome        `json:"outcome"`
	Regions int            `json:"regions"`
	Errors  []*RegionError `json:"errors,omitempty"`
}

// RunResult aggregates per-document outcomes for one invocation.
//
// Documents is keyed by document identity rather than ordered, because
// documents complete in no guaranteed order.
type RunResult struct {
	// Token correlates log lines and cache generations with this run.
	Token string `json:"token"`

	Documents map[string]DocumentResult `json:"documents"`

	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Ok reports whether every document succeeded.
func (r *RunResult) Ok() bool { return r.Failed == 0 }

// Errors flattens every document's errors, for reporting.
func (r *RunResult) Errors() []*RegionError {
	var all []*RegionError
	for _, dr := range r.Documents {
		all = append(all, dr.Errors...)
	}
	return all
}

// add records a document result and updates the counters. Callers must hold
// the engine's result lock.
func (r *RunResult) add(dr DocumentResult) {
	r.Documents[dr.Path] = dr
	switch dr.Outcome {
	case OutcomeChanged:
		r.Changed++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
	}
}
