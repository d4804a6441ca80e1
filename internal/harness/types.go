package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int      `json:"step"`
	Op      string   `json:"op"`
	Args    any      `json:"args,omitempty"`
	Changed bool     `json:"changed"`
	Order   int      `json:"order,omitempty"`
	Error   string   `json:"error,omitempty"`
	State   string   `json:"state"`
	View    []string `json:"view"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// View is the final merged ordered view.
	View []string `json:"view"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		View:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
