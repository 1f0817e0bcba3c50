package framesink

import "sort"

type Progress struct {
	PlanLength int    `json:"plan_length"`
	Completed  int    `json:"completed"`
	LastError  string `json:"last_error,omitempty"`
}

type Failure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Tracker counts frame completions for one burst. Every index counts once,
// whether it succeeded or failed.
type Tracker struct {
	planLength int
	completed  int
	seen       []bool
	files      map[int]string
	failures   map[int]error
	lastErr    error
}

func NewTracker(planLength int) *Tracker {
	return &Tracker{
		planLength: planLength,
		seen:       make([]bool, planLength),
		files:      make(map[int]string),
		failures:   make(map[int]error),
	}
}

func (t *Tracker) Succeed(index int, path string) bool {
	if !t.claim(index) {
		return false
	}
	t.files[index] = path
	return true
}

func (t *Tracker) Fail(index int, err error) bool {
	if !t.claim(index) {
		return false
	}
	t.failures[index] = err
	t.lastErr = err
	return true
}

// Accepts reports whether index is in range and not yet counted.
func (t *Tracker) Accepts(index int) bool {
	return index >= 0 && index < t.planLength && !t.seen[index]
}

func (t *Tracker) claim(index int) bool {
	if !t.Accepts(index) {
		return false
	}
	t.seen[index] = true
	t.completed++
	return true
}

func (t *Tracker) Done() bool {
	return t.completed == t.planLength
}

func (t *Tracker) Missing() []int {
	var missing []int
	for i, ok := range t.seen {
		if !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

func (t *Tracker) Progress() Progress {
	p := Progress{
		PlanLength: t.planLength,
		Completed:  t.completed,
	}
	if t.lastErr != nil {
		p.LastError = t.lastErr.Error()
	}
	return p
}

func (t *Tracker) Files() []string {
	indices := make([]int, 0, len(t.files))
	for i := range t.files {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	files := make([]string, 0, len(indices))
	for _, i := range indices {
		files = append(files, t.files[i])
	}
	return files
}

func (t *Tracker) Failures() []Failure {
	failures := make([]Failure, 0, len(t.failures))
	for i, err := range t.failures {
		failures = append(failures, Failure{Index: i, Error: err.Error()})
	}
	sort.Slice(failures, func(a, b int) bool {
		return failures[a].Index < failures[b].Index
	})
	return failures
}
