package organizer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run holds the state of one scrape run: the folder registry and the
// unparsed counter. A new Run must be created for every run.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time

	folders  map[string]struct{}
	unparsed int
}

// NewRun creates an empty run.
func NewRun(now time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		StartedAt: now,
		folders:   make(map[string]struct{}),
	}
}

// Reserve registers a folder name derived from base and returns it.
// Collisions get the first free "_2", "_3", ... suffix.
func (r *Run) Reserve(base string) string {
	name := base
	for n := 2; r.taken(name); n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	r.folders[name] = struct{}{}
	return name
}

func (r *Run) taken(name string) bool {
	_, ok := r.folders[name]
	return ok
}

// Unparsed returns how many posts went to the unparsed bucket.
func (r *Run) Unparsed() int {
	return r.unparsed
}

func (r *Run) nextUnparsed() int {
	r.unparsed++
	return r.unparsed
}
