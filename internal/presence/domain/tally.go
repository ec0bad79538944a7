package presence

// DurationTally maps each status to accumulated non-negative seconds.
type DurationTally map[Status]float64

// NewDurationTally returns a tally with every status zeroed.
func NewDurationTally() DurationTally {
	tally := make(DurationTally, 4)
	for _, status := range AllStatuses() {
		tally[status] = 0
	}
	return tally
}

// Add accumulates seconds for a status. Non-positive spans are ignored.
func (t DurationTally) Add(status Status, seconds float64) {
	if seconds <= 0 {
		return
	}
	t[status] += seconds
}

// Seconds returns the accumulated seconds for a status.
func (t DurationTally) Seconds(status Status) float64 {
	return t[status]
}

// Total returns the sum over all statuses.
func (t DurationTally) Total() float64 {
	var total float64
	for _, seconds := range t {
		total += seconds
	}
	return total
}

// Active returns the sum over the active subset selected by the mode.
func (t DurationTally) Active(mode ActiveMode) float64 {
	var total float64
	for _, status := range mode.Statuses() {
		total += t[status]
	}
	return total
}

// Merge adds every entry of other into the tally.
func (t DurationTally) Merge(other DurationTally) {
	for status, seconds := range other {
		t.Add(status, seconds)
	}
}
