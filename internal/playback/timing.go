package playback

// timing tracks elapsed and total seconds for the current session.
//
// The total blends two estimates. setExpected seeds a coarse estimate for a
// known number of items; each probed item then replaces its share of that
// estimate with its measured duration, and each skipped item drops its share.
type timing struct {
	consumedSec     float64 // finished items, or ticked speech time
	currentTrackSec float64 // duration of the loaded item, once known

	expectedCount int
	estimateSec   float64
	probedSec     float64
	probedCount   int
	skippedCount  int

	// floorSec is the lower bound implied by loaded metadata
	floorSec float64
}

func (t *timing) setExpected(count int, estimateSec float64) {
	if count < 0 {
		count = 0
	}
	if estimateSec < 0 {
		estimateSec = 0
	}
	t.expectedCount = count
	t.estimateSec = estimateSec
}

func (t *timing) addProbed(sec float64) {
	t.probedSec += sec
	t.probedCount++
}

func (t *timing) skip() {
	t.skippedCount++
}

func (t *timing) trackLoaded(sec float64) {
	t.currentTrackSec = sec
	if bound := t.consumedSec + sec; bound > t.floorSec {
		t.floorSec = bound
	}
}

func (t *timing) trackFinished() {
	if t.currentTrackSec > 0 {
		t.consumedSec += t.currentTrackSec
	}
	t.currentTrackSec = 0
}

func (t *timing) total() float64 {
	var total float64
	if t.expectedCount > 0 {
		remaining := t.expectedCount - t.probedCount - t.skippedCount
		if remaining < 0 {
			remaining = 0
		}
		total = t.probedSec + float64(remaining)*t.estimateSec/float64(t.expectedCount)
	} else {
		total = t.estimateSec + t.probedSec
	}
	if t.floorSec > total {
		total = t.floorSec
	}
	return total
}

// report returns elapsed and total with total never below elapsed.
func (t *timing) report(positionSec float64) (elapsed, total float64) {
	elapsed = t.consumedSec + positionSec
	total = t.total()
	if elapsed > total {
		total = elapsed
	}
	return elapsed, total
}
