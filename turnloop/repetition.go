package turnloop

// RepetitionDetector watches executed calls for short repeating patterns.
// Detection is advisory: the orchestrator surfaces a warning message but
// never blocks execution.
type RepetitionDetector struct {
	window int
	sigs   []string
}

// NewRepetitionDetector creates a detector over a trailing window of call
// signatures. window <= 0 uses 10.
func NewRepetitionDetector(window int) *RepetitionDetector {
	if window <= 0 {
		window = 10
	}
	return &RepetitionDetector{window: window}
}

// Observe appends call signatures to the trailing window.
func (d *RepetitionDetector) Observe(calls []ToolCall) {
	for _, c := range calls {
		d.sigs = append(d.sigs, c.Signature())
	}
	if excess := len(d.sigs) - d.window; excess > 0 {
		d.sigs = d.sigs[excess:]
	}
}

// Detect reports whether the full window follows a repeating pattern of
// length 1, 2, or 3.
func (d *RepetitionDetector) Detect() bool {
	if len(d.sigs) < d.window {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if d.window%patternLen != 0 {
			continue
		}
		pattern := d.sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < d.window && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if d.sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}

// Window returns the configured window size.
func (d *RepetitionDetector) Window() int {
	return d.window
}

// Reset clears the trailing window.
func (d *RepetitionDetector) Reset() {
	d.sigs = d.sigs[:0]
}
