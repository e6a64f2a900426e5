package face

// countWindow is a fixed-size sliding window of raw per-frame face counts.
// The modal count over the window suppresses single-frame flicker, like a
// hand crossing the lens, from being treated as a state change.
type countWindow struct {
	size      int
	minSample int
	modeRatio float64 // mode must cover this share of samples to be trusted
	samples   []int
}

func newCountWindow(size, minSample int, modeRatio float64) *countWindow {
	return &countWindow{
		size:      size,
		minSample: minSample,
		modeRatio: modeRatio,
	}
}

// push adds a raw count and returns the smoothed count. The modal value is
// trusted only once the window has minSample samples and the mode covers
// modeRatio of them; otherwise the instantaneous count is returned.
func (w *countWindow) push(count int) int {
	w.samples = append(w.samples, count)
	if len(w.samples) > w.size {
		w.samples = w.samples[1:]
	}

	if len(w.samples) < w.minSample {
		return count
	}

	mode, freq := w.mode()
	if float64(freq) >= w.modeRatio*float64(len(w.samples)) {
		return mode
	}
	return count
}

// mode returns the most frequent sample and its frequency. Ties resolve to
// the most recently observed value so the window trails the signal rather
// than leading it.
func (w *countWindow) mode() (int, int) {
	freq := make(map[int]int, len(w.samples))
	for _, s := range w.samples {
		freq[s]++
	}
	best, bestFreq := 0, 0
	for i := len(w.samples) - 1; i >= 0; i-- {
		s := w.samples[i]
		if freq[s] > bestFreq {
			best, bestFreq = s, freq[s]
		}
	}
	return best, bestFreq
}

func (w *countWindow) reset() {
	w.samples = w.samples[:0]
}
