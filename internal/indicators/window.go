package indicators

// rollingWindow is a fixed-capacity ring buffer over float64 values with a
// running sum. It backs every rolling computation in the bank so that each
// bar is an O(period) worst case (max/min scan) and O(1) for means.
type rollingWindow struct {
	values []float64
	head   int
	count  int
	sum    float64
}

func newRollingWindow(period int) *rollingWindow {
	return &rollingWindow{values: make([]float64, period)}
}

// Push appends a value, evicting the oldest once the window is full.
func (w *rollingWindow) Push(v float64) {
	if w.count == len(w.values) {
		w.sum -= w.values[w.head]
	} else {
		w.count++
	}
	w.values[w.head] = v
	w.sum += v
	w.head = (w.head + 1) % len(w.values)
}

// Full reports whether the window has seen at least period values.
func (w *rollingWindow) Full() bool {
	return w.count == len(w.values)
}

// Mean returns the arithmetic mean of the values currently in the window.
func (w *rollingWindow) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// Max returns the largest value currently in the window.
func (w *rollingWindow) Max() float64 {
	max := w.values[0]
	for i := 1; i < w.count; i++ {
		if w.values[i] > max {
			max = w.values[i]
		}
	}
	return max
}

// Min returns the smallest value currently in the window.
func (w *rollingWindow) Min() float64 {
	min := w.values[0]
	for i := 1; i < w.count; i++ {
		if w.values[i] < min {
			min = w.values[i]
		}
	}
	return min
}
