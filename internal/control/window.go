package control

// ring is a fixed capacity FIFO of samples.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(size int) ring {
	if size < 1 {
		size = 1
	}
	return ring{buf: make([]float64, size)}
}

// push adds v and returns the evicted sample, if any.
func (r *ring) push(v float64) (float64, bool) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return 0, false
	}
	old := r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return old, true
}

func (r *ring) each(fn func(float64)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.start+i)%len(r.buf)])
	}
}

func (r *ring) reset() {
	r.start, r.n = 0, 0
}

// MovingAverage is the mean of the last Window samples.
type MovingAverage struct {
	samples ring
	sum     float64
}

// NewMovingAverage creates a moving average over window samples.
func NewMovingAverage(window int) *MovingAverage {
	return &MovingAverage{samples: newRing(window)}
}

// Add pushes a sample.
func (m *MovingAverage) Add(v float64) {
	m.sum += v
	if old, evicted := m.samples.push(v); evicted {
		m.sum -= old
	}
}

// Value is the current mean, zero when empty.
func (m *MovingAverage) Value() float64 {
	if m.samples.n == 0 {
		return 0
	}
	return m.sum / float64(m.samples.n)
}

// Len returns the number of samples held.
func (m *MovingAverage) Len() int { return m.samples.n }

// Reset drops all samples.
func (m *MovingAverage) Reset() {
	m.samples.reset()
	m.sum = 0
}

// Variance is the sample variance of the last Window samples.
type Variance struct {
	samples ring
}

// NewVariance creates a variance tracker over window samples.
func NewVariance(window int) *Variance {
	return &Variance{samples: newRing(window)}
}

// Add pushes a sample.
func (v *Variance) Add(x float64) {
	v.samples.push(x)
}

// Value is the sample variance (n-1 denominator). Fewer than two samples
// yield zero.
func (v *Variance) Value() float64 {
	n := v.samples.n
	if n < 2 {
		return 0
	}
	var sum float64
	v.samples.each(func(x float64) { sum += x })
	mean := sum / float64(n)
	var sq float64
	v.samples.each(func(x float64) {
		d := x - mean
		sq += d * d
	})
	return sq / float64(n-1)
}

// Len returns the number of samples held.
func (v *Variance) Len() int { return v.samples.n }

// Reset drops all samples.
func (v *Variance) Reset() { v.samples.reset() }
