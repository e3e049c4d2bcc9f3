package motion

// Frame is one fixed-length analysis window of samples.
type Frame []Sample

// Buffer is a sliding window over a live sample stream. Once WindowSize
// samples have arrived, every further Push yields the current full window
// with the oldest sample evicted first. A Buffer is owned by a single
// goroutine; it is not safe for concurrent use.
type Buffer struct {
	samples []Sample
}

// NewBuffer returns an empty sliding-window buffer.
func NewBuffer() *Buffer {
	return &Buffer{samples: make([]Sample, 0, WindowSize)}
}

// Push appends s and, if the buffer holds a full window, returns a copy of
// it. The second return is false while the buffer is still filling.
func (b *Buffer) Push(s Sample) (Frame, bool) {
	if len(b.samples) == WindowSize {
		copy(b.samples, b.samples[1:])
		b.samples[WindowSize-1] = s
	} else {
		b.samples = append(b.samples, s)
		if len(b.samples) < WindowSize {
			return nil, false
		}
	}
	frame := make(Frame, WindowSize)
	copy(frame, b.samples)
	return frame, true
}

// Len reports how many samples the buffer currently holds.
func (b *Buffer) Len() int { return len(b.samples) }

// Reset drops all buffered samples.
func (b *Buffer) Reset() { b.samples = b.samples[:0] }

// LabeledSample pairs a sample with the activity label of the recording
// segment it came from, for building training tables.
type LabeledSample struct {
	Sample Sample
	Label  int
}

// LabeledFrame is a label-pure window cut from a labeled recording.
type LabeledFrame struct {
	Frame Frame
	Label int
}

// SliceLabeled cuts a labeled recording into windows of window samples
// advanced by step. Windows whose samples do not all carry the same label
// are discarded; skipped reports how many were dropped. A recording shorter
// than one window yields no frames.
func SliceLabeled(series []LabeledSample, window, step int) (frames []LabeledFrame, skipped int) {
	if window <= 0 || step <= 0 {
		return nil, 0
	}
	for start := 0; start+window <= len(series); start += step {
		seg := series[start : start+window]
		label := seg[0].Label
		pure := true
		for _, ls := range seg[1:] {
			if ls.Label != label {
				pure = false
				break
			}
		}
		if !pure {
			skipped++
			continue
		}
		frame := make(Frame, window)
		for i, ls := range seg {
			frame[i] = ls.Sample
		}
		frames = append(frames, LabeledFrame{Frame: frame, Label: label})
	}
	return frames, skipped
}
