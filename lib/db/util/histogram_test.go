package util

import "testing"

func TestSizeHistogramEmpty(t *testing.T) {
	h := NewSizeHistogram()
	if h.GetCount() != 0 || h.AverageSize() != 0 || h.MedianEstimate() != 0 {
		t.Errorf("expected an empty histogram to report zeros")
	}
}

func TestSizeHistogramEstimates(t *testing.T) {
	h := NewSizeHistogram()

	// 8 small samples in the first bucket, 2 in the 1KB-4KB bucket
	for i := 0; i < 8; i++ {
		h.AddSample(10)
	}
	h.AddSample(2000)
	h.AddSample(3000)

	if got := h.GetCount(); got != 10 {
		t.Errorf("expected 10 samples, got %d", got)
	}
	if got := h.AverageSize(); got != (80+5000)/10 {
		t.Errorf("expected average %d, got %d", (80+5000)/10, got)
	}
	if got := h.MedianEstimate(); got != 8 {
		t.Errorf("expected median estimate 8, got %d", got)
	}
	if got := h.GetPercentileEstimate(90); got != (1024+4096)/2 {
		t.Errorf("expected p90 estimate %d, got %d", (1024+4096)/2, got)
	}
	if got := h.GetPercentileEstimate(101); got != 0 {
		t.Errorf("expected 0 for an invalid percentile, got %d", got)
	}
}

func TestSizeHistogramOverflowAndReset(t *testing.T) {
	h := NewSizeHistogram()
	h.AddSample(5 << 30)

	if got := h.GetPercentileEstimate(100); got != 4294967296*2 {
		t.Errorf("expected overflow estimate %d, got %d", 4294967296*2, got)
	}

	h.Reset()
	if h.GetCount() != 0 || h.GetPercentileEstimate(100) != 0 {
		t.Errorf("expected reset histogram to be empty")
	}
}
