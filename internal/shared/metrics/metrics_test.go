package metrics

import (
	"strconv"
	"strings"
	"testing"
)

func TestHistogramRenderIsCumulativeAndBounded(t *testing.T) {
	ObserveAnalysisDurationMs(50)
	ObserveAnalysisDurationMs(300)
	ObserveAnalysisDurationMs(70000)

	rendered := Render()

	var bucketValues []uint64
	var infValue, countValue uint64
	for _, line := range strings.Split(rendered, "\n") {
		switch {
		case strings.HasPrefix(line, `analysis_duration_ms_bucket{le="+Inf"}`):
			infValue = parseValue(t, line)
		case strings.HasPrefix(line, "analysis_duration_ms_bucket"):
			bucketValues = append(bucketValues, parseValue(t, line))
		case strings.HasPrefix(line, "analysis_duration_ms_count"):
			countValue = parseValue(t, line)
		}
	}

	if len(bucketValues) == 0 {
		t.Fatalf("no histogram buckets rendered:\n%s", rendered)
	}
	if countValue != 3 || infValue != countValue {
		t.Fatalf("count=%d inf=%d, want both 3", countValue, infValue)
	}

	var prev uint64
	for i, v := range bucketValues {
		if v < prev {
			t.Fatalf("bucket %d not cumulative: %d after %d", i, v, prev)
		}
		if v > countValue {
			t.Fatalf("bucket %d exceeds total count: %d > %d", i, v, countValue)
		}
		prev = v
	}
}

func parseValue(t *testing.T, line string) uint64 {
	t.Helper()
	fields := strings.Fields(line)
	if len(fields) < 2 {
		t.Fatalf("unparseable metric line: %q", line)
	}
	val, err := strconv.ParseUint(fields[len(fields)-1], 10, 64)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return val
}
