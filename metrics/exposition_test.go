package metrics

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestWriteText(t *testing.T) {
	r := NewRegistry()
	r.Counter("cpu.instructions_retired").Add(12)
	r.Gauge("loader.image-bytes").Set(64)
	h := r.Histogram("run.duration_us")
	h.Observe(10)
	h.Observe(30)
	r.Histogram("run.empty")

	var buf bytes.Buffer
	if err := WriteText(&buf, r, "orkarv"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# HELP orkarv_cpu_instructions_retired cpu.instructions_retired\n",
		"# TYPE orkarv_cpu_instructions_retired counter\n",
		"orkarv_cpu_instructions_retired 12\n",
		"# TYPE orkarv_loader_image_bytes gauge\n",
		"orkarv_loader_image_bytes 64\n",
		"# TYPE orkarv_run_duration_us summary\n",
		"orkarv_run_duration_us_count 2\n",
		"orkarv_run_duration_us_sum 40\n",
		"orkarv_run_duration_us_min 10\n",
		"orkarv_run_duration_us_max 30\n",
		"orkarv_run_duration_us_mean 20\n",
		"orkarv_run_empty_count 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "orkarv_run_empty_min") {
		t.Errorf("empty histogram emitted min:\n%s", out)
	}
}

func TestWriteText_NoNamespace(t *testing.T) {
	r := NewRegistry()
	r.Counter("a.b").Inc()
	var buf bytes.Buffer
	if err := WriteText(&buf, r, ""); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "\na_b 1\n") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestWriteText_Deterministic(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"z.c", "a.c", "m.c"} {
		r.Counter(n).Inc()
	}
	var first, second bytes.Buffer
	WriteText(&first, r, "x")
	WriteText(&second, r, "x")
	if first.String() != second.String() {
		t.Fatal("output differs between calls")
	}
	if strings.Index(first.String(), "x_a_c") > strings.Index(first.String(), "x_z_c") {
		t.Fatal("counters not sorted")
	}
}

func TestWriteText_SortedAcrossKinds(t *testing.T) {
	r := NewRegistry()
	r.Histogram("b.hist")
	r.Gauge("c.gauge")
	r.Counter("a.count")
	var buf bytes.Buffer
	if err := WriteText(&buf, r, ""); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	a, b, c := strings.Index(out, "# TYPE a_count"), strings.Index(out, "# TYPE b_hist"), strings.Index(out, "# TYPE c_gauge")
	if a < 0 || !(a < b && b < c) {
		t.Fatalf("metrics not sorted by name:\n%s", out)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
		{math.NaN(), "NaN"},
		{1.5, "1.5"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
