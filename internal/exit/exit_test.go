package exit

import (
	"bytes"
	"os"
	"testing"
)

func TestResults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   *Result
		wantOut  *os.File
		wantCode int
	}{
		{name: "success", result: Success("ok"), wantOut: os.Stdout, wantCode: CodeOK},
		{name: "error", result: Errorf("bad %d", 1), wantOut: os.Stderr, wantCode: CodeFailure},
		{name: "usage", result: Usagef("flag %s", "x"), wantOut: os.Stderr, wantCode: CodeUsage},
		{name: "partial", result: Failure(CodePartial, "some"), wantOut: os.Stderr, wantCode: CodePartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.result.Output != tt.wantOut {
				t.Errorf("Output = %v, want %v", tt.result.Output, tt.wantOut)
			}
			if tt.result.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", tt.result.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := &Result{Output: &buf, Message: "bad 1"}
	r.Print()
	if buf.String() != "bad 1" {
		t.Errorf("Print() wrote %q, want %q", buf.String(), "bad 1")
	}
}

func TestForLoads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, failed, want int
	}{
		{total: 2, failed: 0, want: CodeOK},
		{total: 2, failed: 1, want: CodePartial},
		{total: 2, failed: 2, want: CodeFailure},
		{total: 0, failed: 0, want: CodeOK},
	}

	for _, tt := range tests {
		if got := ForLoads(tt.total, tt.failed); got != tt.want {
			t.Errorf("ForLoads(%d, %d) = %d, want %d", tt.total, tt.failed, got, tt.want)
		}
	}
}
