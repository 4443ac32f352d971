package progress_test

import (
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services"
)

func failedRecord(attempts int) progress.Record {
	rec := progress.NewRecord("67352")
	for i := 0; i < attempts; i++ {
		rec.MarkFailed(services.KindNetworkError, "boom", time.Now())
	}
	return rec
}

func TestIsRetryEligible(t *testing.T) {
	const maxAttempts = 3

	cases := []struct {
		name string
		rec  progress.Record
		want bool
	}{
		{"failed below budget", failedRecord(1), true},
		{"failed at budget edge", failedRecord(2), true},
		{"exhausted", failedRecord(3), false},
		{"over budget", failedRecord(5), false},
		{"pending", progress.NewRecord("1"), false},
		{"completed", func() progress.Record {
			rec := progress.NewRecord("1")
			rec.MarkCompleted("/t/1.md", time.Now())
			return rec
		}(), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progress.IsRetryEligible(tc.rec, maxAttempts); got != tc.want {
				t.Fatalf("IsRetryEligible = %v, want %v (record %+v)", got, tc.want, tc.rec)
			}
		})
	}
}

func TestIsExhausted(t *testing.T) {
	if progress.IsExhausted(failedRecord(2), 3) {
		t.Fatal("two attempts of three is not exhausted")
	}
	if !progress.IsExhausted(failedRecord(3), 3) {
		t.Fatal("three attempts of three is exhausted")
	}
	rec := progress.NewRecord("1")
	rec.MarkCompleted("/t/1.md", time.Now())
	if progress.IsExhausted(rec, 1) {
		t.Fatal("completed records are never exhausted")
	}
}
