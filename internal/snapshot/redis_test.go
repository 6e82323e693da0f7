// internal/snapshot/redis_test.go
package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/modelportal/detection-service/internal/detector"
	"github.com/modelportal/detection-service/internal/pipeline"
)

// Round-trip test against a real Redis; skipped unless SNAPSHOT_TEST_REDIS
// points at one.
func TestStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("SNAPSHOT_TEST_REDIS")
	if addr == "" {
		t.Skip("Skipping Redis round-trip test: SNAPSHOT_TEST_REDIS not set")
	}

	store, err := New(addr, time.Minute)
	if err != nil {
		t.Skipf("Skipping Redis round-trip test: %v", err)
	}
	defer store.Close()

	set := detector.Set{
		Detections: []pipeline.Detection{
			{
				Box:        pipeline.Box{Left: 10, Top: 20, Width: 30, Height: 40},
				Label:      "person",
				Confidence: 0.81,
				Color:      "#e6194b",
			},
		},
		Seq:       7,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	store.Publish(set)

	got, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	if got.Seq != set.Seq {
		t.Errorf("Seq = %d, expected %d", got.Seq, set.Seq)
	}
	if len(got.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(got.Detections))
	}
	if got.Detections[0].Label != "person" || got.Detections[0].Confidence != 0.81 {
		t.Errorf("Detection = %+v, expected person/0.81", got.Detections[0])
	}
}
