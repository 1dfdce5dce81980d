package mood

import "testing"

func TestLevelFor(t *testing.T) {
	for score := MinScore; score <= MaxScore; score++ {
		level, ok := LevelFor(score)
		if !ok || level.Score != score {
			t.Fatalf("LevelFor(%d) = %+v, %v", score, level, ok)
		}
	}

	for _, score := range []int{0, 6, -1} {
		if _, ok := LevelFor(score); ok {
			t.Fatalf("LevelFor(%d) should be unsupported", score)
		}
	}
}

func TestChartReady(t *testing.T) {
	if ChartReady(1) {
		t.Fatal("one point cannot form a chart")
	}
	if !ChartReady(2) {
		t.Fatal("two points should form a chart")
	}
}
