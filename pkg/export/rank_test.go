package export

import "testing"

func TestRankRangeClamp(t *testing.T) {
	tests := []struct {
		name  string
		rng   RankRange
		count int64
		want  RankRange
		ok    bool
	}{
		{"full range", RankRange{1, 100}, 100, RankRange{1, 100}, true},
		{"subset", RankRange{10, 20}, 100, RankRange{10, 20}, true},
		{"end past count clamps", RankRange{4990, 5100}, 5000, RankRange{4990, 5000}, true},
		{"start below one clamps", RankRange{0, 10}, 100, RankRange{1, 10}, true},
		{"negative start clamps", RankRange{-5, 3}, 100, RankRange{1, 3}, true},
		{"entirely past count", RankRange{200, 300}, 100, RankRange{}, false},
		{"inverted", RankRange{20, 10}, 100, RankRange{}, false},
		{"zero count", RankRange{1, 10}, 0, RankRange{}, false},
		{"single row", RankRange{5, 5}, 5, RankRange{5, 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rng.Clamp(tt.count)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Clamp(%d) = %+v, %v; want %+v, %v", tt.count, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRankRangeRows(t *testing.T) {
	if got := (RankRange{1, 100}).Rows(); got != 100 {
		t.Errorf("Rows() = %d, want 100", got)
	}
	if got := (RankRange{7, 7}).Rows(); got != 1 {
		t.Errorf("Rows() = %d, want 1", got)
	}
	if got := (RankRange{9, 3}).Rows(); got != 0 {
		t.Errorf("Rows() = %d, want 0", got)
	}
}

func TestFullRange(t *testing.T) {
	if got := FullRange(42); got != (RankRange{1, 42}) {
		t.Errorf("FullRange(42) = %+v", got)
	}
}
