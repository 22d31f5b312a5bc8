package model

import "testing"

func TestTimeRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      TimeRange
		wantErr bool
	}{
		{"yearly ok", TimeRange{Type: TimeRangeYearly, Year: 2024}, false},
		{"yearly missing year", TimeRange{Type: TimeRangeYearly}, true},
		{"quarterly ok", TimeRange{Type: TimeRangeQuarterly, Year: 2024, Quarter: 2}, false},
		{"quarterly bad quarter", TimeRange{Type: TimeRangeQuarterly, Year: 2024, Quarter: 5}, true},
		{"quarterly missing year", TimeRange{Type: TimeRangeQuarterly, Quarter: 1}, true},
		{"custom ok", TimeRange{Type: TimeRangeCustom, StartDate: "2024-01-01", EndDate: "2024-06-30"}, false},
		{"custom missing end", TimeRange{Type: TimeRangeCustom, StartDate: "2024-01-01"}, true},
		{"unknown type", TimeRange{Type: "weekly"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tr.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChipFiltersClone(t *testing.T) {
	orig := ChipFilters{
		Contractors: []string{"Apex"},
		Keywords:    []string{"road"},
		TimeRanges:  []TimeRange{{Type: TimeRangeYearly, Year: 2024}},
		ValueRange:  &ValueRange{Min: 1000},
	}
	clone := orig.Clone()

	clone.Contractors[0] = "changed"
	clone.ValueRange.Min = 9999
	clone.Keywords = append(clone.Keywords, "bridge")

	if orig.Contractors[0] != "Apex" {
		t.Error("Clone shares the contractors slice")
	}
	if orig.ValueRange.Min != 1000 {
		t.Error("Clone shares the value range pointer")
	}
	if len(orig.Keywords) != 1 {
		t.Error("Clone shares the keywords slice backing array")
	}
}

func TestChipFiltersEmpty(t *testing.T) {
	if !(ChipFilters{}).Empty() {
		t.Error("zero filters should be empty")
	}
	if (ChipFilters{Keywords: []string{"x"}}).Empty() {
		t.Error("filters with a keyword should not be empty")
	}
	// The flood-control flag alone does not constitute a filter.
	if !(ChipFilters{IncludeFloodControl: true}).Empty() {
		t.Error("flood-control flag alone should still count as empty")
	}
}

func TestDimensionScope(t *testing.T) {
	tests := []struct {
		dim  Dimension
		want string
	}{
		{ByContractor, "contractor"},
		{ByOrganization, "organization"},
		{ByArea, "area"},
		{ByCategory, "category"},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		if got := tt.dim.Scope(); got != tt.want {
			t.Errorf("%q.Scope() = %q, want %q", tt.dim, got, tt.want)
		}
	}
}
