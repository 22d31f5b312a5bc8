package model

import "fmt"

// TimeRangeType selects how a TimeRange is interpreted.
type TimeRangeType string

const (
	TimeRangeYearly    TimeRangeType = "yearly"
	TimeRangeQuarterly TimeRangeType = "quarterly"
	TimeRangeCustom    TimeRangeType = "custom"
)

// TimeRange is one time filter chip. Yearly ranges need Year, quarterly need
// Year and Quarter (1-4), custom ranges need StartDate and EndDate
// (YYYY-MM-DD).
type TimeRange struct {
	Type      TimeRangeType `json:"type"`
	Year      int           `json:"year,omitempty"`
	Quarter   int           `json:"quarter,omitempty"`
	StartDate string        `json:"startDate,omitempty"`
	EndDate   string        `json:"endDate,omitempty"`
}

// Validate checks the per-type required fields, mirroring the backend
// serializer so bad chips fail before a request is issued.
func (t TimeRange) Validate() error {
	switch t.Type {
	case TimeRangeYearly:
		if t.Year == 0 {
			return fmt.Errorf("yearly time range requires a year")
		}
	case TimeRangeQuarterly:
		if t.Year == 0 || t.Quarter < 1 || t.Quarter > 4 {
			return fmt.Errorf("quarterly time range requires a year and quarter 1-4")
		}
	case TimeRangeCustom:
		if t.StartDate == "" || t.EndDate == "" {
			return fmt.Errorf("custom time range requires start and end dates")
		}
	default:
		return fmt.Errorf("unknown time range type %q", t.Type)
	}
	return nil
}

// ValueRange bounds contract_amount. Zero values mean unbounded.
type ValueRange struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

// ChipFilters is the filter state built from the user's chips. The export
// subsystem treats it as opaque: it is forwarded verbatim to whichever
// endpoint needs it and never mutated.
type ChipFilters struct {
	Contractors         []string    `json:"contractors"`
	Areas               []string    `json:"areas"`
	Organizations       []string    `json:"organizations"`
	BusinessCategories  []string    `json:"business_categories"`
	Keywords            []string    `json:"keywords"`
	TimeRanges          []TimeRange `json:"time_ranges"`
	ValueRange          *ValueRange `json:"value_range,omitempty"`
	IncludeFloodControl bool        `json:"include_flood_control,omitempty"`
}

// Clone returns a deep copy so callers can hand filters to a long-running
// export while continuing to edit their own chip state.
func (f ChipFilters) Clone() ChipFilters {
	out := f
	out.Contractors = append([]string(nil), f.Contractors...)
	out.Areas = append([]string(nil), f.Areas...)
	out.Organizations = append([]string(nil), f.Organizations...)
	out.BusinessCategories = append([]string(nil), f.BusinessCategories...)
	out.Keywords = append([]string(nil), f.Keywords...)
	out.TimeRanges = append([]TimeRange(nil), f.TimeRanges...)
	if f.ValueRange != nil {
		vr := *f.ValueRange
		out.ValueRange = &vr
	}
	return out
}

// Empty reports whether no filter chips are set at all.
func (f ChipFilters) Empty() bool {
	return len(f.Contractors) == 0 && len(f.Areas) == 0 &&
		len(f.Organizations) == 0 && len(f.BusinessCategories) == 0 &&
		len(f.Keywords) == 0 && len(f.TimeRanges) == 0 &&
		f.ValueRange == nil
}

// Dimension selects the aggregation axis for analytics exports.
type Dimension string

const (
	ByContractor   Dimension = "by_contractor"
	ByOrganization Dimension = "by_organization"
	ByArea         Dimension = "by_area"
	ByCategory     Dimension = "by_category"
)

// Scope returns the dimension without its "by_" prefix, used in filenames
// ("contractor_export.csv" on the backend, "<dataset>-contractor-…" here).
func (d Dimension) Scope() string {
	s := string(d)
	if len(s) > 3 && s[:3] == "by_" {
		return s[3:]
	}
	return s
}

// FilterOptions is the filter-options payload backing pickers and the
// dataset summary line.
type FilterOptions struct {
	Contractors        []string `json:"contractors"`
	Areas              []string `json:"areas"`
	Organizations      []string `json:"organizations"`
	BusinessCategories []string `json:"business_categories"`
}
