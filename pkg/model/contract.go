// Package model defines the value types shared across chipview: contract and
// aggregate rows as the backend serves them, and the filter state that every
// search/estimate/export request forwards verbatim.
package model

// Contract is one awarded-contract row as returned by chip-search and
// streamed by chip-export. Field names follow the backend serializer.
type Contract struct {
	ID               int64   `json:"id"`
	ReferenceID      string  `json:"reference_id"`
	ContractNo       string  `json:"contract_no"`
	AwardTitle       string  `json:"award_title"`
	NoticeTitle      string  `json:"notice_title"`
	AwardeeName      string  `json:"awardee_name"`
	OrganizationName string  `json:"organization_name"`
	AreaOfDelivery   string  `json:"area_of_delivery"`
	BusinessCategory string  `json:"business_category"`
	ContractAmount   float64 `json:"contract_amount"`
	AwardDate        string  `json:"award_date"`
	AwardStatus      string  `json:"award_status"`
}

// AggregateRow is one aggregated analytics row (per contractor, organization,
// area or category, depending on the requested dimension).
type AggregateRow struct {
	Label      string  `json:"label"`
	TotalValue float64 `json:"total_value"`
	Count      int64   `json:"count"`
	AvgValue   float64 `json:"avg_value"`
}

// ContractColumns is the canonical contract export header. The backend's own
// streaming export emits exactly this set, with reference_id and contract_no
// as separate columns; nothing aliases between them.
var ContractColumns = []string{
	"reference_id",
	"contract_no",
	"award_title",
	"notice_title",
	"awardee_name",
	"organization_name",
	"area_of_delivery",
	"business_category",
	"contract_amount",
	"award_date",
	"award_status",
}

// AggregateColumns is the canonical aggregated export header.
var AggregateColumns = []string{"label", "total_value", "count", "avg_value"}
