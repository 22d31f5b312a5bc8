package export

import (
	"strconv"
	"strings"

	"github.com/vanderheijden86/chipview/pkg/model"
)

// CSV serialization shared by both export strategies. Quoting matches the
// backend's streaming generator exactly: fields are wrapped in double quotes
// only when they contain a comma, quote or newline, with embedded quotes
// doubled, so downstream tooling sees identical output regardless of which
// path produced a file. Lines always end in "\n".

// EscapeField applies minimal RFC 4180 quoting to a single field.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FormatRow serializes one record, terminator included.
func FormatRow(fields []string) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(EscapeField(f))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// formatAmount renders a numeric field unquoted, dropping a trailing ".00"
// style zero fraction the way the backend's raw values appear.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ContractFields maps a contract row onto model.ContractColumns order.
func ContractFields(c model.Contract) []string {
	return []string{
		c.ReferenceID,
		c.ContractNo,
		c.AwardTitle,
		c.NoticeTitle,
		c.AwardeeName,
		c.OrganizationName,
		c.AreaOfDelivery,
		c.BusinessCategory,
		formatAmount(c.ContractAmount),
		c.AwardDate,
		c.AwardStatus,
	}
}

// AggregateFields maps an aggregate row onto model.AggregateColumns order.
func AggregateFields(r model.AggregateRow) []string {
	return []string{
		r.Label,
		formatAmount(r.TotalValue),
		strconv.FormatInt(r.Count, 10),
		formatAmount(r.AvgValue),
	}
}
