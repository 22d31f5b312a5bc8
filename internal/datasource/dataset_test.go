package datasource

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
	"github.com/vanderheijden86/chipview/pkg/testutil"
)

func TestContractSetResidentData(t *testing.T) {
	rows := testutil.Contracts(5)
	set := NewContractSet(rows, time.Now())

	if set.Len() != 5 {
		t.Errorf("Len = %d", set.Len())
	}
	if got := set.Header(); len(got) != len(model.ContractColumns) {
		t.Errorf("Header = %v", got)
	}

	rec := set.Record(0)
	if rec[0] != rows[0].ReferenceID || rec[1] != rows[0].ContractNo {
		t.Errorf("Record(0) = %v", rec)
	}

	amounts := set.Amounts()
	if len(amounts) != 5 || amounts[2] != rows[2].ContractAmount {
		t.Errorf("Amounts = %v", amounts)
	}
}

func TestAggregateSetResidentData(t *testing.T) {
	rows := testutil.Aggregates(3)
	set := NewAggregateSet(rows, model.ByArea, time.Now())

	if set.Dimension != model.ByArea {
		t.Errorf("Dimension = %q", set.Dimension)
	}
	rec := set.Record(1)
	if rec[0] != rows[1].Label {
		t.Errorf("Record(1) = %v", rec)
	}
}

// The slice processor over a contract set must produce output with the
// canonical header and properly escaped entity names.
func TestContractSetThroughSliceProcessor(t *testing.T) {
	set := NewContractSet(testutil.Contracts(10), time.Now())

	out, err := export.SliceProcessor(set, 1, 10)
	if err != nil {
		t.Fatalf("SliceProcessor: %v", err)
	}

	testutil.AssertCSVHeader(t, out, model.ContractColumns)
	testutil.AssertCSVLineCount(t, out, 11)

	// The fixture pool includes a name with commas and quotes; it must come
	// out quoted wherever it appears.
	if strings.Contains(out, `,Acme, "Prime" Construction,`) {
		t.Error("unescaped contractor name in output")
	}
}
