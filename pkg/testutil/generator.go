// Package testutil provides deterministic test fixtures: contract and
// aggregate row generators and assertion helpers shared by the export,
// datasource and ui tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/chipview/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed     int64     // Random seed for determinism (0 = 42)
	BaseTime time.Time // Base time for award dates (default: fixed date)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		BaseTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Generator creates deterministic contract fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a generator from cfg.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

var (
	contractors = []string{
		"Apex Builders Corp",
		"Metro Roadworks Inc",
		"Cordillera Construction",
		"San Miguel Engineering",
		`Acme, "Prime" Construction`,
		"Bayan Infrastructure",
	}
	organizations = []string{
		"Department of Public Works",
		"City of Davao",
		"Province of Cebu",
		"Department of Education",
	}
	areas = []string{
		"Region III",
		"NCR",
		"Region VII",
		"CAR",
	}
	categories = []string{
		"Construction Projects",
		"Goods",
		"Consulting Services",
	}
	statuses = []string{"Awarded", "Completed"}
)

// Contracts generates n deterministic contract rows. Amounts, dates and
// entity names vary per row; one contractor name deliberately carries commas
// and quotes so CSV escaping is always exercised.
func (g *Generator) Contracts(n int) []model.Contract {
	out := make([]model.Contract, n)
	for i := range out {
		day := g.cfg.BaseTime.AddDate(0, 0, -i)
		out[i] = model.Contract{
			ID:               int64(i + 1),
			ReferenceID:      fmt.Sprintf("REF-%06d", i+1),
			ContractNo:       fmt.Sprintf("2024-%04d", i+1),
			AwardTitle:       fmt.Sprintf("Road rehabilitation phase %d", i+1),
			NoticeTitle:      fmt.Sprintf("Invitation to bid %d", i+1),
			AwardeeName:      contractors[g.rng.Intn(len(contractors))],
			OrganizationName: organizations[g.rng.Intn(len(organizations))],
			AreaOfDelivery:   areas[g.rng.Intn(len(areas))],
			BusinessCategory: categories[g.rng.Intn(len(categories))],
			ContractAmount:   float64(g.rng.Intn(90_000_000))/100 + 10_000,
			AwardDate:        day.Format("2006-01-02"),
			AwardStatus:      statuses[g.rng.Intn(len(statuses))],
		}
	}
	return out
}

// Aggregates generates n deterministic aggregate rows sorted by total value
// descending, the way the backend returns them.
func (g *Generator) Aggregates(n int) []model.AggregateRow {
	out := make([]model.AggregateRow, n)
	total := float64(1_000_000 * (n + 1))
	for i := range out {
		total -= float64(g.rng.Intn(900_000) + 1)
		count := int64(g.rng.Intn(50) + 1)
		out[i] = model.AggregateRow{
			Label:      fmt.Sprintf("%s #%d", contractors[i%len(contractors)], i+1),
			TotalValue: total,
			Count:      count,
			AvgValue:   total / float64(count),
		}
	}
	return out
}

// Contracts is a shorthand for NewGenerator(DefaultConfig()).Contracts(n).
func Contracts(n int) []model.Contract {
	return NewGenerator(DefaultConfig()).Contracts(n)
}

// Aggregates is a shorthand for NewGenerator(DefaultConfig()).Aggregates(n).
func Aggregates(n int) []model.AggregateRow {
	return NewGenerator(DefaultConfig()).Aggregates(n)
}
