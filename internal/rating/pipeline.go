package rating

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Rate runs the full stage chain for one cohort: aggregate, shrink and
// normalize, strength of schedule, compose, residual boost. Each stage is
// pure; the same games, config and date always produce the same table.
func Rate(games []Game, today time.Time, cfg *Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}

	stats, skipped := Aggregate(games, today, cfg)
	stats = Normalize(stats, cfg)
	stats, components := ComputeSOS(stats, today, cfg)
	stats = Compose(stats, cfg)
	stats, gameResiduals, report := ApplyResidualBoost(stats, cfg)

	table := &Table{
		AsOf:          today,
		Teams:         stats,
		Components:    components,
		SkippedGames:  skipped,
		Residuals:     report,
		GameResiduals: gameResiduals,
	}
	if len(stats) > 0 {
		table.AgeGroup = stats[0].AgeGroup
		table.Gender = stats[0].Gender
	}
	return table, nil
}

// GroupByCohort splits perspective rows into their owning team's ranking
// pool. The opponent side of a cross-cohort game lands in the opponent's
// own pool via its mirror row.
func GroupByCohort(games []Game) map[CohortKey][]Game {
	groups := make(map[CohortKey][]Game)
	for _, g := range games {
		key := CohortKey{AgeGroup: g.AgeGroup, Gender: g.Gender}
		groups[key] = append(groups[key], g)
	}
	return groups
}

// RateAll rates every cohort found in the input on a bounded worker pool.
// Cohorts are independent, so the fan-out is safe; tables come back in
// sorted cohort order regardless of which worker finished first.
func RateAll(games []Game, today time.Time, cfg *Config, workers int) ([]*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	groups := GroupByCohort(games)
	keys := make([]CohortKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AgeGroup != keys[j].AgeGroup {
			return keys[i].AgeGroup < keys[j].AgeGroup
		}
		return keys[i].Gender < keys[j].Gender
	})

	tables := make([]*Table, len(keys))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				table, err := Rate(groups[keys[idx]], today, cfg)
				if err != nil {
					// Config already validated above; Rate cannot fail here.
					continue
				}
				table.AgeGroup = keys[idx].AgeGroup
				table.Gender = keys[idx].Gender
				tables[idx] = table
			}
		}()
	}
	for idx := range keys {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return tables, nil
}
