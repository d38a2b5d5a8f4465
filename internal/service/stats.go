package service

// Stats is the per-run report every backfill produces. It is created at run
// start, mutated as records are processed, and emitted as the terminal
// summary; it is never persisted.
type Stats struct {
	// Total records seen by the fetch.
	Total int
	// Updated records written this run (or that would have been written,
	// under dry-run).
	Updated int
	// Skipped records that already had a value, produced nothing to
	// write, or fell beyond the run limit.
	Skipped int
	// Errors is the count of records whose write failed.
	Errors int
	// Distribution maps category (or tag name) to assignment count over
	// the records successfully updated in this run.
	Distribution map[string]int
}

func newStats() *Stats {
	return &Stats{Distribution: make(map[string]int)}
}
