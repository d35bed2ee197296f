package reporting

// BotCallTotals are the raw per-bot sums stats are derived from.
// Terminal counts calls in a final status; Completed is a subset of it.
type BotCallTotals struct {
	BotID           string
	Calls           int
	Terminal        int
	Completed       int
	DurationSeconds int
}
