package grading

// ReconciledGrade is one (student, score, feedback) tuple mapped back onto
// its originating batch entry.
type ReconciledGrade struct {
	Entry      BatchEntry
	Points     float64
	Feedback   string
	Confidence *float64
}

// reconcile pairs a sub-batch response onto its originating entries.
//
// When every result echoes a correlation token, mapping is keyed on it.
// Otherwise the only correlation mechanism is position, so the response
// length must equal the request length; any mismatch is a hard
// ReconciliationError. Results are never truncated or padded.
//
// Results missing a score are returned in needsRetry rather than being
// assigned a zero.
func reconcile(entries []BatchEntry, results []RawResult) (graded []ReconciledGrade, needsRetry []BatchEntry, err error) {
	if byToken, ok := tokenIndex(entries, results); ok {
		return pair(entries, byToken)
	}

	if len(results) != len(entries) {
		return nil, nil, &ReconciliationError{Want: len(entries), Got: len(results)}
	}

	byIndex := make(map[string]RawResult, len(results))
	for i, e := range entries {
		byIndex[e.Token.String()] = results[i]
	}
	return pair(entries, byIndex)
}

// tokenIndex builds the keyed correlation map when the service echoed every
// token back. Positional mapping below remains the compatibility path for
// services that do not.
func tokenIndex(entries []BatchEntry, results []RawResult) (map[string]RawResult, bool) {
	if len(results) == 0 {
		return nil, false
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Token.String()] = true
	}

	byToken := make(map[string]RawResult, len(results))
	for _, r := range results {
		if r.Token == "" || !known[r.Token] {
			return nil, false
		}
		if _, dup := byToken[r.Token]; dup {
			// A duplicated token would let the map shrink to a size match;
			// fall back to the positional length check instead.
			return nil, false
		}
		byToken[r.Token] = r
	}
	if len(byToken) != len(entries) {
		return nil, false
	}
	return byToken, true
}

func pair(entries []BatchEntry, byToken map[string]RawResult) (graded []ReconciledGrade, needsRetry []BatchEntry, err error) {
	for _, e := range entries {
		res := byToken[e.Token.String()]
		points, ok := res.Points()
		if !ok {
			needsRetry = append(needsRetry, e)
			continue
		}
		graded = append(graded, ReconciledGrade{
			Entry:      e,
			Points:     points,
			Feedback:   res.FeedbackText(),
			Confidence: res.Confidence,
		})
	}
	return graded, needsRetry, nil
}
