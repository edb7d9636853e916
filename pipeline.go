package linkdrip

import (
	"strings"

	"github.com/linkdripai/linkdrip/domain"
)

// Candidate carries a crawled page through the fit-scoring pipeline. The
// score starts at a neutral baseline and each scorer nudges it; the final
// value is clamped to 0-100.
type Candidate struct {
	URL           string
	Domain        string
	Title         string
	Kind          string
	ContactEmails []string
	OutboundLinks []string
	Keywords      []string // Topic keywords of the website being prospected for.
	Metrics       *domain.DomainMetrics
	Premium       bool
	Score         int
	Discarded     bool
	Metadata      map[string]any
}

// ScriptVerdict is a scoring script's decision about a candidate.
type ScriptVerdict struct {
	Delta   float64
	Discard bool
}

// ScorerFunc adjusts a candidate's fit score in place.
type ScorerFunc func(candidate *Candidate)

// baselineScore is where every candidate starts before scorers run.
const baselineScore = 40

// DomainAuthority returns the candidate's Moz domain authority, 0 when
// metrics are missing.
func (candidate *Candidate) DomainAuthority() int {
	if candidate.Metrics == nil {
		return 0
	}
	return candidate.Metrics.DomainAuthority
}

// SpamScore returns the candidate's Moz spam score, 0 when metrics are missing.
func (candidate *Candidate) SpamScore() int {
	if candidate.Metrics == nil {
		return 0
	}
	return candidate.Metrics.SpamScore
}

// RootDomainsLinking returns the linking root domain count, 0 when metrics
// are missing.
func (candidate *Candidate) RootDomainsLinking() int {
	if candidate.Metrics == nil {
		return 0
	}
	return candidate.Metrics.RootDomainsLinking
}

// defaultScorers returns the built-in scoring pipeline, run in order.
func defaultScorers() []ScorerFunc {
	return []ScorerFunc{
		authorityScorer,
		spamScorer,
		contactScorer,
		relevanceScorer,
		premiumScorer,
	}
}

// runPipeline applies the scorers and the optional scoring script, then
// clamps the fit score.
func (app *App) runPipeline(candidate *Candidate) error {
	candidate.Score = baselineScore
	candidate.Kind = classifyKind(candidate.URL, candidate.Title)

	for _, scorer := range app.scorers {
		scorer(candidate)
		if candidate.Discarded {
			candidate.Score = clampScore(candidate.Score)
			return nil
		}
	}

	if app.Script != nil {
		verdict, err := app.Script.Score(*candidate)
		if err != nil {
			// An error in a user script should not halt discovery.
			app.Logger.Error("running scoring script", "url", candidate.URL, "error", err)
		} else {
			candidate.Score += int(verdict.Delta)
			if verdict.Discard {
				candidate.Discarded = true
			}
		}
	}

	candidate.Score = clampScore(candidate.Score)
	return nil
}

// authorityScorer rewards domain authority. Tiers rather than a linear map
// so mid-tier blogs stay competitive with big publishers.
func authorityScorer(candidate *Candidate) {
	authority := candidate.DomainAuthority()
	switch {
	case authority >= 70:
		candidate.Score += 30
	case authority >= 50:
		candidate.Score += 22
	case authority >= 30:
		candidate.Score += 12
	case authority >= 10:
		candidate.Score += 4
	}
}

// spamScorer penalises spam; anything past 30 is discarded outright.
func spamScorer(candidate *Candidate) {
	spam := candidate.SpamScore()
	switch {
	case spam > 30:
		candidate.Discarded = true
	case spam > 15:
		candidate.Score -= 20
	case spam > 5:
		candidate.Score -= 8
	}
}

// contactScorer rewards reachable pages; outreach needs an address.
func contactScorer(candidate *Candidate) {
	if len(candidate.ContactEmails) > 0 {
		candidate.Score += 15
	}
}

// relevanceScorer checks the website's keywords against the page title and URL.
func relevanceScorer(candidate *Candidate) {
	haystack := strings.ToLower(candidate.Title + " " + candidate.URL)
	matches := 0
	for _, keyword := range candidate.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, keyword) {
			matches++
		}
	}
	switch {
	case matches >= 2:
		candidate.Score += 15
	case matches == 1:
		candidate.Score += 8
	}
}

// premiumScorer flags high-value prospects that cost a splash to unlock.
func premiumScorer(candidate *Candidate) {
	if candidate.DomainAuthority() >= 60 && candidate.SpamScore() <= 5 {
		candidate.Premium = true
	}
}

// kindSignals maps URL/title markers to prospect kinds, checked in order.
var kindSignals = []struct {
	marker string
	kind   string
}{
	{"write-for-us", domain.KindGuestPost},
	{"write for us", domain.KindGuestPost},
	{"guest-post", domain.KindGuestPost},
	{"guest post", domain.KindGuestPost},
	{"contribute", domain.KindGuestPost},
	{"resources", domain.KindResourcePage},
	{"links", domain.KindResourcePage},
	{"directory", domain.KindDirectory},
	{"listing", domain.KindDirectory},
}

// classifyKind guesses the opportunity kind from the URL and title.
func classifyKind(url, title string) string {
	haystack := strings.ToLower(url + " " + title)
	for _, signal := range kindSignals {
		if strings.Contains(haystack, signal.marker) {
			return signal.kind
		}
	}
	return domain.KindBlog
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
