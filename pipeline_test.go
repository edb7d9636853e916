package linkdrip

import (
	"errors"
	"testing"

	"github.com/linkdripai/linkdrip/domain"
)

func setupTestApp(t *testing.T) *App {
	t.Helper()
	app, err := New()
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	return app
}

func TestRunPipeline_Baseline(t *testing.T) {
	app := setupTestApp(t)

	candidate := &Candidate{
		URL:    "https://example.com/some-article",
		Domain: "example.com",
		Title:  "Some Article",
	}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}

	if candidate.Score != baselineScore {
		t.Errorf("candidate with no signals should stay at baseline\nwanted:\n%d\ngot:\n%d", baselineScore, candidate.Score)
	}
	if candidate.Kind != domain.KindBlog {
		t.Errorf("unclassified page should default to blog kind, got %q", candidate.Kind)
	}
	if candidate.Discarded {
		t.Error("candidate with no signals should not be discarded")
	}
}

func TestRunPipeline_Scoring(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name      string
		candidate Candidate
		score     int
		premium   bool
	}{
		{
			name: "high authority with contact",
			candidate: Candidate{
				URL:           "https://big.example.com/write-for-us",
				Title:         "Write For Us",
				ContactEmails: []string{"editor@big.example.com"},
				Metrics:       &domain.DomainMetrics{DomainAuthority: 75, SpamScore: 2},
			},
			// 40 baseline + 30 authority + 15 contact
			score:   85,
			premium: true,
		},
		{
			name: "mid authority spam penalty",
			candidate: Candidate{
				URL:     "https://mid.example.com/blog",
				Metrics: &domain.DomainMetrics{DomainAuthority: 55, SpamScore: 20},
			},
			// 40 baseline + 22 authority - 20 spam
			score: 42,
		},
		{
			name: "keyword relevance",
			candidate: Candidate{
				URL:      "https://blog.example.com/golang-backlinks-guide",
				Title:    "A Guide To Backlinks",
				Keywords: []string{"golang", "backlinks"},
			},
			// 40 baseline + 15 for two keyword matches
			score: 55,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			candidate := test.candidate
			if err := app.runPipeline(&candidate); err != nil {
				t.Fatalf("running pipeline: %v", err)
			}
			if candidate.Score != test.score {
				t.Errorf("unexpected fit score\nwanted:\n%d\ngot:\n%d", test.score, candidate.Score)
			}
			if candidate.Premium != test.premium {
				t.Errorf("unexpected premium flag\nwanted:\n%v\ngot:\n%v", test.premium, candidate.Premium)
			}
		})
	}
}

func TestRunPipeline_SpamDiscard(t *testing.T) {
	app := setupTestApp(t)

	candidate := &Candidate{
		URL:     "https://spam.example.com/",
		Metrics: &domain.DomainMetrics{DomainAuthority: 80, SpamScore: 45},
	}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	if !candidate.Discarded {
		t.Fatal("candidate over the spam threshold should be discarded")
	}
}

func TestRunPipeline_ClampsScore(t *testing.T) {
	app := setupTestApp(t)
	app.AddScorer(func(candidate *Candidate) {
		candidate.Score += 500
	})

	candidate := &Candidate{URL: "https://example.com/"}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	if candidate.Score != 100 {
		t.Errorf("fit score should clamp at 100, got %d", candidate.Score)
	}
}

type fakeScriptRunner struct {
	verdict ScriptVerdict
	err     error
}

func (runner *fakeScriptRunner) Score(candidate Candidate) (ScriptVerdict, error) {
	return runner.verdict, runner.err
}

func TestRunPipeline_Script(t *testing.T) {
	app := setupTestApp(t)
	app.Script = &fakeScriptRunner{verdict: ScriptVerdict{Delta: -10}}

	candidate := &Candidate{URL: "https://example.com/"}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	if candidate.Score != baselineScore-10 {
		t.Errorf("script delta should apply\nwanted:\n%d\ngot:\n%d", baselineScore-10, candidate.Score)
	}

	app.Script = &fakeScriptRunner{verdict: ScriptVerdict{Discard: true}}
	candidate = &Candidate{URL: "https://example.com/"}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	if !candidate.Discarded {
		t.Fatal("script discard verdict should stick")
	}
}

func TestRunPipeline_ScriptErrorIsNotFatal(t *testing.T) {
	app := setupTestApp(t)
	app.Script = &fakeScriptRunner{err: errors.New("boom")}

	candidate := &Candidate{URL: "https://example.com/"}
	if err := app.runPipeline(candidate); err != nil {
		t.Fatalf("a failing script should not abort the pipeline: %v", err)
	}
	if candidate.Score != baselineScore {
		t.Errorf("failing script should leave the score untouched, got %d", candidate.Score)
	}
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		url   string
		title string
		kind  string
	}{
		{"https://example.com/write-for-us", "", domain.KindGuestPost},
		{"https://example.com/page", "Contribute An Article", domain.KindGuestPost},
		{"https://example.com/resources", "", domain.KindResourcePage},
		{"https://example.com/directory", "", domain.KindDirectory},
		{"https://example.com/2024/my-post", "My Post", domain.KindBlog},
	}
	for _, test := range tests {
		if got := classifyKind(test.url, test.title); got != test.kind {
			t.Errorf("classifyKind(%q, %q) = %q, wanted %q", test.url, test.title, got, test.kind)
		}
	}
}
