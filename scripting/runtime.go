// Package scripting embeds a sandboxed Lua runtime for user-defined
// prospect scoring hooks. A script defines a global scoreProspect(candidate)
// function; the discovery pipeline calls it for every crawled candidate and
// applies the returned score adjustment or discard verdict.
package scripting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
)

// restrictedGlobals are removed from the Lua state after the standard
// libraries are opened. Scoring scripts get computation, not the filesystem.
var restrictedGlobals = []string{
	"os",
	"io",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"package",
	"debug",
	"collectgarbage",
}

// LogEntry is one line emitted by a script through print or linkdrip.log.
type LogEntry struct {
	Time time.Time
	Text string
}

// Candidate is the view of a crawled page handed to scoreProspect. It is
// pushed into Lua as a plain table.
type Candidate struct {
	URL                string
	Domain             string
	Title              string
	Kind               string
	DomainAuthority    int
	SpamScore          int
	RootDomainsLinking int
	ContactEmails      int
	OutboundLinks      int
	Premium            bool
}

// Verdict is what a scoring script decided about a candidate.
type Verdict struct {
	Delta   float64 // Score adjustment added to the heuristic fit score.
	Discard bool    // When true the candidate is dropped entirely.
}

// Runtime wraps a Lua state running one scoring script. A Runtime is not
// safe for concurrent use; the mutex serialises pipeline calls.
type Runtime struct {
	Name     string
	Source   string
	LuaState *lua.State
	Logs     []LogEntry

	// OnLog receives every script log line, nil to only buffer them.
	OnLog func(LogEntry)

	mu sync.Mutex
}

// NewRuntime creates a sandboxed Lua state, registers the linkdrip library
// and runs the script source so its global functions are defined.
func NewRuntime(name, source string, options ...func(*Runtime) error) (*Runtime, error) {
	runtime := &Runtime{
		Name:   name,
		Source: source,
	}
	for _, option := range options {
		if err := option(runtime); err != nil {
			return nil, fmt.Errorf("setting runtime option : %w", err)
		}
	}

	if err := runtime.PrepareState(); err != nil {
		return nil, fmt.Errorf("preparing lua state for %s : %w", name, err)
	}
	return runtime, nil
}

// WithLogHandler installs a callback for script log lines.
func WithLogHandler(handler func(LogEntry)) func(*Runtime) error {
	return func(runtime *Runtime) error {
		runtime.OnLog = handler
		return nil
	}
}

// PrepareState builds the sandboxed Lua state and loads the script source.
func (runtime *Runtime) PrepareState() error {
	l := lua.NewState()
	lua.OpenLibraries(l)

	for _, global := range restrictedGlobals {
		l.PushNil()
		l.SetGlobal(global)
	}

	runtime.LuaState = l
	registerLinkdripLibrary(runtime)
	runtime.registerPrint()

	if runtime.Source != "" {
		if err := lua.DoString(l, runtime.Source); err != nil {
			return fmt.Errorf("loading script %s : %w", runtime.Name, err)
		}
	}
	return nil
}

// ExecuteLua runs a chunk of Lua code in the runtime's state.
func (runtime *Runtime) ExecuteLua(code string) error {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	if err := lua.DoString(runtime.LuaState, code); err != nil {
		return fmt.Errorf("executing lua : %w", err)
	}
	return nil
}

// CheckGlobalFunction reports whether the script defined a global function
// with the given name.
func (runtime *Runtime) CheckGlobalFunction(name string) bool {
	l := runtime.LuaState
	l.Global(name)
	defer l.Pop(1)
	return l.IsFunction(-1)
}

// Score calls the script's scoreProspect function with the candidate. The
// function may return a number (score delta), a boolean true to discard, or
// both as (delta, discard). Scripts without a scoreProspect hook yield a
// zero verdict.
func (runtime *Runtime) Score(candidate Candidate) (Verdict, error) {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if !runtime.checkGlobalFunctionLocked("scoreProspect") {
		return Verdict{}, nil
	}

	l := runtime.LuaState
	l.Global("scoreProspect")
	util.DeepPush(l, candidateTable(candidate))

	if err := l.ProtectedCall(1, 2, 0); err != nil {
		return Verdict{}, fmt.Errorf("calling scoreProspect in %s : %w", runtime.Name, err)
	}
	defer l.Pop(2)

	var verdict Verdict
	if l.TypeOf(-2) == lua.TypeBoolean {
		verdict.Discard = l.ToBoolean(-2)
	} else if delta, ok := l.ToNumber(-2); ok {
		verdict.Delta = delta
	}
	if l.TypeOf(-1) == lua.TypeBoolean {
		verdict.Discard = verdict.Discard || l.ToBoolean(-1)
	}
	return verdict, nil
}

func (runtime *Runtime) checkGlobalFunctionLocked(name string) bool {
	l := runtime.LuaState
	l.Global(name)
	defer l.Pop(1)
	return l.IsFunction(-1)
}

// candidateTable flattens a Candidate into the table shape scripts see.
func candidateTable(candidate Candidate) map[string]any {
	return map[string]any{
		"url":                  candidate.URL,
		"domain":               candidate.Domain,
		"title":                candidate.Title,
		"kind":                 candidate.Kind,
		"domain_authority":     candidate.DomainAuthority,
		"spam_score":           candidate.SpamScore,
		"root_domains_linking": candidate.RootDomainsLinking,
		"contact_emails":       candidate.ContactEmails,
		"outbound_links":       candidate.OutboundLinks,
		"premium":              candidate.Premium,
	}
}

// registerPrint replaces Lua's print with one that buffers lines and feeds
// the OnLog callback.
func (runtime *Runtime) registerPrint() {
	printFunc := func(l *lua.State) int {
		n := l.Top()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			if l.IsString(i) {
				parts = append(parts, lua.CheckString(l, i))
			} else if str, ok := lua.ToStringMeta(l, i); ok {
				parts = append(parts, str)
			} else {
				parts = append(parts, "<value>")
			}
		}
		runtime.record(LogEntry{Time: time.Now(), Text: strings.Join(parts, "\t")})
		return 0
	}
	runtime.LuaState.Register("print", printFunc)
}

func (runtime *Runtime) record(entry LogEntry) {
	runtime.Logs = append(runtime.Logs, entry)
	if runtime.OnLog != nil {
		runtime.OnLog(entry)
	}
}
