package replay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/dialogue"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
)

// #region fixture-types

// Fixture is a scripted set of calls replayed against one set of stores, so
// later calls can resume earlier ones.
type Fixture struct {
	Description string        `yaml:"description"`
	Now         time.Time     `yaml:"now"`
	Policy      PolicyPatch   `yaml:"policy"`
	Knowledge   []kb.Snippet  `yaml:"knowledge"`
	Calls       []FixtureCall `yaml:"calls"`
}

// PolicyPatch overrides selected engine parameters. Unset keys keep their
// defaults.
type PolicyPatch struct {
	AmbiguousIsYes *bool `yaml:"ambiguous_is_yes"`
	MaxRetries     *int  `yaml:"max_retries"`
	QnABudget      *int  `yaml:"qna_budget"`
}

// FixtureCall is one phone call: a session id, the caller id and its turns.
type FixtureCall struct {
	SessionID    string        `yaml:"session_id"`
	CallerNumber string        `yaml:"caller_number"`
	Turns        []FixtureTurn `yaml:"turns"`
}

// FixtureTurn is one caller utterance and what the reply must look like.
type FixtureTurn struct {
	Say    string `yaml:"say"`
	Expect Expect `yaml:"expect"`
}

// Expect lists checks on a reply. Zero values are not checked.
type Expect struct {
	Stage          string            `yaml:"stage"`
	PromptContains []string          `yaml:"prompt_contains"`
	Completed      *bool             `yaml:"completed"`
	Handoff        *bool             `yaml:"handoff"`
	Slots          map[string]string `yaml:"slots"`
	Citations      []int             `yaml:"citations"`
	ListenSec      int               `yaml:"listen_sec"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Calls) == 0 {
		return nil, fmt.Errorf("fixture %s: no calls", path)
	}
	for i, c := range f.Calls {
		if c.SessionID == "" {
			return nil, fmt.Errorf("fixture %s: call %d has no session_id", path, i)
		}
	}
	return &f, nil
}

// Apply returns p with the patch applied.
func (pp PolicyPatch) Apply(p dialogue.Policy) dialogue.Policy {
	if pp.AmbiguousIsYes != nil {
		p.AmbiguousIsYes = *pp.AmbiguousIsYes
	}
	if pp.MaxRetries != nil {
		p.MaxRetries = *pp.MaxRetries
	}
	if pp.QnABudget != nil {
		p.QnABudget = *pp.QnABudget
	}
	return p
}

// #endregion fixture-loader
