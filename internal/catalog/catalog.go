// Package catalog loads the named agent table from YAML and checks it
// against the platform.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/domain"
)

// Agent is one catalog entry: a display name bound to a platform assistant.
type Agent struct {
	Name         string   `yaml:"name" json:"name"`
	ID           string   `yaml:"id" json:"id"`
	Category     string   `yaml:"category,omitempty" json:"category,omitempty"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Protected    bool     `yaml:"protected,omitempty" json:"protected,omitempty"`
}

type file struct {
	Agents []Agent `yaml:"agents"`
}

// Catalog is the loaded agent table. Flagged entries stay in the table.
type Catalog struct {
	agents []Agent
	byName map[string]int
	byID   map[string][]int
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse agent catalog: %w", err)
	}
	return New(f.Agents), nil
}

// New builds a catalog from agents, trimming whitespace.
func New(agents []Agent) *Catalog {
	c := &Catalog{
		byName: make(map[string]int),
		byID:   make(map[string][]int),
	}
	for _, a := range agents {
		a.Name = strings.TrimSpace(a.Name)
		a.ID = strings.TrimSpace(a.ID)
		idx := len(c.agents)
		c.agents = append(c.agents, a)
		if _, seen := c.byName[strings.ToLower(a.Name)]; !seen && a.Name != "" {
			c.byName[strings.ToLower(a.Name)] = idx
		}
		if a.ID != "" {
			c.byID[a.ID] = append(c.byID[a.ID], idx)
		}
	}
	return c
}

// Agents returns the entries in file order.
func (c *Catalog) Agents() []Agent {
	return append([]Agent(nil), c.agents...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.agents) }

// Lookup resolves ref by display name (case-insensitive) or assistant id.
func (c *Catalog) Lookup(ref string) (Agent, bool) {
	ref = strings.TrimSpace(ref)
	if idx, ok := c.byName[strings.ToLower(ref)]; ok {
		return c.agents[idx], true
	}
	if idxs, ok := c.byID[ref]; ok {
		return c.agents[idxs[0]], true
	}
	return Agent{}, false
}

// Flags describes what the catalog knows about an assistant id.
type Flags struct {
	Name        string `json:"name,omitempty"`
	Known       bool   `json:"known"`
	Placeholder bool   `json:"placeholder"`
	Duplicate   bool   `json:"duplicate"`
	Protected   bool   `json:"protected"`
}

// FlagsFor reports catalog flags for id. Unknown ids are still checked for
// placeholder values.
func (c *Catalog) FlagsFor(id string) Flags {
	id = strings.TrimSpace(id)
	f := Flags{Placeholder: !validID(id)}
	idxs := c.byID[id]
	if len(idxs) == 0 {
		return f
	}
	f.Known = true
	f.Name = c.agents[idxs[0]].Name
	f.Duplicate = len(idxs) > 1
	for _, i := range idxs {
		if c.agents[i].Protected {
			f.Protected = true
		}
	}
	return f
}

// FindingKind classifies a catalog problem.
type FindingKind string

const (
	FindingDuplicateID   FindingKind = "duplicate_id"
	FindingInvalidID     FindingKind = "invalid_id"
	FindingEmptyName     FindingKind = "empty_name"
	FindingDuplicateName FindingKind = "duplicate_name"
)

// Finding is one problem found by Validate.
type Finding struct {
	Kind   FindingKind `json:"kind"`
	Agent  string      `json:"agent"`
	ID     string      `json:"id"`
	Detail string      `json:"detail"`
}

func validID(id string) bool {
	if id == "" || config.IsPlaceholder(id) {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Validate lists problems in the table: ids shared by several names,
// identifiers that are not UUIDs, and empty or repeated names.
func (c *Catalog) Validate() []Finding {
	var findings []Finding
	names := make(map[string]bool)

	for _, a := range c.agents {
		if a.Name == "" {
			findings = append(findings, Finding{Kind: FindingEmptyName, ID: a.ID, Detail: "entry has no name"})
		} else if names[strings.ToLower(a.Name)] {
			findings = append(findings, Finding{Kind: FindingDuplicateName, Agent: a.Name, ID: a.ID, Detail: "name appears more than once"})
		}
		names[strings.ToLower(a.Name)] = true

		if !validID(a.ID) {
			findings = append(findings, Finding{Kind: FindingInvalidID, Agent: a.Name, ID: a.ID, Detail: "identifier is not a valid assistant id"})
		}
	}

	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		idxs := c.byID[id]
		if len(idxs) < 2 {
			continue
		}
		var shared []string
		for _, i := range idxs {
			shared = append(shared, c.agents[i].Name)
		}
		for _, i := range idxs {
			findings = append(findings, Finding{
				Kind:   FindingDuplicateID,
				Agent:  c.agents[i].Name,
				ID:     id,
				Detail: "identifier shared by " + strings.Join(shared, ", "),
			})
		}
	}
	return findings
}

// Getter fetches one assistant. vapi.Platform satisfies it.
type Getter interface {
	GetAssistant(ctx context.Context, id string) (*domain.AssistantConfig, error)
}

// VerifyStatus is the outcome of checking one entry remotely.
type VerifyStatus string

const (
	VerifyOK      VerifyStatus = "ok"
	VerifyMissing VerifyStatus = "missing"
	VerifySkipped VerifyStatus = "skipped"
	VerifyError   VerifyStatus = "error"
)

// VerifyResult is the remote check of one entry.
type VerifyResult struct {
	Agent      string       `json:"agent"`
	ID         string       `json:"id"`
	Status     VerifyStatus `json:"status"`
	RemoteName string       `json:"remote_name,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Verify fetches every distinct valid id once. isNotFound tells a missing
// assistant apart from other failures. Invalid ids are skipped. A
// configuration failure aborts the run, since every other check would fail
// the same way.
func (c *Catalog) Verify(ctx context.Context, getter Getter, isNotFound, isFatal func(error) bool) ([]VerifyResult, error) {
	type outcome struct {
		status VerifyStatus
		name   string
		err    string
	}
	checked := make(map[string]outcome)

	results := make([]VerifyResult, 0, len(c.agents))
	for _, a := range c.agents {
		res := VerifyResult{Agent: a.Name, ID: a.ID}
		if !validID(a.ID) {
			res.Status = VerifySkipped
			results = append(results, res)
			continue
		}

		o, ok := checked[a.ID]
		if !ok {
			cfg, err := getter.GetAssistant(ctx, a.ID)
			switch {
			case err == nil:
				o = outcome{status: VerifyOK, name: domain.Value(cfg.Name)}
			case isFatal != nil && isFatal(err):
				return nil, err
			case isNotFound(err):
				o = outcome{status: VerifyMissing}
			default:
				o = outcome{status: VerifyError, err: err.Error()}
			}
			checked[a.ID] = o
		}
		res.Status, res.RemoteName, res.Error = o.status, o.name, o.err
		results = append(results, res)
	}
	return results, nil
}
