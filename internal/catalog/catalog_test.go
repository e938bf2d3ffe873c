package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/assistdesk/internal/domain"
)

const sampleYAML = `
agents:
  - name: Agent CEO
    id: bf161516-6d88-490c-972e-274098a6b51a
    category: Leadership
    protected: true
  - name: Agent Social
    id: bf161516-6d88-490c-972e-274098a6b51a
    category: Marketing
  - name: Invoice Agent
    id: invoice-agent-id-placeholder
  - name: Agent Doctor
    id: 9d1cccc6-3193-4694-a9f7-853198ee4082
    capabilities: [Medical Consultation]
  - name: ""
    id: 8f045bce-08bc-4477-8d3d-05f233a44df3
`

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	return c
}

func TestLoadKeepsFlaggedEntries(t *testing.T) {
	c := loadSample(t)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"Medical Consultation"}, c.Agents()[3].Capabilities)
}

func TestValidateFindings(t *testing.T) {
	findings := loadSample(t).Validate()

	kinds := map[FindingKind][]string{}
	for _, f := range findings {
		kinds[f.Kind] = append(kinds[f.Kind], f.Agent)
	}
	assert.ElementsMatch(t, []string{"Agent CEO", "Agent Social"}, kinds[FindingDuplicateID])
	assert.Equal(t, []string{"Invoice Agent"}, kinds[FindingInvalidID])
	assert.Len(t, kinds[FindingEmptyName], 1)
}

func TestLookupByNameOrID(t *testing.T) {
	c := loadSample(t)

	a, ok := c.Lookup("agent doctor")
	require.True(t, ok)
	assert.Equal(t, "9d1cccc6-3193-4694-a9f7-853198ee4082", a.ID)

	a, ok = c.Lookup("9d1cccc6-3193-4694-a9f7-853198ee4082")
	require.True(t, ok)
	assert.Equal(t, "Agent Doctor", a.Name)

	_, ok = c.Lookup("nobody")
	assert.False(t, ok)
}

func TestFlagsFor(t *testing.T) {
	c := loadSample(t)

	f := c.FlagsFor("bf161516-6d88-490c-972e-274098a6b51a")
	assert.True(t, f.Known)
	assert.True(t, f.Duplicate)
	assert.True(t, f.Protected)
	assert.False(t, f.Placeholder)

	assert.True(t, c.FlagsFor("invoice-agent-id-placeholder").Placeholder)

	unknown := c.FlagsFor("0b6e1d7a-6c0e-4b43-9f3c-1d0f7f1d2a11")
	assert.False(t, unknown.Known)
	assert.False(t, unknown.Placeholder)
}

type fakeGetter struct {
	calls   map[string]int
	missing map[string]bool
}

var errMissing = errors.New("missing")

func (g *fakeGetter) GetAssistant(ctx context.Context, id string) (*domain.AssistantConfig, error) {
	g.calls[id]++
	if g.missing[id] {
		return nil, errMissing
	}
	return &domain.AssistantConfig{ID: domain.Ptr(id), Name: domain.Ptr("remote " + id[:4])}, nil
}

func TestVerify(t *testing.T) {
	c := loadSample(t)
	g := &fakeGetter{
		calls:   map[string]int{},
		missing: map[string]bool{"9d1cccc6-3193-4694-a9f7-853198ee4082": true},
	}

	results, err := c.Verify(context.Background(), g, func(err error) bool { return errors.Is(err, errMissing) }, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, VerifyOK, results[0].Status)
	assert.Equal(t, "remote bf16", results[0].RemoteName)
	assert.Equal(t, VerifyOK, results[1].Status)
	assert.Equal(t, VerifySkipped, results[2].Status)
	assert.Equal(t, VerifyMissing, results[3].Status)
	assert.Equal(t, 1, g.calls["bf161516-6d88-490c-972e-274098a6b51a"], "shared ids are fetched once")
	assert.Zero(t, g.calls["invoice-agent-id-placeholder"])
}

func TestVerifyStopsOnFatal(t *testing.T) {
	c := loadSample(t)
	g := &fakeGetter{calls: map[string]int{}, missing: map[string]bool{"bf161516-6d88-490c-972e-274098a6b51a": true}}

	_, err := c.Verify(context.Background(), g, func(error) bool { return false }, func(err error) bool { return errors.Is(err, errMissing) })
	assert.ErrorIs(t, err, errMissing)
}

func TestShippedCatalogParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "agents.yaml"))
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 10)
	_, ok := c.Lookup("Agent CEO")
	assert.True(t, ok)
}
