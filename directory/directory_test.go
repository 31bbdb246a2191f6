package directory

import (
	"testing"

	"civicconnect-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(orgs []models.Organization) []string {
	out := make([]string, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, o.ID)
	}
	return out
}

func TestResolveOrganizationsMatchesExactlyHandlingOrganizations(t *testing.T) {
	for _, cat := range Categories() {
		got := ResolveOrganizations(cat.ID)
		require.NotEmpty(t, got, cat.ID)

		want := map[string]bool{}
		for _, org := range All() {
			if org.Handles(cat.ID) {
				want[org.ID] = true
			}
		}
		assert.Len(t, got, len(want), cat.ID)
		for _, org := range got {
			assert.True(t, want[org.ID], "%s should not handle %s", org.ID, cat.ID)
		}
	}
}

func TestResolveOrganizationsRoads(t *testing.T) {
	assert.Equal(t, []string{"pwd", "mmrda", "muni-roads"}, ids(ResolveOrganizations(models.Roads)))
}

func TestResolveOrganizationsWaterloggingFirstMatch(t *testing.T) {
	got := ResolveOrganizations(models.Waterlogging)
	require.NotEmpty(t, got)
	assert.Equal(t, "bmc-drainage", got[0].ID)
	assert.Contains(t, ids(got), "pwd")
}

func TestResolveOrganizationsUnknownCategory(t *testing.T) {
	got := ResolveOrganizations("volcano")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLookupByIDAndName(t *testing.T) {
	org, ok := Lookup("pwd")
	require.True(t, ok)
	assert.Equal(t, "Public Works Department (PWD)", org.Name)

	org, ok = Lookup("  tata power ")
	require.True(t, ok)
	assert.Equal(t, "tata-power", org.ID)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestHandles(t *testing.T) {
	assert.True(t, Handles("pwd", models.Roads))
	assert.False(t, Handles("pwd", models.Garbage))
	assert.False(t, Handles("missing", models.Roads))
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Name = "changed"
	original := all[0].IssueTypes[0]
	all[0].IssueTypes[0] = "changed"
	org, _ := ByID(all[0].ID)
	assert.NotEqual(t, "changed", org.Name)
	assert.Equal(t, original, org.IssueTypes[0])

	byID, _ := ByID("pwd")
	byID.IssueTypes[0] = "changed"
	again, _ := ByID("pwd")
	assert.Equal(t, models.Waterlogging, again.IssueTypes[0])

	resolved := ResolveOrganizations(models.Roads)
	resolved[0].IssueTypes[0] = "changed"
	assert.Equal(t, models.Waterlogging, ResolveOrganizations(models.Roads)[0].IssueTypes[0])
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(models.Streetlights))
	assert.False(t, ValidCategory("infrastructure"))
}
