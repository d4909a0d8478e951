package migration

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMigrationsOrder(t *testing.T) {
	defs := RegisterMigrations()
	require.NotEmpty(t, defs)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		assert.NotNil(t, def.Up, def.Name)
		assert.NotNil(t, def.Down, def.Name)
		names = append(names, def.Name)
	}
	assert.True(t, sort.StringsAreSorted(names), "migrations are applied in name order")
	assert.Equal(t, "01_create_roles_table", names[0])
}

func TestBuildStatus(t *testing.T) {
	appliedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	defs := RegisterMigrations()

	status := BuildStatus(defs, []Migration{
		{Name: "01_create_roles_table", Batch: 1, AppliedAt: appliedAt},
		{Name: "99_removed", Batch: 1},
	})

	require.Len(t, status, len(defs))
	assert.True(t, status[0].Applied)
	assert.Equal(t, 1, status[0].Batch)
	assert.Equal(t, appliedAt, status[0].AppliedAt)
	for _, s := range status[1:] {
		assert.False(t, s.Applied, s.Name)
		assert.Zero(t, s.Batch)
	}
}

func TestIndexesTargetStoryTables(t *testing.T) {
	for _, idx := range indexes {
		assert.True(t, strings.HasPrefix(idx.name, "idx_"), idx.name)
		table := idx.definition[:strings.Index(idx.definition, "(")]
		assert.Contains(t, []string{"users", "stories", "generation_logs"}, table)
	}
}
