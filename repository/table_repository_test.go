package repository

import (
	"context"
	"sync"
	"testing"

	"cardroom/domain/entities"
	"cardroom/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTableRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing table returns nil", func(t *testing.T) {
		table, err := repo.GetByID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, table)
	})

	t.Run("round trip with members in join order", func(t *testing.T) {
		alice := testutil.CreateTestUser(t, testDB.DB, "alice")
		bob := testutil.CreateTestUser(t, testDB.DB, "bob")

		table := &entities.Table{Name: "high stakes", Status: entities.TableStatusOpen}
		require.NoError(t, repo.Create(ctx, table))
		assert.NotZero(t, table.ID)

		added, err := repo.AddMember(ctx, table.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = repo.AddMember(ctx, table.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, added)

		fetched, err := repo.GetByID(ctx, table.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, entities.TableStatusOpen, fetched.Status)
		assert.Equal(t, []string{"alice", "bob"}, fetched.MemberUsernames())
	})
}

func TestTableRepository_AddMemberIdempotent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTableRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")
	table := &entities.Table{Name: "t", Status: entities.TableStatusOpen}
	require.NoError(t, repo.Create(ctx, table))

	added, err := repo.AddMember(ctx, table.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddMember(ctx, table.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, added)

	fetched, err := repo.GetByID(ctx, table.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Members, 1)
}

func TestTableRepository_ConcurrentJoins(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTableRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "racer")
	table := &entities.Table{Name: "contended", Status: entities.TableStatusOpen}
	require.NoError(t, repo.Create(ctx, table))

	// Many goroutines race to seat the same user; exactly one insert wins
	const attempts = 10
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			added, err := repo.AddMember(ctx, table.ID, user.ID)
			require.NoError(t, err)
			results[i] = added
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, added := range results {
		if added {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	fetched, err := repo.GetByID(ctx, table.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Members, 1)
}

func TestTableRepository_UpdateAndList(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTableRepository(testDB.DB)
	ctx := context.Background()

	winner := testutil.CreateTestUser(t, testDB.DB, "winner")

	first := &entities.Table{Name: "first", Status: entities.TableStatusOpen}
	require.NoError(t, repo.Create(ctx, first))
	second := &entities.Table{Name: "second", Status: entities.TableStatusOpen}
	require.NoError(t, repo.Create(ctx, second))

	first.Status = entities.TableStatusSettled
	first.WinnerID = &winner.ID
	require.NoError(t, repo.Update(ctx, first))

	tables, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	// Newest first
	assert.Equal(t, "second", tables[0].Name)
	assert.Equal(t, "first", tables[1].Name)
	require.NotNil(t, tables[1].WinnerID)
	assert.Equal(t, winner.ID, *tables[1].WinnerID)
}
