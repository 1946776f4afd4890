package repository

import (
	"context"
	"testing"

	"cardroom/domain/entities"
	"cardroom/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentRepository_RoundTrip(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTournamentRepository(testDB.DB)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, testDB.DB, "alice")
	bob := testutil.CreateTestUser(t, testDB.DB, "bob")
	carol := testutil.CreateTestUser(t, testDB.DB, "carol")

	tournament := &entities.Tournament{
		Name:   "friday bracket",
		Status: entities.TournamentStatusOpen,
		Round:  1,
	}
	require.NoError(t, repo.Create(ctx, tournament))
	assert.NotZero(t, tournament.ID)

	for _, u := range []*entities.User{alice, bob, carol} {
		added, err := repo.AddMember(ctx, tournament.ID, u.ID)
		require.NoError(t, err)
		assert.True(t, added)
	}

	t.Run("entrants load in join order", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, 1, fetched.Round)
		assert.Equal(t, []string{"alice", "bob", "carol"}, fetched.MemberUsernames())
		assert.Len(t, fetched.ActiveMembers(), 3)
	})

	t.Run("mark eliminated", func(t *testing.T) {
		require.NoError(t, repo.MarkEliminated(ctx, tournament.ID, []int64{bob.ID}))

		fetched, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, fetched.EliminatedUsernames())
		assert.Len(t, fetched.ActiveMembers(), 2)
		assert.False(t, fetched.IsActiveMember(bob.ID))
		assert.True(t, fetched.IsActiveMember(alice.ID))
	})

	t.Run("mark eliminated rejects unknown entrant", func(t *testing.T) {
		err := repo.MarkEliminated(ctx, tournament.ID, []int64{9999})
		assert.Error(t, err)
	})

	t.Run("update round, status and winner", func(t *testing.T) {
		tournament.Round = 2
		tournament.Status = entities.TournamentStatusSettled
		tournament.WinnerID = &alice.ID
		require.NoError(t, repo.Update(ctx, tournament))

		fetched, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, fetched.Round)
		assert.Equal(t, entities.TournamentStatusSettled, fetched.Status)
		require.NotNil(t, fetched.WinnerID)
		assert.Equal(t, alice.ID, *fetched.WinnerID)
	})
}

func TestTournamentRepository_AddMemberIdempotent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTournamentRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, testDB.DB, "alice")
	tournament := &entities.Tournament{Name: "t", Status: entities.TournamentStatusOpen, Round: 1}
	require.NoError(t, repo.Create(ctx, tournament))

	added, err := repo.AddMember(ctx, tournament.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddMember(ctx, tournament.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, added)
}
