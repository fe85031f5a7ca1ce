package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/lherron/guildq/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	chapters *fakeChapters
	cycles   *fakeCycles
	users    *fakeUsers
	goals    *fakeGoals
	projects *fakeProjects
	names    *fakeNames
	channels *fakeChannels
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chapters: &fakeChapters{chapters: []domain.Chapter{
			{ID: "c1", Name: "berlin"},
			{ID: "c2", Name: "oslo"},
		}},
		cycles: &fakeCycles{cycles: []domain.Cycle{
			{ID: "cy1", ChapterID: "c1", CycleNumber: 1},
			{ID: "cy2", ChapterID: "c2", CycleNumber: 1},
			{ID: "cy3", ChapterID: "c1", CycleNumber: 2},
		}},
		users: &fakeUsers{users: []domain.User{
			{ID: "u-alice", Handle: "alice"},
			{ID: "u-bob", Handle: "bob"},
			{ID: "u-carol", Handle: "carol"},
		}},
		goals: &fakeGoals{goals: map[int]domain.Goal{
			42: {Number: 42, Title: "Build a CLI", TeamSize: 2, Level: 1},
			7:  {Number: 7, Title: "Write a parser"},
		}},
		projects: &fakeProjects{},
		names:    &fakeNames{names: []string{"brave-otter"}},
		channels: &fakeChannels{},
	}
	f.resolver = New(Deps{
		Chapters: f.chapters,
		Cycles:   f.cycles,
		Users:    f.users,
		Goals:    f.goals,
		Projects: f.projects,
		Names:    f.names,
		Channels: f.channels,
	})
	return f
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) *domain.Error {
	t.Helper()
	require.Error(t, err)
	var derr *domain.Error
	require.True(t, errors.As(err, &derr), "expected *domain.Error, got %T: %v", err, err)
	require.Equal(t, kind, derr.Kind, derr.Message)
	return derr
}

func TestImportCreatesProjectWithGeneratedName(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "7",
		PlayerIdentifiers: []string{"carol", "u-alice"},
	}, Options{})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "brave-otter", res.Project.Name)
	assert.Equal(t, "c1", res.Project.ChapterID)
	assert.Equal(t, "cy1", res.Project.CycleID)
	assert.Equal(t, []string{"u-carol", "u-alice"}, res.Project.PlayerIDs)
	assert.Nil(t, res.Project.CoachID)
	assert.Equal(t, 1, f.names.calls)
}

func TestImportConcreteScenario(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
		CoachIdentifier:   "bob",
	}, Options{})
	require.NoError(t, err)

	require.NotNil(t, res.Project.Goal)
	assert.Equal(t, f.goals.goals[42], *res.Project.Goal)
	assert.Equal(t, []string{"u-alice"}, res.Project.PlayerIDs)
	require.NotNil(t, res.Project.CoachID)
	assert.Equal(t, "u-bob", *res.Project.CoachID)
	assert.Equal(t, "brave-otter", res.Project.Name)
	assert.Equal(t, 1, f.projects.creates)
}

func TestImportRequiresAtLeastOneUserOnCreate(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{},
		CoachIdentifier:   "bob",
	}, Options{})

	derr := requireKind(t, err, domain.KindValidation)
	assert.Contains(t, derr.Message, "at least one user")
	assert.Equal(t, 0, f.projects.creates)
}

func TestImportRequiresGoalOnCreate(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
	}, Options{})

	derr := requireKind(t, err, domain.KindValidation)
	assert.Contains(t, derr.Message, "must specify a goal")
	assert.Equal(t, 0, f.projects.creates)
	assert.Equal(t, 0, f.names.calls)
}

func TestImportChapterNotFound(t *testing.T) {
	tests := []struct {
		name    string
		chapter string
	}{
		{"unknown", "atlantis"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.resolver.Import(context.Background(), Input{
				ChapterIdentifier: tt.chapter,
				PlayerIdentifiers: []string{"alice"},
				GoalIdentifier:    "42",
			}, Options{})

			derr := requireKind(t, err, domain.KindNotFound)
			assert.Equal(t, []string{tt.chapter}, derr.Identifiers)
			assert.Contains(t, derr.Message, "Chapter not found")
		})
	}
}

func TestImportReportsEveryMissingUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice", "ghost", "u-bob", "phantom", "ghost"},
	}, Options{})

	derr := requireKind(t, err, domain.KindNotFound)
	assert.Equal(t, []string{"ghost", "phantom"}, derr.Identifiers)
	assert.Equal(t, "Users not found for identifiers: ghost, phantom", derr.Message)
	assert.Equal(t, 0, f.projects.creates)
}

func TestImportMissingCoachIsReportedAsUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
		CoachIdentifier:   "nobody",
	}, Options{})

	derr := requireKind(t, err, domain.KindNotFound)
	assert.Equal(t, []string{"nobody"}, derr.Identifiers)
}

func TestImportSkipsUserLookupWithoutIdentifiers(t *testing.T) {
	f := newFixture(t)
	f.projects.projects = []*domain.Project{{ID: "p1", Name: "quiet-heron", ChapterID: "c1", CycleID: "cy1", PlayerIDs: []string{"u-alice"}, ETag: 1}}

	_, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		ProjectIdentifier: "p1",
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.users.calls)
}

func TestImportCycleResolution(t *testing.T) {
	t.Run("defaults to latest cycle", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.resolver.Import(context.Background(), Input{
			ChapterIdentifier: "berlin",
			GoalIdentifier:    "42",
			PlayerIdentifiers: []string{"alice"},
		}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "cy3", res.Project.CycleID)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resolver.Import(context.Background(), Input{
			ChapterIdentifier: "c1",
			CycleIdentifier:   "cy9",
			GoalIdentifier:    "42",
			PlayerIdentifiers: []string{"alice"},
		}, Options{})
		derr := requireKind(t, err, domain.KindNotFound)
		assert.Equal(t, []string{"cy9"}, derr.Identifiers)
	})

	t.Run("belongs to another chapter", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resolver.Import(context.Background(), Input{
			ChapterIdentifier: "c1",
			CycleIdentifier:   "cy2",
			GoalIdentifier:    "42",
			PlayerIdentifiers: []string{"alice"},
		}, Options{})
		derr := requireKind(t, err, domain.KindConflict)
		assert.Contains(t, derr.Message, "does not match chapter berlin")
		assert.Equal(t, 0, f.projects.creates)
	})
}

func TestImportProjectConflictsLeaveProjectUntouched(t *testing.T) {
	tests := []struct {
		name    string
		project domain.Project
		want    string
	}{
		{
			name:    "chapter mismatch",
			project: domain.Project{ID: "p1", Name: "quiet-heron", ChapterID: "c2", CycleID: "cy2"},
			want:    "chapter ID c2 does not match chapter berlin",
		},
		{
			name:    "cycle mismatch",
			project: domain.Project{ID: "p1", Name: "quiet-heron", ChapterID: "c1", CycleID: "cy3"},
			want:    "cycle ID cy3 does not match cycle 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			stored := tt.project
			stored.PlayerIDs = []string{"u-carol"}
			stored.ETag = 3
			f.projects.projects = []*domain.Project{&stored}

			_, err := f.resolver.Import(context.Background(), Input{
				ProjectIdentifier: "quiet-heron",
				ChapterIdentifier: "c1",
				CycleIdentifier:   "cy1",
				GoalIdentifier:    "42",
				PlayerIdentifiers: []string{"alice"},
			}, Options{})

			derr := requireKind(t, err, domain.KindConflict)
			assert.Contains(t, derr.Message, tt.want)
			assert.Equal(t, []string{"quiet-heron"}, derr.Identifiers)
			assert.Equal(t, 0, f.projects.updates)
			assert.Equal(t, 0, f.projects.creates)
			assert.Equal(t, int64(3), stored.ETag)
			assert.Equal(t, []string{"u-carol"}, stored.PlayerIDs)
		})
	}
}

func TestImportGoalNotFound(t *testing.T) {
	for _, goal := range []string{"99", "forty-two", "0"} {
		t.Run(goal, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.resolver.Import(context.Background(), Input{
				ChapterIdentifier: "c1",
				CycleIdentifier:   "cy1",
				GoalIdentifier:    goal,
				PlayerIdentifiers: []string{"alice"},
			}, Options{})
			derr := requireKind(t, err, domain.KindNotFound)
			assert.Equal(t, "Goal not found with identifier: "+goal, derr.Message)
		})
	}
}

func TestImportUpdateMergesOnlyProvidedFields(t *testing.T) {
	f := newFixture(t)
	coach := "u-bob"
	goal := f.goals.goals[7]
	f.projects.projects = []*domain.Project{{
		ID: "p1", Name: "quiet-heron", ChapterID: "c1", CycleID: "cy1",
		Goal: &goal, PlayerIDs: []string{"u-carol"}, CoachID: &coach, ETag: 1,
	}}

	res, err := f.resolver.Import(context.Background(), Input{
		ProjectIdentifier: "p1",
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		PlayerIdentifiers: []string{"alice", "carol"},
	}, Options{})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, 1, f.projects.updates)
	assert.Equal(t, []string{"u-alice", "u-carol"}, res.Project.PlayerIDs)
	require.NotNil(t, res.Project.Goal)
	assert.Equal(t, 7, res.Project.Goal.Number)
	require.NotNil(t, res.Project.CoachID)
	assert.Equal(t, "u-bob", *res.Project.CoachID)
}

func TestImportUpdateWithoutPlayersKeepsPlayers(t *testing.T) {
	f := newFixture(t)
	f.projects.projects = []*domain.Project{{ID: "p1", Name: "quiet-heron", ChapterID: "c1", CycleID: "cy1", PlayerIDs: []string{"u-carol"}, ETag: 1}}

	res, err := f.resolver.Import(context.Background(), Input{
		ProjectIdentifier: "p1",
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u-carol"}, res.Project.PlayerIDs)
	assert.Equal(t, 42, res.Project.Goal.Number)
}

func TestImportIsIdempotentByProjectID(t *testing.T) {
	f := newFixture(t)
	in := Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
		CoachIdentifier:   "bob",
	}

	first, err := f.resolver.Import(context.Background(), in, Options{})
	require.NoError(t, err)

	in.ProjectIdentifier = first.Project.ID
	second, err := f.resolver.Import(context.Background(), in, Options{})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Project.ID, second.Project.ID)
	assert.Equal(t, first.Project.Name, second.Project.Name)
	assert.Equal(t, first.Project.Goal, second.Project.Goal)
	assert.Equal(t, first.Project.PlayerIDs, second.Project.PlayerIDs)
	assert.Equal(t, first.Project.CoachID, second.Project.CoachID)
	assert.Len(t, f.projects.projects, 1)
}

func TestImportUnknownProjectIdentifierCreatesWithThatName(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolver.Import(context.Background(), Input{
		ProjectIdentifier: "swift-falcon",
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
	}, Options{})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "swift-falcon", res.Project.Name)
	assert.Equal(t, 0, f.names.calls)
}

func TestImportChannelFailureIsReportedAfterWrite(t *testing.T) {
	f := newFixture(t)
	f.channels.err = errors.New("webhook returned 502")

	res, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice", "bob"},
	}, Options{InitializeChannel: true})
	require.NoError(t, err)

	require.Error(t, res.ChannelErr)
	assert.ErrorIs(t, res.ChannelErr, f.channels.err)
	assert.Equal(t, 1, f.projects.creates)
	require.NotNil(t, f.channels.project)
	assert.Equal(t, res.Project.ID, f.channels.project.ID)
	require.Len(t, f.channels.players, 2)
	assert.Equal(t, "alice", f.channels.players[0].Handle)
}

func TestImportSkipsChannelUnlessRequested(t *testing.T) {
	f := newFixture(t)

	res, err := f.resolver.Import(context.Background(), Input{
		ChapterIdentifier: "c1",
		CycleIdentifier:   "cy1",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
	}, Options{})
	require.NoError(t, err)
	assert.NoError(t, res.ChannelErr)
	assert.Nil(t, f.channels.project)
}

func TestUserIndexPrefersIDOverHandle(t *testing.T) {
	ix := newUserIndex([]domain.User{
		{ID: "u1", Handle: "alice"},
		{ID: "alice", Handle: "impostor"},
	})

	u, ok := ix.lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "impostor", u.Handle)

	u, ok = ix.lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Handle)

	assert.Equal(t, []string{"x"}, ix.missing([]string{"u1", "x", "x"}))
}
