package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/lherron/guildq/internal/domain"
)

type fakeChapters struct {
	chapters []domain.Chapter
}

func (f *fakeChapters) Get(_ context.Context, identifier string) (*domain.Chapter, error) {
	for i := range f.chapters {
		if f.chapters[i].ID == identifier || f.chapters[i].Name == identifier {
			c := f.chapters[i]
			return &c, nil
		}
	}
	return nil, nil
}

type fakeCycles struct {
	cycles []domain.Cycle
}

func (f *fakeCycles) GetForChapter(_ context.Context, chapterID, identifier string) (*domain.Cycle, error) {
	var latest *domain.Cycle
	for i := range f.cycles {
		c := f.cycles[i]
		if identifier == "" {
			if c.ChapterID == chapterID && (latest == nil || c.CycleNumber > latest.CycleNumber) {
				latest = &c
			}
			continue
		}
		if c.ID == identifier {
			return &c, nil
		}
	}
	return latest, nil
}

type fakeUsers struct {
	users []domain.User
	calls int
	mu    sync.Mutex
}

func (f *fakeUsers) FindMany(_ context.Context, identifiers []string) ([]domain.User, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	var out []domain.User
	for _, u := range f.users {
		for _, identifier := range identifiers {
			if u.ID == identifier || u.Handle == identifier {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type fakeGoals struct {
	goals map[int]domain.Goal
}

func (f *fakeGoals) Get(_ context.Context, number int) (*domain.Goal, error) {
	g, ok := f.goals[number]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// fakeProjects applies the same merge rules as the SQLite store.
type fakeProjects struct {
	projects []*domain.Project
	creates  int
	updates  int
	nextID   int
}

func (f *fakeProjects) Get(_ context.Context, identifier string) (*domain.Project, error) {
	for _, p := range f.projects {
		if p.ID == identifier || p.Name == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProjects) Create(_ context.Context, name string, fields domain.ProjectFields) (*domain.Project, error) {
	f.creates++
	f.nextID++
	p := &domain.Project{
		ID:        fmt.Sprintf("project-%d", f.nextID),
		Name:      name,
		PlayerIDs: []string{},
		ETag:      1,
	}
	apply(p, fields)
	f.projects = append(f.projects, p)
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) Update(_ context.Context, id string, fields domain.ProjectFields) (*domain.Project, error) {
	f.updates++
	for _, p := range f.projects {
		if p.ID == id {
			apply(p, fields)
			p.ETag++
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", id)
}

func apply(p *domain.Project, fields domain.ProjectFields) {
	p.ChapterID = fields.ChapterID
	p.CycleID = fields.CycleID
	if g, ok := fields.Goal.Get(); ok {
		p.Goal = &g
	}
	if ids, ok := fields.PlayerIDs.Get(); ok {
		p.PlayerIDs = append([]string{}, ids...)
	}
	if coach, ok := fields.CoachID.Get(); ok {
		p.CoachID = &coach
	}
}

type fakeNames struct {
	names []string
	calls int
}

func (f *fakeNames) Generate(context.Context) (string, error) {
	f.calls++
	if len(f.names) == 0 {
		return fmt.Sprintf("generated-%d", f.calls), nil
	}
	name := f.names[0]
	f.names = f.names[1:]
	return name, nil
}

type fakeChannels struct {
	err     error
	project *domain.Project
	players []domain.User
}

func (f *fakeChannels) Init(_ context.Context, project *domain.Project, players []domain.User) error {
	f.project = project
	f.players = players
	return f.err
}
