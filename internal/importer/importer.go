// Package importer resolves loosely-typed import identifiers into chapters,
// cycles, users and goals, checks that they agree with each other, and then
// creates a new project or merges into an existing one.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ChapterLookup resolves a chapter by id or name. A miss is (nil, nil).
type ChapterLookup interface {
	Get(ctx context.Context, identifier string) (*domain.Chapter, error)
}

// CycleLookup resolves a cycle within a chapter. An empty identifier means
// the chapter's current cycle. A miss is (nil, nil).
type CycleLookup interface {
	GetForChapter(ctx context.Context, chapterID, identifier string) (*domain.Cycle, error)
}

// UserLookup returns the users whose id or handle is among identifiers.
// Only matches are returned.
type UserLookup interface {
	FindMany(ctx context.Context, identifiers []string) ([]domain.User, error)
}

// GoalLookup resolves a goal by number. A miss is (nil, nil).
type GoalLookup interface {
	Get(ctx context.Context, number int) (*domain.Goal, error)
}

// ProjectRepository reads and writes projects. Update is a merge: fields
// that are not set keep their stored values.
type ProjectRepository interface {
	Get(ctx context.Context, identifier string) (*domain.Project, error)
	Update(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error)
	Create(ctx context.Context, name string, fields domain.ProjectFields) (*domain.Project, error)
}

// NameGenerator produces a fresh project name.
type NameGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// ChannelInitializer sets up the chat channel for a project.
type ChannelInitializer interface {
	Init(ctx context.Context, project *domain.Project, players []domain.User) error
}

// Deps are the collaborators a Resolver needs. Channels and Log are optional.
type Deps struct {
	Chapters ChapterLookup
	Cycles   CycleLookup
	Users    UserLookup
	Goals    GoalLookup
	Projects ProjectRepository
	Names    NameGenerator
	Channels ChannelInitializer
	Log      logrus.FieldLogger
}

// Input is one import request. Every field is a caller-supplied identifier.
// A nil PlayerIdentifiers means "not provided"; an empty, non-nil slice is an
// explicit empty list.
type Input struct {
	ProjectIdentifier string   `json:"project_identifier,omitempty" yaml:"project_identifier,omitempty"`
	ChapterIdentifier string   `json:"chapter_identifier" yaml:"chapter_identifier"`
	CycleIdentifier   string   `json:"cycle_identifier,omitempty" yaml:"cycle_identifier,omitempty"`
	GoalIdentifier    string   `json:"goal_identifier,omitempty" yaml:"goal_identifier,omitempty"`
	PlayerIdentifiers []string `json:"player_identifiers,omitempty" yaml:"player_identifiers,omitempty"`
	CoachIdentifier   string   `json:"coach_identifier,omitempty" yaml:"coach_identifier,omitempty"`
}

// Options control optional side effects of an import.
type Options struct {
	InitializeChannel bool
}

// Result is the outcome of a successful write. ChannelErr is set when the
// project was persisted but channel initialization failed afterwards; the
// write is not rolled back.
type Result struct {
	Project    *domain.Project
	Created    bool
	ChannelErr error
}

// Resolver runs project imports. It holds no per-call state and is safe for
// concurrent use.
type Resolver struct {
	chapters ChapterLookup
	cycles   CycleLookup
	users    UserLookup
	goals    GoalLookup
	projects ProjectRepository
	names    NameGenerator
	channels ChannelInitializer
	log      logrus.FieldLogger
}

// New creates a Resolver from its collaborators.
func New(deps Deps) *Resolver {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{
		chapters: deps.Chapters,
		cycles:   deps.Cycles,
		users:    deps.Users,
		goals:    deps.Goals,
		projects: deps.Projects,
		names:    deps.Names,
		channels: deps.Channels,
		log:      log.WithField("component", "importer"),
	}
}

// Import resolves in and creates or updates the project it describes.
//
// A ProjectIdentifier that matches no project is not an error: the import
// proceeds as a create and the identifier becomes the new project's name.
func (r *Resolver) Import(ctx context.Context, in Input, opts Options) (*Result, error) {
	in = in.trimmed()

	userIdentifiers := make([]string, 0, len(in.PlayerIdentifiers)+1)
	userIdentifiers = append(userIdentifiers, in.PlayerIdentifiers...)
	if in.CoachIdentifier != "" {
		userIdentifiers = append(userIdentifiers, in.CoachIdentifier)
	}

	var (
		chapter *domain.Chapter
		users   []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := r.chapters.Get(gctx, in.ChapterIdentifier)
		if err != nil {
			return fmt.Errorf("failed to look up chapter %s: %w", in.ChapterIdentifier, err)
		}
		chapter = c
		return nil
	})
	if len(userIdentifiers) > 0 {
		g.Go(func() error {
			u, err := r.users.FindMany(gctx, userIdentifiers)
			if err != nil {
				return fmt.Errorf("failed to look up users: %w", err)
			}
			users = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if chapter == nil {
		return nil, domain.NotFoundError([]string{in.ChapterIdentifier},
			"Chapter not found for identifier %s", in.ChapterIdentifier)
	}

	index := newUserIndex(users)
	if missing := index.missing(userIdentifiers); len(missing) > 0 {
		return nil, domain.NotFoundError(missing,
			"Users not found for identifiers: %s", strings.Join(missing, ", "))
	}

	players := make([]domain.User, 0, len(in.PlayerIdentifiers))
	for _, identifier := range in.PlayerIdentifiers {
		u, _ := index.lookup(identifier)
		players = append(players, *u)
	}
	var coach *domain.User
	if in.CoachIdentifier != "" {
		coach, _ = index.lookup(in.CoachIdentifier)
	}

	cycle, err := r.cycles.GetForChapter(ctx, chapter.ID, in.CycleIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cycle %s: %w", in.CycleIdentifier, err)
	}
	if cycle == nil {
		return nil, domain.NotFoundError([]string{in.CycleIdentifier},
			"Cycle not found for identifier %s in chapter %s", cycleLabel(in.CycleIdentifier), chapter.Name)
	}
	if cycle.ChapterID != chapter.ID {
		return nil, domain.ConflictError([]string{in.CycleIdentifier},
			"Cycle %s chapter ID %s does not match chapter %s ID %s",
			cycle.ID, cycle.ChapterID, chapter.Name, chapter.ID)
	}

	var existing *domain.Project
	if in.ProjectIdentifier != "" {
		existing, err = r.projects.Get(ctx, in.ProjectIdentifier)
		if err != nil {
			return nil, fmt.Errorf("failed to look up project %s: %w", in.ProjectIdentifier, err)
		}
		if existing != nil {
			if existing.ChapterID != chapter.ID {
				return nil, domain.ConflictError([]string{in.ProjectIdentifier},
					"Project %s chapter ID %s does not match chapter %s ID %s",
					existing.Name, existing.ChapterID, chapter.Name, chapter.ID)
			}
			if existing.CycleID != cycle.ID {
				return nil, domain.ConflictError([]string{in.ProjectIdentifier},
					"Project %s cycle ID %s does not match cycle %d ID %s",
					existing.Name, existing.CycleID, cycle.CycleNumber, cycle.ID)
			}
		}
	}

	var goal *domain.Goal
	if in.GoalIdentifier != "" {
		goal, err = r.resolveGoal(ctx, in.GoalIdentifier)
		if err != nil {
			return nil, err
		}
	}

	if existing == nil {
		if goal == nil {
			return nil, domain.ValidationError("New project imports must specify a goal")
		}
		if len(in.PlayerIdentifiers) == 0 {
			return nil, domain.ValidationError("New project imports must specify at least one user")
		}
	}

	fields := domain.ProjectFields{
		ChapterID: chapter.ID,
		CycleID:   cycle.ID,
	}
	if goal != nil {
		fields.Goal = domain.Some(*goal)
	}
	if in.PlayerIdentifiers != nil {
		ids := make([]string, len(players))
		for i, p := range players {
			ids[i] = p.ID
		}
		fields.PlayerIDs = domain.Some(ids)
	}
	if coach != nil {
		fields.CoachID = domain.Some(coach.ID)
	}

	result := &Result{}
	if existing != nil {
		result.Project, err = r.projects.Update(ctx, existing.ID, fields)
		if err != nil {
			return nil, fmt.Errorf("failed to update project %s: %w", existing.ID, err)
		}
	} else {
		name := in.ProjectIdentifier
		if name == "" {
			name, err = r.names.Generate(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to generate project name: %w", err)
			}
		}
		result.Project, err = r.projects.Create(ctx, name, fields)
		if err != nil {
			return nil, fmt.Errorf("failed to create project %s: %w", name, err)
		}
		result.Created = true
	}

	log := r.log.WithFields(logrus.Fields{
		"project_id":   result.Project.ID,
		"project_name": result.Project.Name,
		"chapter_id":   chapter.ID,
		"cycle_id":     cycle.ID,
		"created":      result.Created,
	})

	if opts.InitializeChannel && r.channels != nil {
		if err := r.channels.Init(ctx, result.Project, players); err != nil {
			result.ChannelErr = fmt.Errorf("failed to initialize channel for project %s: %w", result.Project.Name, err)
			log.WithError(err).Warn("Channel initialization failed after project write")
		}
	}

	log.Debugf("Project imported: #%s (%s)", result.Project.Name, result.Project.ID)
	return result, nil
}

func (r *Resolver) resolveGoal(ctx context.Context, identifier string) (*domain.Goal, error) {
	number, err := domain.ParseGoalNumber(identifier)
	if err != nil {
		return nil, domain.NotFoundError([]string{identifier}, "Goal not found with identifier: %s", identifier)
	}
	goal, err := r.goals.Get(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to look up goal %d: %w", number, err)
	}
	if goal == nil {
		return nil, domain.NotFoundError([]string{identifier}, "Goal not found with identifier: %s", identifier)
	}
	return goal, nil
}

func (in Input) trimmed() Input {
	out := Input{
		ProjectIdentifier: strings.TrimSpace(in.ProjectIdentifier),
		ChapterIdentifier: strings.TrimSpace(in.ChapterIdentifier),
		CycleIdentifier:   strings.TrimSpace(in.CycleIdentifier),
		GoalIdentifier:    strings.TrimSpace(in.GoalIdentifier),
		CoachIdentifier:   strings.TrimSpace(in.CoachIdentifier),
	}
	if in.PlayerIdentifiers != nil {
		out.PlayerIdentifiers = make([]string, len(in.PlayerIdentifiers))
		for i, p := range in.PlayerIdentifiers {
			out.PlayerIdentifiers[i] = strings.TrimSpace(p)
		}
	}
	return out
}

func cycleLabel(identifier string) string {
	if identifier == "" {
		return "(current)"
	}
	return identifier
}
