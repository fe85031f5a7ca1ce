package domain

import (
	"time"
)

// CycleState represents the lifecycle state of a cycle
type CycleState string

const (
	CycleStateGoalSelection CycleState = "goal_selection"
	CycleStatePractice      CycleState = "practice"
	CycleStateReflection    CycleState = "reflection"
	CycleStateComplete      CycleState = "complete"
)

// Chapter is the top-level grouping that owns cycles and projects
type Chapter struct {
	ID          string    `json:"id" yaml:"id" db:"id"`
	Name        string    `json:"name" yaml:"name" db:"name"`
	ChannelName *string   `json:"channel_name,omitempty" yaml:"channel_name,omitempty" db:"channel_name"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// Cycle is a time-boxed period within a chapter
type Cycle struct {
	ID          string     `json:"id" yaml:"id" db:"id"`
	ChapterID   string     `json:"chapter_id" yaml:"chapter_id" db:"chapter_id"`
	CycleNumber int        `json:"cycle_number" yaml:"cycle_number" db:"cycle_number"`
	State       CycleState `json:"state" yaml:"state" db:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty" db:"started_at"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at" db:"created_at"`
}

// User is a player or coach. Handle is the human-readable identifier.
type User struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	Handle    string    `json:"handle" yaml:"handle" db:"handle"`
	Name      *string   `json:"name,omitempty" yaml:"name,omitempty" db:"name"`
	Email     *string   `json:"email,omitempty" yaml:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
}

// Goal is a goal-library entry, embedded into a project as a document
type Goal struct {
	Number   int    `json:"number" yaml:"number"`
	Title    string `json:"title" yaml:"title"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	TeamSize int    `json:"team_size,omitempty" yaml:"team_size,omitempty"`
	Level    int    `json:"level,omitempty" yaml:"level,omitempty"`
}

// Project is the unit being imported
type Project struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	ChapterID string    `json:"chapter_id" yaml:"chapter_id" db:"chapter_id"`
	CycleID   string    `json:"cycle_id" yaml:"cycle_id" db:"cycle_id"`
	Name      string    `json:"name" yaml:"name" db:"name"`
	Goal      *Goal     `json:"goal,omitempty" yaml:"goal,omitempty" db:"goal"`                   // JSON
	PlayerIDs []string  `json:"player_ids" yaml:"player_ids" db:"player_ids"`                     // JSON array
	CoachID   *string   `json:"coach_id,omitempty" yaml:"coach_id,omitempty" db:"coach_id"`       // nullable
	ETag      int64     `json:"etag" yaml:"etag" db:"etag"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// Event represents an event in the event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	EventType    string    `json:"event_type" db:"event_type"`
	ETag         *int64    `json:"etag,omitempty" db:"etag"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}

// ProjectFields is the value object written by an import. ChapterID and
// CycleID are always present; the optional fields are only applied when set,
// so an update leaves unset columns untouched.
type ProjectFields struct {
	ChapterID string
	CycleID   string
	Goal      Optional[Goal]
	PlayerIDs Optional[[]string]
	CoachID   Optional[string]
}

// Changes returns the fields as a column map, suitable for event payloads
func (f ProjectFields) Changes() map[string]interface{} {
	changes := map[string]interface{}{
		"chapter_id": f.ChapterID,
		"cycle_id":   f.CycleID,
	}
	if goal, ok := f.Goal.Get(); ok {
		changes["goal"] = goal
	}
	if playerIDs, ok := f.PlayerIDs.Get(); ok {
		changes["player_ids"] = playerIDs
	}
	if coachID, ok := f.CoachID.Get(); ok {
		changes["coach_id"] = coachID
	}
	return changes
}
