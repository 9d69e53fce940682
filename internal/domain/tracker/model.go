package tracker

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// CategoryCount is the number of tracked categories at the current schema version.
const CategoryCount = 6

// AnonymousAuthor is stored as the comment author when none is given.
const AnonymousAuthor = "anonymous"

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxCommentLength     = 2000
	MaxAuthorLength      = 100
)

// Status is the lifecycle label of a category or of the whole migration.
type Status string

// Status values
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// ValidStatuses contains all valid status values, in display order.
var ValidStatuses = []Status{StatusNotStarted, StatusInProgress, StatusComplete}

// StatusLabels maps status values to display labels.
var StatusLabels = map[Status]string{
	StatusNotStarted: "Not started",
	StatusInProgress: "In progress",
	StatusComplete:   "Complete",
}

// UpdateType tags an update with a display style.
type UpdateType string

// Update types
const (
	TypeInfo    UpdateType = "info"
	TypeSuccess UpdateType = "success"
	TypeWarning UpdateType = "warning"
)

// ValidUpdateTypes contains all valid update types. TypeInfo is the default.
var ValidUpdateTypes = []UpdateType{TypeInfo, TypeSuccess, TypeWarning}

// Domain errors
var (
	ErrEmptyTitle     = errors.New("update title cannot be empty")
	ErrTitleTooLong   = errors.New("update title cannot exceed 200 characters")
	ErrDescTooLong    = errors.New("update description cannot exceed 5000 characters")
	ErrEmptyComment   = errors.New("comment text cannot be empty")
	ErrCommentTooLong = errors.New("comment text cannot exceed 2000 characters")
	ErrCategoryIndex  = errors.New("category index out of range")
	ErrUpdateNotFound = errors.New("update not found")
	ErrInvalidStatus  = errors.New("status must be one of: not_started, in_progress, complete")
	ErrSchemaMismatch = errors.New("stored state does not match the current schema")
	ErrUnknownSchema  = errors.New("stored state has an unknown schema version")
)

// Category is one tracked workstream. Name is its identity; Progress and
// Status are set independently by an admin.
type Category struct {
	Name     string `json:"name" yaml:"name"`
	Progress int    `json:"progress" yaml:"progress"`
	Status   Status `json:"status" yaml:"status"`
}

// Comment is a reply on an update.
type Comment struct {
	ID        int64     `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Author    string    `json:"author" yaml:"author"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Update is a timestamped announcement with a comment thread.
type Update struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"` // Markdown
	Type        UpdateType `json:"type" yaml:"type"`
	Timestamp   time.Time  `json:"timestamp" yaml:"timestamp"`
	Comments    []Comment  `json:"comments" yaml:"comments"`
}

// State is the whole tracked record. It is always loaded and saved as one unit.
type State struct {
	SchemaVersion   int        `json:"schemaVersion" yaml:"schemaVersion"`
	OverallProgress int        `json:"overallProgress" yaml:"overallProgress"`
	CurrentStatus   Status     `json:"currentStatus" yaml:"currentStatus"`
	LastUpdated     time.Time  `json:"lastUpdated" yaml:"lastUpdated"`
	Categories      []Category `json:"categories" yaml:"categories"`
	Updates         []Update   `json:"updates" yaml:"updates"` // newest first
}

// DefaultCategoryNames are the categories a fresh state starts with.
var DefaultCategoryNames = [CategoryCount]string{
	"Customer migration",
	"Odoo integration",
	"Payment gateway integration",
	"Geographic locations setup",
	"Theme development",
	"Testing",
}

// StampTime returns t as it reads back from storage: UTC with no
// monotonic clock reading. Every timestamp written into State passes through it.
func StampTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// Defaults returns the initial state used when nothing valid is stored.
// POST: CategoryCount categories at 0% NotStarted, no updates
func Defaults(now time.Time) State {
	cats := make([]Category, CategoryCount)
	for i, name := range DefaultCategoryNames {
		cats[i] = Category{Name: name, Progress: 0, Status: StatusNotStarted}
	}
	return State{
		SchemaVersion:   SchemaVersion,
		OverallProgress: 0,
		CurrentStatus:   StatusNotStarted,
		LastUpdated:     now,
		Categories:      cats,
		Updates:         []Update{},
	}
}

// ComputeOverallProgress returns the mean category progress rounded half up.
// PRE: progress values are within [0,100]
// POST: Returns a value within [0,100]; 0 for no categories
func ComputeOverallProgress(categories []Category) int {
	if len(categories) == 0 {
		return 0
	}
	total := 0
	for _, c := range categories {
		total += c.Progress
	}
	return int(math.Round(float64(total) / float64(len(categories))))
}

// DeriveStatus maps an overall progress value to a status.
func DeriveStatus(overall int) Status {
	switch {
	case overall <= 0:
		return StatusNotStarted
	case overall >= 100:
		return StatusComplete
	default:
		return StatusInProgress
	}
}

// IsValidStatus reports whether s is one of ValidStatuses.
func IsValidStatus(s Status) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidUpdateType reports whether t is one of ValidUpdateTypes.
func IsValidUpdateType(t UpdateType) bool {
	for _, v := range ValidUpdateTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label returns the display label of a status.
func (s Status) Label() string {
	if l, ok := StatusLabels[s]; ok {
		return l
	}
	return StatusLabels[StatusNotStarted]
}

// Recompute refreshes the derived OverallProgress and CurrentStatus fields.
// POST: OverallProgress == ComputeOverallProgress(Categories), CurrentStatus == DeriveStatus(OverallProgress)
func (s *State) Recompute() {
	s.OverallProgress = ComputeOverallProgress(s.Categories)
	s.CurrentStatus = DeriveStatus(s.OverallProgress)
}

// SetCategoryProgress sets the progress of the category at index.
// PRE: 0 <= index < len(Categories)
// POST: progress clamped to [0,100], derived fields recomputed, LastUpdated = now
func (s *State) SetCategoryProgress(index, value int, now time.Time) error {
	if index < 0 || index >= len(s.Categories) {
		return ErrCategoryIndex
	}
	s.Categories[index].Progress = clamp(value, 0, 100)
	s.Recompute()
	s.LastUpdated = now
	return nil
}

// SetCategoryStatus sets the status label of the category at index.
// PRE: 0 <= index < len(Categories), status is valid
// POST: status set, LastUpdated = now; OverallProgress untouched
func (s *State) SetCategoryStatus(index int, status Status, now time.Time) error {
	if index < 0 || index >= len(s.Categories) {
		return ErrCategoryIndex
	}
	if !IsValidStatus(status) {
		return ErrInvalidStatus
	}
	s.Categories[index].Status = status
	s.LastUpdated = now
	return nil
}

// AddUpdate prepends a new update.
// PRE: title is non-blank
// POST: new update is Updates[0] with an empty comment list, LastUpdated = now.
// On error the state is unchanged.
func (s *State) AddUpdate(title, description string, typ UpdateType, now time.Time) (Update, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return Update{}, ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Update{}, ErrTitleTooLong
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return Update{}, ErrDescTooLong
	}
	if !IsValidUpdateType(typ) {
		typ = TypeInfo
	}

	ids := make([]int64, len(s.Updates))
	for i, u := range s.Updates {
		ids[i] = u.ID
	}
	u := Update{
		ID:          NextID(now, ids),
		Title:       title,
		Description: description,
		Type:        typ,
		Timestamp:   now,
		Comments:    []Comment{},
	}
	s.Updates = append([]Update{u}, s.Updates...)
	s.LastUpdated = now
	return u, nil
}

// DeleteUpdate removes the update with the given id.
// POST: Returns true if exactly one entry was removed; no-op otherwise
func (s *State) DeleteUpdate(id int64) bool {
	for i, u := range s.Updates {
		if u.ID == id {
			s.Updates = append(s.Updates[:i:i], s.Updates[i+1:]...)
			return true
		}
	}
	return false
}

// FindUpdate returns the update with the given id.
func (s *State) FindUpdate(id int64) (Update, bool) {
	for _, u := range s.Updates {
		if u.ID == id {
			return u, true
		}
	}
	return Update{}, false
}

// AddComment appends a comment to the update with the given id.
// PRE: text is non-blank
// POST: found is false and state unchanged when no update matches.
// A blank author is stored as AnonymousAuthor.
func (s *State) AddComment(updateID int64, text, author string, now time.Time) (Comment, bool, error) {
	text = strings.TrimSpace(text)
	author = strings.TrimSpace(author)
	if text == "" {
		return Comment{}, false, ErrEmptyComment
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return Comment{}, false, ErrCommentTooLong
	}
	if author == "" {
		author = AnonymousAuthor
	}
	if utf8.RuneCountInString(author) > MaxAuthorLength {
		author = strings.TrimSpace(string([]rune(author)[:MaxAuthorLength]))
	}

	for i := range s.Updates {
		u := &s.Updates[i]
		if u.ID != updateID {
			continue
		}
		ids := make([]int64, len(u.Comments))
		for j, c := range u.Comments {
			ids[j] = c.ID
		}
		c := Comment{
			ID:        NextID(now, ids),
			Text:      text,
			Author:    author,
			Timestamp: now,
		}
		u.Comments = append(u.Comments, c)
		return c, true, nil
	}
	return Comment{}, false, nil
}

// NextID returns a creation-time id (unix milliseconds) that is greater than
// every id in taken.
func NextID(now time.Time, taken []int64) int64 {
	id := now.UnixMilli()
	for _, t := range taken {
		if t >= id {
			id = t + 1
		}
	}
	return id
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
