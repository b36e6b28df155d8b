package leaderboard

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// Category identifies a speedrun category. The string value is what gets stored.
type Category string

const (
	AlucardAnyNSC    Category = "AlucardAnyNSC"
	AlucardAllBosses Category = "AlucardAllBosses"
	Alucard100       Category = "Alucard100"
	RichterAny       Category = "RichterAny"

	CvsAlucardAnyNSC    Category = "CvsAlucardAnyNSC"
	CvsAlucardAllBosses Category = "CvsAlucardAllBosses"
	CvsAlucard100       Category = "CvsAlucard100"
	CvsRichterAny       Category = "CvsRichterAny"
)

const archivePrefix = "Cvs"

var allCategories = []Category{
	AlucardAnyNSC,
	AlucardAllBosses,
	Alucard100,
	RichterAny,
	CvsAlucardAnyNSC,
	CvsAlucardAllBosses,
	CvsAlucard100,
	CvsRichterAny,
}

func (c Category) String() string {
	return string(c)
}

// IsArchive reports whether the category belongs to the CV speedruns archive.
func (c Category) IsArchive() bool {
	return strings.HasPrefix(string(c), archivePrefix)
}

// Categories returns every known category.
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// ArchiveCategories returns the categories imported from the CV speedruns archive.
func ArchiveCategories() []Category {
	return filterCategories(true)
}

// CurrentCategories returns the speedrun.com categories.
func CurrentCategories() []Category {
	return filterCategories(false)
}

func filterCategories(archive bool) []Category {
	result := make([]Category, 0, len(allCategories))
	for _, category := range allCategories {
		if category.IsArchive() == archive {
			result = append(result, category)
		}
	}
	return result
}

// ParseCategory returns the category whose string form equals name exactly.
func ParseCategory(name string) (Category, error) {
	for _, category := range allCategories {
		if category.String() == name {
			return category, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownCategory, "parsing category %q", name)
}

// Run is a recorded speedrun.
type Run struct {
	gorm.Model
	Category    Category      `gorm:"size:64;index:idx_runs_category;not null"`
	Time        time.Duration `gorm:"not null"`
	Runner      string        `gorm:"size:255;not null"`
	Platform    string        `gorm:"size:64"`
	VideoURL    string        `gorm:"size:512"`
	SubmittedOn time.Time
}

// TableName defines the table name for the Run model.
func (Run) TableName() string {
	return "runs"
}

// CvsBackup is an archived snapshot of one category's leaderboard.
type CvsBackup struct {
	ID           uint   `gorm:"primaryKey"`
	CategoryName string `gorm:"size:64;index:idx_cvs_backups_category;not null"`
	Runs         string `gorm:"type:text;not null"`
	CreatedAt    time.Time
}

// TableName defines the table name for the CvsBackup model.
func (CvsBackup) TableName() string {
	return "cvs_backups"
}

const minCategoryNameLength = 4

// Validate enforces the required fields of a backup.
func (b *CvsBackup) Validate() error {
	name := strings.TrimSpace(b.CategoryName)
	if name == "" {
		return eris.Wrap(ErrInvalidBackup, "category name is required")
	}
	if utf8.RuneCountInString(name) < minCategoryNameLength {
		return eris.Wrapf(ErrInvalidBackup, "category name %q is shorter than %d characters", name, minCategoryNameLength)
	}
	if strings.TrimSpace(b.Runs) == "" {
		return eris.Wrap(ErrInvalidBackup, "runs are required")
	}
	return nil
}

// BeforeCreate rejects invalid backups before they reach the database.
func (b *CvsBackup) BeforeCreate(*gorm.DB) error {
	return b.Validate()
}

// LeaderboardRun is the projection of a Run shown on leaderboards.
type LeaderboardRun struct {
	Runner        string        `json:"runner"`
	Category      Category      `json:"category"`
	Time          time.Duration `json:"time_ns"`
	FormattedTime string        `json:"time"`
	Platform      string        `json:"platform,omitempty"`
	VideoURL      string        `json:"video_url,omitempty"`
	SubmittedOn   time.Time     `json:"submitted_on"`
}

// leaderboardRow holds only the columns a leaderboard needs.
type leaderboardRow struct {
	Runner      string
	Category    Category
	Time        time.Duration
	Platform    string
	VideoURL    string
	SubmittedOn time.Time
}

var leaderboardColumns = []string{"runner", "category", "time", "platform", "video_url", "submitted_on"}

func toLeaderboardRun(row leaderboardRow) LeaderboardRun {
	return LeaderboardRun{
		Runner:        row.Runner,
		Category:      row.Category,
		Time:          row.Time,
		FormattedTime: FormatTime(row.Time),
		Platform:      row.Platform,
		VideoURL:      row.VideoURL,
		SubmittedOn:   row.SubmittedOn,
	}
}

func toLeaderboardRuns(rows []leaderboardRow) []LeaderboardRun {
	runs := make([]LeaderboardRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, toLeaderboardRun(row))
	}
	return runs
}

// FormatTime renders a run time as h:mm:ss, m:ss below an hour, with milliseconds when present.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second
	millis := (d % time.Second) / time.Millisecond

	var formatted string
	if hours > 0 {
		formatted = fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	} else {
		formatted = fmt.Sprintf("%d:%02d", minutes, seconds)
	}

	if millis > 0 {
		formatted += fmt.Sprintf(".%03d", millis)
	}

	return formatted
}
