package wiki

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Character is the game character a page is filed under.
type Character struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;uniqueIndex:idx_characters_name;not null"`
}

// TableName defines the table name for the Character model.
func (Character) TableName() string {
	return "characters"
}

// Page is a wiki entry. CreatedAt records when the page was created; LastEdit is
// set whenever a submission is published against it.
type Page struct {
	gorm.Model
	Title              string `gorm:"size:255;uniqueIndex:idx_pages_title;not null"`
	Content            string `gorm:"type:text;not null"`
	IsPublished        bool   `gorm:"not null;default:false"`
	LastEdit           *time.Time
	GeneralCharacterID *uint
	GeneralCharacter   *Character              `gorm:"foreignKey:GeneralCharacterID"`
	Pending            []PageContentSubmission `gorm:"foreignKey:PageEditID"`
	History            []PageContentSubmission `gorm:"foreignKey:PageHistoryID"`
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "pages"
}

// PageContentSubmission is either a pending edit (PageEditID set) or an archived
// revision of a page's content (PageHistoryID set). Exactly one of the two is non-nil.
type PageContentSubmission struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Content       string    `gorm:"type:text;not null"`
	PageEditID    *uint     `gorm:"index"`
	PageEdit      *Page     `gorm:"foreignKey:PageEditID"`
	PageHistoryID *uint     `gorm:"index"`
	PageHistory   *Page     `gorm:"foreignKey:PageHistoryID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName defines the table name for the PageContentSubmission model.
func (PageContentSubmission) TableName() string {
	return "page_content_submissions"
}

// BeforeCreate assigns a random identifier to submissions created without one.
func (s *PageContentSubmission) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsPending reports whether the submission still awaits review.
func (s *PageContentSubmission) IsPending() bool {
	return s.PageEditID != nil && s.PageHistoryID == nil
}

// IsArchived reports whether the submission holds a page's previous content.
func (s *PageContentSubmission) IsArchived() bool {
	return s.PageHistoryID != nil && s.PageEditID == nil
}

// archive moves the submission from pending to history for page, keeping previous
// as the archived text.
func (s *PageContentSubmission) archive(page *Page, previous string) {
	pageID := page.ID
	s.PageHistoryID = &pageID
	s.PageHistory = page
	s.PageEditID = nil
	s.PageEdit = nil
	s.Content = previous
}
