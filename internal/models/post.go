package models

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostDraft, PostPublished, PostArchived:
		return true
	}
	return false
}

// PostModel is a blog post owned by its author.
type PostModel struct {
	Base
	Title     string      `json:"title"      gorm:"size:255;not null"`
	Content   string      `json:"content"    gorm:"type:longtext;not null"`
	Slug      string      `json:"slug"       gorm:"uniqueIndex;size:255;not null"`
	Status    PostStatus  `json:"status"     gorm:"type:varchar(16);default:'draft';index"`
	Tags      StringArray `json:"tags"       gorm:"type:json"`
	ViewCount int         `json:"view_count" gorm:"default:0"`
	AuthorID  string      `json:"author_id"  gorm:"type:char(36);index;not null"`
	Author    *UserModel  `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (PostModel) TableName() string { return "posts" }
