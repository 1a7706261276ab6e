package post

// CreatePostDTO is the post creation payload. Slug is derived from the title
// when omitted.
type CreatePostDTO struct {
	Title   string   `json:"title" binding:"required,max=255"`
	Content string   `json:"content" binding:"required"`
	Slug    string   `json:"slug"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags"`
}

// UpdatePostDTO is a partial post update.
type UpdatePostDTO struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Slug    *string   `json:"slug"`
	Status  *string   `json:"status"`
	Tags    *[]string `json:"tags"`
}

// ListQuery filters the post listing.
type ListQuery struct {
	Status   string `form:"status"`
	Tag      string `form:"tag"`
	AuthorID string `form:"author"`
	Search   string `form:"search"`
}
