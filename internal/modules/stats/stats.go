package stats

import (
	"context"
	"math"
	"sort"

	"github.com/blogstack/core/internal/models"
	"gorm.io/gorm"
)

const (
	topTagLimit    = 6
	topAuthorLimit = 5
	recentLimit    = 5
)

// TagCount is one entry of the tag ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// AuthorCount is one entry of the author ranking.
type AuthorCount struct {
	AuthorID  string `json:"authorId"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	PostCount int    `json:"postCount"`
}

// PostStats aggregates the whole post corpus.
type PostStats struct {
	TotalPosts     int                `json:"totalPosts"`
	PublishedPosts int                `json:"publishedPosts"`
	DraftPosts     int                `json:"draftPosts"`
	ArchivedPosts  int                `json:"archivedPosts"`
	TotalViews     int                `json:"totalViews"`
	AverageViews   float64            `json:"averageViews"`
	TopTags        []TagCount         `json:"topTags"`
	TopAuthors     []AuthorCount      `json:"topAuthors"`
	RecentPosts    []models.PostModel `json:"recentPosts"`
}

// Service computes content statistics.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// PostStats walks all posts and aggregates status counts, view totals, tag
// frequency and per-author output.
func (s *Service) PostStats(ctx context.Context) (*PostStats, error) {
	var posts []models.PostModel
	err := s.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	stats := &PostStats{
		TotalPosts:  len(posts),
		TopTags:     []TagCount{},
		TopAuthors:  []AuthorCount{},
		RecentPosts: []models.PostModel{},
	}

	tagCounts := map[string]int{}
	authorCounts := map[string]*AuthorCount{}

	for i := range posts {
		p := &posts[i]
		stats.TotalViews += p.ViewCount

		switch p.Status {
		case models.PostPublished:
			stats.PublishedPosts++
		case models.PostDraft:
			stats.DraftPosts++
		case models.PostArchived:
			stats.ArchivedPosts++
		}

		for _, tag := range p.Tags {
			tagCounts[tag]++
		}

		if p.Author != nil {
			entry, ok := authorCounts[p.Author.ID]
			if !ok {
				entry = &AuthorCount{
					AuthorID:  p.Author.ID,
					Username:  p.Author.Username,
					FirstName: p.Author.FirstName,
					LastName:  p.Author.LastName,
				}
				authorCounts[p.Author.ID] = entry
			}
			entry.PostCount++
		}
	}

	if stats.TotalPosts > 0 {
		avg := float64(stats.TotalViews) / float64(stats.TotalPosts)
		stats.AverageViews = math.Round(avg*100) / 100
	}

	for tag, count := range tagCounts {
		stats.TopTags = append(stats.TopTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(stats.TopTags, func(i, j int) bool {
		if stats.TopTags[i].Count != stats.TopTags[j].Count {
			return stats.TopTags[i].Count > stats.TopTags[j].Count
		}
		return stats.TopTags[i].Tag < stats.TopTags[j].Tag
	})
	if len(stats.TopTags) > topTagLimit {
		stats.TopTags = stats.TopTags[:topTagLimit]
	}

	for _, entry := range authorCounts {
		stats.TopAuthors = append(stats.TopAuthors, *entry)
	}
	sort.Slice(stats.TopAuthors, func(i, j int) bool {
		if stats.TopAuthors[i].PostCount != stats.TopAuthors[j].PostCount {
			return stats.TopAuthors[i].PostCount > stats.TopAuthors[j].PostCount
		}
		return stats.TopAuthors[i].Username < stats.TopAuthors[j].Username
	})
	if len(stats.TopAuthors) > topAuthorLimit {
		stats.TopAuthors = stats.TopAuthors[:topAuthorLimit]
	}

	if len(posts) > recentLimit {
		stats.RecentPosts = posts[:recentLimit]
	} else {
		stats.RecentPosts = posts
	}

	return stats, nil
}
