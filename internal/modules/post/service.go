package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/events"
	"github.com/blogstack/core/internal/pkg/pagination"
	"github.com/blogstack/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor is the caller performing a post operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) admin() bool     { return a.Role == string(models.RoleAdmin) }
func (a Actor) moderator() bool { return a.admin() || a.Role == string(models.RoleModerator) }

// activityPayload is what gets published on the event bus for live consumers.
type activityPayload struct {
	Action string `json:"action"`
	PostID string `json:"postId"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Service handles post business logic.
type Service struct {
	db  *gorm.DB
	bus *events.Bus
	log *zap.Logger
}

func NewService(db *gorm.DB, bus *events.Bus, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, bus: bus, log: log}
}

// Create inserts a new post owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, dto *CreatePostDTO) (*models.PostModel, error) {
	status := models.PostStatus(dto.Status)
	if dto.Status == "" {
		status = models.PostDraft
	}
	if !status.Valid() {
		return nil, errs.Validation("Invalid post status")
	}

	slug, err := s.resolveSlug(ctx, dto.Slug, dto.Title, "")
	if err != nil {
		return nil, err
	}

	post := models.PostModel{
		Title:    dto.Title,
		Content:  dto.Content,
		Slug:     slug,
		Status:   status,
		Tags:     dto.Tags,
		AuthorID: actor.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}

	s.publish("created", &post)
	return &post, nil
}

// GetByID fetches a post by id. Drafts and archived posts are only visible to
// their author and moderators.
func (s *Service) GetByID(ctx context.Context, actor Actor, id string) (*models.PostModel, error) {
	post, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if post == nil || !s.visible(actor, post) {
		return nil, errs.NotFound("Post not found")
	}
	return post, nil
}

// GetBySlug fetches a post by slug, counting the view for published posts.
func (s *Service) GetBySlug(ctx context.Context, actor Actor, slug string) (*models.PostModel, error) {
	post, err := s.find(ctx, "slug = ?", slug)
	if err != nil {
		return nil, err
	}
	if post == nil || !s.visible(actor, post) {
		return nil, errs.NotFound("Post not found")
	}

	if post.Status == models.PostPublished {
		// Atomic increment; concurrent reads must not lose counts.
		err = s.db.WithContext(ctx).Model(&models.PostModel{}).
			Where("id = ?", post.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
		if err != nil {
			return nil, err
		}
		post.ViewCount++
	}
	return post, nil
}

// List returns a paginated, filtered post listing. Anonymous callers and
// plain users only see published posts unless filtering their own.
func (s *Service) List(ctx context.Context, actor Actor, q pagination.Query, lq ListQuery) ([]models.PostModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.PostModel{}).
		Preload("Author").
		Order("created_at DESC")

	if lq.Status != "" {
		if !models.PostStatus(lq.Status).Valid() {
			return nil, response.Pagination{}, errs.Validation("Invalid post status")
		}
		tx = tx.Where("status = ?", lq.Status)
	}
	if lq.Tag != "" {
		tx = tx.Where("JSON_CONTAINS(tags, ?)", fmt.Sprintf("%q", lq.Tag))
	}
	if lq.AuthorID != "" {
		tx = tx.Where("author_id = ?", lq.AuthorID)
	}
	if lq.Search != "" {
		like := "%" + lq.Search + "%"
		tx = tx.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	if !actor.moderator() {
		if actor.UserID != "" {
			tx = tx.Where("status = ? OR author_id = ?", models.PostPublished, actor.UserID)
		} else {
			tx = tx.Where("status = ?", models.PostPublished)
		}
	}

	var posts []models.PostModel
	pag, err := pagination.Paginate(tx, q, &posts)
	return posts, pag, err
}

// Update applies a partial update. Only the author or a moderator may edit.
func (s *Service) Update(ctx context.Context, actor Actor, id string, dto *UpdatePostDTO) (*models.PostModel, error) {
	post, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.NotFound("Post not found")
	}
	if post.AuthorID != actor.UserID && !actor.moderator() {
		return nil, errs.Forbidden("You can only edit your own posts")
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.Status != nil {
		status := models.PostStatus(*dto.Status)
		if !status.Valid() {
			return nil, errs.Validation("Invalid post status")
		}
		updates["status"] = status
	}
	if dto.Slug != nil && *dto.Slug != post.Slug {
		slug, serr := s.resolveSlug(ctx, *dto.Slug, post.Title, post.ID)
		if serr != nil {
			return nil, serr
		}
		updates["slug"] = slug
	}
	if dto.Tags != nil {
		updates["tags"] = models.StringArray(*dto.Tags)
	}
	if len(updates) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}

	post, err = s.find(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	s.publish("updated", post)
	return post, nil
}

// Delete removes a post. Only the author or a moderator may delete.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	post, err := s.find(ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if post == nil {
		return errs.NotFound("Post not found")
	}
	if post.AuthorID != actor.UserID && !actor.moderator() {
		return errs.Forbidden("You can only delete your own posts")
	}

	if err := s.db.WithContext(ctx).Delete(post).Error; err != nil {
		return err
	}
	s.publish("deleted", post)
	return nil
}

// Render returns the post content converted to HTML.
func (s *Service) Render(ctx context.Context, actor Actor, id string) (string, error) {
	post, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return RenderMarkdown(post.Content)
}

func (s *Service) find(ctx context.Context, query string, args ...interface{}) (*models.PostModel, error) {
	var post models.PostModel
	err := s.db.WithContext(ctx).Preload("Author").Where(query, args...).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) visible(actor Actor, post *models.PostModel) bool {
	if post.Status == models.PostPublished {
		return true
	}
	return post.AuthorID == actor.UserID || actor.moderator()
}

// resolveSlug validates an explicit slug or derives one from the title,
// suffixing until unique. excludeID skips the post being updated.
func (s *Service) resolveSlug(ctx context.Context, explicit, title, excludeID string) (string, error) {
	base := Slugify(explicit)
	derived := explicit == ""
	if derived {
		base = Slugify(title)
	}
	if base == "" {
		return "", errs.Validation("Slug cannot be empty")
	}

	slug := base
	for i := 2; ; i++ {
		taken, err := s.slugTaken(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		if !derived {
			return "", errs.Conflict("Slug already in use")
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Service) slugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&models.PostModel{}).Where("slug = ?", slug)
	if excludeID != "" {
		tx = tx.Where("id <> ?", excludeID)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) publish(action string, post *models.PostModel) {
	if s.bus == nil || post == nil {
		return
	}
	s.bus.Publish(events.PostActivity, activityPayload{
		Action: action,
		PostID: post.ID,
		Slug:   post.Slug,
		Title:  post.Title,
		Author: post.AuthorID,
	})
}
