package notice

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"campus/internal/notify"
	"campus/internal/validation"
)

const excerptLen = 100

// Notifier queues a push for every registered device.
type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

// Input creates or replaces a notice.
type Input struct {
	Title         string `json:"title" form:"title" validate:"required,notblank,max=100"`
	Content       string `json:"content" form:"content" validate:"required"`
	FeaturedImage string `json:"featured_image" form:"featured_image" validate:"omitempty,url"`
}

// Patch changes only the fields it carries.
type Patch struct {
	Title         *string `json:"title" validate:"omitempty,notblank,max=100"`
	Content       *string `json:"content"`
	FeaturedImage *string `json:"featured_image" validate:"omitempty,url"`
}

// Service coordinates notice publishing.
type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// List returns published notices. search matches title or content case-insensitively.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Notice, error) {
	return s.repo.List(ctx, ListQuery{
		Search:        strings.TrimSpace(search),
		PublishedOnly: true,
		Limit:         limit,
		Offset:        offset,
	})
}

// Get returns a published notice.
func (s *Service) Get(ctx context.Context, id int64) (*Notice, error) {
	return s.repo.Get(ctx, id, true)
}

// Create publishes a notice immediately and queues a push announcing it.
func (s *Service) Create(ctx context.Context, authorID int64, in Input) (*Notice, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	published := s.now().UTC()
	n := &Notice{
		Title:         in.Title,
		Content:       in.Content,
		FeaturedImage: in.FeaturedImage,
		AuthorID:      authorID,
		PublishedAt:   &published,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if err := s.notifier.Dispatch(ctx, Announcement(n)); err != nil {
		log.Printf("notice %d: queue notification failed: %v", n.ID, err)
	}
	return n, nil
}

// Announcement builds the push sent when n is published.
func Announcement(n *Notice) notify.Notification {
	body := "Tap to view details."
	if n.Content != "" {
		body = notify.Excerpt(n.Content, excerptLen)
	}
	return notify.Notification{
		Title: "New Notice: " + n.Title,
		Body:  body,
		Data:  map[string]string{"notice_id": strconv.FormatInt(n.ID, 10)},
	}
}

// Update replaces every writable field.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Notice, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	n.Title, n.Content, n.FeaturedImage = in.Title, in.Content, in.FeaturedImage
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Patch applies a partial update.
func (s *Service) Patch(ctx context.Context, id int64, in Patch) (*Notice, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		n.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		if *in.Content == "" {
			return nil, validation.NewError("content", "This field may not be blank.")
		}
		n.Content = *in.Content
	}
	if in.FeaturedImage != nil {
		n.FeaturedImage = *in.FeaturedImage
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
