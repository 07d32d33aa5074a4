package event

import (
	"context"
	"log"
	"strconv"
	"strings"

	"campus/internal/notify"
	"campus/internal/validation"
)

const excerptLen = 100

type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification) error
}

// Input creates or replaces an event. Image is a URL, usually set by an upload.
type Input struct {
	Title    string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Date     string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"time" form:"time" validate:"required,clock"`
	Detail   string `json:"detail" form:"detail" validate:"required"`
	Location string `json:"location" form:"location" validate:"max=200"`
	Image    string `json:"image" form:"image" validate:"omitempty,url"`
}

type Patch struct {
	Title    *string `json:"title" validate:"omitempty,notblank,max=200"`
	Date     *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time     *string `json:"time" validate:"omitempty,clock"`
	Detail   *string `json:"detail" validate:"omitempty,notblank"`
	Location *string `json:"location" validate:"omitempty,max=200"`
	Image    *string `json:"image" validate:"omitempty,url"`
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.Get(ctx, id)
}

// Create stores the event and queues a push announcing it.
func (s *Service) Create(ctx context.Context, in Input) (*Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	e := &Event{Title: in.Title, Date: in.Date, Time: in.Time, Detail: in.Detail, Location: in.Location, Image: in.Image}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	if err := s.notifier.Dispatch(ctx, Announcement(e)); err != nil {
		log.Printf("event %d: queue notification failed: %v", e.ID, err)
	}
	return e, nil
}

// Announcement builds the push sent when e is created.
func Announcement(e *Event) notify.Notification {
	return notify.Notification{
		Title: "New Event: " + e.Title,
		Body:  notify.Excerpt(e.Detail, excerptLen),
		Data:  map[string]string{"event_id": strconv.FormatInt(e.ID, 10)},
	}
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Title, e.Date, e.Time, e.Detail, e.Location = in.Title, in.Date, in.Time, in.Detail, in.Location
	if in.Image != "" {
		e.Image = in.Image
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Patch(ctx context.Context, id int64, in Patch) (*Event, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	if in.Time != nil {
		e.Time = *in.Time
	}
	if in.Detail != nil {
		e.Detail = *in.Detail
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.Image != nil {
		e.Image = *in.Image
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
