package routine

import (
	"context"
	"strings"

	"campus/internal/validation"
)

// Input creates or replaces a routine.
type Input struct {
	Day       string `json:"day" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Subject   string `json:"subject" validate:"required,notblank,max=100"`
	Semester  *int   `json:"semester" validate:"omitempty,min=1"`
}

// Patch changes only the fields it carries.
type Patch struct {
	Day       *string `json:"day" validate:"omitempty,weekday"`
	StartTime *string `json:"start_time" validate:"omitempty,clock"`
	EndTime   *string `json:"end_time" validate:"omitempty,clock"`
	Subject   *string `json:"subject" validate:"omitempty,notblank,max=100"`
	Semester  *int    `json:"semester" validate:"omitempty,min=1"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List filters by day (any case) and semester.
func (s *Service) List(ctx context.Context, f Filter) ([]Routine, error) {
	f.Day = strings.TrimSpace(f.Day)
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (*Routine, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Routine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r := &Routine{Day: in.Day, StartTime: in.StartTime, EndTime: in.EndTime, Subject: strings.TrimSpace(in.Subject), Semester: in.Semester}
	if err := normalize(r); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Routine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r := &Routine{ID: id, Day: in.Day, StartTime: in.StartTime, EndTime: in.EndTime, Subject: strings.TrimSpace(in.Subject), Semester: in.Semester}
	if err := normalize(r); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Patch(ctx context.Context, id int64, in Patch) (*Routine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Day != nil {
		r.Day = *in.Day
	}
	if in.StartTime != nil {
		r.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		r.EndTime = *in.EndTime
	}
	if in.Subject != nil {
		r.Subject = strings.TrimSpace(*in.Subject)
	}
	if in.Semester != nil {
		r.Semester = in.Semester
	}
	if err := normalize(r); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// normalize title-cases the day, pads times to HH:MM:SS and checks the slot ordering.
func normalize(r *Routine) error {
	day, ok := validation.NormalizeWeekday(r.Day)
	if !ok {
		return validation.NewError("day", "day must be a day of the week.")
	}
	r.Day = day
	r.StartTime = fullClock(r.StartTime)
	r.EndTime = fullClock(r.EndTime)
	// Zero-padded HH:MM:SS strings order the same as the times they encode.
	if r.StartTime >= r.EndTime {
		return validation.NewError("end_time", "End time must be after start time.")
	}
	return nil
}

func fullClock(s string) string {
	if len(s) == len("15:04") {
		return s + ":00"
	}
	return s
}
