package event

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/notify"
	"campus/internal/store"
	"campus/internal/validation"
)

type memRepo struct {
	rows   map[int64]*Event
	nextID int64
}

func (m *memRepo) List(context.Context) ([]Event, error) {
	out := []Event{}
	for _, e := range m.rows {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Event, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) Create(_ context.Context, e *Event) error {
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, e *Event) error {
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

type recordingNotifier struct {
	sent []notify.Notification
}

func (r *recordingNotifier) Dispatch(_ context.Context, n notify.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func TestCreateNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(&memRepo{rows: map[int64]*Event{}}, notifier)

	detail := strings.Repeat("d", 120)
	e, err := svc.Create(context.Background(), Input{Title: "Sports Day", Date: "2024-06-01", Time: "10:00", Detail: detail})
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notify.Notification{
		Title: "New Event: Sports Day",
		Body:  strings.Repeat("d", 100) + "...",
		Data:  map[string]string{"event_id": "1"},
	}, notifier.sent[0])
	assert.Equal(t, int64(1), e.ID)
}

func TestCreateShortDetail(t *testing.T) {
	got := Announcement(&Event{ID: 2, Title: "Fair", Detail: "Stalls"})
	assert.Equal(t, "Stalls...", got.Body)
}

func TestCreateValidation(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(&memRepo{rows: map[int64]*Event{}}, notifier)

	_, err := svc.Create(context.Background(), Input{Title: "X", Date: "01/06/2024", Time: "25:00"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")
	assert.Contains(t, verr.Fields, "time")
	assert.Contains(t, verr.Fields, "detail")
	assert.Empty(t, notifier.sent)
}

func TestPatchAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memRepo{rows: map[int64]*Event{}}, &recordingNotifier{})

	e, err := svc.Create(ctx, Input{Title: "Fair", Date: "2024-07-01", Time: "09:00", Detail: "Stalls", Image: "https://img.example/fair.png"})
	require.NoError(t, err)

	loc := "Main hall"
	got, err := svc.Patch(ctx, e.ID, Patch{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Main hall", got.Location)
	assert.Equal(t, "Stalls", got.Detail)

	got, err = svc.Update(ctx, e.ID, Input{Title: "Fair 2", Date: "2024-07-02", Time: "10:00", Detail: "More stalls"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/fair.png", got.Image)
	assert.Equal(t, "", got.Location)

	_, err = svc.Update(ctx, 42, Input{Title: "X", Date: "2024-07-02", Time: "10:00", Detail: "Y"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
