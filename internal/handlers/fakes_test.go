package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/request"
	"github.com/google/uuid"
)

// fakeTasks is an in-memory database.TaskStore that records completions in a fakeCompletions
type fakeTasks struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]models.Task
	order       []uuid.UUID
	completions *fakeCompletions
	listErr     error
}

func newFakeTasks(completions *fakeCompletions, tasks ...models.Task) *fakeTasks {
	f := &fakeTasks{tasks: make(map[uuid.UUID]models.Task), completions: completions}
	for _, t := range tasks {
		f.tasks[t.ID] = t.Clone()
		f.order = append(f.order, t.ID)
	}
	return f
}

func (f *fakeTasks) Create(ctx context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task.Clone()
	f.order = append(f.order, task.ID)
	return nil
}

func (f *fakeTasks) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	c := t.Clone()
	return &c, nil
}

func (f *fakeTasks) List(ctx context.Context, activeOnly bool) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Task
	for _, id := range f.order {
		t := f.tasks[id]
		if activeOnly && !t.IsActive {
			continue
		}
		c := t.Clone()
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeTasks) ListOverdueAutocomplete(ctx context.Context, today time.Time) ([]*models.Task, error) {
	all, err := f.List(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []*models.Task
	for _, t := range all {
		if t.Autocomplete && t.NextDue != nil && t.NextDue.Before(today) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) ListNames(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, id := range f.order {
		names = append(names, f.tasks[id].Name)
	}
	return names, nil
}

func (f *fakeTasks) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	t.IsActive = false
	f.tasks[id] = t
	return nil
}

func (f *fakeTasks) Mutate(ctx context.Context, id uuid.UUID, fn database.Mutation) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	updated, completion, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	f.tasks[id] = updated.Clone()
	if completion != nil && f.completions != nil {
		f.completions.add(*completion, updated.Name)
	}
	return &updated, nil
}

func (f *fakeTasks) get(id uuid.UUID) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].Clone()
}

// fakeCompletions is an in-memory database.CompletionStore
type fakeCompletions struct {
	mu      sync.Mutex
	entries []*models.CompletionEntry
}

func (f *fakeCompletions) add(c models.TaskCompletion, taskName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := taskName
	f.entries = append([]*models.CompletionEntry{{TaskCompletion: c, TaskName: &name}}, f.entries...)
}

func (f *fakeCompletions) filter(keep func(*models.CompletionEntry) bool, limit int) []*models.CompletionEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CompletionEntry
	for _, e := range f.entries {
		if keep(e) {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (f *fakeCompletions) List(ctx context.Context, limit int) ([]*models.CompletionEntry, error) {
	return f.filter(func(*models.CompletionEntry) bool { return true }, limit), nil
}

func (f *fakeCompletions) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.CompletionEntry, error) {
	return f.filter(func(e *models.CompletionEntry) bool { return e.TaskID == taskID }, 0), nil
}

func (f *fakeCompletions) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.CompletionEntry, error) {
	return f.filter(func(e *models.CompletionEntry) bool {
		return e.CompletedByID != nil && *e.CompletedByID == memberID
	}, 0), nil
}

func (f *fakeCompletions) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeMembers is an in-memory database.MemberStore
type fakeMembers struct {
	mu      sync.Mutex
	members []*models.Member
	listErr error
}

func (f *fakeMembers) Create(ctx context.Context, m *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.Email != nil {
		for _, existing := range f.members {
			if existing.Email != nil && strings.EqualFold(*existing.Email, *m.Email) {
				return fmt.Errorf("member email already registered: %w", database.ErrConflict)
			}
		}
	}
	c := *m
	f.members = append(f.members, &c)
	return nil
}

func (f *fakeMembers) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.ID == id {
			c := *m
			return &c, nil
		}
	}
	return nil, fmt.Errorf("member %s: %w", id, database.ErrNotFound)
}

func (f *fakeMembers) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.Email != nil && strings.EqualFold(*m.Email, email) {
			c := *m
			return &c, nil
		}
	}
	return nil, fmt.Errorf("member %s: %w", email, database.ErrNotFound)
}

func (f *fakeMembers) List(ctx context.Context) ([]*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.members), nil
}

func (f *fakeMembers) CountRegistered(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.members {
		if m.IsRegistered() {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembers) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.members {
		if m.ID == id {
			f.members = slices.Delete(f.members, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("member %s: %w", id, database.ErrNotFound)
}

// fakeNotes is an in-memory database.NoteStore
type fakeNotes struct {
	mu   sync.Mutex
	note models.Note
}

func (f *fakeNotes) Get(ctx context.Context) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.note
	return &n, nil
}

func (f *fakeNotes) Save(ctx context.Context, content string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.note.ID == uuid.Nil {
		f.note.ID = uuid.New()
	}
	f.note.Content = content
	f.note.UpdatedAt = time.Now()
	n := f.note
	return &n, nil
}

var (
	_ database.TaskStore       = (*fakeTasks)(nil)
	_ database.CompletionStore = (*fakeCompletions)(nil)
	_ database.MemberStore     = (*fakeMembers)(nil)
	_ database.NoteStore       = (*fakeNotes)(nil)
)

// asMember injects session claims the way the auth middleware does
func asMember(claims *models.SessionClaims, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims != nil {
			r = r.WithContext(request.WithMember(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// do sends a request with an optional JSON body
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// envelope is the success response shape
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !env.Success {
		t.Fatalf("Expected success, got error %q: %s", env.Error, env.Message)
	}
	return env.Data
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
