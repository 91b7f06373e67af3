package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/workers"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// monday is 2024-06-10 10:00 UTC
var monday = time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)

type taskFixture struct {
	router      http.Handler
	tasks       *fakeTasks
	completions *fakeCompletions
	members     *fakeMembers
	sanne       *models.Member
}

func newTaskFixture(t *testing.T, tasks ...models.Task) *taskFixture {
	t.Helper()

	email := "sanne@example.com"
	sanne := &models.Member{ID: uuid.New(), Name: "Sanne", Email: &email}
	members := &fakeMembers{members: []*models.Member{sanne}}
	completions := &fakeCompletions{}
	store := newFakeTasks(completions, tasks...)

	h := NewTaskHandler(store, completions, members, workers.NewAdvancer(store, zap.NewNop()),
		func() time.Time { return monday }, zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/tasks").Subrouter())

	claims := &models.SessionClaims{MemberID: sanne.ID, Name: sanne.Name}
	return &taskFixture{
		router:      asMember(claims, r),
		tasks:       store,
		completions: completions,
		members:     members,
		sanne:       sanne,
	}
}

func storedTask(name string, kind models.RecurrenceKind, due *time.Time) models.Task {
	return models.Task{
		ID:         uuid.New(),
		Name:       name,
		Recurrence: models.RecurrenceRule{Kind: kind, Interval: 1},
		NextDue:    due,
		IsActive:   true,
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        any
		wantStatus  int
		wantDue     *time.Time
		wantUrgency models.Urgency
	}{
		{
			name:        "daily every two days",
			body:        map[string]any{"name": "Planten water geven", "recurrence": map[string]any{"type": "daily", "interval": 2}},
			wantStatus:  http.StatusCreated,
			wantDue:     ptr(day(2024, time.June, 12)),
			wantUrgency: models.UrgencyMedium,
		},
		{
			name:        "weekly on friday",
			body:        map[string]any{"name": "Afval", "recurrence": map[string]any{"type": "weekly", "days": []int{4}}},
			wantStatus:  http.StatusCreated,
			wantDue:     ptr(day(2024, time.June, 14)),
			wantUrgency: models.UrgencyLow,
		},
		{
			name:        "explicit due date",
			body:        map[string]any{"name": "Ramen wassen", "recurrence": map[string]any{"type": "quarterly"}, "next_due": "2024-06-10"},
			wantStatus:  http.StatusCreated,
			wantDue:     ptr(day(2024, time.June, 10)),
			wantUrgency: models.UrgencyHigh,
		},
		{
			name:        "continuous has no due date",
			body:        map[string]any{"name": "Opruimen", "recurrence": map[string]any{"type": "continuous"}, "next_due": "2024-06-10"},
			wantStatus:  http.StatusCreated,
			wantUrgency: models.UrgencyLow,
		},
		{
			name:        "manual urgency wins",
			body:        map[string]any{"name": "Belasting", "recurrence": map[string]any{"type": "yearly"}, "urgency_label": "high"},
			wantStatus:  http.StatusCreated,
			wantDue:     ptr(day(2025, time.June, 10)),
			wantUrgency: models.UrgencyHigh,
		},
		{
			name:       "missing name",
			body:       map[string]any{"recurrence": map[string]any{"type": "daily"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown recurrence",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "fortnightly"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative interval",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "daily", "interval": -1}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid urgency",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "daily"}, "urgency_label": "urgent"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "daily"}, "next_due": "10-06-2024"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown assignee",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "daily"}, "assigned_to_id": uuid.New()},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       map[string]any{"name": "Stofzuigen", "recurrence": map[string]any{"type": "daily"}, "priority": 1},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newTaskFixture(t)
			w := do(t, f.router, http.MethodPost, "/api/v1/tasks", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}

			got := decodeData[TaskResponse](t, w)
			if !got.IsActive {
				t.Error("Expected new task to be active")
			}
			if got.CalculatedUrgency != tt.wantUrgency {
				t.Errorf("Expected urgency %s, got %s", tt.wantUrgency, got.CalculatedUrgency)
			}
			switch {
			case tt.wantDue == nil && got.NextDue != nil:
				t.Errorf("Expected no due date, got %s", got.NextDue)
			case tt.wantDue != nil && (got.NextDue == nil || !got.NextDue.Equal(*tt.wantDue)):
				t.Errorf("Expected due %s, got %v", tt.wantDue, got.NextDue)
			}
			if _, err := f.tasks.GetByID(t.Context(), got.ID); err != nil {
				t.Errorf("Expected task to be stored: %v", err)
			}
		})
	}
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()

	monthly := storedTask("Badkamer schoonmaken", models.RecurrenceMonthly, ptr(day(2024, time.June, 1)))
	oneTime := storedTask("Zolder opruimen", models.RecurrenceOneTime, ptr(day(2024, time.June, 20)))
	auto := storedTask("Afval", models.RecurrenceWeekly, ptr(day(2024, time.June, 17)))
	auto.Autocomplete = true
	inactive := storedTask("Oude taak", models.RecurrenceDaily, nil)
	inactive.IsActive = false

	t.Run("monthly advances from the completion date", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, monthly)

		w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+monthly.ID.String()+"/complete", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		got := decodeData[TaskResponse](t, w)
		if got.NextDue == nil || !got.NextDue.Equal(day(2024, time.July, 10)) {
			t.Errorf("Expected due 2024-07-10, got %v", got.NextDue)
		}
		if got.LastCompleted == nil || !got.LastCompleted.Equal(monday) {
			t.Errorf("Expected last completed %s, got %v", monday, got.LastCompleted)
		}

		entries, _ := f.completions.ListByMember(t.Context(), f.sanne.ID)
		if len(entries) != 1 || entries[0].TaskID != monthly.ID {
			t.Errorf("Expected one completion by the signed-in member, got %+v", entries)
		}
	})

	t.Run("explicit member", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, monthly)
		other := &models.Member{ID: uuid.New(), Name: "Joris"}
		if err := f.members.Create(t.Context(), other); err != nil {
			t.Fatalf("Create member: %v", err)
		}

		w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+monthly.ID.String()+"/complete", map[string]any{"member_id": other.ID})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if entries, _ := f.completions.ListByMember(t.Context(), other.ID); len(entries) != 1 {
			t.Errorf("Expected completion attributed to Joris, got %d", len(entries))
		}
	})

	t.Run("one-time is deactivated", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, oneTime)

		w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+oneTime.ID.String()+"/complete", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		got := f.tasks.get(oneTime.ID)
		if got.IsActive || got.NextDue != nil {
			t.Errorf("Expected inactive task without due date, got active=%v due=%v", got.IsActive, got.NextDue)
		}
	})

	errorCases := []struct {
		name       string
		task       models.Task
		path       string
		body       any
		wantStatus int
	}{
		{name: "autocomplete", task: auto, path: auto.ID.String(), wantStatus: http.StatusConflict},
		{name: "inactive", task: inactive, path: inactive.ID.String(), wantStatus: http.StatusConflict},
		{name: "unknown task", task: monthly, path: uuid.NewString(), wantStatus: http.StatusNotFound},
		{name: "malformed id", task: monthly, path: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "unknown member", task: monthly, path: monthly.ID.String(), body: map[string]any{"member_id": uuid.New()}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTaskFixture(t, tt.task)

			w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+tt.path+"/complete", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if f.completions.len() != 0 {
				t.Error("Expected no completion to be recorded")
			}
		})
	}
}

func TestPostponeTask(t *testing.T) {
	t.Parallel()

	task := storedTask("Ramen wassen", models.RecurrenceMonthly, ptr(day(2024, time.June, 10)))

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantDue    time.Time
	}{
		{name: "later date", body: map[string]any{"next_due": "2024-06-15"}, wantStatus: http.StatusOK, wantDue: day(2024, time.June, 15)},
		{name: "today", body: map[string]any{"next_due": "2024-06-10"}, wantStatus: http.StatusOK, wantDue: day(2024, time.June, 10)},
		{name: "past date", body: map[string]any{"next_due": "2024-06-09"}, wantStatus: http.StatusBadRequest, wantDue: day(2024, time.June, 10)},
		{name: "missing date", body: map[string]any{}, wantStatus: http.StatusBadRequest, wantDue: day(2024, time.June, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTaskFixture(t, task)

			w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/postpone", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			got := f.tasks.get(task.ID)
			if got.NextDue == nil || !got.NextDue.Equal(tt.wantDue) {
				t.Errorf("Expected due %s, got %v", tt.wantDue, got.NextDue)
			}
			if got.LastCompleted != nil || f.completions.len() != 0 {
				t.Error("Expected postpone not to record a completion")
			}
		})
	}
}

func TestListTasks_AutoAdvancesOnRead(t *testing.T) {
	t.Parallel()

	trash := storedTask("Afval buiten zetten", models.RecurrenceWeekly, ptr(day(2024, time.June, 3)))
	trash.Autocomplete = true
	manual := storedTask("Stofzuigen", models.RecurrenceWeekly, ptr(day(2024, time.June, 3)))
	retired := storedTask("Oude taak", models.RecurrenceDaily, nil)
	retired.IsActive = false

	f := newTaskFixture(t, trash, manual, retired)
	trash.AssignedToID = &f.sanne.ID
	f.tasks.tasks[trash.ID] = trash.Clone()

	w := do(t, f.router, http.MethodGet, "/api/v1/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeData[[]TaskResponse](t, w)
	if len(got) != 2 {
		t.Fatalf("Expected 2 active tasks, got %d", len(got))
	}

	byID := map[uuid.UUID]TaskResponse{}
	for _, r := range got {
		byID[r.ID] = r
	}
	advanced := byID[trash.ID]
	if advanced.NextDue == nil || !advanced.NextDue.Equal(day(2024, time.June, 17)) {
		t.Errorf("Expected autocomplete task due 2024-06-17, got %v", advanced.NextDue)
	}
	if advanced.CalculatedUrgency != models.UrgencyLow {
		t.Errorf("Expected low urgency after advancing, got %s", advanced.CalculatedUrgency)
	}
	if advanced.AssignedToName == nil || *advanced.AssignedToName != "Sanne" {
		t.Errorf("Expected assignee name Sanne, got %v", advanced.AssignedToName)
	}
	if stored := f.tasks.get(trash.ID); !stored.NextDue.Equal(day(2024, time.June, 17)) {
		t.Errorf("Expected advance to be persisted, got %s", stored.NextDue)
	}

	overdue := byID[manual.ID]
	if !overdue.NextDue.Equal(day(2024, time.June, 3)) || overdue.CalculatedUrgency != models.UrgencyHigh {
		t.Errorf("Expected manual task to stay overdue and high, got %s %s", overdue.NextDue, overdue.CalculatedUrgency)
	}
	if f.completions.len() != 0 {
		t.Error("Expected auto-advance not to record completions")
	}

	w = do(t, f.router, http.MethodGet, "/api/v1/tasks?active_only=false", nil)
	if all := decodeData[[]TaskResponse](t, w); len(all) != 3 {
		t.Errorf("Expected 3 tasks including inactive, got %d", len(all))
	}

	w = do(t, f.router, http.MethodGet, "/api/v1/tasks?active_only=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid active_only, got %d", w.Code)
	}
}

func TestListUrgentAndUpcoming(t *testing.T) {
	t.Parallel()

	overdue := storedTask("Overdue", models.RecurrenceDaily, ptr(day(2024, time.June, 8)))
	today := storedTask("Today", models.RecurrenceDaily, ptr(day(2024, time.June, 10)))
	soon := storedTask("Soon", models.RecurrenceWeekly, ptr(day(2024, time.June, 12)))
	later := storedTask("Later", models.RecurrenceMonthly, ptr(day(2024, time.June, 30)))
	pinned := storedTask("Pinned", models.RecurrenceContinuous, nil)
	pinned.UrgencyLabel = ptr(models.UrgencyHigh)

	f := newTaskFixture(t, later, soon, pinned, today, overdue)

	w := do(t, f.router, http.MethodGet, "/api/v1/tasks/urgent", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	urgent := decodeData[[]TaskResponse](t, w)
	wantUrgent := []string{"Overdue", "Today", "Pinned"}
	if len(urgent) != len(wantUrgent) {
		t.Fatalf("Expected %d urgent tasks, got %d", len(wantUrgent), len(urgent))
	}
	for i, name := range wantUrgent {
		if urgent[i].Name != name {
			t.Errorf("Urgent[%d] = %s, want %s", i, urgent[i].Name, name)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 2},
		{query: "?days=0", want: 1},
		{query: "?days=30", want: 3},
		{query: "?days=9999", want: 3},
	}
	for _, tt := range tests {
		w := do(t, f.router, http.MethodGet, "/api/v1/tasks/upcoming"+tt.query, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("upcoming%s: expected 200, got %d", tt.query, w.Code)
		}
		if got := decodeData[[]TaskResponse](t, w); len(got) != tt.want {
			t.Errorf("upcoming%s: expected %d tasks, got %d", tt.query, tt.want, len(got))
		}
	}

	if w := do(t, f.router, http.MethodGet, "/api/v1/tasks/upcoming?days=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative days, got %d", w.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	base := storedTask("Ramen wassen", models.RecurrenceMonthly, ptr(day(2024, time.June, 20)))
	base.UrgencyLabel = ptr(models.UrgencyHigh)

	t.Run("null clears urgency and assignee", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, base)
		task := base.Clone()
		task.AssignedToID = &f.sanne.ID
		f.tasks.tasks[task.ID] = task

		w := do(t, f.router, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), `{"urgency_label":null,"assigned_to_id":null}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		got := decodeData[TaskResponse](t, w)
		if got.UrgencyLabel != nil || got.AssignedToID != nil {
			t.Errorf("Expected cleared fields, got urgency=%v assignee=%v", got.UrgencyLabel, got.AssignedToID)
		}
		if got.CalculatedUrgency != models.UrgencyLow {
			t.Errorf("Expected derived low urgency, got %s", got.CalculatedUrgency)
		}
	})

	t.Run("absent fields are kept", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, base)

		w := do(t, f.router, http.MethodPatch, "/api/v1/tasks/"+base.ID.String(), map[string]any{"name": "Ramen lappen"})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		got := f.tasks.get(base.ID)
		if got.Name != "Ramen lappen" {
			t.Errorf("Expected renamed task, got %q", got.Name)
		}
		if got.UrgencyLabel == nil || *got.UrgencyLabel != models.UrgencyHigh {
			t.Error("Expected urgency label to be kept")
		}
		if !got.NextDue.Equal(day(2024, time.June, 20)) {
			t.Errorf("Expected due date kept, got %s", got.NextDue)
		}
	})

	t.Run("explicit due date", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t, base)

		w := do(t, f.router, http.MethodPatch, "/api/v1/tasks/"+base.ID.String(), map[string]any{"next_due": "2024-07-01"})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if got := f.tasks.get(base.ID); !got.NextDue.Equal(day(2024, time.July, 1)) {
			t.Errorf("Expected due 2024-07-01, got %s", got.NextDue)
		}
	})

	errorCases := []struct {
		name       string
		path       string
		body       any
		wantStatus int
	}{
		{name: "empty name", path: base.ID.String(), body: map[string]any{"name": "  "}, wantStatus: http.StatusBadRequest},
		{name: "unknown assignee", path: base.ID.String(), body: map[string]any{"assigned_to_id": uuid.New()}, wantStatus: http.StatusBadRequest},
		{name: "invalid urgency", path: base.ID.String(), body: map[string]any{"urgency_label": "asap"}, wantStatus: http.StatusBadRequest},
		{name: "unknown task", path: uuid.NewString(), body: map[string]any{"name": "x"}, wantStatus: http.StatusNotFound},
		{name: "empty body", path: base.ID.String(), wantStatus: http.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTaskFixture(t, base)

			w := do(t, f.router, http.MethodPatch, "/api/v1/tasks/"+tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := f.tasks.get(base.ID); got.Name != base.Name {
				t.Error("Expected task to be unchanged")
			}
		})
	}
}

func TestDeleteTaskAndHistory(t *testing.T) {
	t.Parallel()

	task := storedTask("Badkamer schoonmaken", models.RecurrenceWeekly, ptr(day(2024, time.June, 10)))
	f := newTaskFixture(t, task)

	if w := do(t, f.router, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/complete", nil); w.Code != http.StatusOK {
		t.Fatalf("Complete: expected 200, got %d", w.Code)
	}

	w := do(t, f.router, http.MethodGet, "/api/v1/tasks/"+task.ID.String()+"/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("History: expected 200, got %d", w.Code)
	}
	history := decodeData[[]models.CompletionEntry](t, w)
	if len(history) != 1 || history[0].TaskName == nil || *history[0].TaskName != task.Name {
		t.Errorf("Expected one named history entry, got %+v", history)
	}

	if w := do(t, f.router, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil); w.Code != http.StatusNoContent {
		t.Fatalf("Delete: expected 204, got %d", w.Code)
	}
	if f.tasks.get(task.ID).IsActive {
		t.Error("Expected task to be deactivated")
	}

	w = do(t, f.router, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil)
	if got := decodeData[TaskResponse](t, w); got.IsActive {
		t.Error("Expected deactivated task to still be readable")
	}
	if w := do(t, f.router, http.MethodGet, "/api/v1/tasks/"+task.ID.String()+"/history", nil); w.Code != http.StatusOK {
		t.Errorf("Expected history to survive deactivation, got %d", w.Code)
	}

	if w := do(t, f.router, http.MethodDelete, "/api/v1/tasks/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown task, got %d", w.Code)
	}
	if w := do(t, f.router, http.MethodGet, "/api/v1/tasks/"+uuid.NewString()+"/history", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 history for unknown task, got %d", w.Code)
	}
}

func TestListTasks_StoreFailure(t *testing.T) {
	t.Parallel()

	f := newTaskFixture(t)
	f.tasks.listErr = errString("connection refused")

	w := do(t, f.router, http.MethodGet, "/api/v1/tasks", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
