package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tmasterhq/taskmaster/internal/domain"
)

// unusedRepo fills out the Repository methods the dispatcher never calls.
type unusedRepo struct{}

func (unusedRepo) GetUserByChatID(context.Context, int64) (*domain.User, error) {
	panic("unexpected call")
}
func (unusedRepo) ListUsers(context.Context) ([]*domain.User, error) { panic("unexpected call") }
func (unusedRepo) ListUsersByRole(context.Context, string) ([]*domain.User, error) {
	panic("unexpected call")
}
func (unusedRepo) CreateUser(context.Context, *domain.User) (*domain.User, error) {
	panic("unexpected call")
}
func (unusedRepo) UpdateUser(context.Context, int64, *domain.User) (*domain.User, error) {
	panic("unexpected call")
}
func (unusedRepo) DeleteUser(context.Context, int64) error { panic("unexpected call") }
func (unusedRepo) CreateIssue(context.Context, *domain.Issue) (*domain.Issue, error) {
	panic("unexpected call")
}
func (unusedRepo) GetIssue(context.Context, int64) (*domain.Issue, error) {
	panic("unexpected call")
}
func (unusedRepo) ListIssues(context.Context) ([]*domain.Issue, error) { panic("unexpected call") }
func (unusedRepo) ListIssuesByAssignee(context.Context, int64) ([]*domain.Issue, error) {
	panic("unexpected call")
}
func (unusedRepo) UpdateIssue(context.Context, int64, *domain.Issue) (*domain.Issue, error) {
	panic("unexpected call")
}
func (unusedRepo) DeleteIssue(context.Context, int64) error { panic("unexpected call") }
func (unusedRepo) CreateSprint(context.Context, *domain.Sprint) (*domain.Sprint, error) {
	panic("unexpected call")
}
func (unusedRepo) GetSprint(context.Context, int64) (*domain.Sprint, error) {
	panic("unexpected call")
}
func (unusedRepo) ListSprints(context.Context) ([]*domain.Sprint, error) { panic("unexpected call") }
func (unusedRepo) UpdateSprint(context.Context, int64, *domain.Sprint) (*domain.Sprint, error) {
	panic("unexpected call")
}
func (unusedRepo) DeleteSprint(context.Context, int64) error { panic("unexpected call") }
func (unusedRepo) DeleteAlert(context.Context, int64) error  { panic("unexpected call") }
func (unusedRepo) Ping(context.Context) error                { panic("unexpected call") }
func (unusedRepo) Close() error                              { panic("unexpected call") }

// fakeRepo covers the user and alert methods the dispatcher touches. The
// remaining Repository methods are unused here and fail loudly if called.
type fakeRepo struct {
	unusedRepo

	mu        sync.Mutex
	users     map[int64]*domain.User
	alerts    map[int64]*domain.Alert
	nextAlert int64
	saveErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     make(map[int64]*domain.User),
		alerts:    make(map[int64]*domain.Alert),
		nextAlert: 1,
	}
}

func (f *fakeRepo) addUser(user *domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.ID] = &copy
}

func (f *fakeRepo) addAlert(alert *domain.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *alert
	f.alerts[alert.ID] = &copy
	if alert.ID >= f.nextAlert {
		f.nextAlert = alert.ID + 1
	}
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[id]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) GetAlert(_ context.Context, id int64) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert := f.alerts[id]
	if alert == nil {
		return nil, nil
	}
	copy := *alert
	return &copy, nil
}

func (f *fakeRepo) ListAlertsByStatus(_ context.Context, status string) ([]*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Alert
	for id := int64(1); id < f.nextAlert; id++ {
		alert := f.alerts[id]
		if alert != nil && alert.Status == status {
			copy := *alert
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveAlert(_ context.Context, alert *domain.Alert) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil && alert.ID != 0 {
		return nil, f.saveErr
	}
	copy := *alert
	if copy.ID == 0 {
		copy.ID = f.nextAlert
		f.nextAlert++
	}
	f.alerts[copy.ID] = &copy
	result := copy
	return &result, nil
}

func (f *fakeRepo) status(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts[id].Status
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	chatID int64
	text   string
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestSweepDeliversPendingAlerts(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	repo.addAlert(&domain.Alert{
		ID:            1,
		Task:          "Fix bug",
		Message:       "Due soon",
		Priority:      "HIGH",
		UserID:        "2",
		ScheduledTime: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		Status:        domain.AlertStatusPending,
	})
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, nil)

	sent, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("Expected 1 delivered alert, got %d", sent)
	}
	if repo.status(1) != domain.AlertStatusSent {
		t.Errorf("Expected alert marked SENT, got %q", repo.status(1))
	}

	if sender.count() != 1 {
		t.Fatalf("Expected 1 outbound message, got %d", sender.count())
	}
	msg := sender.sent[0]
	if msg.chatID != 200 {
		t.Errorf("Expected delivery to chat 200, got %d", msg.chatID)
	}
	if !strings.Contains(msg.text, "Fix bug") || !strings.Contains(msg.text, "HIGH") {
		t.Errorf("Notification body missing fields: %q", msg.text)
	}
	if !strings.Contains(msg.text, "2026-06-01 09:00") {
		t.Errorf("Notification body missing schedule: %q", msg.text)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	repo.addAlert(&domain.Alert{ID: 1, Task: "Fix bug", UserID: "2", Status: domain.AlertStatusPending})
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, nil)

	if sent, _ := d.Sweep(context.Background()); sent != 1 {
		t.Fatalf("Expected first sweep to deliver 1, got %d", sent)
	}
	if sent, _ := d.Sweep(context.Background()); sent != 0 {
		t.Fatalf("Expected second sweep to deliver 0, got %d", sent)
	}
	if sender.count() != 1 {
		t.Errorf("Expected exactly 1 outbound message, got %d", sender.count())
	}
}

func TestSweepSkipsUndeliverableAlert(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	repo.addUser(&domain.User{ID: 3, Name: "Carol", Role: domain.RoleEngineer}) // no chat id
	repo.addAlert(&domain.Alert{ID: 1, Task: "Unreachable", UserID: "3", Status: domain.AlertStatusPending})
	repo.addAlert(&domain.Alert{ID: 2, Task: "Reachable", UserID: "2", Status: domain.AlertStatusPending})
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, nil)

	sent, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("Expected 1 delivered alert, got %d", sent)
	}
	if repo.status(1) != domain.AlertStatusPending {
		t.Errorf("Undeliverable alert should stay PENDING, got %q", repo.status(1))
	}
	if repo.status(2) != domain.AlertStatusSent {
		t.Errorf("Deliverable alert should be SENT, got %q", repo.status(2))
	}
}

func TestSweepLeavesAlertPendingOnTransportFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	repo.addAlert(&domain.Alert{ID: 1, Task: "Fix bug", UserID: "2", Status: domain.AlertStatusPending})
	sender := &fakeSender{err: errors.New("transport down")}
	d := NewDispatcher(repo, sender, nil)

	sent, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep should not fail on per-alert errors: %v", err)
	}
	if sent != 0 {
		t.Fatalf("Expected 0 delivered alerts, got %d", sent)
	}
	if repo.status(1) != domain.AlertStatusPending {
		t.Errorf("Alert should stay PENDING after transport failure, got %q", repo.status(1))
	}

	// Transport recovers, the next sweep retries.
	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	if sent, _ := d.Sweep(context.Background()); sent != 1 {
		t.Fatalf("Expected retry to deliver 1, got %d", sent)
	}
	if repo.status(1) != domain.AlertStatusSent {
		t.Errorf("Expected alert SENT after retry, got %q", repo.status(1))
	}
}

func TestSweepMalformedUserID(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlert(&domain.Alert{ID: 1, Task: "Fix bug", UserID: "not-a-number", Status: domain.AlertStatusPending})
	d := NewDispatcher(repo, &fakeSender{}, nil)

	sent, err := d.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if sent != 0 {
		t.Fatalf("Expected 0 delivered alerts, got %d", sent)
	}
	if repo.status(1) != domain.AlertStatusPending {
		t.Errorf("Malformed alert should stay PENDING, got %q", repo.status(1))
	}
}

func TestCreateDefaultsToPending(t *testing.T) {
	repo := newFakeRepo()
	d := NewDispatcher(repo, &fakeSender{}, nil)

	before := time.Now()
	alert, err := d.Create(context.Background(), CreateParams{Task: "Fix bug", UserID: "2"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if alert.ID == 0 {
		t.Error("Expected assigned ID")
	}
	if alert.Status != domain.AlertStatusPending {
		t.Errorf("Expected PENDING status, got %q", alert.Status)
	}
	if alert.ScheduledTime.Before(before) {
		t.Errorf("Expected zero schedule to default to now, got %v", alert.ScheduledTime)
	}
}

func TestCreateAndSendDeliversImmediately(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, nil)

	alert, err := d.CreateAndSend(context.Background(), CreateParams{Task: "Fix bug", UserID: "2"})
	if err != nil {
		t.Fatalf("CreateAndSend failed: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("Expected immediate delivery, got %d messages", sender.count())
	}
	if repo.status(alert.ID) != domain.AlertStatusSent {
		t.Errorf("Expected alert SENT, got %q", repo.status(alert.ID))
	}
}

func TestCreateAndSendKeepsPendingOnFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	sender := &fakeSender{err: errors.New("transport down")}
	d := NewDispatcher(repo, sender, nil)

	alert, err := d.CreateAndSend(context.Background(), CreateParams{Task: "Fix bug", UserID: "2"})
	if err != nil {
		t.Fatalf("CreateAndSend should succeed even when delivery fails: %v", err)
	}
	if repo.status(alert.ID) != domain.AlertStatusPending {
		t.Errorf("Expected alert left PENDING, got %q", repo.status(alert.ID))
	}
}

func TestStartWorkerSweepsAndStops(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser(&domain.User{ID: 2, ChatID: 200, Name: "Bob", Role: domain.RoleEngineer})
	repo.addAlert(&domain.Alert{ID: 1, Task: "Fix bug", UserID: "2", Status: domain.AlertStatusPending})
	sender := &fakeSender{}
	d := NewDispatcher(repo, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	StartWorker(ctx, d, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for repo.status(1) != domain.AlertStatusSent {
		select {
		case <-deadline:
			t.Fatal("Worker never delivered the pending alert")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
}
