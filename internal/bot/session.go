package bot

import (
	"sync"

	"github.com/tmasterhq/taskmaster/internal/domain"
)

// TaskStep identifies the current prompt in the task-creation workflow.
type TaskStep int

// Task-creation steps, in order.
const (
	StepTitle TaskStep = iota
	StepDescription
	StepEstimation
	StepDueDate
	StepDeveloper
)

// TaskSession holds the in-progress state of one task-creation workflow. The
// draft issue is owned by the session until the developer step persists it.
type TaskSession struct {
	Step  TaskStep
	Draft domain.Issue
}

// CommandKind identifies a single-parameter command flow.
type CommandKind int

// Command flows backed by CommandSession.
const (
	CommandCompleteIssue CommandKind = iota
	CommandDevStats
)

// CommandSession holds the state of one command flow: the accumulated
// parameters and the step counter.
type CommandSession struct {
	Kind   CommandKind
	Params map[string]string
	Step   int
}

func newCommandSession(kind CommandKind) *CommandSession {
	return &CommandSession{Kind: kind, Params: make(map[string]string)}
}

// chatState is the per-chat workflow slot. At most one of task and cmd is
// non-nil at any time. Its mutex serializes all events for the chat.
type chatState struct {
	mu   sync.Mutex
	refs int
	task *TaskSession
	cmd  *CommandSession
}

func (st *chatState) empty() bool {
	return st.task == nil && st.cmd == nil
}

// Sessions tracks per-chat workflow state. Events for the same chat are
// serialized by the chat's lock; different chats proceed in parallel.
type Sessions struct {
	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{chats: make(map[int64]*chatState)}
}

// lock returns the chat's state with its lock held, creating the entry if
// needed. Callers must release it with unlock.
func (s *Sessions) lock(chatID int64) *chatState {
	s.mu.Lock()
	st, ok := s.chats[chatID]
	if !ok {
		st = &chatState{}
		s.chats[chatID] = st
	}
	st.refs++
	s.mu.Unlock()

	st.mu.Lock()
	return st
}

// unlock releases the chat's lock and drops the map entry once no workflow
// is active and no other handler is waiting on it.
func (s *Sessions) unlock(chatID int64, st *chatState) {
	st.mu.Unlock()

	s.mu.Lock()
	st.refs--
	if st.refs == 0 && st.empty() {
		delete(s.chats, chatID)
	}
	s.mu.Unlock()
}

// active returns the number of chats with tracked state.
func (s *Sessions) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}
