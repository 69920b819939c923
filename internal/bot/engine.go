// Package bot implements the conversation engine: per-chat multi-step
// workflows driven by inbound chat messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/events"
	"github.com/tmasterhq/taskmaster/internal/store"
)

// Sender delivers a text message to a chat. Implemented by the transport
// client; failure carries no retry guarantee.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Engine maps each inbound (chat, user, text) event to outbound messages and
// store mutations, keeping only the in-memory state needed to resume
// multi-turn workflows.
type Engine struct {
	repo     store.Repository
	sender   Sender
	sessions *Sessions
	hub      *events.Hub
}

// New creates a conversation engine. hub may be nil to disable the activity
// feed.
func New(repo store.Repository, sender Sender, hub *events.Hub) *Engine {
	return &Engine{
		repo:     repo,
		sender:   sender,
		sessions: NewSessions(),
		hub:      hub,
	}
}

// HandleMessage processes one inbound message. Events for the same chat are
// serialized; every handled failure produces exactly one outbound reply and
// internal error detail never reaches the user.
func (e *Engine) HandleMessage(ctx context.Context, chatID, fromID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	e.hub.Publish(events.Event{Type: events.TypeMessageIn, ChatID: chatID, Text: text})

	st := e.sessions.lock(chatID)
	defer e.sessions.unlock(chatID, st)

	switch {
	case st.task != nil:
		e.handleTaskCreation(ctx, st, chatID, text)
	case st.cmd != nil:
		e.handleCommand(ctx, st, chatID, fromID, text)
	default:
		e.handleMenu(ctx, st, chatID, fromID, text)
	}
}

// reply sends one outbound message. Transport failures end the turn; they
// are logged and the next user input retries naturally.
func (e *Engine) reply(ctx context.Context, chatID int64, text string) {
	if err := e.sender.Send(ctx, chatID, text); err != nil {
		slog.Error("Failed to send reply", "chat_id", chatID, "error", err)
		return
	}
	e.hub.Publish(events.Event{Type: events.TypeMessageOut, ChatID: chatID, Text: text})
}

// fail tears down any active workflow for the chat and sends a generic
// failure message. Used for unexpected store errors so no partial state is
// left behind.
func (e *Engine) fail(ctx context.Context, st *chatState, chatID int64, err error) {
	slog.Error("Workflow aborted", "chat_id", chatID, "error", err)
	st.task = nil
	st.cmd = nil
	e.reply(ctx, chatID, msgGenericFailure)
}

// resolveUser looks up the caller by messenger identity. A nil user means
// the caller is unknown and has already been told so.
func (e *Engine) resolveUser(ctx context.Context, st *chatState, chatID, fromID int64) *domain.User {
	user, err := e.repo.GetUserByChatID(ctx, fromID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return nil
	}
	if user == nil {
		e.reply(ctx, chatID, msgUserNotFound)
	}
	return user
}

func (e *Engine) handleMenu(ctx context.Context, st *chatState, chatID, fromID int64, text string) {
	switch {
	case text == cmdStart:
		e.reply(ctx, chatID, msgWelcome)
	case matchesCommand(text, cmdCreateTask, labelCreateTask):
		e.startTaskCreation(ctx, st, chatID, fromID)
	case matchesCommand(text, cmdCompleteIssue, labelCompleteIssue):
		st.cmd = newCommandSession(CommandCompleteIssue)
		e.reply(ctx, chatID, msgEnterIssueID)
	case matchesCommand(text, cmdDevStats, labelDevStats):
		e.startDevStats(ctx, st, chatID, fromID)
	case matchesCommand(text, cmdShowDevelopers, labelShowDevelopers):
		e.showDevelopers(ctx, st, chatID, fromID)
	case matchesCommand(text, cmdMyIssues, labelMyIssues):
		e.showAssignedIssues(ctx, st, chatID, fromID)
	default:
		e.reply(ctx, chatID, msgUnknownCommand)
	}
}

func matchesCommand(text, command, label string) bool {
	return strings.EqualFold(text, command) || strings.EqualFold(text, label)
}

// startTaskCreation opens a task-creation session. Only project managers may
// start one; unauthorized callers get a rejection and no state is created.
func (e *Engine) startTaskCreation(ctx context.Context, st *chatState, chatID, fromID int64) {
	user := e.resolveUser(ctx, st, chatID, fromID)
	if user == nil {
		return
	}
	if !user.IsManager() {
		e.reply(ctx, chatID, msgNotAuthorized)
		return
	}

	st.task = &TaskSession{Step: StepTitle}
	slog.Info("Task creation started", "chat_id", chatID, "user_id", user.ID)
	e.reply(ctx, chatID, msgTaskCreationStarted+"\n\n"+msgEnterTitle)
}

func (e *Engine) handleTaskCreation(ctx context.Context, st *chatState, chatID int64, text string) {
	if text == cmdCancel {
		st.task = nil
		e.reply(ctx, chatID, msgTaskCreationCancelled)
		return
	}

	session := st.task
	if session.Step != StepDeveloper {
		result := session.advance(text)
		if result.ShowRoster {
			roster, err := e.engineerRoster(ctx)
			if err != nil {
				e.fail(ctx, st, chatID, err)
				return
			}
			e.reply(ctx, chatID, roster)
		}
		e.reply(ctx, chatID, result.Reply)
		return
	}

	// Developer step: validate the ID against the roster, then persist the
	// draft and drop the session.
	developerID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		e.reply(ctx, chatID, msgInvalidNumber)
		return
	}

	developer, err := e.repo.GetUser(ctx, developerID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	if developer == nil || !developer.IsEngineer() {
		e.reply(ctx, chatID, msgInvalidEngineer)
		return
	}

	draft := session.Draft
	draft.Assignee = developerID
	draft.Status = domain.IssueStatusOpen

	created, err := e.repo.CreateIssue(ctx, &draft)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}

	st.task = nil
	slog.Info("Issue created from chat", "chat_id", chatID, "issue_id", created.ID, "assignee", developerID)
	e.reply(ctx, chatID, msgTaskCreated)
}

func (e *Engine) handleCommand(ctx context.Context, st *chatState, chatID, fromID int64, text string) {
	if text == cmdCancel {
		st.cmd = nil
		e.reply(ctx, chatID, msgCommandCancelled)
		return
	}

	switch st.cmd.Kind {
	case CommandCompleteIssue:
		e.handleCompleteIssue(ctx, st, chatID, fromID, text)
	case CommandDevStats:
		e.handleDevStatsInput(ctx, st, chatID, fromID, text)
	}
}

func (e *Engine) handleCompleteIssue(ctx context.Context, st *chatState, chatID, fromID int64, text string) {
	session := st.cmd
	switch session.Step {
	case 0:
		issueID, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			e.reply(ctx, chatID, msgInvalidIssueID)
			return
		}
		session.Params["issue_id"] = strconv.FormatInt(issueID, 10)
		session.Step++
		e.reply(ctx, chatID, msgEnterHours)

	case 1:
		hours, err := strconv.Atoi(text)
		if err != nil {
			e.reply(ctx, chatID, msgInvalidHours)
			return
		}
		issueID, _ := strconv.ParseInt(session.Params["issue_id"], 10, 64)
		e.completeIssue(ctx, st, chatID, fromID, issueID, hours)
	}
}

// completeIssue finalizes the complete-issue flow: the requester must be the
// assignee, then the issue is marked completed with the reported hours. The
// session is destroyed on every outcome.
func (e *Engine) completeIssue(ctx context.Context, st *chatState, chatID, fromID, issueID int64, hours int) {
	st.cmd = nil

	user, err := e.repo.GetUserByChatID(ctx, fromID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	if user == nil {
		e.reply(ctx, chatID, msgUserNotFound)
		return
	}

	issue, err := e.repo.GetIssue(ctx, issueID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	if issue == nil {
		e.reply(ctx, chatID, msgIssueNotFound)
		return
	}
	if issue.Assignee != user.ID {
		slog.Warn("Completion rejected, wrong assignee",
			"chat_id", chatID, "issue_id", issueID, "user_id", user.ID, "assignee", issue.Assignee)
		e.reply(ctx, chatID, msgNotAssignee)
		return
	}

	issue.Status = domain.IssueStatusCompleted
	issue.HoursWorked = hours
	if _, err := e.repo.UpdateIssue(ctx, issueID, issue); err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}

	slog.Info("Issue completed from chat", "chat_id", chatID, "issue_id", issueID, "hours", hours)
	e.reply(ctx, chatID, msgIssueCompleted)
}

// startDevStats opens the stats flow. Managers pick a developer from the
// roster; everyone else gets their own stats immediately with no ID step.
func (e *Engine) startDevStats(ctx context.Context, st *chatState, chatID, fromID int64) {
	user := e.resolveUser(ctx, st, chatID, fromID)
	if user == nil {
		return
	}

	if !user.IsManager() {
		e.sendDeveloperStats(ctx, st, chatID, user.ID)
		return
	}

	roster, err := e.engineerRoster(ctx)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}

	st.cmd = newCommandSession(CommandDevStats)
	e.reply(ctx, chatID, roster+"\n"+msgEnterDeveloperID)
}

func (e *Engine) handleDevStatsInput(ctx context.Context, st *chatState, chatID, fromID int64, text string) {
	developerID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		e.reply(ctx, chatID, msgInvalidDeveloperID)
		return
	}

	st.cmd = nil

	requester, err := e.repo.GetUserByChatID(ctx, fromID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	if requester == nil {
		e.reply(ctx, chatID, msgUserNotFound)
		return
	}
	if !requester.IsManager() && developerID != requester.ID {
		slog.Warn("Stats rejected, own stats only", "chat_id", chatID, "user_id", requester.ID, "requested", developerID)
		e.reply(ctx, chatID, msgOwnStatsOnly)
		return
	}

	e.sendDeveloperStats(ctx, st, chatID, developerID)
}

func (e *Engine) sendDeveloperStats(ctx context.Context, st *chatState, chatID, developerID int64) {
	developer, err := e.repo.GetUser(ctx, developerID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	if developer == nil {
		e.reply(ctx, chatID, fmt.Sprintf("Developer with ID %d not found.", developerID))
		return
	}

	issues, err := e.repo.ListIssuesByAssignee(ctx, developerID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}

	e.reply(ctx, chatID, renderStats(developer, issues))
}

func renderStats(developer *domain.User, issues []*domain.Issue) string {
	stats := domain.ComputeIssueStats(issues)

	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for %s\n\n", developer.Name)
	fmt.Fprintf(&b, "Total Completed Tasks: %d\n", len(stats.Completed))
	fmt.Fprintf(&b, "Total Hours Worked: %d\n", stats.TotalHours)
	fmt.Fprintf(&b, "Pending Tasks: %d\n", len(stats.Pending))

	if len(stats.Completed) > 0 {
		b.WriteString("\nCompleted Tasks Details:\n")
		for _, issue := range stats.Completed {
			fmt.Fprintf(&b, "- Task ID: %d\n  Title: %s\n  Hours: %d\n", issue.ID, issue.Title, issue.HoursWorked)
		}
	}
	return b.String()
}

// engineerRoster renders the list of engineers a manager can assign work to.
func (e *Engine) engineerRoster(ctx context.Context) (string, error) {
	engineers, err := e.repo.ListUsersByRole(ctx, domain.RoleEngineer)
	if err != nil {
		return "", fmt.Errorf("list engineers: %w", err)
	}
	if len(engineers) == 0 {
		return msgNoEngineers, nil
	}

	var b strings.Builder
	b.WriteString("Available Engineers:\n")
	for _, engineer := range engineers {
		fmt.Fprintf(&b, "\nID: %d\nName: %s\nRole: %s\n", engineer.ID, engineer.Name, engineer.Role)
	}
	return b.String(), nil
}

// showDevelopers sends the engineer roster to managers and the caller's own
// record to everyone else.
func (e *Engine) showDevelopers(ctx context.Context, st *chatState, chatID, fromID int64) {
	user := e.resolveUser(ctx, st, chatID, fromID)
	if user == nil {
		return
	}

	if !user.IsManager() {
		e.reply(ctx, chatID, fmt.Sprintf("Your Information:\nID: %d\nName: %s\nRole: %s", user.ID, user.Name, user.Role))
		return
	}

	roster, err := e.engineerRoster(ctx)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}
	e.reply(ctx, chatID, roster)
}

// showAssignedIssues lists the caller's open issues.
func (e *Engine) showAssignedIssues(ctx context.Context, st *chatState, chatID, fromID int64) {
	user := e.resolveUser(ctx, st, chatID, fromID)
	if user == nil {
		return
	}

	issues, err := e.repo.ListIssuesByAssignee(ctx, user.ID)
	if err != nil {
		e.fail(ctx, st, chatID, err)
		return
	}

	var open []*domain.Issue
	for _, issue := range issues {
		if !issue.IsCompleted() {
			open = append(open, issue)
		}
	}
	if len(open) == 0 {
		e.reply(ctx, chatID, msgNoActiveIssues)
		return
	}

	var b strings.Builder
	b.WriteString("Your active assigned issues:\n")
	for _, issue := range open {
		fmt.Fprintf(&b, "\nID: %d\nTitle: %s\nDue Date: %s\n", issue.ID, issue.Title, issue.DueDate.Format("2006-01-02"))
	}
	b.WriteString("\nTo complete an issue, use /completeissue")
	e.reply(ctx, chatID, b.String())
}
