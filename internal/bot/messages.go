package bot

// Menu commands. Each workflow is reachable by its slash command or by the
// button label the dashboard keyboards use.
const (
	cmdStart          = "/start"
	cmdCancel         = "/cancel"
	cmdCreateTask     = "/createtask"
	cmdCompleteIssue  = "/completeissue"
	cmdDevStats       = "/devstats"
	cmdShowDevelopers = "/showdevelopers"
	cmdMyIssues       = "/myissues"

	labelCreateTask     = "Create New Task"
	labelCompleteIssue  = "Complete Issue"
	labelDevStats       = "Developer Stats"
	labelShowDevelopers = "Show Developers"
	labelMyIssues       = "My Assigned Issues"
)

// User-facing replies.
const (
	msgWelcome = "Welcome to TaskMaster!\n\n" +
		"Available commands:\n" +
		"/myissues - My Assigned Issues\n" +
		"/completeissue - Complete Issue\n" +
		"/devstats - Developer Stats\n" +
		"/showdevelopers - Show Developers\n" +
		"/createtask - Create New Task"

	msgUnknownCommand = "Please use one of the available commands from the menu."
	msgUserNotFound   = "User not found. Please contact your administrator."
	msgGenericFailure = "An error occurred. Please try again or use /cancel to start over."

	msgTaskCreationStarted   = "Starting task creation process. Let's begin with the title."
	msgTaskCreationCancelled = "Task creation cancelled."
	msgTaskCreated           = "Task created successfully!"
	msgNotAuthorized         = "You are not authorized to perform this action. Only Project Managers can create tasks."

	msgEnterTitle       = "Please enter the task title:"
	msgEnterDescription = "Please enter the task description:"
	msgEnterEstimation  = "Please enter the estimated hours for this task:"
	msgEnterDueDate     = "Please enter the due date (YYYY-MM-DD):"
	msgSelectDeveloper  = "Please select a developer ID from the list above:"

	msgInvalidNumber   = "Invalid number format. Please enter a valid number."
	msgInvalidDate     = "Invalid date format. Please use YYYY-MM-DD"
	msgInvalidEngineer = "Invalid engineer ID. Please select a valid engineer from the list."

	msgCommandCancelled = "Command cancelled. You can start over with a new command."

	msgEnterIssueID   = "Please enter the Issue ID you want to complete:"
	msgEnterHours     = "Please enter the number of hours worked:"
	msgInvalidIssueID = "Please enter a valid Issue ID (numbers only):"
	msgInvalidHours   = "Please enter a valid number of hours (numbers only):"
	msgIssueNotFound  = "Issue not found."
	msgNotAssignee    = "You are not assigned to this issue."
	msgIssueCompleted = "Issue completed successfully!"

	msgEnterDeveloperID   = "Please enter the Developer ID to view their statistics:"
	msgInvalidDeveloperID = "Please enter a valid Developer ID (numbers only):"
	msgOwnStatsOnly       = "You can only view your own statistics."
	msgNoEngineers        = "No engineers found in the system. Please check the role configuration."
	msgNoActiveIssues     = "You don't have any active assigned issues."
)
