package bot

import (
	"strconv"
	"strings"
	"time"
)

// stepResult describes the outcome of feeding one input to a task session.
type stepResult struct {
	// Reply is the single message to send back for this input.
	Reply string
	// Invalid reports that the input was rejected and the step unchanged.
	Invalid bool
	// ShowRoster requests the engineer roster before the reply.
	ShowRoster bool
}

// advance applies one input to the session for the steps that need no store
// access (title through due date). Invalid input leaves the step and the
// draft untouched. The developer step is resolved by the engine because it
// must consult the user roster.
func (s *TaskSession) advance(text string) stepResult {
	switch s.Step {
	case StepTitle:
		if strings.TrimSpace(text) == "" {
			return stepResult{Reply: msgEnterTitle, Invalid: true}
		}
		s.Draft.Title = text
		s.Step = StepDescription
		return stepResult{Reply: msgEnterDescription}

	case StepDescription:
		if strings.TrimSpace(text) == "" {
			return stepResult{Reply: msgEnterDescription, Invalid: true}
		}
		s.Draft.Description = text
		s.Step = StepEstimation
		return stepResult{Reply: msgEnterEstimation}

	case StepEstimation:
		estimation, err := strconv.Atoi(text)
		if err != nil || estimation < 0 {
			return stepResult{Reply: msgInvalidNumber, Invalid: true}
		}
		s.Draft.Estimation = estimation
		s.Step = StepDueDate
		return stepResult{Reply: msgEnterDueDate}

	case StepDueDate:
		due, err := time.ParseInLocation("2006-01-02", text, time.Local)
		if err != nil {
			return stepResult{Reply: msgInvalidDate, Invalid: true}
		}
		s.Draft.DueDate = due
		s.Step = StepDeveloper
		return stepResult{Reply: msgSelectDeveloper, ShowRoster: true}
	}

	// StepDeveloper is handled by the engine.
	return stepResult{Reply: msgGenericFailure, Invalid: true}
}
