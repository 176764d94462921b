// Package wizard models the multi-step container creation form independently
// of any rendering: step visibility, navigation, per-field validation and
// assembly of the creation body.
package wizard

import "github.com/stuga-cloud/console/internal/domain"

// Step is one page of the creation form.
type Step int

const (
	StepName Step = iota
	StepImage
	StepPort
	StepType
	StepLimits
	StepScaling
	StepEnvironmentVariables
	StepSecrets
	StepAdministrator
)

var stepTitles = map[Step]string{
	StepName:                 "Name",
	StepImage:                "Image",
	StepPort:                 "Port",
	StepType:                 "Type",
	StepLimits:               "Limits",
	StepScaling:              "Scaling",
	StepEnvironmentVariables: "Environment variables",
	StepSecrets:              "Secrets",
	StepAdministrator:        "Administrator",
}

func (s Step) String() string {
	if title, ok := stepTitles[s]; ok {
		return title
	}
	return "Unknown"
}

// Steps returns the visible steps for an application type. Scaling only
// applies to load balanced applications.
func Steps(appType domain.ApplicationType) []Step {
	steps := []Step{StepName, StepImage, StepPort, StepType, StepLimits}
	if appType != domain.SingleInstance {
		steps = append(steps, StepScaling)
	}
	return append(steps, StepEnvironmentVariables, StepSecrets, StepAdministrator)
}

// ActionKind enumerates navigation actions.
type ActionKind int

const (
	ActionNext ActionKind = iota
	ActionPrevious
	ActionJump
)

// Action is a navigation request. Index is only read for jumps.
type Action struct {
	Kind  ActionKind
	Index int
}

// Next moves one step forward.
func Next() Action { return Action{Kind: ActionNext} }

// Previous moves one step back.
func Previous() Action { return Action{Kind: ActionPrevious} }

// JumpTo moves directly to the step at index. Jumps are never gated on
// validation.
func JumpTo(index int) Action { return Action{Kind: ActionJump, Index: index} }

// Transition returns the step index reached from current by action, clamped
// to the bounds of steps.
func Transition(steps []Step, current int, action Action) int {
	if len(steps) == 0 {
		return 0
	}
	next := current
	switch action.Kind {
	case ActionNext:
		next = current + 1
	case ActionPrevious:
		next = current - 1
	case ActionJump:
		next = action.Index
	}
	return clamp(next, 0, len(steps)-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
