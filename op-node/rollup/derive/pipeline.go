package derive

import (
	"context"
	"fmt"

	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

// StepOutcome classifies the result of a single pipeline step.
type StepOutcome uint8

const (
	// PreparedAttributes means the pipeline has attributes ready to be drained.
	PreparedAttributes StepOutcome = iota
	// AdvancedOrigin means the pipeline moved its L1 origin forward.
	AdvancedOrigin
	// OriginAdvanceErr means the pipeline failed to move its L1 origin forward.
	OriginAdvanceErr
	// StepFailed means a pipeline stage returned an error.
	StepFailed
)

func (o StepOutcome) String() string {
	switch o {
	case PreparedAttributes:
		return "prepared-attributes"
	case AdvancedOrigin:
		return "advanced-origin"
	case OriginAdvanceErr:
		return "origin-advance-error"
	case StepFailed:
		return "step-failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// StepResult is the outcome of Pipeline.Step. Err is set for OriginAdvanceErr and StepFailed.
type StepResult struct {
	Outcome StepOutcome
	Err     error
}

func Prepared() StepResult {
	return StepResult{Outcome: PreparedAttributes}
}

func Advanced() StepResult {
	return StepResult{Outcome: AdvancedOrigin}
}

func OriginAdvanceFailed(err error) StepResult {
	return StepResult{Outcome: OriginAdvanceErr, Err: err}
}

func Failed(err error) StepResult {
	return StepResult{Outcome: StepFailed, Err: err}
}

// Pipeline is a derivation pipeline that turns L1 data into payload attributes.
// It is stepped against the current safe head, and prepared attributes are drained with NextAttributes.
type Pipeline interface {
	Step(ctx context.Context, safeHead eth.L2BlockRef) StepResult
	// NextAttributes pops the next prepared attributes, returning false when none are left.
	NextAttributes() (*AttributesWithParent, bool)
	Origin() eth.L1BlockRef
}
