package nlp

// OutcomeCode is the native return code of the external solver. The
// numbering follows the common interior-point solver convention.
type OutcomeCode int

// Native solver outcomes.
const (
	OutcomeSuccess OutcomeCode = iota
	OutcomeMaxIterExceeded
	OutcomeCPUTimeExceeded
	OutcomeStopAtTinyStep
	OutcomeStopAtAcceptablePoint
	OutcomeLocalInfeasibility
	OutcomeUserRequestedStop
	OutcomeFeasiblePointFound
	OutcomeDivergingIterates
	OutcomeRestorationFailure
	OutcomeErrorInStepComputation
	OutcomeInvalidNumberDetected
	OutcomeTooFewDegreesOfFreedom
	OutcomeInvalidOption
	OutcomeOutOfMemory
	OutcomeInternalError
	OutcomeUnassigned
)

// Status is the solver outcome recorded on the model.
type Status string

// Recorded statuses.
const (
	StatusSuccess                Status = "SUCCESS"
	StatusMaxIterExceeded        Status = "MAXITER_EXCEEDED"
	StatusCPUTimeExceeded        Status = "CPUTIME_EXCEEDED"
	StatusStopAtTinyStep         Status = "STOP_AT_TINY_STEP"
	StatusStopAtAcceptablePoint  Status = "STOP_AT_ACCEPTABLE_POINT"
	StatusLocalInfeasibility     Status = "LOCAL_INFEASIBILITY"
	StatusUserRequestedStop      Status = "USER_REQUESTED_STOP"
	StatusDivergingIterates      Status = "DIVERGING_ITERATES"
	StatusRestorationFailure     Status = "RESTORATION_FAILURE"
	StatusErrorInStepComputation Status = "ERROR_IN_STEP_COMPUTATION"
	StatusInvalidNumberDetected  Status = "INVALID_NUMBER_DETECTED"
	StatusInternalError          Status = "INTERNAL_ERROR"
	StatusUnknown                Status = "UNKNOWN"
)

var statusByOutcome = map[OutcomeCode]Status{
	OutcomeSuccess:                StatusSuccess,
	OutcomeMaxIterExceeded:        StatusMaxIterExceeded,
	OutcomeCPUTimeExceeded:        StatusCPUTimeExceeded,
	OutcomeStopAtTinyStep:         StatusStopAtTinyStep,
	OutcomeStopAtAcceptablePoint:  StatusStopAtAcceptablePoint,
	OutcomeLocalInfeasibility:     StatusLocalInfeasibility,
	OutcomeUserRequestedStop:      StatusUserRequestedStop,
	OutcomeDivergingIterates:      StatusDivergingIterates,
	OutcomeRestorationFailure:     StatusRestorationFailure,
	OutcomeErrorInStepComputation: StatusErrorInStepComputation,
	OutcomeInvalidNumberDetected:  StatusInvalidNumberDetected,
	OutcomeInternalError:          StatusInternalError,
}

// StatusOf maps a native outcome code to its status. Codes without a
// dedicated status map to StatusUnknown.
func StatusOf(code OutcomeCode) Status {
	if s, ok := statusByOutcome[code]; ok {
		return s
	}
	return StatusUnknown
}

// OK reports whether the status denotes a usable solution.
func (s Status) OK() bool {
	return s == StatusSuccess || s == StatusStopAtAcceptablePoint
}
