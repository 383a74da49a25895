package model

// Terminal sink states of the pipeline. Engine states are the declared
// stage names plus these three; a sink has no outgoing transition.
const SINK_SUCCESS = "success"
const SINK_HUMAN_REVIEW = "human_review"
const SINK_ERROR = "error"

func IsSink(state string) bool {
	return state == SINK_SUCCESS || state == SINK_HUMAN_REVIEW || state == SINK_ERROR
}

func TerminalStatusFor(sink string) Status {
	switch sink {
	case SINK_SUCCESS:
		return STATUS_COMPLETED
	case SINK_HUMAN_REVIEW:
		return STATUS_HUMAN_REVIEW
	default:
		return STATUS_ERROR
	}
}
