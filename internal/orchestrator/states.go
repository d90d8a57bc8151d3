package orchestrator

// State is the interface that all run states must implement
type State interface {
	Name() string
}

// FetchState reads one batch from the record source
type FetchState struct{}

func (s *FetchState) Name() string { return "fetch" }

// TransmitState posts the batch to the remote API
type TransmitState struct{}

func (s *TransmitState) Name() string { return "transmit" }

// AcknowledgeState marks accepted transactions as synced
type AcknowledgeState struct{}

func (s *AcknowledgeState) Name() string { return "acknowledge" }

// DoneState is terminal; the run result is set
type DoneState struct{}

func (s *DoneState) Name() string { return "done" }

// StateRecorder tracks state transitions for testing
type StateRecorder struct {
	path []string
}

func NewStateRecorder() *StateRecorder {
	return &StateRecorder{path: make([]string, 0)}
}

func (r *StateRecorder) Record(state State) {
	r.path = append(r.path, state.Name())
}

func (r *StateRecorder) Path() []string {
	return r.path
}
