package unit

// Outcome tells whether and how far a unit executed.
type Outcome int

const (
	// Executed units ran their body to completion, failure or timeout.
	// Whether they passed is reported separately.
	Executed Outcome = iota
	// StaticallySkipped units were excluded by filtering and never entered
	// setup or teardown.
	StaticallySkipped
	// DynamicallySkipped units were set up, abandoned their body on a failed
	// assumption and were torn down.
	DynamicallySkipped
)

func (o Outcome) String() string {
	switch o {
	case Executed:
		return "executed"
	case StaticallySkipped:
		return "statically skipped"
	case DynamicallySkipped:
		return "dynamically skipped"
	}
	return "unknown"
}
