// Package learner defines the contracts the control loop requires from a
// learning algorithm, and the registry of algorithms the binary can run.
package learner

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAlgorithm is returned by Lookup for an unregistered tag.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Family is the capability set an algorithm implements.
type Family int

const (
	// FamilyOnPolicy algorithms need the probability of the chosen action.
	FamilyOnPolicy Family = iota
	// FamilyOffPolicy algorithms learn from plain transitions.
	FamilyOffPolicy
)

func (f Family) String() string {
	switch f {
	case FamilyOnPolicy:
		return "on-policy"
	case FamilyOffPolicy:
		return "off-policy"
	default:
		return "unknown"
	}
}

// NeverTrain disables automatic training when used as a cadence.
const NeverTrain = -1

// Experience is the off-policy tuple.
type Experience struct {
	Observation     []float64
	Action          int
	Reward          float64
	NextObservation []float64
	Done            bool
}

// OnPolicyExperience adds the terminal flag and the probability the action was
// selected with.
type OnPolicyExperience struct {
	Experience
	Dead              bool
	ActionProbability float64
}

// OnPolicy is implemented by algorithms that need action probabilities.
type OnPolicy interface {
	Predict(observation []float64) (action int, probability float64, err error)
	Learn(exp OnPolicyExperience) error
	Train() error
	Log() map[string]float64
}

// OffPolicy is implemented by algorithms that learn from plain transitions.
type OffPolicy interface {
	Predict(observation []float64) (action int, err error)
	Learn(exp Experience) error
	Train() error
	Log() map[string]float64
}

// Options are passed to every constructor.
type Options struct {
	InputDim   int
	NumActions int
	Seed       int64
	// Capacity bounds any experience buffer the algorithm keeps.
	Capacity  int
	BatchSize int
}

func (o Options) validate() error {
	if o.InputDim <= 0 {
		return fmt.Errorf("input dimension must be positive, got %d", o.InputDim)
	}
	if o.NumActions <= 0 {
		return fmt.Errorf("action count must be positive, got %d", o.NumActions)
	}
	return nil
}

// Algorithm describes one registered learning algorithm. Exactly one of
// NewOnPolicy and NewOffPolicy is set, matching Family.
type Algorithm struct {
	Tag        string
	Family     Family
	TrainEvery int

	NewOnPolicy  func(Options) (OnPolicy, error)
	NewOffPolicy func(Options) (OffPolicy, error)
}

var registry = map[string]Algorithm{}

// Register adds an algorithm. It panics on a duplicate tag or an algorithm
// whose constructor does not match its family.
func Register(a Algorithm) {
	if _, dup := registry[a.Tag]; dup {
		panic(fmt.Sprintf("learner: algorithm %q registered twice", a.Tag))
	}
	switch {
	case a.Family == FamilyOnPolicy && (a.NewOnPolicy == nil || a.NewOffPolicy != nil),
		a.Family == FamilyOffPolicy && (a.NewOffPolicy == nil || a.NewOnPolicy != nil):
		panic(fmt.Sprintf("learner: algorithm %q constructor does not match family %s", a.Tag, a.Family))
	}
	if a.TrainEvery == 0 || a.TrainEvery < NeverTrain {
		panic(fmt.Sprintf("learner: algorithm %q has invalid train cadence %d", a.Tag, a.TrainEvery))
	}
	registry[a.Tag] = a
}

// Lookup returns the algorithm registered under tag.
func Lookup(tag string) (Algorithm, error) {
	a, ok := registry[tag]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w %q (registered: %v)", ErrUnknownAlgorithm, tag, Tags())
	}
	return a, nil
}

// Tags lists registered algorithm tags.
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
