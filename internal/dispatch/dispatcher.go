// Package dispatch routes action selection and experience to a learner whose
// call shape is fixed when the dispatcher is built.
package dispatch

import (
	"fmt"
	"io"

	"github.com/cartridge/fighter/internal/learner"
)

// InitialActionProbability is reported with the first on-policy experience,
// before any Predict call has produced a real probability.
const InitialActionProbability = 0.001

// Operation names used in LearnerError.
const (
	OpPredict = "predict"
	OpLearn   = "learn"
	OpTrain   = "train"
)

// LearnerError wraps any failure raised by the learning algorithm. The loop
// treats it as fatal and never retries.
type LearnerError struct {
	Op  string
	Err error
}

func (e *LearnerError) Error() string {
	return fmt.Sprintf("learner %s: %v", e.Op, e.Err)
}

func (e *LearnerError) Unwrap() error { return e.Err }

// Transition is one completed step as seen by the control loop.
type Transition struct {
	Observation     []float64
	Action          int
	Reward          float64
	NextObservation []float64
	Died            bool
}

// strategy hides the difference between learner families.
type strategy interface {
	predict(obs []float64) (int, error)
	learn(t Transition) error
	train() error
	log() map[string]float64
	close() error
}

// Dispatcher owns the learner for one agent.
type Dispatcher struct {
	tag        string
	family     learner.Family
	trainEvery int
	strategy   strategy
}

// Config selects the algorithm and sizes it.
type Config struct {
	Algorithm string
	// TrainEvery overrides the algorithm's cadence when non-zero.
	TrainEvery int
	Options    learner.Options
}

// New resolves the algorithm tag and constructs its learner.
func New(cfg Config) (*Dispatcher, error) {
	alg, err := learner.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	every := alg.TrainEvery
	if cfg.TrainEvery != 0 {
		every = cfg.TrainEvery
	}
	if err := validateCadence(every); err != nil {
		return nil, err
	}

	var s strategy
	switch alg.Family {
	case learner.FamilyOnPolicy:
		l, err := alg.NewOnPolicy(cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("create %s learner: %w", alg.Tag, err)
		}
		s = &onPolicy{learner: l, lastProb: InitialActionProbability}
	case learner.FamilyOffPolicy:
		l, err := alg.NewOffPolicy(cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("create %s learner: %w", alg.Tag, err)
		}
		s = &offPolicy{learner: l}
	default:
		return nil, fmt.Errorf("algorithm %s has unsupported family %s", alg.Tag, alg.Family)
	}

	return &Dispatcher{
		tag:        alg.Tag,
		family:     alg.Family,
		trainEvery: every,
		strategy:   s,
	}, nil
}

// NewOnPolicy wraps an already constructed on-policy learner.
func NewOnPolicy(l learner.OnPolicy, trainEvery int) (*Dispatcher, error) {
	if err := validateCadence(trainEvery); err != nil {
		return nil, err
	}
	return &Dispatcher{
		tag:        "custom",
		family:     learner.FamilyOnPolicy,
		trainEvery: trainEvery,
		strategy:   &onPolicy{learner: l, lastProb: InitialActionProbability},
	}, nil
}

// NewOffPolicy wraps an already constructed off-policy learner.
func NewOffPolicy(l learner.OffPolicy, trainEvery int) (*Dispatcher, error) {
	if err := validateCadence(trainEvery); err != nil {
		return nil, err
	}
	return &Dispatcher{
		tag:        "custom",
		family:     learner.FamilyOffPolicy,
		trainEvery: trainEvery,
		strategy:   &offPolicy{learner: l},
	}, nil
}

// validateCadence accepts NeverTrain or a positive tick interval.
func validateCadence(every int) error {
	if every == 0 || every < learner.NeverTrain {
		return fmt.Errorf("invalid train cadence %d", every)
	}
	return nil
}

// Algorithm returns the resolved tag.
func (d *Dispatcher) Algorithm() string { return d.tag }

// Family returns the learner family.
func (d *Dispatcher) Family() learner.Family { return d.family }

// TrainEvery returns the effective cadence.
func (d *Dispatcher) TrainEvery() int { return d.trainEvery }

// Predict selects the next action.
func (d *Dispatcher) Predict(obs []float64) (int, error) {
	a, err := d.strategy.predict(obs)
	if err != nil {
		return 0, &LearnerError{Op: OpPredict, Err: err}
	}
	return a, nil
}

// Dispatch hands a completed transition to the learner.
func (d *Dispatcher) Dispatch(t Transition) error {
	if err := d.strategy.learn(t); err != nil {
		return &LearnerError{Op: OpLearn, Err: err}
	}
	return nil
}

// ShouldTrain reports whether the cadence fires at tick.
func (d *Dispatcher) ShouldTrain(tick uint64) bool {
	if d.trainEvery == learner.NeverTrain {
		return false
	}
	return tick%uint64(d.trainEvery) == 0
}

// MaybeTrain trains when the cadence fires and reports whether it did.
func (d *Dispatcher) MaybeTrain(tick uint64) (bool, error) {
	if !d.ShouldTrain(tick) {
		return false, nil
	}
	if err := d.strategy.train(); err != nil {
		return false, &LearnerError{Op: OpTrain, Err: err}
	}
	return true, nil
}

// Log returns the learner's diagnostics.
func (d *Dispatcher) Log() map[string]float64 {
	return d.strategy.log()
}

// Close releases the learner if it holds resources.
func (d *Dispatcher) Close() error {
	return d.strategy.close()
}

func closeLearner(l any) error {
	if c, ok := l.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type onPolicy struct {
	learner  learner.OnPolicy
	lastProb float64
}

func (s *onPolicy) predict(obs []float64) (int, error) {
	a, p, err := s.learner.Predict(obs)
	if err != nil {
		return 0, err
	}
	s.lastProb = p
	return a, nil
}

// learn reports the probability of the most recent Predict, which is the one
// that chose t.Action.
func (s *onPolicy) learn(t Transition) error {
	return s.learner.Learn(learner.OnPolicyExperience{
		Experience: learner.Experience{
			Observation:     t.Observation,
			Action:          t.Action,
			Reward:          t.Reward,
			NextObservation: t.NextObservation,
			Done:            t.Died,
		},
		Dead:              t.Died,
		ActionProbability: s.lastProb,
	})
}

func (s *onPolicy) train() error            { return s.learner.Train() }
func (s *onPolicy) log() map[string]float64 { return s.learner.Log() }
func (s *onPolicy) close() error            { return closeLearner(s.learner) }

type offPolicy struct {
	learner learner.OffPolicy
}

func (s *offPolicy) predict(obs []float64) (int, error) {
	return s.learner.Predict(obs)
}

// learn never marks the transition terminal.
func (s *offPolicy) learn(t Transition) error {
	return s.learner.Learn(learner.Experience{
		Observation:     t.Observation,
		Action:          t.Action,
		Reward:          t.Reward,
		NextObservation: t.NextObservation,
	})
}

func (s *offPolicy) train() error            { return s.learner.Train() }
func (s *offPolicy) log() map[string]float64 { return s.learner.Log() }
func (s *offPolicy) close() error            { return closeLearner(s.learner) }
