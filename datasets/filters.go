package datasets

import "slices"

// TrialFilter decides whether a trial survives LoadTrials. Filters given
// together are conjunctive: a trial must satisfy all of them.
type TrialFilter interface {
	Accept(t *Trial) bool
}

// TrialFilterFunc adapts a plain predicate to TrialFilter.
type TrialFilterFunc func(t *Trial) bool

// Accept implements TrialFilter.
func (f TrialFilterFunc) Accept(t *Trial) bool { return f(t) }

// ParticipantsIn keeps trials whose native participant id is one of ids.
func ParticipantsIn(ids ...int) TrialFilter {
	return TrialFilterFunc(func(t *Trial) bool {
		return slices.Contains(ids, t.NativeParticipantID())
	})
}

// MediaIn keeps trials whose native media id is one of ids.
func MediaIn(ids ...int) TrialFilter {
	return TrialFilterFunc(func(t *Trial) bool {
		return slices.Contains(ids, t.NativeMediaID())
	})
}

// HasSignal keeps trials that carry stimulus data for signalType.
func HasSignal(signalType string) TrialFilter {
	return TrialFilterFunc(func(t *Trial) bool {
		return t.HasSignal(signalType)
	})
}
