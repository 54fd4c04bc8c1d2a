package core

import (
	"fmt"

	"github.com/axiomesh/upgrader/chain"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	ErrEventNotFound  = errors.New("expected event not found")
	ErrAmbiguousEvent = errors.New("expected event is not unique")
)

// Match picks events of type E accepted by pred. A nil pred accepts every E.
func Match[E chain.Event](records []chain.EventRecord, pred func(E) bool) []E {
	return lo.FilterMap(records, func(r chain.EventRecord, _ int) (E, bool) {
		e, ok := r.Event.(E)
		if !ok || (pred != nil && !pred(e)) {
			var zero E
			return zero, false
		}
		return e, true
	})
}

// First projects the first event of type E accepted by pred. Later matches are
// ignored, which is only sound while the awaited event occurs at most once in
// the snapshot.
func First[E chain.Event, T any](records []chain.EventRecord, pred func(E) bool, project func(E) T) (T, bool) {
	matches := Match(records, pred)
	if len(matches) == 0 {
		var zero T
		return zero, false
	}
	return project(matches[0]), true
}

// Unique is First that refuses snapshots holding more than one match.
func Unique[E chain.Event, T any](records []chain.EventRecord, pred func(E) bool, project func(E) T) (T, error) {
	var zero T
	matches := Match(records, pred)
	switch len(matches) {
	case 0:
		return zero, errors.Wrapf(ErrEventNotFound, "%s", eventName[E]())
	case 1:
		return project(matches[0]), nil
	default:
		return zero, errors.Wrapf(ErrAmbiguousEvent, "%s occurs %d times", eventName[E](), len(matches))
	}
}

// expect is the lookup the upgrader uses: Unique when strict, First otherwise.
func expect[E chain.Event, T any](strict bool, records []chain.EventRecord, pred func(E) bool, project func(E) T) (T, error) {
	if strict {
		return Unique(records, pred, project)
	}
	v, ok := First(records, pred, project)
	if !ok {
		return v, errors.Wrapf(ErrEventNotFound, "%s", eventName[E]())
	}
	return v, nil
}

func eventName[E chain.Event]() string {
	var zero E
	return fmt.Sprintf("%T", zero)
}

// ofInstance accepts events emitted by the given collective instance.
func ofInstance[E chain.Event](inst chain.Instance) func(E) bool {
	return func(e E) bool {
		return e.Module() == inst.String()
	}
}
