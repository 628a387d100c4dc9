package scene

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Stop is one keyframe in an animation track: starting at Start (in the
// same time units as whatever is passed to Animator.Play), the target
// value transitions linearly from From to To over Duration. Duration == 0
// means an instant jump to To the moment Start is reached.
//
// This mirrors animation_stop from the source renderer's hardcoded scene
// script, generalized into something a caller can build any track from
// instead of one baked-in sequence.
type Stop struct {
	Start, Duration float32
	From, To        float32
	Target          *float32
}

// Animator plays a track of Stops against an absolute time, matching
// play_animation_track's behavior exactly: stops are scanned in order,
// and the scan stops at the first stop whose Start is still in the future.
// Since stops earlier in the slice keep being re-applied on every Play
// call, a track is "sticky" -- once t passes a stop's end, that stop's
// Target holds To until some later stop changes it again, which is
// intentional and not a bug to fix.
type Animator struct {
	stops []Stop
}

// NewAnimator builds an Animator over stops, which must already be sorted
// by Start ascending -- Play relies on that ordering to know when to stop
// scanning.
func NewAnimator(stops []Stop) *Animator {
	return &Animator{stops: stops}
}

// Play evaluates every stop reachable at time t and writes through each
// one's Target pointer.
func (a *Animator) Play(t float32) {
	for _, stop := range a.stops {
		if stop.Start > t {
			break
		}
		if stop.Duration == 0 {
			*stop.Target = stop.To
			continue
		}
		dt := t - stop.Start
		if dt < 0 {
			dt = 0
		} else if dt > stop.Duration {
			dt = stop.Duration
		}
		tw := gween.New(stop.From, stop.To, stop.Duration, ease.Linear)
		val, _ := tw.Update(dt)
		*stop.Target = val
	}
}
