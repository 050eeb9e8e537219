package address

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrSuperseded is returned when a newer resolution for the same key started
// before this one finished. Its result must be discarded.
var ErrSuperseded = errors.New("location request superseded")

// Resolver runs "use my current location" requests. At most one request per
// key is in flight: starting a new one cancels the previous and bumps the
// key's generation, so only the latest result is ever applied.
type Resolver struct {
	geocoder Geocoder
	opts     LocateOptions
	lg       *zap.Logger

	mu       sync.Mutex
	seq      uint64
	inflight map[string]*attempt
}

type attempt struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewResolver creates a Resolver using geocoder for reverse lookups.
func NewResolver(geocoder Geocoder, lg *zap.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		opts:     DefaultLocateOptions,
		lg:       lg,
		inflight: map[string]*attempt{},
	}
}

// Resolve obtains the position from loc and turns it into an address State.
//
// On locator failure the returned State is empty (address cleared, map
// hidden) together with the error. Geocoding failures degrade to Placeholder
// without an error.
func (r *Resolver) Resolve(ctx context.Context, key string, loc Locator) (State, error) {
	ctx, gen := r.begin(ctx, key)
	defer r.finish(key, gen)

	locateCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	pos, err := loc.CurrentPosition(locateCtx, r.opts)
	cancel()
	if err != nil {
		if !r.current(key, gen) {
			return State{}, ErrSuperseded
		}
		var locErr *LocationError
		if !errors.As(err, &locErr) {
			code := CodeUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				code = CodeTimeout
			}
			locErr = &LocationError{Code: code}
		}
		return State{}, locErr
	}

	text := Placeholder
	if place, err := r.geocoder.Reverse(ctx, pos); err != nil {
		r.lg.Warn("Reverse geocoding failed, using placeholder",
			zap.Stringer("position", pos),
			zap.Error(err),
		)
	} else {
		text = Format(place)
	}

	if !r.current(key, gen) {
		return State{}, ErrSuperseded
	}
	return State{Text: text, ShowMap: true, Position: &pos}, nil
}

func (r *Resolver) begin(ctx context.Context, key string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.inflight[key]; ok {
		prev.cancel()
	}
	r.seq++
	r.inflight[key] = &attempt{gen: r.seq, cancel: cancel}
	return ctx, r.seq
}

func (r *Resolver) current(key string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.inflight[key]
	return ok && a.gen == gen
}

func (r *Resolver) finish(key string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.inflight[key]; ok && a.gen == gen {
		a.cancel()
		delete(r.inflight, key)
	}
}
