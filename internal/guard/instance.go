package guard

import (
	"context"
	"sync"

	"github.com/dtroode/assoc-server/internal/identity"
)

// Source is an observable identity.
type Source interface {
	State() identity.State
	Subscribe(fn func(identity.State)) (unsubscribe func())
}

// Navigator performs redirects for a mounted guard.
type Navigator interface {
	Redirect(to string)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(to string)

func (f NavigatorFunc) Redirect(to string) { f(to) }

// Instance is a guard mounted in front of one view. It redirects once per
// transition into Denied and renders once per transition into Authorized.
// Neither callback may call Close.
type Instance struct {
	guard  *Guard
	target Target
	nav    Navigator
	render func()

	ctx    context.Context
	cancel context.CancelFunc

	actMu    sync.Mutex
	mu       sync.Mutex
	gen      uint64
	decision Decision
	closed   bool
	settled  chan struct{}

	unsubscribe func()
	wg          sync.WaitGroup
}

// Mount starts guarding. The first evaluation runs against the current
// state of source.
func (g *Guard) Mount(ctx context.Context, source Source, t Target, nav Navigator, render func()) *Instance {
	ctx, cancel := context.WithCancel(ctx)
	if render == nil {
		render = func() {}
	}

	inst := &Instance{
		guard:    g,
		target:   t,
		nav:      nav,
		render:   render,
		ctx:      ctx,
		cancel:   cancel,
		decision: Decision{State: Checking},
		settled:  make(chan struct{}),
	}

	inst.mu.Lock()
	inst.unsubscribe = source.Subscribe(inst.onChange)
	inst.mu.Unlock()
	inst.onChange(source.State())

	return inst
}

func (i *Instance) onChange(state identity.State) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.gen++
	gen := i.gen

	if state.Loading {
		if i.decision.Terminal() {
			i.decision = Decision{State: Checking}
			i.settled = make(chan struct{})
		}
		i.mu.Unlock()
		return
	}
	i.wg.Add(1)
	i.mu.Unlock()

	go func() {
		defer i.wg.Done()
		i.evaluate(gen, state)
	}()
}

func (i *Instance) evaluate(gen uint64, state identity.State) {
	d := i.guard.Evaluate(i.ctx, i.target, state)

	i.actMu.Lock()
	defer i.actMu.Unlock()

	i.mu.Lock()
	if i.closed || gen != i.gen {
		i.mu.Unlock()
		return
	}
	prev := i.decision
	i.decision = d
	if d.Terminal() && !prev.Terminal() {
		close(i.settled)
	}
	i.mu.Unlock()

	switch {
	case d.State == Denied && prev.State != Denied:
		if i.nav != nil {
			i.nav.Redirect(d.Redirect)
		}
	case d.State == Authorized && prev.State != Authorized:
		i.render()
	}
}

// Decision returns the latest decision.
func (i *Instance) Decision() Decision {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.decision
}

// Wait blocks until the guard holds a terminal decision. If ctx ends first
// the result is a timeout denial.
func (i *Instance) Wait(ctx context.Context) Decision {
	for {
		i.mu.Lock()
		d, settled := i.decision, i.settled
		i.mu.Unlock()

		if d.Terminal() {
			return d
		}

		select {
		case <-settled:
		case <-ctx.Done():
			return deny(ReasonTimeout, CodeSecurityError, signInRedirect(CodeSecurityError, i.target.Path))
		}
	}
}

// Close unmounts the guard. In-flight evaluations finish but their results
// are ignored.
func (i *Instance) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	unsubscribe := i.unsubscribe
	i.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	i.cancel()
	i.wg.Wait()
}
