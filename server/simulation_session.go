package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/simulation"
)

// simulationSession owns one websocket connection's simulation.State and the
// goroutine driving its Run loop, mirroring the one-worker-per-connection
// shape the teacher used for its own per-client estimator goroutines.
type simulationSession struct {
	mu     sync.Mutex
	state  *simulation.State
	config simulation.Config

	cancelRun context.CancelFunc
	frames    chan simulation.Frame

	out chan<- ServerMessage
}

func newSimulationSession(out chan<- ServerMessage) *simulationSession {
	return &simulationSession{out: out}
}

func (sess *simulationSession) handle(msg ControlMessage) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch msg.Type {
	case "init":
		return sess.handleInit(msg.Data)
	case "step":
		return sess.handleStep()
	case "run":
		return sess.handleRun(msg.Data)
	case "pause":
		return sess.requireState(func() error { sess.state.Pause(); return nil })
	case "resume":
		return sess.requireState(func() error { sess.state.Resume(); return nil })
	case "toggle":
		return sess.handleToggle(msg.Data)
	case "randomize":
		return sess.handleRandomize(msg.Data)
	case "load":
		return sess.handleLoad(msg.Data)
	case "benchmark":
		return sess.handleBenchmark(msg.Data)
	default:
		return fmt.Errorf("simulation session: unknown message type %q", msg.Type)
	}
}

func (sess *simulationSession) requireState(fn func() error) error {
	if sess.state == nil {
		return fmt.Errorf("simulation session: not initialized")
	}
	return fn()
}

func (sess *simulationSession) handleInit(data json.RawMessage) error {
	var p initPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	lattice := rule.Square
	if p.Lattice == "hex" {
		lattice = rule.Hex
	}
	parsedRule := rule.DefaultSquareRule
	if p.Rule != "" {
		r, err := rule.Parse(p.Rule)
		if err != nil {
			return err
		}
		parsedRule = r
	}

	maxPeriod := p.MaxPeriod
	if maxPeriod <= 0 {
		maxPeriod = 200
	}

	sess.config = simulation.Config{
		Lattice:   lattice,
		Width:     p.Width,
		Height:    p.Height,
		Rule:      parsedRule,
		Toroidal:  p.Toroidal,
		MaxPeriod: maxPeriod,
	}

	var initializer simulation.Initializer
	if len(p.Seed) > 0 {
		initializer = func(current []byte) {
			n := len(p.Seed)
			if n > len(current) {
				n = len(current)
			}
			copy(current, p.Seed[:n])
		}
	}

	st, err := simulation.New(sess.config, initializer)
	if err != nil {
		return err
	}

	sess.stopRun()
	sess.state = st
	sess.publish("initialized", sess.state.CurrentFrame())
	return nil
}

func (sess *simulationSession) handleStep() error {
	return sess.requireState(func() error {
		frame := sess.state.Step()
		sess.publish("frame", frame)
		return nil
	})
}

func (sess *simulationSession) handleToggle(data json.RawMessage) error {
	return sess.requireState(func() error {
		var p togglePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		sess.state.Toggle(p.X, p.Y)
		sess.publish("frame", sess.currentFrame())
		return nil
	})
}

func (sess *simulationSession) handleRandomize(data json.RawMessage) error {
	return sess.requireState(func() error {
		var p randomizePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		sess.state.Randomize(p.Density)
		sess.publish("frame", sess.currentFrame())
		return nil
	})
}

func (sess *simulationSession) handleLoad(data json.RawMessage) error {
	return sess.requireState(func() error {
		var p loadPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		sess.state.ApplySeed(p.Cells)
		sess.publish("frame", sess.currentFrame())
		return nil
	})
}

func (sess *simulationSession) handleRun(data json.RawMessage) error {
	return sess.requireState(func() error {
		var p runPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.Speed <= 0 {
			p.Speed = 10
		}

		sess.stopRun()
		ctx, cancel := context.WithCancel(context.Background())
		sess.cancelRun = cancel
		sess.frames = make(chan simulation.Frame, 4)

		go sess.pumpFrames(sess.frames)
		go sess.state.Run(ctx, p.Speed, sess.frames)
		return nil
	})
}

func (sess *simulationSession) pumpFrames(frames <-chan simulation.Frame) {
	for frame := range frames {
		sess.publish("frame", frame)
	}
}

func (sess *simulationSession) handleBenchmark(data json.RawMessage) error {
	return sess.requireState(func() error {
		var p benchmarkPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		duration := time.Duration(p.DurationMS) * time.Millisecond
		if duration <= 0 {
			duration = time.Second
		}

		deadline := time.Now().Add(duration)
		steps := 0
		for time.Now().Before(deadline) {
			sess.state.Step()
			steps++
		}
		elapsed := duration.Seconds()
		var perSecond float64
		if elapsed > 0 {
			perSecond = float64(steps) / elapsed
		}
		sess.publish("benchmarkResult", benchmarkResult{GenerationsPerSecond: perSecond})
		return nil
	})
}

func (sess *simulationSession) stopRun() {
	if sess.cancelRun != nil {
		sess.cancelRun()
		sess.cancelRun = nil
	}
}

func (sess *simulationSession) currentFrame() simulation.Frame {
	return sess.state.CurrentFrame()
}

func (sess *simulationSession) publish(kind string, data interface{}) {
	select {
	case sess.out <- ServerMessage{Type: kind, Data: data}:
	default:
	}
}

func (sess *simulationSession) close() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.stopRun()
}
