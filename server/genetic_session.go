package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tfpickard/tom.monster/genetic_search"
	"github.com/tfpickard/tom.monster/rule"
)

// geneticSession owns, at most, one in-flight genetic_search.Run per
// websocket connection. A second "run" while one is active is rejected
// rather than queued, since a single connection represents one operator.
type geneticSession struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	out    chan<- ServerMessage
}

func newGeneticSession(out chan<- ServerMessage) *geneticSession {
	return &geneticSession{out: out}
}

func (sess *geneticSession) handle(msg ControlMessage) error {
	switch msg.Type {
	case "run":
		return sess.handleRun(msg.Data)
	case "cancel":
		return sess.handleCancel()
	default:
		return fmt.Errorf("genetic session: unknown message type %q", msg.Type)
	}
}

func (sess *geneticSession) handleRun(data json.RawMessage) error {
	sess.mu.Lock()
	if sess.cancel != nil {
		sess.mu.Unlock()
		return fmt.Errorf("genetic session: a run is already in progress")
	}

	var p gaRunPayload
	if err := json.Unmarshal(data, &p); err != nil {
		sess.mu.Unlock()
		return err
	}

	lattice := rule.Square
	if p.Config.Lattice == "hex" {
		lattice = rule.Hex
	}

	cfg := genetic_search.Config{
		PopulationSize: p.Config.PopulationSize,
		MutationRate:   p.Config.MutationRate,
		EliteCount:     p.Config.EliteCount,
		MaxGenerations: p.Config.MaxGenerations,
		GridSize:       p.Config.GridSize,
		Lattice:        lattice,
		Rule:           p.Config.Rule,
		Toroidal:       p.Config.Toroidal,
		BorderPenalty:  p.Config.BorderPenalty,
	}
	opts := genetic_search.RunOptions{
		Iterations: p.Iterations,
		SeedWindow: p.SeedWindow,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.mu.Unlock()

	go sess.run(ctx, cfg, opts)
	return nil
}

func (sess *geneticSession) run(ctx context.Context, cfg genetic_search.Config, opts genetic_search.RunOptions) {
	defer func() {
		sess.mu.Lock()
		sess.cancel = nil
		sess.mu.Unlock()
	}()

	onProgress := func(e genetic_search.ProgressEvent) {
		sess.publish("progress", e)
	}
	shouldCancel := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	result, err := genetic_search.Run(ctx, cfg, opts, onProgress, shouldCancel)
	if err != nil {
		sess.publish("error", err.Error())
		return
	}
	if result == nil {
		sess.publish("cancelled", nil)
		return
	}
	sess.publish("result", result)
}

func (sess *geneticSession) handleCancel() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cancel != nil {
		sess.cancel()
	}
	return nil
}

func (sess *geneticSession) publish(kind string, data interface{}) {
	select {
	case sess.out <- ServerMessage{Type: kind, Data: data}:
	default:
	}
}

func (sess *geneticSession) close() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cancel != nil {
		sess.cancel()
	}
}
