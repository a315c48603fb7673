package server

import (
	"encoding/json"

	"github.com/tfpickard/tom.monster/simulation"
)

// ControlMessage is the envelope every collaborator → core message arrives
// in, per spec.md §6. Type selects which payload fields are meaningful.
type ControlMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope every core → collaborator message is sent
// in.
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Simulation control payloads.
type initPayload struct {
	Width     int                   `json:"width"`
	Height    int                   `json:"height"`
	Lattice   string                `json:"lattice"`
	Rule      string                `json:"rule"`
	Toroidal  bool                  `json:"toroidal"`
	MaxPeriod int                   `json:"maxPeriod"`
	Seed      simulation.CellBuffer `json:"seed,omitempty"`
}

type runPayload struct {
	Speed float64 `json:"speed"`
}

type randomizePayload struct {
	Density float64 `json:"density"`
}

type loadPayload struct {
	Cells simulation.CellBuffer `json:"cells"`
}

type benchmarkPayload struct {
	DurationMS int64 `json:"durationMs"`
}

type togglePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type benchmarkResult struct {
	GenerationsPerSecond float64 `json:"generationsPerSecond"`
}

// GA control payloads.
type gaRunPayload struct {
	Config     gaConfigPayload `json:"config"`
	Iterations int             `json:"iterations"`
	SeedWindow int             `json:"seedWindow"`
}

type gaConfigPayload struct {
	PopulationSize int     `json:"populationSize"`
	MutationRate   float64 `json:"mutationRate"`
	EliteCount     int     `json:"eliteCount"`
	MaxGenerations int     `json:"maxGenerations"`
	GridSize       int     `json:"gridSize"`
	Lattice        string  `json:"lattice"`
	Rule           string  `json:"rule"`
	Toroidal       bool    `json:"toroidal"`
	BorderPenalty  float64 `json:"borderPenalty"`
}
