// Package scene loads JSON drawing scripts and plays them through a client.
package scene

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/inkrelay/internal/client"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

var (
	ErrUnknownOp = errors.New("scene: unknown op")
	ErrArity     = errors.New("scene: wrong arguments")
)

type Scene struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

type Step struct {
	Op   string `json:"op"`
	Args []int  `json:"args,omitempty"`
	Text string `json:"text,omitempty"`
}

// ValidationError lists every problem found in a scene document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "scene: invalid document:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Load reads and validates a scene.
func Load(r io.Reader) (Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Scene{}, fmt.Errorf("scene: read: %w", err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Scene{}, &ValidationError{Problems: []string{err.Error()}}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return Scene{}, &ValidationError{Problems: problems}
	}
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("scene: decode: %w", err)
	}
	if err := s.Check(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Check verifies every step names a known op with the right argument count.
func (s Scene) Check() error {
	var problems []string
	for i, st := range s.Steps {
		if err := st.check(); err != nil {
			problems = append(problems, fmt.Sprintf("steps.%d: %v", i, err))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (st Step) check() error {
	o, ok := ops[st.Op]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownOp, st.Op)
	}
	if len(st.Args) != o.arity {
		return fmt.Errorf("%w: %s takes %d integers, got %d", ErrArity, st.Op, o.arity, len(st.Args))
	}
	if o.text && st.Text == "" {
		return fmt.Errorf("%w: %s needs text", ErrArity, st.Op)
	}
	return nil
}

// Result is the reply to one query step.
type Result struct {
	Step  int    `json:"step"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// RunStep executes one step and returns its reply, empty for steps without one.
func RunStep(ctx context.Context, c *client.Client, st Step) (string, error) {
	if err := st.check(); err != nil {
		return "", err
	}
	return ops[st.Op].run(ctx, c, st)
}

// Play runs the steps in order and stops at the first error.
func Play(ctx context.Context, c *client.Client, s Scene) ([]Result, error) {
	log.Info().Str("scene", s.Name).Int("steps", len(s.Steps)).Msg("scene.Play start")
	var results []Result
	for i, st := range s.Steps {
		v, err := RunStep(ctx, c, st)
		if err != nil {
			return results, fmt.Errorf("scene %q step %d (%s): %w", s.Name, i, st.Op, err)
		}
		if v != "" {
			results = append(results, Result{Step: i, Op: st.Op, Value: v})
		}
	}
	log.Info().Str("scene", s.Name).Int("results", len(results)).Msg("scene.Play done")
	return results, nil
}
