package webmaster

import (
	"context"
	"fmt"
)

const report_chain_process = "chain.process"

// Rows is a materialized table, every record is aligned with Header.
type Rows struct {
	Header  []string
	Records [][]string
}

// Payload is the value that flows through the processing chain for a single
// table retrieval.
type Payload struct {
	Table Table
	// raw response body
	Body []byte
	// set by a row materializer
	Rows *Rows
	// set by a processor that persisted the payload
	Path string
}

// IsEmpty reports whether the payload carries nothing, a processor returning an
// empty payload ends the chain.
func (p Payload) IsEmpty() bool {
	return len(p.Body) == 0 && p.Rows == nil && p.Path == ""
}

// State is a read only snapshot of the client configuration taken when a
// retrieval starts.
type State struct {
	website   string
	language  string
	dateRange DateRange
}

func (s State) Website() string {
	return s.website
}

func (s State) Language() string {
	return s.language
}

func (s State) DateRange() DateRange {
	return s.dateRange
}

// NewState builds a snapshot, processors under test use it in place of a client.
func NewState(website, language string, dateRange DateRange) State {
	return State{website: website, language: language, dateRange: dateRange}
}

// Processor transforms a retrieved payload. Failures must be returned as
// errors, never as an empty payload.
type Processor interface {
	Process(ctx context.Context, state State, payload Payload) (Payload, error)
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx context.Context, state State, payload Payload) (Payload, error)

func (f ProcessorFunc) Process(ctx context.Context, state State, payload Payload) (Payload, error) {
	return f(ctx, state, payload)
}

// runChain applies processors in order, stopping at the first error or the
// first empty result.
func runChain(ctx context.Context, processors []Processor, state State, payload Payload) (Payload, error) {
	for i, p := range processors {
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}
		out, err := p.Process(ctx, state, payload)
		if err != nil {
			return Payload{}, fmt.Errorf("processor %d (%T): %w", i, p, err)
		}
		if out.IsEmpty() {
			return out, nil
		}
		payload = out
	}
	return payload, nil
}
