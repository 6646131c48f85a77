package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// MockGraphQL implements GraphQL for tests. Query marshals Response to JSON
// and unmarshals it into the caller's query struct, simulating how githubv4
// populates results. QueryFunc overrides everything when set, which is how
// pagination tests vary the response per call.
type MockGraphQL struct {
	Response  any
	Err       error
	QueryFunc func(ctx context.Context, q any, variables map[string]any) error
	CallCount int
}

func (m *MockGraphQL) Query(ctx context.Context, q any, variables map[string]any) error {
	m.CallCount++

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q, variables)
	}
	if m.Err != nil {
		return m.Err
	}
	if m.Response == nil {
		return nil
	}

	raw, err := json.Marshal(m.Response)
	if err != nil {
		return fmt.Errorf("mock: marshal response: %w", err)
	}
	if err := json.Unmarshal(raw, q); err != nil {
		return fmt.Errorf("mock: unmarshal response into query: %w", err)
	}
	return nil
}
