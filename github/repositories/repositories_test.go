package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ip-san/devsync/github/client"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func repoPage(hasNext bool, cursor string, names ...string) map[string]any {
	nodes := make([]map[string]any, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, map[string]any{
			"Name":  name,
			"Owner": map[string]any{"Login": "acme"},
		})
	}
	return map[string]any{
		"Organization": map[string]any{
			"Repositories": map[string]any{
				"Nodes":    nodes,
				"PageInfo": map[string]any{"HasNextPage": hasNext, "EndCursor": cursor},
			},
		},
	}
}

func TestList(t *testing.T) {
	mock := &client.MockGraphQL{Response: repoPage(false, "", "api", "web")}

	repos, err := List(context.Background(), mock, "acme", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != 2 || repos[0] != "acme/api" || repos[1] != "acme/web" {
		t.Errorf("repos = %v", repos)
	}
}

func TestListPaginates(t *testing.T) {
	pages := []map[string]any{
		repoPage(true, "cursor-1", "api"),
		repoPage(false, "", "web"),
	}

	mock := &client.MockGraphQL{}
	mock.QueryFunc = func(_ context.Context, q any, variables map[string]any) error {
		raw, err := json.Marshal(pages[mock.CallCount-1])
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, q)
	}

	repos, err := List(context.Background(), mock, "acme", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != 2 || mock.CallCount != 2 {
		t.Errorf("repos = %v calls = %d, want 2 repos over 2 calls", repos, mock.CallCount)
	}
}

func TestListError(t *testing.T) {
	cause := errors.New("organization not found")
	mock := &client.MockGraphQL{Err: cause}

	if _, err := List(context.Background(), mock, "acme", testLogger); !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped %v", err, cause)
	}
}
