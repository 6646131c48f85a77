package client

import (
	"context"
	"testing"
)

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		in      string
		owner   string
		name    string
		wantErr bool
	}{
		{"acme/api", "acme", "api", false},
		{"acme/", "", "", true},
		{"/api", "", "", true},
		{"acme", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		owner, name, err := SplitRepo(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitRepo(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if owner != tt.owner || name != tt.name {
			t.Errorf("SplitRepo(%q) = %q/%q, want %q/%q", tt.in, owner, name, tt.owner, tt.name)
		}
	}
}

func TestMockGraphQLRoundTrip(t *testing.T) {
	type query struct {
		Viewer struct {
			Login string
		}
	}

	mock := &MockGraphQL{Response: map[string]any{"Viewer": map[string]any{"Login": "octocat"}}}

	var q query
	if err := mock.Query(context.Background(), &q, nil); err != nil {
		t.Fatal(err)
	}
	if q.Viewer.Login != "octocat" {
		t.Errorf("Login = %q, want octocat", q.Viewer.Login)
	}
	if mock.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount)
	}
}
