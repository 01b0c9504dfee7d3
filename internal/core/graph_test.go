package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/san-kum/boxclim/internal/dynamo"
)

func TestTopoSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges map[string][]string
		want  []string
	}{
		{
			name:  "no edges sorts by name",
			nodes: []string{"c", "a", "b"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "provider before dependent",
			nodes: []string{"b", "a"},
			edges: map[string][]string{"b": {"a"}},
			want:  []string{"b", "a"},
		},
		{
			name:  "diamond",
			nodes: []string{"d", "c", "b", "a"},
			edges: map[string][]string{"a": {"b", "c"}, "b": {"d"}, "c": {"d"}},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "edges to unknown nodes are ignored",
			nodes: []string{"a"},
			edges: map[string][]string{"a": {"ghost"}, "ghost": {"a"}},
			want:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topoSort(tt.nodes, tt.edges)
			if err != nil {
				t.Fatalf("topoSort: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopoSortCycle(t *testing.T) {
	_, err := topoSort([]string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	})
	if !errors.Is(err, dynamo.ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for s, want := range map[string]Kind{"get": KindGet, "SET": KindSet, " Dump ": KindDump} {
		got, err := ParseKind(s)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseKind("PUT"); !errors.Is(err, dynamo.ErrUnknownMessage) {
		t.Errorf("expected ErrUnknownMessage, got %v", err)
	}
}
