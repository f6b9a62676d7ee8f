package actor

import (
	"reflect"
	"testing"

	"github.com/devshelf/devshelf/internal/model"
)

func TestDeriveIntegrations(t *testing.T) {
	known := map[string]string{"remix": "id1", "vite": "id2", "tailwind": "id3"}

	cases := []struct {
		name string
		page model.Page
		want []string
	}{
		{
			name: "dependencies only",
			page: model.Page{Dependencies: map[string]string{"remix": "^2", "react": "^18"}},
			want: []string{"remix"},
		},
		{
			name: "configs only",
			page: model.Page{Configs: []string{"vite", "eslint"}},
			want: []string{"vite"},
		},
		{
			name: "overlap collapses to one entry, sorted",
			page: model.Page{
				Dependencies: map[string]string{"vite": "^5", "tailwind": "^3"},
				Configs:      []string{"vite", "remix"},
			},
			want: []string{"remix", "tailwind", "vite"},
		},
		{
			name: "nothing known",
			page: model.Page{Dependencies: map[string]string{"left-pad": "1.0"}},
			want: []string{},
		},
		{
			name: "empty page",
			page: model.Page{},
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveIntegrations(&tc.page, known)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("deriveIntegrations = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeriveIntegrations_EmptyIndex(t *testing.T) {
	page := model.Page{Dependencies: map[string]string{"remix": "^2"}}
	got := deriveIntegrations(&page, map[string]string{})
	if len(got) != 0 {
		t.Fatalf("deriveIntegrations = %v, want empty", got)
	}
}
