package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        Params
	}{
		{name: "defaults", want: Params{Page: 1, Limit: 10}},
		{name: "negative page", page: -3, limit: 5, want: Params{Page: 1, Limit: 5}},
		{name: "clamped", page: 2, limit: 500, want: Params{Page: 2, Limit: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.page, tt.limit, 10, 50)
			if got != tt.want {
				t.Fatalf("expected %+v got %+v", tt.want, got)
			}
		})
	}
}

func TestMetaFor(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	meta := p.MetaFor(25)
	if meta.TotalPages != 3 || !meta.HasNextPage || !meta.HasPrevPage {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if p.Offset() != 10 {
		t.Fatalf("expected offset 10 got %d", p.Offset())
	}

	empty := Params{Page: 1, Limit: 10}.MetaFor(0)
	if empty.TotalPages != 0 || empty.HasNextPage || empty.HasPrevPage {
		t.Fatalf("unexpected empty meta %+v", empty)
	}
}
