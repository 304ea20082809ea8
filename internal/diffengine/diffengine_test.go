package diffengine

import (
	"testing"

	"github.com/jra3/orgfs/internal/orgparse"
)

func hl(id, raw string) *orgparse.Headline {
	return &orgparse.Headline{
		Properties: map[string]string{"id": id},
		Raw:        raw,
	}
}

func TestComputeDetectsAddedRemovedChanged(t *testing.T) {
	old := []*orgparse.Headline{hl("a", "A"), hl("b", "B")}
	new := []*orgparse.Headline{hl("a", "A2"), hl("c", "C")}

	d, ok := Compute(old, new)
	if !ok {
		t.Fatalf("Compute rejected a diff that should be accepted")
	}
	if len(d.Added) != 1 || d.Added[0].ID() != "c" {
		t.Fatalf("expected c to be added, got %v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0].ID() != "b" {
		t.Fatalf("expected b to be removed, got %v", d.Removed)
	}
	if _, ok := d.Changed["a"]; !ok {
		t.Fatalf("expected a to be marked changed")
	}
}

func TestComputeRejectsMassDelete(t *testing.T) {
	old := []*orgparse.Headline{hl("a", "A"), hl("b", "B")}
	var new []*orgparse.Headline // empty: would remove every known id

	_, ok := Compute(old, new)
	if ok {
		t.Fatalf("expected Compute to reject a diff removing every known id")
	}
}

func TestComputeNoDiffWhenUnchanged(t *testing.T) {
	old := []*orgparse.Headline{hl("a", "A"), hl("b", "B")}
	new := []*orgparse.Headline{hl("a", "A"), hl("b", "B")}

	d, ok := Compute(old, new)
	if !ok {
		t.Fatalf("Compute rejected an identical diff")
	}
	if len(d.Added) != 0 || len(d.Removed) != 0 || len(d.Changed) != 0 || len(d.Moves) != 0 {
		t.Fatalf("expected an empty diff, got %+v", d)
	}
}

func TestComputeDetectsSingleMoveWithAnchors(t *testing.T) {
	// old order: t1, t2, t3 — reordered to t3, t1, t2 (S5 in spec.md).
	old := []*orgparse.Headline{hl("t1", "T1"), hl("t2", "T2"), hl("t3", "T3")}
	new := []*orgparse.Headline{hl("t3", "T3"), hl("t1", "T1"), hl("t2", "T2")}

	d, ok := Compute(old, new)
	if !ok {
		t.Fatalf("Compute rejected a reorder-only diff")
	}
	if len(d.Moves) != 1 {
		t.Fatalf("expected exactly one move, got %d: %+v", len(d.Moves), d.Moves)
	}
	mv := d.Moves[0]
	if mv.ID != "t3" {
		t.Fatalf("expected t3 to be the moved id, got %q", mv.ID)
	}
	if mv.Before != nil {
		t.Fatalf("expected no predecessor anchor, got %q", *mv.Before)
	}
	if mv.After == nil || *mv.After != "t1" {
		t.Fatalf("expected successor anchor t1, got %v", mv.After)
	}
}

func TestComputeNoMovesWhenOrderUnchanged(t *testing.T) {
	old := []*orgparse.Headline{hl("t1", "T1"), hl("t2", "T2")}
	new := []*orgparse.Headline{hl("t1", "T1"), hl("t2", "T2")}

	d, _ := Compute(old, new)
	if len(d.Moves) != 0 {
		t.Fatalf("expected no moves, got %+v", d.Moves)
	}
}
