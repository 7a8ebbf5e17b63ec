package node

import (
	"errors"
	"testing"

	"github.com/oda/rowdb/internal/pager"
	"github.com/oda/rowdb/internal/row"
)

func TestLayoutConstants(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"CommonNodeHeaderSize", CommonNodeHeaderSize, 6},
		{"ParentPointerOffset", ParentPointerOffset, 2},
		{"LeafNodeNumCellsOffset", LeafNodeNumCellsOffset, 6},
		{"LeafNodeHeaderSize", LeafNodeHeaderSize, 10},
		{"LeafNodeCellSize", LeafNodeCellSize, 296},
		{"LeafNodeSpaceForCells", LeafNodeSpaceForCells, 4086},
		{"LeafNodeMaxCells", LeafNodeMaxCells, 13},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, tt.got)
		}
	}
}

func TestLeafNodeBasic(t *testing.T) {
	data := make([]byte, pager.PageSize)
	leaf := NewLeafNode(data, true)

	if leaf.Type() != NodeTypeLeaf {
		t.Error("expected leaf type")
	}
	if leaf.NumCells() != 0 {
		t.Error("expected 0 cells")
	}
	if leaf.IsRoot() {
		t.Error("new leaf should not be root")
	}

	leaf.SetRoot(true)
	leaf.SetParent(42)
	leaf.SetNumCells(3)

	if !leaf.IsRoot() || leaf.Parent() != 42 || leaf.NumCells() != 3 {
		t.Errorf("header round trip failed: root=%v parent=%d cells=%d",
			leaf.IsRoot(), leaf.Parent(), leaf.NumCells())
	}

	// Reading an existing page keeps its header.
	again := NewLeafNode(data, false)
	if again.NumCells() != 3 || again.Parent() != 42 {
		t.Error("wrapping without init should preserve the header")
	}
}

func TestLeafNodeCells(t *testing.T) {
	leaf := NewLeafNode(make([]byte, pager.PageSize), true)

	value, err := row.Serialize(row.Row{ID: 5, Username: "alice", Email: "alice@x.com"})
	if err != nil {
		t.Fatal(err)
	}

	last := LeafNodeMaxCells - 1
	if err := leaf.SetKey(last, 5); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	if err := leaf.SetValue(last, value); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	key, err := leaf.Key(last)
	if err != nil || key != 5 {
		t.Errorf("expected key 5, got %d (%v)", key, err)
	}
	got, err := leaf.Value(last)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	r, err := row.Deserialize(got)
	if err != nil || r.Username != "alice" {
		t.Errorf("unexpected row %+v (%v)", r, err)
	}

	if _, err := leaf.Cell(LeafNodeMaxCells); err == nil {
		t.Error("expected error for cell past the last slot")
	}
	if err := leaf.SetValue(0, value[:10]); err == nil {
		t.Error("expected error for a short value")
	}
}

func TestCopyCell(t *testing.T) {
	src := NewLeafNode(make([]byte, pager.PageSize), true)
	dst := NewLeafNode(make([]byte, pager.PageSize), true)

	src.SetKey(2, 99)
	if err := CopyCell(dst, 0, src, 2); err != nil {
		t.Fatalf("CopyCell failed: %v", err)
	}
	if key, _ := dst.Key(0); key != 99 {
		t.Errorf("expected copied key 99, got %d", key)
	}
}

func TestClassify(t *testing.T) {
	data := make([]byte, pager.PageSize)
	NewLeafNode(data, true)

	if typ, err := Classify(data); err != nil || typ != NodeTypeLeaf {
		t.Errorf("expected leaf, got %v (%v)", typ, err)
	}

	data[NodeTypeOffset] = 7
	if _, err := Classify(data); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}
	if _, err := Classify(data[:3]); err == nil {
		t.Error("expected error for short header")
	}
}
