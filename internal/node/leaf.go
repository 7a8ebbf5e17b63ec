package node

import (
	"encoding/binary"
	"fmt"
)

// LeafNode provides operations on a leaf node's raw page bytes.
// The layout is:
//   - Header: 10 bytes (type, is_root, parent pointer, num_cells)
//   - Cells: [key uint32 | row bytes] × num_cells, starting at offset 10
//
// 13 cells of 296 bytes fit in a 4096-byte page.
type LeafNode struct {
	data []byte
}

// NewLeafNode wraps a page buffer. If init is true the header is reset to
// an empty, non-root leaf with no parent.
func NewLeafNode(data []byte, init bool) *LeafNode {
	n := &LeafNode{data: data}
	if init {
		data[NodeTypeOffset] = byte(NodeTypeLeaf)
		setRoot(data, false)
		setParent(data, 0)
		n.SetNumCells(0)
	}
	return n
}

// Type returns the node type tag.
func (n *LeafNode) Type() NodeType {
	return NodeType(n.data[NodeTypeOffset])
}

// IsRoot reports the root flag.
func (n *LeafNode) IsRoot() bool {
	return isRoot(n.data)
}

// SetRoot sets the root flag.
func (n *LeafNode) SetRoot(root bool) {
	setRoot(n.data, root)
}

// Parent returns the parent page number.
func (n *LeafNode) Parent() uint32 {
	return parent(n.data)
}

// SetParent sets the parent page number.
func (n *LeafNode) SetParent(page uint32) {
	setParent(n.data, page)
}

// NumCells returns the number of cells in this node.
func (n *LeafNode) NumCells() uint32 {
	return binary.LittleEndian.Uint32(n.data[LeafNodeNumCellsOffset : LeafNodeNumCellsOffset+LeafNodeNumCellsSize])
}

// SetNumCells stores the cell count.
func (n *LeafNode) SetNumCells(count uint32) {
	binary.LittleEndian.PutUint32(n.data[LeafNodeNumCellsOffset:LeafNodeNumCellsOffset+LeafNodeNumCellsSize], count)
}

// cellOffset returns the byte offset of cell i.
func cellOffset(i int) int {
	return LeafNodeHeaderSize + i*LeafNodeCellSize
}

func checkCell(i int) error {
	if i < 0 || i >= LeafNodeMaxCells {
		return fmt.Errorf("cell %d out of range [0, %d)", i, LeafNodeMaxCells)
	}
	return nil
}

// Cell returns the raw bytes of cell i, aliasing the page.
func (n *LeafNode) Cell(i int) ([]byte, error) {
	if err := checkCell(i); err != nil {
		return nil, err
	}
	off := cellOffset(i)
	return n.data[off : off+LeafNodeCellSize], nil
}

// Key returns the key of cell i.
func (n *LeafNode) Key(i int) (uint32, error) {
	cell, err := n.Cell(i)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(cell[LeafNodeKeyOffset : LeafNodeKeyOffset+LeafNodeKeySize]), nil
}

// SetKey sets the key of cell i.
func (n *LeafNode) SetKey(i int, key uint32) error {
	cell, err := n.Cell(i)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(cell[LeafNodeKeyOffset:LeafNodeKeyOffset+LeafNodeKeySize], key)
	return nil
}

// Value returns a copy of the serialized row stored in cell i.
func (n *LeafNode) Value(i int) ([]byte, error) {
	cell, err := n.Cell(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, LeafNodeValueSize)
	copy(out, cell[LeafNodeValueOffset:])
	return out, nil
}

// SetValue copies a serialized row into cell i.
func (n *LeafNode) SetValue(i int, value []byte) error {
	if len(value) != LeafNodeValueSize {
		return fmt.Errorf("value is %d bytes, want %d", len(value), LeafNodeValueSize)
	}
	cell, err := n.Cell(i)
	if err != nil {
		return err
	}
	copy(cell[LeafNodeValueOffset:], value)
	return nil
}

// CopyCell copies cell srcIdx of src into cell dstIdx of dst.
func CopyCell(dst *LeafNode, dstIdx int, src *LeafNode, srcIdx int) error {
	from, err := src.Cell(srcIdx)
	if err != nil {
		return err
	}
	to, err := dst.Cell(dstIdx)
	if err != nil {
		return err
	}
	copy(to, from)
	return nil
}
