// Package node defines the byte layout of B-tree node pages.
//
// Only the leaf format is described. The table stores rows as flat page
// slots and does not build nodes yet; this package fixes the on-disk format
// that key-ordered storage will use.
package node

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/oda/rowdb/internal/pager"
	"github.com/oda/rowdb/internal/row"
)

// Common node header layout.
const (
	NodeTypeSize         = 1
	NodeTypeOffset       = 0
	IsRootSize           = 1
	IsRootOffset         = NodeTypeSize
	ParentPointerSize    = 4
	ParentPointerOffset  = IsRootOffset + IsRootSize
	CommonNodeHeaderSize = NodeTypeSize + IsRootSize + ParentPointerSize
)

// Leaf node header layout.
const (
	LeafNodeNumCellsSize   = 4
	LeafNodeNumCellsOffset = CommonNodeHeaderSize
	LeafNodeHeaderSize     = CommonNodeHeaderSize + LeafNodeNumCellsSize
)

// Leaf node body layout.
const (
	LeafNodeKeySize       = 4
	LeafNodeKeyOffset     = 0
	LeafNodeValueSize     = row.Size
	LeafNodeValueOffset   = LeafNodeKeyOffset + LeafNodeKeySize
	LeafNodeCellSize      = LeafNodeKeySize + LeafNodeValueSize
	LeafNodeSpaceForCells = pager.PageSize - LeafNodeHeaderSize
	LeafNodeMaxCells      = LeafNodeSpaceForCells / LeafNodeCellSize // 13
)

// NodeType is the tag stored in the first byte of a node page.
type NodeType uint8

const (
	// NodeTypeInternal represents an internal (branch) node.
	NodeTypeInternal NodeType = 0
	// NodeTypeLeaf represents a leaf node.
	NodeTypeLeaf NodeType = 1
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeInternal:
		return "internal"
	case NodeTypeLeaf:
		return "leaf"
	default:
		return fmt.Sprintf("NodeType(%d)", uint8(t))
	}
}

// ErrUnknownNodeType is returned by Classify for an unrecognised tag.
var ErrUnknownNodeType = errors.New("unknown node type")

// Classify returns the node type tag of a page.
func Classify(data []byte) (NodeType, error) {
	if len(data) < CommonNodeHeaderSize {
		return 0, fmt.Errorf("node header needs %d bytes, got %d", CommonNodeHeaderSize, len(data))
	}
	t := NodeType(data[NodeTypeOffset])
	switch t {
	case NodeTypeInternal, NodeTypeLeaf:
		return t, nil
	default:
		return t, fmt.Errorf("%w: %d", ErrUnknownNodeType, uint8(t))
	}
}

func isRoot(data []byte) bool {
	return data[IsRootOffset] != 0
}

func setRoot(data []byte, root bool) {
	var b byte
	if root {
		b = 1
	}
	data[IsRootOffset] = b
}

func parent(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data[ParentPointerOffset : ParentPointerOffset+ParentPointerSize])
}

func setParent(data []byte, page uint32) {
	binary.LittleEndian.PutUint32(data[ParentPointerOffset:ParentPointerOffset+ParentPointerSize], page)
}
