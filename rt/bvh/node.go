package bvh

import (
	"encoding/binary"
	"math"

	"github.com/zenith3d/zenith/rt/core"
)

// NodeSize is the encoded size of a LinearNode.
const NodeSize = 32

// LinearNode is one entry of the flattened tree, laid out for upload:
//
//	struct LinearNode {
//	   bounds_min : vec3<f32>; (12)
//	   bounds_max : vec3<f32>; (12)
//	   offset : i32;           (4)  primitive offset (leaf) or second child (interior)
//	   count : u16;            (2)  0 for interior nodes
//	   axis : u8;              (1)
//	   pad : u8;               (1)
//	}; -> 32 bytes
//
// The first child of an interior node always directly follows it.
type LinearNode struct {
	Bounds         core.AABBox
	Offset         int32
	PrimitiveCount uint16
	Axis           uint8
}

func (n *LinearNode) IsLeaf() bool {
	return n.PrimitiveCount > 0
}

// PrimitiveOffset is the first primitive of a leaf.
func (n *LinearNode) PrimitiveOffset() int {
	return int(n.Offset)
}

// SecondChild is the index of the right child of an interior node.
func (n *LinearNode) SecondChild() int {
	return int(n.Offset)
}

func (n *LinearNode) ToBytes() []byte {
	buf := make([]byte, NodeSize)

	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(n.Bounds.Minimum[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:16+i*4], math.Float32bits(n.Bounds.Maximum[i]))
	}

	binary.LittleEndian.PutUint32(buf[24:28], uint32(n.Offset))
	binary.LittleEndian.PutUint16(buf[28:30], n.PrimitiveCount)
	buf[30] = n.Axis

	return buf
}

// NodeFromBytes decodes a node written by ToBytes.
func NodeFromBytes(buf []byte) LinearNode {
	var n LinearNode
	for i := 0; i < 3; i++ {
		n.Bounds.Minimum[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
		n.Bounds.Maximum[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[12+i*4 : 16+i*4]))
	}
	n.Offset = int32(binary.LittleEndian.Uint32(buf[24:28]))
	n.PrimitiveCount = binary.LittleEndian.Uint16(buf[28:30])
	n.Axis = buf[30]
	return n
}

// EncodeNodes serializes a flattened tree back to back.
func EncodeNodes(nodes []LinearNode) []byte {
	out := make([]byte, 0, len(nodes)*NodeSize)
	for i := range nodes {
		out = append(out, nodes[i].ToBytes()...)
	}
	return out
}
