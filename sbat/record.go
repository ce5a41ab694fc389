// Copyright 2024 The amacore Authors
// This file is part of the amacore engine.
//
// The amacore engine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The amacore engine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the amacore engine. If not, see <http://www.gnu.org/licenses/>.

package sbat

import (
	"encoding/binary"
	"errors"
)

// nodeKey packs a (namespace, depth, partial path) triple into the storage
// key used under the contractstate_tree column family (§4.D). depth is
// the number of significant path bits this node's identity carries; any
// path that routes through the node truncates to the same prefix, which is
// exactly the point: it is the key an ancestor uses to address this node.
func nodeKey(namespace string, depth uint16, path [32]byte) []byte {
	prefix := truncateBits(path, depth)
	out := make([]byte, 0, len(namespace)+1+2+len(prefix))
	out = append(out, []byte(namespace)...)
	out = append(out, ':')
	var depthBuf [2]byte
	binary.BigEndian.PutUint16(depthBuf[:], depth)
	out = append(out, depthBuf[:]...)
	out = append(out, prefix...)
	return out
}

// rootPointerKey is the well-known per-namespace key recording where that
// namespace's current subtree root physically lives, since a
// singleton-leaf namespace compacts its root to whatever depth the leaf
// was first inserted at, not depth zero.
func rootPointerKey(namespace string) []byte {
	return append([]byte("root:"), []byte(namespace)...)
}

// childPointer addresses one subtree: the depth its topmost record lives
// at, a representative path (the full 256-bit path of some leaf beneath
// it, whose first depth bits are the record's storage prefix), and the
// subtree's commitment. hash == ZeroHash means the subtree is empty and
// no record exists. The representative path is what makes every node
// addressable from its parent even when the trie skips runs of bits: a
// query path may diverge from the subtree's prefix above depth, and the
// parent can still load the record.
type childPointer struct {
	depth uint16
	repr  [32]byte
	hash  [32]byte
}

// nodeRecord is either a leaf ({key, value}, committing to leafHash(key,
// value)) or an internal node branching on bit `depth` of the path, with
// a childPointer per side (§4.D sibling collapse: a side with no subtree
// carries ZeroHash).
type nodeRecord struct {
	isLeaf bool

	leafKey   []byte
	leafValue []byte

	left  childPointer
	right childPointer
}

func (r *nodeRecord) commitment() [32]byte {
	if r.isLeaf {
		return leafHash(r.leafKey, r.leafValue)
	}
	return internalHash(r.left.hash, r.right.hash)
}

func (r *nodeRecord) child(bit byte) childPointer {
	if bit == 0 {
		return r.left
	}
	return r.right
}

func (r *nodeRecord) setChild(bit byte, p childPointer) {
	if bit == 0 {
		r.left = p
	} else {
		r.right = p
	}
}

func encodeRecord(r *nodeRecord) []byte {
	if r.isLeaf {
		out := make([]byte, 0, 1+2+len(r.leafKey)+4+len(r.leafValue))
		out = append(out, 0)
		var klen [2]byte
		binary.BigEndian.PutUint16(klen[:], uint16(len(r.leafKey)))
		out = append(out, klen[:]...)
		out = append(out, r.leafKey...)
		var vlen [4]byte
		binary.BigEndian.PutUint32(vlen[:], uint32(len(r.leafValue)))
		out = append(out, vlen[:]...)
		out = append(out, r.leafValue...)
		return out
	}
	out := make([]byte, 0, 1+2*pointerSize)
	out = append(out, 1)
	out = appendPointer(out, r.left)
	out = appendPointer(out, r.right)
	return out
}

const pointerSize = 2 + 32 + 32

func appendPointer(out []byte, p childPointer) []byte {
	var depthBuf [2]byte
	binary.BigEndian.PutUint16(depthBuf[:], p.depth)
	out = append(out, depthBuf[:]...)
	out = append(out, p.repr[:]...)
	out = append(out, p.hash[:]...)
	return out
}

func readPointer(b []byte) childPointer {
	var p childPointer
	p.depth = binary.BigEndian.Uint16(b[:2])
	copy(p.repr[:], b[2:34])
	copy(p.hash[:], b[34:66])
	return p
}

var errTruncatedRecord = errors.New("sbat: truncated node record")

func decodeRecord(b []byte) (*nodeRecord, error) {
	if len(b) < 1 {
		return nil, errTruncatedRecord
	}
	switch b[0] {
	case 0:
		if len(b) < 3 {
			return nil, errTruncatedRecord
		}
		klen := int(binary.BigEndian.Uint16(b[1:3]))
		if len(b) < 3+klen+4 {
			return nil, errTruncatedRecord
		}
		key := append([]byte(nil), b[3:3+klen]...)
		vlen := int(binary.BigEndian.Uint32(b[3+klen : 3+klen+4]))
		if len(b) < 3+klen+4+vlen {
			return nil, errTruncatedRecord
		}
		value := append([]byte(nil), b[3+klen+4:3+klen+4+vlen]...)
		return &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}, nil
	case 1:
		if len(b) != 1+2*pointerSize {
			return nil, errTruncatedRecord
		}
		return &nodeRecord{
			left:  readPointer(b[1 : 1+pointerSize]),
			right: readPointer(b[1+pointerSize:]),
		}, nil
	default:
		return nil, errTruncatedRecord
	}
}

func encodeRootPointer(p childPointer) []byte {
	return appendPointer(make([]byte, 0, pointerSize), p)
}

func decodeRootPointer(b []byte) (childPointer, error) {
	if len(b) != pointerSize {
		return childPointer{}, errTruncatedRecord
	}
	return readPointer(b), nil
}
