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

import "bytes"

// step is one branch passed through while descending from a namespace's
// root toward a leaf's path: the bit taken at that branch, and the hash
// of the sibling not taken.
type step struct {
	bit     byte
	sibling [32]byte
}

// MembershipProof is the sequence of sibling hashes along the root-to-leaf
// path plus the leaf payload (§4.D: "a membership proof is the sequence
// of sibling hashes along the root-to-leaf path plus the leaf payload").
type MembershipProof struct {
	Key   []byte
	Value []byte
	steps []step // root-to-leaf order
}

// NonMembershipProof is the deepest ancestor present plus the evidence
// that the queried path has no leaf beneath it: either the branch taken
// was empty (Present == nil, the folded hash starts from ZeroHash) or
// descent terminated at a leaf whose path diverges from the queried
// key's path (Present carries that leaf).
type NonMembershipProof struct {
	Present *MembershipProof
	steps   []step
}

// Prove walks ns's current subtree from its root pointer toward key's
// path, returning a MembershipProof if key is present, or (nil, proof of
// absence) otherwise.
func (t *Tree) Prove(ns string, key []byte) (*MembershipProof, *NonMembershipProof, error) {
	path := leafPath(ns, key)
	cur, err := t.loadRootPointer(ns)
	if err != nil {
		return nil, nil, err
	}

	var steps []step

	for {
		if cur.hash == ZeroHash {
			return nil, &NonMembershipProof{steps: steps}, nil
		}

		t.mu.Lock()
		rec, ok, err := t.getNodeLocked(nodeKey(ns, cur.depth, cur.repr))
		t.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, &NonMembershipProof{steps: steps}, nil
		}

		if rec.isLeaf {
			if leafPath(ns, rec.leafKey) == path {
				return &MembershipProof{Key: rec.leafKey, Value: rec.leafValue, steps: steps}, nil, nil
			}
			return nil, &NonMembershipProof{
				steps:   steps,
				Present: &MembershipProof{Key: rec.leafKey, Value: rec.leafValue},
			}, nil
		}

		bit := bitAt(path, int(cur.depth))
		steps = append(steps, step{bit: bit, sibling: rec.child(1 - bit).hash})
		cur = rec.child(bit)
	}
}

// VerifyMembership recomputes the namespace subtree root from proof and
// compares it to root (Tree.NamespaceRoot's value), independent of the
// tree's own storage.
func VerifyMembership(proof *MembershipProof, root [32]byte) bool {
	h := leafHash(proof.Key, proof.Value)
	for i := len(proof.steps) - 1; i >= 0; i-- {
		s := proof.steps[i]
		if s.bit == 0 {
			h = internalHash(h, s.sibling)
		} else {
			h = internalHash(s.sibling, h)
		}
	}
	return bytes.Equal(h[:], root[:])
}

// VerifyNonMembership checks that proof's diverging path, when recombined
// with the claimed namespace subtree root, reaches root, and that either
// the branch taken was genuinely empty or the present leaf's path
// genuinely diverges from key's path.
func VerifyNonMembership(ns string, key []byte, proof *NonMembershipProof, root [32]byte) bool {
	path := leafPath(ns, key)

	var h [32]byte
	if proof.Present != nil {
		h = leafHash(proof.Present.Key, proof.Present.Value)
		if leafPath(ns, proof.Present.Key) == path {
			return false // not actually absent
		}
	} else {
		h = ZeroHash
	}

	for i := len(proof.steps) - 1; i >= 0; i-- {
		s := proof.steps[i]
		if s.bit == 0 {
			h = internalHash(h, s.sibling)
		} else {
			h = internalHash(s.sibling, h)
		}
	}
	return bytes.Equal(h[:], root[:])
}
