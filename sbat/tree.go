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
	"runtime"
	"sort"
	"sync"

	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/mutation"
)

// Op is one batched SBAT edit: Insert (Delete==false) writes key/value
// under namespace; Delete removes it.
type Op struct {
	Namespace string
	Key       []byte
	Value     []byte
	Delete    bool
}

// Tree is the SBAT over one transaction's contractstate_tree column
// family. Forward/Reverse record every node write so the apply driver can
// fold them into the finalized journals under their own dedup pass
// (§4.J step 4).
type Tree struct {
	txn kvstore.Txn
	cf  kvstore.CF
	mu  sync.Mutex

	cache *nodeCache

	Forward *mutation.Journal
	Reverse *mutation.Journal
}

// NewTree wraps txn/cf (normally the contractstate_tree CF) with an
// optional node cache (nil disables caching).
func NewTree(txn kvstore.Txn, cf kvstore.CF, cache *nodeCache) *Tree {
	return &Tree{
		txn:     txn,
		cf:      cf,
		cache:   cache,
		Forward: mutation.NewJournal(),
		Reverse: mutation.NewJournal(),
	}
}

// Root returns the current top-level root: the fixed-name-order fold of
// the given namespaces' subtree roots (§4.D: "Root is the hash of the
// top-level namespace directory in fixed name order"). Namespaces with
// no subtree contribute ZeroHash.
func (t *Tree) Root(namespaces []string) ([32]byte, error) {
	names := append([]string(nil), namespaces...)
	sort.Strings(names)
	roots := make([]namedRoot, 0, len(names))
	for _, ns := range names {
		p, err := t.loadRootPointer(ns)
		if err != nil {
			return ZeroHash, err
		}
		roots = append(roots, namedRoot{namespace: ns, root: p.hash})
	}
	return namespaceRoot(roots), nil
}

// NamespaceRoot returns one namespace's current subtree root (ZeroHash
// when empty). Membership proofs verify against this root; the
// namespace-folded Root above commits to it in turn.
func (t *Tree) NamespaceRoot(ns string) ([32]byte, error) {
	p, err := t.loadRootPointer(ns)
	if err != nil {
		return ZeroHash, err
	}
	return p.hash, nil
}

// Update applies ops, partitioned and processed one namespace per worker
// (bounded by GOMAXPROCS), then folds the touched namespaces' roots with
// any additional namespaces the caller wants represented in the returned
// root (§4.D: "updates across distinct namespaces are independent and
// executed in parallel worker pools; updates within one namespace are
// batched and applied serially").
func (t *Tree) Update(ops []Op, allNamespaces []string) ([32]byte, error) {
	byNS := make(map[string][]Op)
	for _, op := range ops {
		byNS[op.Namespace] = append(byNS[op.Namespace], op)
	}

	namespaces := make([]string, 0, len(byNS))
	for ns := range byNS {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(namespaces) && len(namespaces) > 0 {
		workers = len(namespaces)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string, len(namespaces))
	for _, ns := range namespaces {
		jobs <- ns
	}
	close(jobs)

	errs := make([]error, len(namespaces))
	errIdx := make(map[string]int, len(namespaces))
	for i, ns := range namespaces {
		errIdx[ns] = i
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ns := range jobs {
				if err := t.applyNamespace(ns, byNS[ns]); err != nil {
					errs[errIdx[ns]] = err
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return ZeroHash, err
		}
	}

	return t.Root(allNamespaces)
}

// applyNamespace serially folds one namespace's ops into its subtree,
// then updates the namespace's root pointer. All reads/writes to the
// shared transaction are serialized via t.mu so distinct namespace
// workers never race on the underlying store, even though their key
// spaces never overlap.
func (t *Tree) applyNamespace(ns string, ops []Op) error {
	sort.SliceStable(ops, func(i, j int) bool {
		return leafPathLess(leafPath(ns, ops[i].Key), leafPath(ns, ops[j].Key))
	})

	ptr, err := t.loadRootPointer(ns)
	if err != nil {
		return err
	}

	for _, op := range ops {
		path := leafPath(ns, op.Key)
		if op.Delete {
			newPtr, _, err := t.deleteAt(ns, ptr, path)
			if err != nil {
				return err
			}
			ptr = newPtr
		} else {
			newPtr, err := t.insertAt(ns, ptr, path, op.Key, op.Value)
			if err != nil {
				return err
			}
			ptr = newPtr
		}
	}

	return t.storeRootPointer(ns, ptr)
}

func leafPathLess(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (t *Tree) loadRootPointer(ns string) (childPointer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, err := t.txn.Get(t.cf, rootPointerKey(ns))
	if err == kvstore.ErrNotFound {
		return childPointer{depth: 0, hash: ZeroHash}, nil
	}
	if err != nil {
		return childPointer{}, err
	}
	return decodeRootPointer(v)
}

func (t *Tree) storeRootPointer(ns string, p childPointer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.putLocked(rootPointerKey(ns), encodeRootPointer(p))
}

// getNodeLocked/putNodeLocked/putLocked/deleteNodeLocked assume t.mu is
// already held.
func (t *Tree) getNodeLocked(key []byte) (*nodeRecord, bool, error) {
	if t.cache != nil {
		if rec, ok := t.cache.get(key); ok {
			return rec, true, nil
		}
	}
	v, err := t.txn.Get(t.cf, key)
	if err == kvstore.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return nil, false, err
	}
	if t.cache != nil {
		t.cache.add(key, rec)
	}
	return rec, true, nil
}

func (t *Tree) putNodeLocked(key []byte, rec *nodeRecord) error {
	if err := t.putLocked(key, encodeRecord(rec)); err != nil {
		return err
	}
	if t.cache != nil {
		t.cache.add(key, rec)
	}
	return nil
}

func (t *Tree) putLocked(key, value []byte) error {
	old, err := t.txn.Get(t.cf, key)
	if err != nil && err != kvstore.ErrNotFound {
		return err
	}
	if err := t.txn.Put(t.cf, key, value); err != nil {
		return err
	}
	t.Forward.Append(mutation.NewPut("contractstate_tree", key, value))
	if err == kvstore.ErrNotFound {
		t.Reverse.Append(mutation.NewDelete("contractstate_tree", key))
	} else {
		t.Reverse.Append(mutation.NewPut("contractstate_tree", key, old))
	}
	return nil
}

func (t *Tree) deleteNodeLocked(key []byte) error {
	old, err := t.txn.Get(t.cf, key)
	if err == kvstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.txn.Delete(t.cf, key); err != nil {
		return err
	}
	t.Forward.Append(mutation.NewDelete("contractstate_tree", key))
	t.Reverse.Append(mutation.NewPut("contractstate_tree", key, old))
	if t.cache != nil {
		t.cache.remove(key)
	}
	return nil
}

// emptySlot is the canonical pointer a parent at parentDepth records for
// a side with no subtree. Keeping the representation fixed keeps node
// encodings (and therefore the mutation journal) deterministic.
func emptySlot(parentDepth uint16) childPointer {
	return childPointer{depth: parentDepth + 1, hash: ZeroHash}
}

// insertAt inserts/updates the leaf for path in the subtree slot points
// at, returning the slot's replacement pointer. The trie compresses
// runs of bits: a record at depth d is addressed by the first d bits of
// its representative path, and a new key whose path diverges from that
// prefix above d grafts a fresh internal node at the diverging bit with
// the old subtree untouched on the other side.
func (t *Tree) insertAt(ns string, slot childPointer, path [32]byte, key, value []byte) (childPointer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot.hash == ZeroHash {
		rec := &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}
		if err := t.putNodeLocked(nodeKey(ns, slot.depth, path), rec); err != nil {
			return childPointer{}, err
		}
		return childPointer{depth: slot.depth, repr: path, hash: rec.commitment()}, nil
	}

	if dv := firstDivergingBit(slot.repr, path, 0); dv < int(slot.depth) {
		// path leaves the subtree's prefix before its record: graft an
		// internal node at the diverging bit, old subtree on one side.
		leaf := &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}
		leafDepth := uint16(dv + 1)
		if err := t.putNodeLocked(nodeKey(ns, leafDepth, path), leaf); err != nil {
			return childPointer{}, err
		}
		internal := &nodeRecord{}
		internal.setChild(bitAt(path, dv), childPointer{depth: leafDepth, repr: path, hash: leaf.commitment()})
		internal.setChild(1-bitAt(path, dv), slot)
		if err := t.putNodeLocked(nodeKey(ns, uint16(dv), path), internal); err != nil {
			return childPointer{}, err
		}
		return childPointer{depth: uint16(dv), repr: path, hash: internal.commitment()}, nil
	}

	k := nodeKey(ns, slot.depth, slot.repr)
	rec, ok, err := t.getNodeLocked(k)
	if err != nil {
		return childPointer{}, err
	}
	if !ok {
		rec = &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}
		if err := t.putNodeLocked(nodeKey(ns, slot.depth, path), rec); err != nil {
			return childPointer{}, err
		}
		return childPointer{depth: slot.depth, repr: path, hash: rec.commitment()}, nil
	}

	if rec.isLeaf {
		existingPath := leafPath(ns, rec.leafKey)
		if existingPath == path {
			rec = &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}
			if err := t.putNodeLocked(k, rec); err != nil {
				return childPointer{}, err
			}
			return childPointer{depth: slot.depth, repr: path, hash: rec.commitment()}, nil
		}

		// Split below: both leaves move to one past the diverging bit,
		// with a new internal node branching there.
		dv := firstDivergingBit(existingPath, path, int(slot.depth))
		if err := t.deleteNodeLocked(k); err != nil {
			return childPointer{}, err
		}

		childDepth := uint16(dv + 1)
		existingLeaf := &nodeRecord{isLeaf: true, leafKey: rec.leafKey, leafValue: rec.leafValue}
		newLeaf := &nodeRecord{isLeaf: true, leafKey: key, leafValue: value}
		if err := t.putNodeLocked(nodeKey(ns, childDepth, existingPath), existingLeaf); err != nil {
			return childPointer{}, err
		}
		if err := t.putNodeLocked(nodeKey(ns, childDepth, path), newLeaf); err != nil {
			return childPointer{}, err
		}

		internal := &nodeRecord{}
		internal.setChild(bitAt(path, dv), childPointer{depth: childDepth, repr: path, hash: newLeaf.commitment()})
		internal.setChild(1-bitAt(path, dv), childPointer{depth: childDepth, repr: existingPath, hash: existingLeaf.commitment()})
		if err := t.putNodeLocked(nodeKey(ns, uint16(dv), path), internal); err != nil {
			return childPointer{}, err
		}
		return childPointer{depth: uint16(dv), repr: path, hash: internal.commitment()}, nil
	}

	// Internal node: recurse into the child selected by the branch bit.
	bit := bitAt(path, int(slot.depth))
	child := rec.child(bit)
	if child.hash == ZeroHash {
		child = emptySlot(slot.depth)
	}

	t.mu.Unlock()
	newChild, err := t.insertAt(ns, child, path, key, value)
	t.mu.Lock()
	if err != nil {
		return childPointer{}, err
	}

	rec.setChild(bit, newChild)
	if err := t.putNodeLocked(k, rec); err != nil {
		return childPointer{}, err
	}
	return childPointer{depth: slot.depth, repr: slot.repr, hash: rec.commitment()}, nil
}

// deleteAt removes the leaf at path, if present, returning the slot's
// replacement pointer and whether the key existed. Sibling collapse
// (§4.D): a surviving leaf sibling is hoisted to its parent's position;
// a subtree with both children gone is deleted entirely.
func (t *Tree) deleteAt(ns string, slot childPointer, path [32]byte) (childPointer, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot.hash == ZeroHash {
		return slot, false, nil
	}
	if dv := firstDivergingBit(slot.repr, path, 0); dv < int(slot.depth) {
		return slot, false, nil
	}

	k := nodeKey(ns, slot.depth, slot.repr)
	rec, ok, err := t.getNodeLocked(k)
	if err != nil {
		return childPointer{}, false, err
	}
	if !ok {
		return slot, false, nil
	}

	if rec.isLeaf {
		if leafPath(ns, rec.leafKey) != path {
			return slot, false, nil
		}
		if err := t.deleteNodeLocked(k); err != nil {
			return childPointer{}, false, err
		}
		return emptySlot(slot.depth), true, nil
	}

	bit := bitAt(path, int(slot.depth))
	child := rec.child(bit)

	t.mu.Unlock()
	newChild, existed, err := t.deleteAt(ns, child, path)
	t.mu.Lock()
	if err != nil {
		return childPointer{}, false, err
	}
	if !existed {
		return slot, false, nil
	}
	if newChild.hash == ZeroHash {
		newChild = emptySlot(slot.depth)
	}
	rec.setChild(bit, newChild)

	leftZero := rec.left.hash == ZeroHash
	rightZero := rec.right.hash == ZeroHash

	if leftZero && rightZero {
		if err := t.deleteNodeLocked(k); err != nil {
			return childPointer{}, false, err
		}
		return emptySlot(slot.depth), true, nil
	}

	if leftZero || rightZero {
		survivor := rec.left
		if leftZero {
			survivor = rec.right
		}
		survivorKey := nodeKey(ns, survivor.depth, survivor.repr)
		survivorRec, ok, err := t.getNodeLocked(survivorKey)
		if err != nil {
			return childPointer{}, false, err
		}
		if ok && survivorRec.isLeaf {
			if err := t.deleteNodeLocked(survivorKey); err != nil {
				return childPointer{}, false, err
			}
			if err := t.deleteNodeLocked(k); err != nil {
				return childPointer{}, false, err
			}
			if err := t.putNodeLocked(nodeKey(ns, slot.depth, survivor.repr), survivorRec); err != nil {
				return childPointer{}, false, err
			}
			return childPointer{depth: slot.depth, repr: survivor.repr, hash: survivorRec.commitment()}, true, nil
		}
		// Surviving child is itself internal: no collapse, per §4.D.
		if err := t.putNodeLocked(k, rec); err != nil {
			return childPointer{}, false, err
		}
		return childPointer{depth: slot.depth, repr: slot.repr, hash: rec.commitment()}, true, nil
	}

	if err := t.putNodeLocked(k, rec); err != nil {
		return childPointer{}, false, err
	}
	return childPointer{depth: slot.depth, repr: slot.repr, hash: rec.commitment()}, true, nil
}
