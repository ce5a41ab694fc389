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

package mutation

// Journal is an append-only ordered list of mutations, used both as the
// forward journal (application order) and the reverse journal (undo
// order, appended alongside the forward journal at the point of each
// operation).
type Journal struct {
	items []Mutation
}

// NewJournal returns an empty journal.
func NewJournal() *Journal { return &Journal{} }

// Append adds m to the tail of the journal.
func (j *Journal) Append(m Mutation) { j.items = append(j.items, m) }

// AppendAll appends every mutation in ms, in order.
func (j *Journal) AppendAll(ms []Mutation) { j.items = append(j.items, ms...) }

// Items returns the journal's mutations in application order.
func (j *Journal) Items() []Mutation { return j.items }

// Len reports how many mutations are journaled.
func (j *Journal) Len() int { return len(j.items) }

// Reset clears the journal so its backing slice can be reused across
// transactions (the apply driver clears muts/muts_rev/muts_gas/muts_rev_gas
// before every tx, §4.J).
func (j *Journal) Reset() { j.items = j.items[:0] }

// Truncate drops every item past n, used by the apply driver to unwind a
// failed tx's contribution to the entry-wide forward/reverse journals
// after replaying its reverse tail against the live KV transaction.
func (j *Journal) Truncate(n int) { j.items = j.items[:n] }

// Applier performs the side effect an Apply call represents; Replay uses
// it to unwind a reverse journal tail-to-head (§4.B).
type Applier interface {
	Apply(m Mutation) error
}

// Replay applies the reverse journal from tail to head, undoing the
// forward journal's effect on the KV snapshot it was recorded against.
func Replay(reverse *Journal, applier Applier) error {
	items := reverse.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if err := applier.Apply(items[i]); err != nil {
			return err
		}
	}
	return nil
}

// Dedup keeps only the last mutation per (table,key) when scanning the
// forward journal newest-to-oldest (i.e. it keeps the *last* write that
// occurred, matching last-write-wins semantics), or the *first* mutation
// per key when forward is false (used for reverse journals, which must
// keep the earliest-recorded undo for a key — the one that restores the
// pre-entry value). Order of the surviving mutations is preserved from
// the original journal.
func Dedup(j *Journal, forward bool) *Journal {
	items := j.Items()
	keep := make(map[string]bool, len(items))
	out := make([]Mutation, 0, len(items))

	if forward {
		// Keep the last occurrence per key: scan from the tail, marking
		// the first (i.e. newest) occurrence of each key as kept, then
		// reverse back into original order.
		reversed := make([]Mutation, 0, len(items))
		for i := len(items) - 1; i >= 0; i-- {
			m := items[i]
			k := m.tableKey()
			if keep[k] {
				continue
			}
			keep[k] = true
			reversed = append(reversed, m)
		}
		for i := len(reversed) - 1; i >= 0; i-- {
			out = append(out, reversed[i])
		}
	} else {
		// Keep the first occurrence per key, scanning head-to-tail, which
		// for a reverse journal recorded in forward execution order is
		// the earliest-recorded undo — the one taken at the point the key
		// was first touched.
		for _, m := range items {
			k := m.tableKey()
			if keep[k] {
				continue
			}
			keep[k] = true
			out = append(out, m)
		}
	}

	d := NewJournal()
	d.items = out
	return d
}
