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

// Package apply implements spec.md §4.J: the top-level entry-application
// driver tying together the KV facade (§4.C), BIC (§4.G), the guest VM
// (§4.H) and SBAT commitment (§4.D) into the single apply_entry call
// §6 describes.
package apply

import (
	"context"
	"math/big"

	"github.com/amacore/engine/bic"
	"github.com/amacore/engine/consensus"
	"github.com/amacore/engine/engerr"
	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/model"
	"github.com/amacore/engine/mutation"
	"github.com/amacore/engine/params"
	"github.com/amacore/engine/prng"
	"github.com/amacore/engine/sbat"
	"github.com/amacore/engine/txfilter"
)

const (
	contractstateCF     = "contractstate"
	contractstateTreeCF = "contractstate_tree"
)

// Result is apply_entry's output (§6): the finalized forward/reverse
// journals, one receipt per input transaction in order, the tx-filter
// keys and the SBAT root. The write transaction is not part of it; it
// stays with the caller, who commits or discards it.
type Result struct {
	Forward  *mutation.Journal
	Reverse  *mutation.Journal
	Receipts []Receipt

	TxFilters []txfilter.Key

	SBATRoot [32]byte
}

func nonceKey(signer []byte) []byte {
	return append(append([]byte("account:"), signer...), []byte(":attribute:nonce")...)
}

func balanceKey(addr []byte, symbol string) []byte {
	return append(append(append([]byte("account:"), addr...), []byte(":balance:")...), []byte(symbol)...)
}

func readI128(kv *kvstore.Facade, key []byte) (*big.Int, error) {
	v, ok, err := kv.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(string(v), 10)
	if !ok {
		return big.NewInt(0), nil
	}
	return n, nil
}

// ApplyEntry implements §4.J's four-step pipeline: upfront nonce+fee
// pass, per-tx execute pass with revert-on-fault, the exit hook, and
// SBAT commitment. txn is a write transaction already begun against
// engine; the caller commits or discards it once ApplyEntry returns.
func ApplyEntry(ctx context.Context, engine kvstore.Engine, txn kvstore.Txn, desc model.EntryDescriptor, txs []model.TxEnvelope, rng *prng.State) (Result, error) {
	if err := desc.Validate(); err != nil {
		return Result{}, err
	}

	stateCF, err := engine.CF(contractstateCF)
	if err != nil {
		return engerrResult(), engerr.Wrap(engerr.InvalidArgs, err)
	}
	treeCF, err := engine.CF(contractstateTreeCF)
	if err != nil {
		return engerrResult(), engerr.Wrap(engerr.InvalidArgs, err)
	}

	exec := kvstore.NewBudget(0, engerr.ExecInsufficientExecBudget)
	storage := kvstore.NewBudget(params.DefaultStorageBudget, engerr.ExecInsufficientStorageBudget)
	facade := kvstore.NewFacade(txn, stateCF, exec, storage)

	receipts := make([]Receipt, 0, len(txs))
	namespaces := make(map[string]bool, len(txs))

	// Step 1: upfront pass. Nonce and fee mutations are final from the
	// instant they're written; a tx that later faults never undoes them
	// (§4.J step 1, §8 "nonce+fee commitment").
	facade.SetTrackOff(true)
	for _, tx := range txs {
		if err := upfrontPass(facade, tx, desc.Signer); err != nil {
			return engerrResult(), err
		}
		namespaces[namespaceOf(nonceKey(tx.TX.Signer))] = true
	}
	facade.SetTrackOff(false)

	// Step 2: execute pass.
	seed := consensus.ReseedSeed(desc.VR)
	for _, tx := range txs {
		gasUsed, rerr := executeTx(ctx, facade, desc, tx, seed[:], rng)
		for ns := range txNamespaces(facade) {
			namespaces[ns] = true
		}
		if rerr != nil {
			if engerr.Fatal(rerr) {
				return engerrResult(), rerr
			}
			txFailureCounter.Inc(1)
			receipts = append(receipts, failReceipt(engerr.IDOf(rerr), desc.Height, gasUsed))
			continue
		}
		txSuccessCounter.Inc(1)
		receipts = append(receipts, okReceipt(desc.Height, gasUsed))
	}

	// Step 3: exit hook, run gas-free (§4.B "track-off mode").
	facade.SetTrackOff(true)
	if consensus.IsSegmentBoundary(desc.Height) {
		// seed is blake3(entry.vr), the 32-byte hash SubmitSol binds to.
		if err := consensus.SnapshotSegmentVR(facadeKV{facade}, seed[:]); err != nil {
			return engerrResult(), err
		}
	}
	if consensus.IsEpochRotation(desc.Height) {
		if _, err := consensus.Rotate(facadeKV{facade}); err != nil {
			return engerrResult(), err
		}
		epochRotationCounter.Inc(1)
	}
	facade.SetTrackOff(false)

	// Step 4: commitment. Fold the net effect of this entry's mutations
	// into SBAT under contractstate_tree, then append the tree's own
	// journal entries to the finalized journals under their own dedup
	// pass (§4.J step 4).
	finalForward := mutation.Dedup(facade.Forward, true)
	finalReverse := mutation.Dedup(facade.Reverse, false)

	tree := sbat.NewTree(txn, treeCF, nil)
	ops := make([]sbat.Op, 0, finalForward.Len())
	for _, m := range finalForward.Items() {
		ops = append(ops, mutationToSBATOp(m))
	}
	nsList := make([]string, 0, len(namespaces))
	for ns := range namespaces {
		nsList = append(nsList, ns)
	}
	root, err := tree.Update(ops, nsList)
	if err != nil {
		return engerrResult(), err
	}

	treeForward := mutation.Dedup(tree.Forward, true)
	treeReverse := mutation.Dedup(tree.Reverse, false)
	finalForward.AppendAll(treeForward.Items())
	finalReverse.AppendAll(treeReverse.Items())

	txus := make([]model.TXU, 0, len(txs))
	for _, tx := range txs {
		txus = append(txus, model.TXU{Hash: tx.Hash, Signature: tx.Signature, TX: tx.TX})
	}

	return Result{
		Forward:   finalForward,
		Reverse:   finalReverse,
		Receipts:  receipts,
		TxFilters: txfilter.BuildBatch(txus),
		SBATRoot:  root,
	}, nil
}

func engerrResult() Result { return Result{} }

// namespaceOf is a mutation key's namespace: the substring up to (not
// including) the first ':' (§4.D).
func namespaceOf(key []byte) string {
	for i, b := range key {
		if b == ':' {
			return string(key[:i])
		}
	}
	return string(key)
}

func mutationToSBATOp(m mutation.Mutation) sbat.Op {
	ns := namespaceOf(m.Key)
	switch m.Kind {
	case mutation.Delete:
		return sbat.Op{Namespace: ns, Key: m.Key, Delete: true}
	default:
		return sbat.Op{Namespace: ns, Key: m.Key, Value: m.Value}
	}
}

// upfrontPass writes the nonce bump and splits tx_cost 50/50 between the
// entry signer and the burn address (§4.J step 1, §8's nonce+fee
// commitment property). It runs with the facade's track-off flag set by
// the caller, so these writes consume no budget and are never reverted.
func upfrontPass(facade *kvstore.Facade, tx model.TxEnvelope, entrySigner []byte) error {
	if err := facade.Put(nonceKey(tx.TX.Signer), []byte(new(big.Int).SetUint64(tx.TX.Nonce+1).String())); err != nil {
		return err
	}

	cost, ok := new(big.Int).SetString(tx.TxCost, 10)
	if !ok {
		return engerr.New(engerr.InvalidAmount)
	}
	if cost.Sign() == 0 {
		return nil
	}

	half := new(big.Int).Rsh(cost, 1)
	other := new(big.Int).Sub(cost, half)

	signerKey := tx.TX.Signer
	symbol := tx.TX.Action.AttachedSymbol
	if symbol == "" {
		symbol = params.NativeSymbol
	}

	signerBal, err := readI128(facade, balanceKey(signerKey, symbol))
	if err != nil {
		return err
	}
	signerBal.Sub(signerBal, cost)
	if err := facade.Put(balanceKey(signerKey, symbol), []byte(signerBal.String())); err != nil {
		return err
	}

	entryBal, err := readI128(facade, balanceKey(entrySigner, symbol))
	if err != nil {
		return err
	}
	entryBal.Add(entryBal, half)
	if err := facade.Put(balanceKey(entrySigner, symbol), []byte(entryBal.String())); err != nil {
		return err
	}

	burnBal, err := readI128(facade, balanceKey(params.BurnAddress, symbol))
	if err != nil {
		return err
	}
	burnBal.Add(burnBal, other)
	return facade.Put(balanceKey(params.BurnAddress, symbol), []byte(burnBal.String()))
}

// executeTx runs one tx's BIC/VM dispatch (§4.J step 2): snapshot the
// shared journals, dispatch, and on failure replay only this tx's own
// reverse-journal tail against the live KV transaction before
// truncating both journals back to the snapshot length, so a failed
// tx's effect never reaches the finalized journals or the data store.
func executeTx(ctx context.Context, facade *kvstore.Facade, desc model.EntryDescriptor, tx model.TxEnvelope, seed []byte, rng *prng.State) (gasUsed uint64, rerr error) {
	execBudget := kvstore.NewBudget(int64(defaultExecUnits(tx)), engerr.ExecInsufficientExecBudget)
	storageBudget := kvstore.NewBudget(params.DefaultStorageBudget, engerr.ExecInsufficientStorageBudget)
	facade.SetBudgets(execBudget, storageBudget)

	fwdLen, revLen := facade.Forward.Len(), facade.Reverse.Len()

	caller := &bic.CallerEnv{
		EntrySigner:   desc.Signer,
		EntryPrevHash: desc.PrevHash,
		EntrySlot:     desc.Slot,
		EntryPrevSlot: desc.PrevSlot,
		EntryHeight:   desc.Height,
		EntryEpoch:    desc.Epoch,
		EntryVR:       desc.VR,
		EntryVRBlake3: desc.VRBlake3,
		EntryDR:       desc.DR,

		TxSigner: tx.TX.Signer,
		TxNonce:  tx.TX.Nonce,
		TxHash:   tx.Hash,

		AccountOrigin:  tx.TX.Signer,
		AccountCaller:  tx.TX.Signer,
		AccountCurrent: tx.TX.Action.Contract,

		AttachedSymbol: tx.TX.Action.AttachedSymbol,
		AttachedAmount: tx.TX.Action.AttachedAmount,
		HasAttachment:  tx.TX.Action.HasAttachment,

		Seed: seed,
	}

	env := newApplyEnv(facade, caller, rng)
	_, err := env.dispatch(ctx, tx.TX.Action.Contract, tx.TX.Action.Function, tx.TX.Action.Args)

	gasUsed = uint64(defaultExecUnits(tx)) - execBudget.Remaining().Uint64()
	if execBudget.Remaining().Sign() < 0 {
		gasUsed = uint64(defaultExecUnits(tx))
	}

	if err != nil {
		if engerr.Fatal(err) {
			return gasUsed, err
		}
		if rerr := revertTx(facade, revLen); rerr != nil {
			return gasUsed, engerr.NewFatal(engerr.IDOf(rerr))
		}
		facade.Forward.Truncate(fwdLen)
		facade.Reverse.Truncate(revLen)
		vmFaultIfWasm(err)
		return gasUsed, err
	}
	return gasUsed, nil
}

func vmFaultIfWasm(err error) {
	id := engerr.IDOf(err)
	if len(id) >= 5 && id[:5] == "wasm_" {
		vmFaultCounter.Inc(1)
	}
}

// defaultExecUnits sizes a tx's execution budget off its pre-computed
// cost figure (Open Question: the wire format carries one cost figure,
// used here as the exec budget pool; see params.DefaultStorageBudget's
// doc comment for the storage side).
func defaultExecUnits(tx model.TxEnvelope) uint64 {
	cost, ok := new(big.Int).SetString(tx.TxCost, 10)
	if !ok || !cost.IsInt64() || cost.Sign() <= 0 {
		return uint64(params.DefaultExecBudget)
	}
	return cost.Uint64()
}

// revertTx replays the [revLen, end) tail of the shared reverse journal
// (this tx's own undo entries) directly against the live KV transaction,
// bypassing the facade's budgets and journaling entirely.
func revertTx(facade *kvstore.Facade, revLen int) error {
	tail := mutation.NewJournal()
	tail.AppendAll(facade.Reverse.Items()[revLen:])
	return mutation.Replay(tail, kvApplier{txn: facade.Txn(), cf: facade.CF()})
}

// txNamespaces collects the namespaces touched by a journal so the
// commitment phase can report roots even for namespaces with writes but
// no net change after dedup. Computed from the facade's live forward
// journal after each tx; by then executeTx has already truncated a
// failed tx's journal tail, so that tx's namespace touches are not seen.
func txNamespaces(facade *kvstore.Facade) map[string]bool {
	out := make(map[string]bool)
	for _, m := range facade.Forward.Items() {
		out[namespaceOf(m.Key)] = true
	}
	return out
}

// facadeKV adapts *kvstore.Facade to consensus's minimal kv interface.
type facadeKV struct{ f *kvstore.Facade }

func (a facadeKV) Get(key []byte) ([]byte, bool, error) { return a.f.Get(key) }
func (a facadeKV) Put(key, value []byte) error          { return a.f.Put(key, value) }
