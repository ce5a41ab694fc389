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

// applyctl is a small demo entrypoint for the §6 block-ingestion API:
// it reads one codec-encoded model.ApplyBatch off disk, applies it
// against a KV engine rooted at --db, commits the resulting
// transaction and prints the new SBAT root plus one line per receipt.
// It exists to exercise apply.ApplyEntry end to end outside of the
// test suite, in the spirit of the teacher's cmd/ demo binaries.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/amacore/engine/apply"
	"github.com/amacore/engine/codec"
	"github.com/amacore/engine/kvstore"
	"github.com/amacore/engine/log"
	"github.com/amacore/engine/model"
	"github.com/amacore/engine/prng"
)

var logger = log.NewModuleLogger(log.Apply)

var (
	dbFlag = cli.StringFlag{
		Name:  "db",
		Usage: "directory backing the contractstate/contractstate_tree column families",
		Value: "applyctl-data",
	}
	dbTypeFlag = cli.StringFlag{
		Name:  "db.type",
		Usage: "badger, leveldb or mem",
		Value: "badger",
	}
	batchFlag = cli.StringFlag{
		Name:  "batch",
		Usage: "path to a codec-encoded model.ApplyBatch ({entry, txs})",
	}
	seedFlag = cli.StringFlag{
		Name:  "seed",
		Usage: "hex-encoded 32-byte PRNG seed; defaults to the all-zero seed",
	}
)

func openEngine(c *cli.Context) (kvstore.Engine, error) {
	switch c.String(dbTypeFlag.Name) {
	case "mem":
		return kvstore.NewMemEngine(), nil
	case "leveldb":
		return kvstore.NewLevelDBEngine(c.String(dbFlag.Name))
	default:
		return kvstore.NewBadgerEngine(c.String(dbFlag.Name))
	}
}

func loadBatch(path string) (model.ApplyBatch, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return model.ApplyBatch{}, errors.Wrap(err, "applyctl: read batch")
	}
	term, err := codec.Decode(raw)
	if err != nil {
		return model.ApplyBatch{}, errors.Wrap(err, "applyctl: decode batch")
	}
	batch, err := model.DecodeApplyBatch(term, false)
	if err != nil {
		return model.ApplyBatch{}, errors.Wrap(err, "applyctl: decode batch fields")
	}
	return batch, nil
}

func seedFromFlag(c *cli.Context) ([32]byte, error) {
	var seed [32]byte
	hexSeed := c.String(seedFlag.Name)
	if hexSeed == "" {
		return seed, nil
	}
	decoded, err := hex.DecodeString(hexSeed)
	if err != nil || len(decoded) != len(seed) {
		return seed, errors.New("applyctl: --seed must be 64 hex characters")
	}
	copy(seed[:], decoded)
	return seed, nil
}

func runApply(c *cli.Context) error {
	if c.String(batchFlag.Name) == "" {
		return errors.New("applyctl: --batch is required")
	}
	batch, err := loadBatch(c.String(batchFlag.Name))
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return errors.Wrap(err, "applyctl: open engine")
	}
	defer engine.Close()

	txn, err := engine.Begin()
	if err != nil {
		return errors.Wrap(err, "applyctl: begin txn")
	}

	seed, err := seedFromFlag(c)
	if err != nil {
		return err
	}
	rng := prng.NewFromSeed(seed)

	result, err := apply.ApplyEntry(context.Background(), engine, txn, batch.Entry, batch.Txs, rng)
	if err != nil {
		txn.Discard()
		return errors.Wrap(err, "applyctl: apply entry")
	}

	if err := txn.Commit(); err != nil {
		return errors.Wrap(err, "applyctl: commit txn")
	}

	logger.Info("entry applied", "height", batch.Entry.Height, "txs", len(batch.Txs))
	fmt.Printf("root=%x\n", result.SBATRoot)
	for i, r := range result.Receipts {
		if r.HasGasUsed {
			fmt.Printf("tx[%d] error=%s gas_used=%d\n", i, r.Error, r.GasUsed)
		} else {
			fmt.Printf("tx[%d] error=%s\n", i, r.Error)
		}
	}
	fmt.Printf("tx_filters=%d\n", len(result.TxFilters))
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "applyctl"
	app.Usage = "apply a single entry against the amacore state engine"
	app.Flags = []cli.Flag{dbFlag, dbTypeFlag}
	app.Commands = []cli.Command{
		{
			Name:  "apply",
			Usage: "apply one model.ApplyBatch to the configured KV engine",
			Flags: []cli.Flag{dbFlag, dbTypeFlag, batchFlag, seedFlag},
			Action: func(c *cli.Context) error {
				if err := runApply(c); err != nil {
					logger.Error("apply failed", "err", err)
					return err
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
