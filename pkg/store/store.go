package store

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var ErrNotFound = errors.New("not found")

var (
	metaKey        = []byte("m")
	balancesKey    = []byte("b")
	vaultKeyPrefix = []byte("v")
)

var writeOpt = opt.WriteOptions{}
var readOpt = opt.ReadOptions{}

// Store persists factory metadata, vault snapshots and ledger balances in a
// level db. Values are RLP encoded.
type Store struct {
	db *leveldb.DB
}

// Open opens the store at path, creating it if it does not exist.
func Open(path string) (*Store, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	return open(stg)
}

// OpenMem opens a store kept in memory.
func OpenMem() (*Store, error) {
	return open(storage.NewMemStorage())
}

func open(stg storage.Storage) (*Store, error) {
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
		WriteBuffer:            4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open level db")
	}

	return &Store{db: db}, nil
}

// Close closes the store. Later operations will all fail.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveMeta(meta *factory.Meta) error {
	return s.put(metaKey, meta)
}

// LoadMeta returns ErrNotFound when no factory was saved yet.
func (s *Store) LoadMeta() (*factory.Meta, error) {
	var meta factory.Meta
	if err := s.get(metaKey, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) SaveVault(snap *vault.Snapshot) error {
	return s.put(vaultKey(snap.Address), snap)
}

// LoadVaults returns every saved vault snapshot ordered by vault address.
func (s *Store) LoadVaults() ([]*vault.Snapshot, error) {
	it := s.db.NewIterator(util.BytesPrefix(vaultKeyPrefix), &readOpt)
	defer it.Release()

	var out []*vault.Snapshot

	for it.Next() {
		var snap vault.Snapshot
		if err := rlp.DecodeBytes(it.Value(), &snap); err != nil {
			return nil, errors.Wrapf(err, "decode vault %x", it.Key()[len(vaultKeyPrefix):])
		}

		out = append(out, &snap)
	}

	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate vaults")
	}

	return out, nil
}

type balance struct {
	Address common.Address
	Amount  *big.Int
}

// SaveBalances replaces the saved ledger balances.
func (s *Store) SaveBalances(balances map[common.Address]*uint256.Int) error {
	return s.put(balancesKey, balanceList(balances))
}

// LoadBalances returns the saved ledger balances, empty if none were saved.
func (s *Store) LoadBalances() (map[common.Address]*uint256.Int, error) {
	var list []balance

	if err := s.get(balancesKey, &list); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	out := make(map[common.Address]*uint256.Int, len(list))

	for _, b := range list {
		amount, overflow := uint256.FromBig(b.Amount)
		if overflow || b.Amount.Sign() < 0 {
			return nil, errors.Errorf("balance of %s out of range", b.Address.Hex())
		}

		out[b.Address] = amount
	}

	return out, nil
}

type entry struct {
	key []byte
	val interface{}
}

// Save writes the factory, every vault and the balances in one batch.
func (s *Store) Save(f *factory.Factory, balances map[common.Address]*uint256.Int) error {
	entries := []entry{
		{key: metaKey, val: f.Meta()},
		{key: balancesKey, val: balanceList(balances)},
	}

	for _, v := range f.Vaults() {
		entries = append(entries, entry{key: vaultKey(v.Address()), val: v.Snapshot()})
	}

	batch := new(leveldb.Batch)

	for _, e := range entries {
		enc, err := rlp.EncodeToBytes(e.val)
		if err != nil {
			return errors.Wrapf(err, "encode %q", e.key)
		}

		batch.Put(e.key, enc)
	}

	return errors.Wrap(s.db.Write(batch, &writeOpt), "write batch")
}

func (s *Store) put(key []byte, val interface{}) error {
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}

	return errors.Wrapf(s.db.Put(key, enc, &writeOpt), "put %q", key)
}

func (s *Store) get(key []byte, val interface{}) error {
	enc, err := s.db.Get(key, &readOpt)
	if err == leveldb.ErrNotFound {
		return errors.Wrapf(ErrNotFound, "%q", key)
	}

	if err != nil {
		return errors.Wrapf(err, "get %q", key)
	}

	return errors.Wrapf(rlp.DecodeBytes(enc, val), "decode %q", key)
}

func vaultKey(addr common.Address) []byte {
	return append(append([]byte(nil), vaultKeyPrefix...), addr.Bytes()...)
}

func balanceList(balances map[common.Address]*uint256.Int) []balance {
	list := make([]balance, 0, len(balances))
	for addr, amount := range balances {
		list = append(list, balance{Address: addr, Amount: amount.ToBig()})
	}

	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i].Address[:], list[j].Address[:]) < 0
	})

	return list
}
