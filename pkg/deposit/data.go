package deposit

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/prysm/v5/beacon-chain/core/signing"
	"github.com/prysmaticlabs/prysm/v5/config/params"
	"github.com/prysmaticlabs/prysm/v5/contracts/deposit"
	ethpb "github.com/prysmaticlabs/prysm/v5/proto/prysm/v1alpha1"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.New()

type Data struct {
	DepositData  []*ParsedData
	ExpectedData *ExpectedData
}

type ExpectedData struct {
	Network        string
	Amount         uint64
	WithdrawalCred string
	Count          int
}

type ParsedData struct {
	Deposit *Deposit
	Record  *Record
}

// Deposit is one entry of a deposit data file as written by staking-deposit-cli.
type Deposit struct {
	PubKey                string `json:"pubkey"`
	WithdrawalCredentials string `json:"withdrawal_credentials"`
	Amount                uint64 `json:"amount"`
	Signature             string `json:"signature"`
	DepositMessageRoot    string `json:"deposit_message_root"`
	DepositDataRoot       string `json:"deposit_data_root"`
	NetworkName           string `json:"network_name"`
	DepositCliVersion     string `json:"deposit_cli_version"`
	ForkVersion           string `json:"fork_version"`
}

func NewDepositData(path, expectedNetwork, expectedWithdrawalCred string, expectedAmount uint64, expectedCount int) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read deposit data file")
	}

	parsed, err := ParseDeposits(raw)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":     path,
		"deposits": len(parsed),
	}).Debug("Loaded deposit data")

	return &Data{
		DepositData: parsed,
		ExpectedData: &ExpectedData{
			Network:        expectedNetwork,
			Amount:         expectedAmount,
			WithdrawalCred: strings.TrimPrefix(expectedWithdrawalCred, "0x"),
			Count:          expectedCount,
		},
	}, nil
}

// ParseDeposits decodes a deposit data JSON array into records.
func ParseDeposits(raw []byte) ([]*ParsedData, error) {
	var deposits []*Deposit
	if err := json.Unmarshal(raw, &deposits); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal deposit data")
	}

	parsed := make([]*ParsedData, len(deposits))

	for i, d := range deposits {
		record, err := d.Record()
		if err != nil {
			return nil, errors.Wrapf(err, "deposit %d", i)
		}

		parsed[i] = &ParsedData{
			Deposit: d,
			Record:  record,
		}
	}

	return parsed, nil
}

// Record decodes the hex fields of d.
func (d *Deposit) Record() (*Record, error) {
	pubkey, err := decodeHex(d.PubKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode pubkey")
	}

	withdrawalCreds, err := decodeHex(d.WithdrawalCredentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode withdrawal credentials")
	}

	signature, err := decodeHex(d.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode signature")
	}

	root, err := decodeHex(d.DepositDataRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode deposit data root")
	}

	if len(root) != 32 {
		return nil, errors.Errorf("deposit data root length %d, want 32", len(root))
	}

	record := &Record{
		Pubkey:                pubkey,
		WithdrawalCredentials: withdrawalCreds,
		Signature:             signature,
		Amount:                d.Amount,
	}
	copy(record.DataRoot[:], root)

	return record, nil
}

// Records returns the parsed records in file order.
func (d *Data) Records() []*Record {
	records := make([]*Record, len(d.DepositData))
	for i, set := range d.DepositData {
		records[i] = set.Record
	}

	return records
}

func (d *Data) Validate() error {
	if d.ExpectedData.Count > 0 && len(d.DepositData) != d.ExpectedData.Count {
		return errors.Errorf("count mismatch: expected %d, got %d", d.ExpectedData.Count, len(d.DepositData))
	}

	for _, set := range d.DepositData {
		if err := set.Deposit.Validate(d.ExpectedData); err != nil {
			return errors.Wrapf(err, "invalid deposit for pubkey %s", set.Deposit.PubKey)
		}
	}

	return nil
}

func (d *Deposit) Validate(expectedData *ExpectedData) error {
	if expectedData.Network != "" && d.NetworkName != expectedData.Network {
		return errors.Errorf("network mismatch: expected %s, got %s", expectedData.Network, d.NetworkName)
	}

	if expectedData.Amount != 0 && d.Amount != expectedData.Amount {
		return errors.Errorf("amount mismatch: expected %d, got %d", expectedData.Amount, d.Amount)
	}

	if expectedData.WithdrawalCred != "" && !strings.EqualFold(strings.TrimPrefix(d.WithdrawalCredentials, "0x"), expectedData.WithdrawalCred) {
		return errors.Errorf("withdrawal credentials mismatch: expected %s, got %s", expectedData.WithdrawalCred, d.WithdrawalCredentials)
	}

	return nil
}

// Verify checks every deposit's data root and BLS signature. Signatures are
// verified concurrently.
func (d *Data) Verify() error {
	var g errgroup.Group

	for _, set := range d.DepositData {
		set := set
		g.Go(func() error {
			return set.Verify()
		})
	}

	return g.Wait()
}

// Verify checks the data root and the BLS signature of a single deposit. The
// fork version defaults to the genesis fork version of the active beacon config.
func (p *ParsedData) Verify() error {
	if err := p.Record.Validate(); err != nil {
		return err
	}

	forkVersion := params.BeaconConfig().GenesisForkVersion

	if p.Deposit != nil && p.Deposit.ForkVersion != "" {
		v, err := hex.DecodeString(p.Deposit.ForkVersion)
		if err != nil {
			return errors.Wrap(err, "failed to decode fork version")
		}

		forkVersion = v
	}

	ok, err := IsValidDepositSignature(p.Record.DepositData(), forkVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid deposit for pubkey %s", p.Record.PubkeyHex())
	}

	if !ok {
		return errors.Errorf("invalid deposit signature for pubkey %s", p.Record.PubkeyHex())
	}

	return nil
}

func IsValidDepositSignature(data *ethpb.Deposit_Data, forkVersion []byte) (bool, error) {
	domain, err := signing.ComputeDomain(params.BeaconConfig().DomainDeposit, forkVersion, nil)
	if err != nil {
		return false, err
	}

	if err := deposit.VerifyDepositSignature(data, domain); err != nil {
		return false, err
	}

	return true, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
