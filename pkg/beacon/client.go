package beacon

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Validator is the beacon node's view of one validator.
type Validator struct {
	Index                 string
	Pubkey                string
	Status                string
	Balance               string
	WithdrawalCredentials string
}

// Exited reports whether the validator left the active set.
func (v *Validator) Exited() bool {
	return strings.HasPrefix(v.Status, "exited") || strings.HasPrefix(v.Status, "withdrawal")
}

// Client queries a beacon node over the standard beacon API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Client instance
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: time.Minute,
		},
	}
}

// Validators returns the head state entries for pubkeys. Pubkeys unknown to
// the beacon node are left out.
func (c *Client) Validators(pubkeys []string) ([]*Validator, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("id", strings.Join(pubkeys, ","))

	var result struct {
		Data []struct {
			Index     string `json:"index"`
			Balance   string `json:"balance"`
			Status    string `json:"status"`
			Validator struct {
				Pubkey                string `json:"pubkey"`
				WithdrawalCredentials string `json:"withdrawal_credentials"`
			} `json:"validator"`
		} `json:"data"`
	}

	if err := c.get("/eth/v1/beacon/states/head/validators", query, &result); err != nil {
		return nil, errors.Wrap(err, "failed to fetch validators")
	}

	validators := make([]*Validator, 0, len(result.Data))

	for _, d := range result.Data {
		validators = append(validators, &Validator{
			Index:                 d.Index,
			Pubkey:                d.Validator.Pubkey,
			Status:                d.Status,
			Balance:               d.Balance,
			WithdrawalCredentials: d.Validator.WithdrawalCredentials,
		})
	}

	log.WithField("validators", len(validators)).Debug("Validators fetched")

	return validators, nil
}

// GenesisForkVersion returns the fork version deposits on this chain are signed with.
func (c *Client) GenesisForkVersion() (string, error) {
	var result struct {
		Data struct {
			GenesisForkVersion string `json:"genesis_fork_version"`
		} `json:"data"`
	}

	if err := c.get("/eth/v1/beacon/genesis", nil, &result); err != nil {
		return "", errors.Wrap(err, "failed to fetch genesis")
	}

	if result.Data.GenesisForkVersion == "" {
		return "", errors.New("genesis response has no fork version")
	}

	return result.Data.GenesisForkVersion, nil
}

func (c *Client) get(endpoint string, query url.Values, out interface{}) error {
	requestURL, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "failed to parse base URL")
	}

	requestURL.Path += endpoint
	requestURL.RawQuery = query.Encode()

	log.WithField("url", requestURL.String()).Debug("Querying beacon node")

	req, err := http.NewRequest(http.MethodGet, requestURL.String(), http.NoBody)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return errors.Errorf("%s - %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	return nil
}

// GetLogger returns the configured logger instance
func GetLogger() *logrus.Logger {
	return log
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	log.SetLevel(lvl)

	return nil
}
