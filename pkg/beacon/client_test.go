package beacon

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{
			name:     "with trailing slash",
			baseURL:  "http://localhost:5052/",
			expected: "http://localhost:5052",
		},
		{
			name:     "without trailing slash",
			baseURL:  "http://localhost:5052",
			expected: "http://localhost:5052",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.baseURL)
			assert.Equal(t, tt.expected, c.baseURL)
		})
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		responseBody   string
		expected       []*Validator
		expectError    bool
	}{
		{
			name:           "successful response",
			responseStatus: http.StatusOK,
			responseBody: `{"data":[
				{"index":"7","balance":"32000000000","status":"active_ongoing","validator":{"pubkey":"0xaa","withdrawal_credentials":"0x01"}},
				{"index":"9","balance":"0","status":"withdrawal_done","validator":{"pubkey":"0xbb","withdrawal_credentials":"0x01"}}
			]}`,
			expected: []*Validator{
				{Index: "7", Pubkey: "0xaa", Status: "active_ongoing", Balance: "32000000000", WithdrawalCredentials: "0x01"},
				{Index: "9", Pubkey: "0xbb", Status: "withdrawal_done", Balance: "0", WithdrawalCredentials: "0x01"},
			},
		},
		{
			name:           "unknown validators",
			responseStatus: http.StatusOK,
			responseBody:   `{"data":[]}`,
			expected:       []*Validator{},
		},
		{
			name:           "invalid body",
			responseStatus: http.StatusOK,
			responseBody:   `{"data":`,
			expectError:    true,
		},
		{
			name:           "server error",
			responseStatus: http.StatusInternalServerError,
			responseBody:   `{"error":"internal server error"}`,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/eth/v1/beacon/states/head/validators", r.URL.Path)
				assert.Equal(t, "0xaa,0xbb", r.URL.Query().Get("id"))
				w.WriteHeader(tt.responseStatus)
				_, err := w.Write([]byte(tt.responseBody))
				require.NoError(t, err)
			}))
			defer server.Close()

			validators, err := NewClient(server.URL).Validators([]string{"0xaa", "0xbb"})

			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, validators)
			}
		})
	}
}

func TestValidators_NoPubkeys(t *testing.T) {
	validators, err := NewClient("http://127.0.0.1:0").Validators(nil)
	require.NoError(t, err)
	assert.Nil(t, validators)
}

func TestValidatorExited(t *testing.T) {
	for status, exited := range map[string]bool{
		"pending_queued":      false,
		"active_ongoing":      false,
		"active_exiting":      false,
		"exited_unslashed":    true,
		"withdrawal_possible": true,
		"withdrawal_done":     true,
	} {
		v := &Validator{Status: status}
		assert.Equal(t, exited, v.Exited(), status)
	}
}

func TestGenesisForkVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eth/v1/beacon/genesis", r.URL.Path)
		_, err := w.Write([]byte(`{"data":{"genesis_time":"1695902400","genesis_fork_version":"0x01017000"}}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	version, err := NewClient(server.URL).GenesisForkVersion()
	require.NoError(t, err)
	assert.Equal(t, "0x01017000", version)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"data":{}}`))
		require.NoError(t, err)
	}))
	defer empty.Close()

	_, err = NewClient(empty.URL).GenesisForkVersion()
	require.Error(t, err)
}
