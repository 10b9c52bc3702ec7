package ctl

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/celer-network/go-reserves/oracle"
	"github.com/celer-network/go-reserves/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, home string, args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOutput(&out)
	root.SetArgs(append(args, "--"+FlagHome, home))
	err := root.Execute()
	return out.String(), err
}

func TestLedgerCommands(t *testing.T) {
	home := t.TempDir()
	signer, err := oracle.GenerateSigner()
	require.NoError(t, err)

	accountsFile := filepath.Join(home, "accounts.json")
	require.NoError(t, ioutil.WriteFile(accountsFile, []byte(`[
		{"id": 1, "ETH": 100},
		{"id": 2, "ETH": "50", "USDC": 7}
	]`), 0644))

	out, err := run(t, home, "init",
		"--accounts", accountsFile,
		"--oracle-key", signer.PrivateKeyHex(),
		"--depth", "16",
	)
	require.NoError(t, err)
	var initState map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &initState))
	assert.Equal(t, signer.PublicKey().Hex(), initState["oraclePublicKey"])

	// reserves are 2x the genesis liabilities: ETH 300
	_, err = run(t, home, "add", "--account", `{"id": 3, "ETH": 100}`)
	require.NoError(t, err)
	_, err = run(t, home, "add", "--account", `{"id": 4, "ETH": 100}`)
	assert.ErrorIs(t, err, statemachine.ErrSolvencyExceeded)

	_, err = run(t, home, "attest", "--balances", `{"ETH": 1000, "USDC": 7}`, "--oracle-key", signer.PrivateKeyHex())
	require.NoError(t, err)
	_, err = run(t, home, "add", "--account", `{"id": 4, "ETH": 100}`)
	require.NoError(t, err)

	out, err = run(t, home, "proof", "--id", "4")
	require.NoError(t, err)
	proofPath := filepath.Join(home, "proof.json")
	require.NoError(t, ioutil.WriteFile(proofPath, []byte(out), 0644))
	_, err = run(t, home, "verify", "--proof", "@"+proofPath)
	require.NoError(t, err)

	_, err = run(t, home, "update", "--account", `{"id": 4, "ETH": 60}`)
	require.NoError(t, err)
	// the proof was taken before the update
	_, err = run(t, home, "verify", "--proof", "@"+proofPath)
	assert.ErrorIs(t, err, statemachine.ErrInvalidRoot)

	out, err = run(t, home, "show")
	require.NoError(t, err)
	var view struct {
		Accounts      int               `json:"accounts"`
		TotalBalances map[string]string `json:"totalBalances"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 4, view.Accounts)
	assert.Equal(t, "310", view.TotalBalances["ETH"])
	assert.Equal(t, "7", view.TotalBalances["USDC"])
}

func TestOpenWithoutInit(t *testing.T) {
	_, err := run(t, t.TempDir(), "show")
	assert.Error(t, err)
}
