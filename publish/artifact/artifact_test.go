package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrownieArtifact(t *testing.T) {
	a, err := Parse([]byte(`{"contractName":"Vault","sourcePath":"contracts/Vault.vy","bytecode":"0x6080604052"}`))
	require.NoError(t, err)
	assert.Equal(t, "Vault", a.ContractName)
	assert.Equal(t, "contracts/Vault.vy", a.SourcePath)

	code, err := a.Code()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
}

func TestParseFoundryArtifact(t *testing.T) {
	a, err := Parse([]byte(`{"bytecode":{"object":"0x6001"}}`))
	require.NoError(t, err)

	code, err := a.Code()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, code)
}

func TestParseRejectsEmptyBytecode(t *testing.T) {
	_, err := Parse([]byte(`{"contractName":"IVault","bytecode":""}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"contractName":"IVault"}`))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AaveUtils.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"contractName":"AaveUtils","bytecode":"60ff"}`), 0o600))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AaveUtils", a.ContractName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLinkLegacyPlaceholder(t *testing.T) {
	lib := Artifact{ContractName: "AaveUtils"}
	placeholder := "__AaveUtils" + strings.Repeat("_", 29)
	require.Len(t, placeholder, 40)

	strat, err := Parse([]byte(`{"contractName":"Strategy","bytecode":"0x73` + placeholder + `00"}`))
	require.NoError(t, err)
	assert.False(t, strat.Linked())

	_, err = strat.Code()
	require.ErrorIs(t, err, ErrUnlinked)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	linked := strat.Link(lib, addr)
	assert.True(t, linked.Linked())

	code, err := linked.Code()
	require.NoError(t, err)
	require.Len(t, code, 22)
	assert.Equal(t, byte(0x73), code[0])
	assert.Equal(t, addr.Bytes(), code[1:21])

	// the receiver is left untouched
	assert.False(t, strat.Linked())
}

func TestLinkHashedPlaceholder(t *testing.T) {
	lib := Artifact{ContractName: "AaveUtils", SourcePath: "contracts/AaveUtils.sol"}
	hash := common.Bytes2Hex(crypto.Keccak256([]byte("contracts/AaveUtils.sol:AaveUtils")))[:34]
	placeholder := "__$" + hash + "$__"

	strat, err := Parse([]byte(`{"contractName":"Strategy","bytecode":"` + placeholder + `"}`))
	require.NoError(t, err)

	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	code, err := strat.Link(lib, addr).Code()
	require.NoError(t, err)
	assert.Equal(t, addr.Bytes(), code)
}

func TestFromBytecode(t *testing.T) {
	a := FromBytecode("Mock", []byte{0xde, 0xad})
	code, err := a.Code()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, code)
}
