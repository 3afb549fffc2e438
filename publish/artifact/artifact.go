// Package artifact loads compiled contract artifacts and links library
// placeholders into their bytecode.
//
// Both the brownie build format ({"bytecode": "..."}) and the foundry format
// ({"bytecode": {"object": "0x..."}}) are accepted.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const placeholderLen = 40

var ErrUnlinked = errors.New("bytecode has unlinked libraries")

type Artifact struct {
	ContractName string
	SourcePath   string
	// bytecode is hex without 0x and may still contain link placeholders.
	bytecode string
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	SourcePath   string          `json:"sourcePath"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

func Load(path string) (Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact: %w", err)
	}
	a, err := Parse(b)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", path, err)
	}
	return a, nil
}

func Parse(b []byte) (Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(b, &raw); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}

	code, err := decodeBytecodeField(raw.Bytecode)
	if err != nil {
		return Artifact{}, err
	}
	code = strings.TrimPrefix(code, "0x")
	if code == "" {
		return Artifact{}, errors.New("artifact has no bytecode")
	}

	return Artifact{
		ContractName: raw.ContractName,
		SourcePath:   raw.SourcePath,
		bytecode:     code,
	}, nil
}

func decodeBytecodeField(field json.RawMessage) (string, error) {
	if len(field) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(field, &obj); err != nil {
		return "", fmt.Errorf("decode bytecode: %w", err)
	}
	return obj.Object, nil
}

// FromBytecode wraps already linked bytecode.
func FromBytecode(name string, code []byte) Artifact {
	return Artifact{ContractName: name, bytecode: strings.TrimPrefix(hexutil.Encode(code), "0x")}
}

// Link returns a copy of a with every placeholder for lib replaced by addr.
// Legacy placeholders (__Name____) and hashed placeholders (__$hash$__) of the
// fully qualified "sourcePath:Name" are both recognised.
func (a Artifact) Link(lib Artifact, addr common.Address) Artifact {
	target := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))
	code := a.bytecode
	for _, p := range placeholders(lib) {
		code = strings.ReplaceAll(code, p, target)
	}
	a.bytecode = code
	return a
}

func placeholders(lib Artifact) []string {
	var out []string
	name := lib.ContractName
	if len(name) > placeholderLen-2 {
		name = name[:placeholderLen-2]
	}
	out = append(out, "__"+name+strings.Repeat("_", placeholderLen-2-len(name)))

	if lib.SourcePath != "" {
		fq := lib.SourcePath + ":" + lib.ContractName
		hash := hexutil.Encode(crypto.Keccak256([]byte(fq)))[2:36]
		out = append(out, "__$"+hash+"$__")
	}
	return out
}

// Linked reports whether no link placeholders remain.
func (a Artifact) Linked() bool {
	return !strings.Contains(a.bytecode, "__")
}

// Code returns the deployable bytecode.
func (a Artifact) Code() ([]byte, error) {
	if !a.Linked() {
		return nil, fmt.Errorf("%s: %w", a.ContractName, ErrUnlinked)
	}
	code, err := hexutil.Decode("0x" + a.bytecode)
	if err != nil {
		return nil, fmt.Errorf("%s: decode bytecode: %w", a.ContractName, err)
	}
	return code, nil
}
