// Package account loads the signing key of the deploy account, either from a
// hex private key or from an encrypted (web3 v3) keystore file such as the
// ones kept under ~/.brownie/accounts.
package account

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

var ErrNoKey = errors.New("no private key or keystore configured")

type Source struct {
	PrivateKey string
	Keystore   string
	Password   string
}

// PasswordFunc is asked for the keystore password when Source has none.
type PasswordFunc func() (string, error)

func Load(src Source, password PasswordFunc) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(src.PrivateKey) != "" {
		return ParsePrivateKey(src.PrivateKey)
	}
	if src.Keystore == "" {
		return nil, ErrNoKey
	}

	pass := src.Password
	if pass == "" && password != nil {
		var err error
		if pass, err = password(); err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
	}
	return LoadKeystore(src.Keystore, pass)
}

func ParsePrivateKey(v string) (*ecdsa.PrivateKey, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func LoadKeystore(path, password string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}
	return key.PrivateKey, nil
}

func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

var ErrNotTerminal = errors.New("stdin is not a terminal")

// TerminalPassword prompts on out and reads the password from in without
// echo. Non-interactive runs supply the password through Source instead.
func TerminalPassword(in *os.File, out io.Writer, name string) PasswordFunc {
	return func() (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", ErrNotTerminal
		}
		fmt.Fprintf(out, "Enter password for %q: ", name)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
