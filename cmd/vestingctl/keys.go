package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"tokenvesting/cmd/internal/passphrase"
	"tokenvesting/crypto"
	"tokenvesting/rpc"
)

const keystorePassEnv = "VESTINGCTL_KEYSTORE_PASS"

var newPassphraseSource = func() *passphrase.Source {
	return passphrase.NewSource(keystorePassEnv, "keystore")
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "", "path of the keystore file to write")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "Error: -keystore is required")
		return 1
	}
	pass, err := newPassphraseSource().Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(*path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printAddress(stdout, key.Address())
	return 0
}

func runKeyinfo(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keyinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("keystore", "", "path of the keystore file to read")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "Error: -keystore is required")
		return 1
	}
	pass, err := newPassphraseSource().Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.LoadFromKeystore(*path, pass)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printAddress(stdout, key.Address())
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", "", "HMAC secret shared with the daemon")
	caller := fs.String("caller", "", "caller address placed in the subject claim")
	issuer := fs.String("issuer", "vestingctl", "issuer claim")
	audience := fs.String("audience", "", "audience claim")
	ttl := fs.Duration("ttl", 15*time.Minute, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := crypto.ParseAddress(*caller)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid -caller: %v\n", err)
		return 1
	}
	tok, err := rpc.IssueCallerToken(*secret, *issuer, *audience, addr, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, tok)
	return 0
}

func printAddress(w io.Writer, addr crypto.Address) {
	fmt.Fprintf(w, "address: %s\nbech32:  %s\n", addr.Hex(), addr.String())
}
