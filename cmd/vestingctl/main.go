package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	rpcURLEnv = "VESTINGCTL_RPC"
	tokenEnv  = "VESTINGCTL_TOKEN"
	secretEnv = "VESTINGCTL_SECRET"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vestingctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("rpc", envOr(rpcURLEnv, "http://127.0.0.1:8545/rpc"), "JSON-RPC endpoint")
	var auth authOptions
	fs.StringVar(&auth.token, "token", os.Getenv(tokenEnv), "bearer token for mutating calls")
	fs.StringVar(&auth.secret, "secret", os.Getenv(secretEnv), "HMAC secret used to mint a token for -caller")
	fs.StringVar(&auth.caller, "caller", "", "caller address to mint a token for")
	fs.StringVar(&auth.issuer, "issuer", "vestingctl", "issuer claim of minted tokens")
	fs.StringVar(&auth.audience, "audience", "", "audience claim of minted tokens")
	fs.DurationVar(&auth.ttl, "ttl", 5*time.Minute, "lifetime of minted tokens")
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr, fs)
		return 1
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "keygen":
		return runKeygen(cmdArgs, stdout, stderr)
	case "keyinfo":
		return runKeyinfo(cmdArgs, stdout, stderr)
	case "token":
		return runToken(cmdArgs, stdout, stderr)
	}

	bearer, err := auth.bearer()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	c := &client{endpoint: *endpoint, token: bearer, http: &http.Client{Timeout: 30 * time.Second}}

	switch command {
	case "call":
		return runRawCall(c, cmdArgs, stdout, stderr)
	case "plan":
		return runPlan(c, cmdArgs, stdout, stderr)
	}
	rc, ok := rpcCommands[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr, fs)
		return 1
	}
	return runRPCCommand(c, command, rc, cmdArgs, stdout, stderr)
}

func runPlan(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "YAML plan to apply")
	dryRun := fs.Bool("dry-run", false, "validate the plan without sending it")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(stderr, "Error: -file is required")
		return 1
	}
	p, err := loadPlan(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *dryRun {
		fmt.Fprintf(stdout, "plan ok: %d schedule(s)\n", len(p.Schedules))
		return 0
	}
	if err := applyPlan(c, p, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: vestingctl [global flags] <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-16s %s\n", name, rpcCommands[name].help)
	}
	fmt.Fprintf(w, "  %-16s %s\n", "call", "send <method> with raw JSON params")
	fmt.Fprintf(w, "  %-16s %s\n", "plan", "apply a YAML plan (-file)")
	fmt.Fprintf(w, "  %-16s %s\n", "keygen", "create an encrypted keystore (-keystore)")
	fmt.Fprintf(w, "  %-16s %s\n", "keyinfo", "print the address of a keystore (-keystore)")
	fmt.Fprintf(w, "  %-16s %s\n", "token", "mint a caller token (-secret, -caller)")
	fmt.Fprintln(w, "\nGlobal flags:")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
