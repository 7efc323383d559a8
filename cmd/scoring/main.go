// Package main is the scoring command line tool: it inspects, creates and
// watches scoring mints through a JSON-RPC endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/mintclient"
	"solana-scoring/internal/scoring"
	solclient "solana-scoring/internal/solana"
)

const usage = `Usage: scoring [global flags] <command> [flags] [args]

Commands:
  get-mint-details <MINT>       Display information about a scoring mint
  create-scoring-mint [MINT_KEYPAIR]
                                Create a mint for a new score type
  watch-mint <MINT>             Stream updates of a scoring mint

Global flags (url, ws-url and keypair fall back to the Solana CLI config file):
`

// config holds the global flags.
type config struct {
	url       string
	wsURL     string
	keypair   string
	programID solana.PublicKey
	verbose   bool
	logger    *log.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("scoring", flag.ContinueOnError)
	global.SetOutput(stderr)
	url := global.String("url", envOr("SOLANA_RPC_ENDPOINT", "http://127.0.0.1:8899"), "JSON RPC URL for the cluster")
	wsURL := global.String("ws-url", os.Getenv("SOLANA_WS_ENDPOINT"), "WebSocket URL [default: derived from --url]")
	keypair := global.String("keypair", envOr("SOLANA_KEYPAIR", defaultKeypairPath()), "Filepath to a keygen keypair")
	programID := global.String("program-id", envOr("SCORING_PROGRAM_ID", scoring.DefaultProgramID.String()), "Scoring program address")
	configPath := global.String("config", defaultConfigPath(), "Solana CLI configuration file")
	global.StringVar(configPath, "C", defaultConfigPath(), "Shorthand for --config")
	verbose := global.Bool("verbose", false, "Show additional information")
	global.BoolVar(verbose, "v", false, "Shorthand for --verbose")
	global.Usage = func() {
		fmt.Fprint(stderr, usage)
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("no command given")
	}

	program, err := solana.PublicKeyFromBase58(*programID)
	if err != nil {
		return fmt.Errorf("invalid --program-id: %w", err)
	}
	cfg := &config{
		url:       *url,
		wsURL:     *wsURL,
		keypair:   *keypair,
		programID: program,
		verbose:   *verbose,
	}
	if err := cfg.applyConfigFile(*configPath, explicitFlags(global)); err != nil {
		return err
	}
	if cfg.wsURL == "" {
		cfg.wsURL = deriveWSURL(cfg.url)
	}
	if cfg.verbose {
		cfg.logger = log.New(stderr, "[scoring] ", log.LstdFlags)
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "get-mint-details":
		return runGetMintDetails(ctx, cfg, cmdArgs, stdout, stderr)
	case "create-scoring-mint":
		return runCreateScoringMint(ctx, cfg, cmdArgs, stdout, stderr)
	case "watch-mint":
		return runWatchMint(ctx, cfg, cmdArgs, stdout, stderr)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// applyConfigFile fills url, ws-url and keypair from the Solana CLI config
// unless they were given as flags or environment variables.
func (c *config) applyConfigFile(path string, explicit map[string]bool) error {
	if path == "" {
		return nil
	}
	file, err := loadCLIConfig(path)
	if err != nil {
		return err
	}

	if file.JSONRPCURL != "" && !explicit["url"] && os.Getenv("SOLANA_RPC_ENDPOINT") == "" {
		c.url = file.JSONRPCURL
	}
	if file.WebsocketURL != "" && !explicit["ws-url"] && os.Getenv("SOLANA_WS_ENDPOINT") == "" {
		c.wsURL = file.WebsocketURL
	}
	if file.KeypairPath != "" && !explicit["keypair"] && os.Getenv("SOLANA_KEYPAIR") == "" {
		c.keypair = file.KeypairPath
	}
	return nil
}

func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func (c *config) mintClient(opts ...mintclient.Option) *mintclient.Client {
	rpc := solclient.NewHTTPClient(c.url)
	if c.logger != nil {
		opts = append(opts, mintclient.WithLogger(c.logger))
	}
	return mintclient.New(rpc, c.programID, opts...)
}

func runGetMintDetails(ctx context.Context, cfg *config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("get-mint-details", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: get-mint-details <MINT_ADDRESS>")
	}
	mint, err := solana.PublicKeyFromBase58(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid mint address: %w", err)
	}

	details, err := cfg.mintClient().GetMintDetails(ctx, mint)
	if err != nil {
		return err
	}
	printMintDetails(stdout, details)
	return nil
}

func runCreateScoringMint(ctx context.Context, cfg *config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("create-scoring-mint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mintKeypair := fs.String("mint-keypair", "", "Keypair file for the mint [default: randomly generated keypair]")
	scoreAuthority := fs.String("score-authority", "", "Score authority address [default: client keypair address]")
	fs.StringVar(scoreAuthority, "scoring-authority", "", "Alias for --score-authority")
	freezeAuthority := fs.String("freeze-authority", "", "Freeze authority address [default: unset]")
	metadataURI := fs.String("metadata-uri", "", "JSON URI containing metadata for the score")
	fs.StringVar(metadataURI, "uri", "", "Alias for --metadata-uri")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mintKeypair == "" && fs.NArg() > 0 {
		*mintKeypair = fs.Arg(0)
	}
	if *metadataURI == "" {
		return errors.New("--metadata-uri is required")
	}

	payer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.keypair)
	if err != nil {
		return fmt.Errorf("read keypair %s: %w", cfg.keypair, err)
	}
	params := mintclient.CreateParams{
		Payer:       payer,
		MetadataURI: *metadataURI,
	}
	if *mintKeypair != "" {
		if params.Mint, err = solana.PrivateKeyFromSolanaKeygenFile(*mintKeypair); err != nil {
			return fmt.Errorf("read mint keypair %s: %w", *mintKeypair, err)
		}
	}
	if *scoreAuthority != "" {
		pk, err := solana.PublicKeyFromBase58(*scoreAuthority)
		if err != nil {
			return fmt.Errorf("invalid score authority: %w", err)
		}
		params.ScoreAuthority = &pk
	}
	if *freezeAuthority != "" {
		pk, err := solana.PublicKeyFromBase58(*freezeAuthority)
		if err != nil {
			return fmt.Errorf("invalid freeze authority: %w", err)
		}
		params.FreezeAuthority = &pk
	}

	res, err := cfg.mintClient().CreateScoringMint(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Creating scoring mint %s\n", res.Mint)
	if cfg.verbose {
		fmt.Fprintf(stdout, "Rent-exempt balance: %s SOL\n", lamportsToSOL(res.RentLamports))
		fmt.Fprintf(stdout, "Signature: %s\n", res.Signature)
	}
	fmt.Fprintln(stdout, "Done creating scoring mint")
	return nil
}

func runWatchMint(ctx context.Context, cfg *config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("watch-mint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: watch-mint <MINT_ADDRESS>")
	}
	mint, err := solana.PublicKeyFromBase58(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid mint address: %w", err)
	}

	wsCfg := solclient.DefaultWSConfig()
	wsCfg.Logger = cfg.logger
	ws, err := solclient.NewWSClient(ctx, cfg.wsURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.wsURL, err)
	}
	defer ws.Close()

	client := cfg.mintClient(mintclient.WithWSClient(ws))
	if details, err := client.GetMintDetails(ctx, mint); err == nil {
		printMintDetails(stdout, details)
	} else if !errors.Is(err, mintclient.ErrMintNotFound) {
		return err
	}

	updates, err := client.WatchMint(ctx, mint)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Watching %s (Ctrl-C to stop)\n", mint)
	for u := range updates {
		fmt.Fprintf(stdout, "--- slot %d\n", u.Slot)
		if u.Err != nil {
			fmt.Fprintf(stdout, "error: %v\n", u.Err)
			continue
		}
		printMintDetails(stdout, u.Details)
	}
	return nil
}

func printMintDetails(w io.Writer, d *mintclient.MintDetails) {
	freeze := "(not set)"
	if d.FreezeAuthority != nil {
		freeze = d.FreezeAuthority.String()
	}
	fmt.Fprintf(w, "Mint:             %s\n", d.Address)
	fmt.Fprintf(w, "State:            %s\n", d.State)
	fmt.Fprintf(w, "Score authority:  %s\n", d.ScoreAuthority)
	fmt.Fprintf(w, "Freeze authority: %s\n", freeze)
	fmt.Fprintf(w, "Metadata URI:     %s\n", d.MetadataURI)
	fmt.Fprintf(w, "Balance:          %s SOL\n", lamportsToSOL(d.Lamports))
}

const lamportsPerSOL = 1_000_000_000

func lamportsToSOL(lamports uint64) string {
	s := fmt.Sprintf("%d.%09d", lamports/lamportsPerSOL, lamports%lamportsPerSOL)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// deriveWSURL maps an http(s) RPC URL to the ws(s) URL on the same host.
func deriveWSURL(url string) string {
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
