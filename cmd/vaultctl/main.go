package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/titanite07/TechVault/internal/domain"
	apiclient "github.com/titanite07/TechVault/pkg/api/client"
)

const defaultAPIBaseURL = "http://localhost:5000"

type cliConfig struct {
	APIBaseURL  string    `json:"api_base_url"`
	AccessToken string    `json:"access_token"`
	Username    string    `json:"username,omitempty"`
	Role        string    `json:"role,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout()
	case "assets":
		err = commandAssets(args)
	case "analytics":
		err = commandAnalytics(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*username) == "" {
		return errors.New("--username is required")
	}

	secret := *password
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	resp, err := client.Login(ctx, *username, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = resp.Token
	cfg.Username = resp.Username
	cfg.Role = string(resp.Role)
	cfg.ExpiresAt = resp.ExpiresAt
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", resp.Username, resp.Role)
	return nil
}

func commandLogout() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AccessToken = ""
	cfg.Username = ""
	cfg.Role = ""
	cfg.ExpiresAt = time.Time{}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandAssets(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: vaultctl assets [list|add|rm]")
	}
	switch args[0] {
	case "list":
		return assetsList(args[1:])
	case "add":
		return assetsAdd(args[1:])
	case "rm":
		return assetsRemove(args[1:])
	default:
		return fmt.Errorf("unknown assets command: %s", args[0])
	}
}

func assetsList(args []string) error {
	fs := flag.NewFlagSet("assets list", flag.ExitOnError)
	assetType := fs.String("type", "", "Only show assets of this type (Laptop|Monitor|License)")
	fs.Parse(args)

	filter, err := parseTypeFlag(*assetType)
	if err != nil {
		return err
	}
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	assets, err := client.ListAssets(ctx, token)
	if err != nil {
		return err
	}
	printAssets(os.Stdout, filterAssets(assets, filter))
	return nil
}

func assetsAdd(args []string) error {
	fs := flag.NewFlagSet("assets add", flag.ExitOnError)
	name := fs.String("name", "", "Asset name")
	assetType := fs.String("type", "", "Asset type (Laptop|Monitor|License)")
	status := fs.String("status", "", "Initial status (default Available)")
	specs := fs.String("specs", "", "Specifications")
	assignee := fs.String("assign", "", "Assignee")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return errors.New("--name is required")
	}
	if strings.TrimSpace(*specs) == "" {
		return errors.New("--specs is required")
	}
	typ, err := parseTypeFlag(*assetType)
	if err != nil {
		return err
	}
	if typ == "" {
		return errors.New("--type is required")
	}
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	input := apiclient.CreateAssetRequest{
		Name:           *name,
		Type:           typ,
		Status:         domain.AssetStatus(*status),
		Specifications: *specs,
	}
	if v := strings.TrimSpace(*assignee); v != "" {
		input.AssignedTo = &v
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	created, err := client.CreateAsset(ctx, token, input)
	if err != nil {
		return err
	}
	fmt.Printf("asset created: %s (%s)\n", created.ID, created.Name)
	return nil
}

func assetsRemove(args []string) error {
	fs := flag.NewFlagSet("assets rm", flag.ExitOnError)
	id := fs.String("id", "", "Asset identifier")
	fs.Parse(args)

	if strings.TrimSpace(*id) == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}
	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	deleted, err := client.DeleteAsset(ctx, token, *id)
	if err != nil {
		return err
	}
	fmt.Printf("asset deleted: %s (%s)\n", deleted.ID, deleted.Name)
	return nil
}

func commandAnalytics(args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Parse(args)

	client, token, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	summary, err := client.Analytics(ctx, token)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printAnalytics(os.Stdout, summary)
	return nil
}

func authedClient() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please login first using 'vaultctl login'")
	}
	if !cfg.ExpiresAt.IsZero() && time.Now().After(cfg.ExpiresAt) {
		return nil, "", errors.New("session expired, please login again")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func parseTypeFlag(raw string) (domain.AssetType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", nil
	}
	for _, t := range domain.AssetTypes {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown asset type %q", raw)
}

func filterAssets(assets []domain.Asset, typ domain.AssetType) []domain.Asset {
	if typ == "" {
		return assets
	}
	out := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func printAssets(w io.Writer, assets []domain.Asset) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tASSIGNED\tCREATED")
	for _, a := range assets {
		assigned := "-"
		if a.AssignedTo != nil {
			assigned = *a.AssignedTo
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, a.Status, assigned, a.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printAnalytics(w io.Writer, a domain.Analytics) {
	fmt.Fprintf(w, "Total assets: %d\n\nBy type:\n", a.Total)
	for _, t := range domain.AssetTypes {
		fmt.Fprintf(w, "  %-12s %d\n", t, a.ByType[t])
	}
	fmt.Fprintln(w, "\nBy status:")
	for _, s := range domain.AssetStatuses {
		fmt.Fprintf(w, "  %-12s %d\n", s, a.ByStatus[s])
	}
	fmt.Fprintln(w, "\nRecently added:")
	for _, r := range a.RecentAssets {
		fmt.Fprintf(w, "  %s (%s) %s\n", r.Name, r.Type, r.CreatedAt.Format(time.RFC3339))
	}
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("VAULTCTL_CONFIG")); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "techvault", "config.json"), nil
}

func printUsage() {
	fmt.Printf("vaultctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	vaultctl login --username admin [--password secret] [--api http://localhost:5000]
	vaultctl logout
	vaultctl assets list [--type Laptop|Monitor|License]
	vaultctl assets add --name <name> --type <type> --specs <text> [--status Available] [--assign user]
	vaultctl assets rm --id <asset-id>
	vaultctl analytics [--json]
	vaultctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
