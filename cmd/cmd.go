// Package cmd provides CLI command implementations for reactome-sbml.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/collect"
	"github.com/Benny93/reactome-sbml/internal/config"
	"github.com/Benny93/reactome-sbml/internal/export"
	"github.com/Benny93/reactome-sbml/internal/sbo"
	"github.com/Benny93/reactome-sbml/internal/storage"
	"github.com/Benny93/reactome-sbml/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Source   string `enum:"neo4j,mysql,snapshot,json" default:"neo4j" env:"REACTOME_SOURCE" help:"Backing store (${enum})"`
	Host     string `default:"localhost" env:"REACTOME_HOST" help:"Database host"`
	Port     int    `env:"REACTOME_PORT" help:"Database port (default 7687 for neo4j, 3306 for mysql)"`
	User     string `env:"REACTOME_USER" help:"Database user"`
	Password string `env:"REACTOME_PASSWORD" help:"Database password"`
	Database string `env:"REACTOME_DATABASE" help:"Database name"`
	Snapshot string `type:"path" help:"Badger snapshot directory (--source snapshot)"`
	JSON     string `name:"json" type:"path" help:"JSON dump file (--source json)"`

	stdout io.Writer
	stderr io.Writer
	open   config.Opener
	logger *zap.Logger
}

// SourceConfig builds the source configuration from the flags.
func (g *Globals) SourceConfig() config.Config {
	cfg := config.Default()
	cfg.Source = g.Source
	cfg.Snapshot = g.Snapshot
	cfg.JSON = g.JSON

	for _, db := range []*config.Database{&cfg.Neo4j, &cfg.MySQL} {
		if g.Host != "" {
			db.Host = g.Host
		}
		if g.User != "" {
			db.User = g.User
		}
		if g.Password != "" {
			db.Password = g.Password
		}
		if g.Database != "" {
			db.Database = g.Database
		}
	}
	if g.Port != 0 {
		cfg.Neo4j.Port = g.Port
		cfg.MySQL.Port = g.Port
	}
	return cfg
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *Globals) errOut() io.Writer {
	if g.stderr == nil {
		return os.Stderr
	}
	return g.stderr
}

func (g *Globals) openSource(ctx context.Context) (storage.Source, error) {
	open := g.open
	if open == nil {
		open = config.Open
	}
	return open(ctx, g.SourceConfig())
}

// Logger returns the process logger, building it on first use.
func (g *Globals) Logger() (*zap.Logger, error) {
	if g.logger != nil {
		return g.logger, nil
	}
	var (
		logger *zap.Logger
		err    error
	)
	if g.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	g.logger = logger
	return logger, nil
}

// printInfo writes the database banner.
func (g *Globals) printInfo(ctx context.Context, src storage.Source) error {
	info, err := src.Info(ctx)
	if err != nil {
		return fmt.Errorf("reading database info: %w", err)
	}
	fmt.Fprintf(g.out(), "Database name: %s\n", info.Name)
	fmt.Fprintf(g.out(), "Database version: %d\n", info.Version)
	return nil
}

// ExportCmd writes the SBML document for one event.
type ExportCmd struct {
	ID            string `arg:"" help:"DB_ID or stable identifier of a pathway or reaction"`
	Output        string `short:"o" default:"out.xml" type:"path" help:"Output file"`
	NoAnnotations bool   `help:"Skip identifiers.org annotations"`
	Quiet         bool   `short:"q" help:"Do not echo the document to stdout"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	logger, err := g.Logger()
	if err != nil {
		return err
	}

	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err := g.printInfo(ctx, src); err != nil {
		return err
	}

	opts := export.Options{
		ID:          c.ID,
		Output:      c.Output,
		Annotations: !c.NoAnnotations,
		Logger:      logger,
	}
	if !c.Quiet {
		opts.Echo = g.out()
	}

	result, err := export.Run(ctx, src, opts)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", c.ID, err)
	}

	// Print summary
	color.New(color.FgGreen).Fprintf(g.errOut(), "✓ Wrote %s\n", result.Output)
	fmt.Fprintf(g.errOut(), "  Model:          %s\n", result.ModelID)
	fmt.Fprintf(g.errOut(), "  Compartments:   %d\n", result.Compartments)
	fmt.Fprintf(g.errOut(), "  Species:        %d\n", result.Species)
	fmt.Fprintf(g.errOut(), "  Reactions:      %d\n", result.Reactions)
	fmt.Fprintf(g.errOut(), "  Duration:       %.2fs\n", result.DurationSecs)

	return nil
}

// SnapshotCmd stores the records one export needs for offline use.
type SnapshotCmd struct {
	ID     string `arg:"" help:"DB_ID or stable identifier of a pathway or reaction"`
	To     string `required:"" type:"path" help:"Snapshot directory (badger) or file (json)"`
	Format string `enum:"badger,json" default:"badger" help:"Snapshot format (${enum})"`
}

// Run executes the snapshot command.
func (c *SnapshotCmd) Run(g *Globals) error {
	ctx := context.Background()
	logger, err := g.Logger()
	if err != nil {
		return err
	}

	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var res *export.SnapshotResult
	switch c.Format {
	case "json":
		res, err = export.SnapshotJSON(ctx, src, c.ID, c.To, logger)
	default:
		res, err = export.SnapshotBadger(ctx, src, c.ID, c.To, logger)
	}
	if err != nil {
		return fmt.Errorf("snapshotting %s: %w", c.ID, err)
	}

	color.New(color.FgGreen).Fprintf(g.out(), "✓ Stored %d records from %s release %d in %s\n",
		res.Records, res.Info.Name, res.Info.Version, c.To)
	return nil
}

// SearchCmd searches a snapshot by display name.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	ctx := context.Background()
	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	searcher, ok := src.(mcp.Searcher)
	if !ok {
		return fmt.Errorf("search needs a snapshot source (--source snapshot)")
	}

	results, err := searcher.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(g.out(), "No results found")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(g.out(), "\n%d. %s (%s)\n", i+1, r.Name, r.Class)
		fmt.Fprintf(g.out(), "   DB_ID: %d\n", r.DBID)
		if r.StID != "" {
			fmt.Fprintf(g.out(), "   StID:  %s\n", r.StID)
		}
		fmt.Fprintf(g.out(), "   Score: %.3f\n", r.Score)
	}

	return nil
}

// ClassifyCmd prints the SBO term of a schema class or role.
type ClassifyCmd struct {
	Name string `arg:"" help:"Schema class (e.g. Complex) or participant role (e.g. catalyst)"`
}

// Run executes the classify command.
func (c *ClassifyCmd) Run(g *Globals) error {
	term, ok := sbo.Lookup(c.Name)
	if !ok {
		return fmt.Errorf("%q is not a known schema class or role", c.Name)
	}
	if !term.IsSet() {
		fmt.Fprintf(g.out(), "%s: no SBO term\n", c.Name)
		return nil
	}
	fmt.Fprintf(g.out(), "%s: %s\n", c.Name, term)
	return nil
}

// LookupCmd lists pathways with a single reaction that consumes a polymer.
type LookupCmd struct {
	Species int64 `default:"48887" help:"Species DB_ID to restrict pathways to (0 for all)"`
}

// Run executes the lookup command.
func (c *LookupCmd) Run(g *Globals) error {
	ctx := context.Background()
	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	lister, ok := src.(collect.Lister)
	if !ok {
		return fmt.Errorf("%s source cannot list pathways", g.Source)
	}

	matches, total, err := collect.PolymerPathways(ctx, lister, c.Species)
	if err != nil {
		return fmt.Errorf("looking up pathways: %w", err)
	}
	for _, p := range matches {
		fmt.Fprintf(g.out(), "Pathway %d matches (%s)\n", p.DBID, p.DisplayName)
	}
	fmt.Fprintf(g.out(), "Found %d of %d\n", len(matches), total)
	return nil
}

// ActivitiesCmd reports the GO molecular function of the catalyst in
// pathways made of a single reaction.
type ActivitiesCmd struct {
	Species int64 `default:"48887" help:"Species DB_ID to restrict pathways to (0 for all)"`
}

// Run executes the activities command.
func (c *ActivitiesCmd) Run(g *Globals) error {
	ctx := context.Background()
	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	lister, ok := src.(collect.Lister)
	if !ok {
		return fmt.Errorf("%s source cannot list pathways", g.Source)
	}

	reports, total, err := collect.CatalystActivities(ctx, lister, c.Species)
	if err != nil {
		return fmt.Errorf("looking up catalyst activities: %w", err)
	}
	for _, r := range reports {
		if r.Activity == nil {
			fmt.Fprintf(g.out(), "Pathway %d catalyst activity has no GO molecular function\n", r.Pathway.DBID)
			continue
		}
		fmt.Fprintf(g.out(), "Pathway %d catalyst activity has %s\n", r.Pathway.DBID, r.Activity.DisplayName)
	}
	fmt.Fprintf(g.out(), "Found %d of %d\n", len(reports), total)
	return nil
}

// InfoCmd prints the name and release of the source database.
type InfoCmd struct{}

// Run executes the info command.
func (c *InfoCmd) Run(g *Globals) error {
	ctx := context.Background()
	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	return g.printInfo(ctx, src)
}

// WatchCmd re-exports whenever a JSON dump changes.
type WatchCmd struct {
	Dump          string        `arg:"" type:"existingfile" help:"JSON dump to watch"`
	ID            string        `arg:"" help:"DB_ID or stable identifier to export"`
	Output        string        `short:"o" default:"out.xml" type:"path" help:"Output file"`
	NoAnnotations bool          `help:"Skip identifiers.org annotations"`
	Debounce      time.Duration `default:"500ms" help:"Quiet period before re-exporting"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	logger, err := g.Logger()
	if err != nil {
		return err
	}

	fmt.Fprintln(g.out(), "## Watch Mode")
	fmt.Fprintf(g.out(), "Watching %s for changes (Ctrl+C to stop)\n\n", c.Dump)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		fmt.Fprintln(g.out(), "\nStopping watch mode...")
		cancel()
	}()

	err = export.Watch(ctx, c.Dump, export.WatchOptions{
		Options: export.Options{
			ID:          c.ID,
			Output:      c.Output,
			Annotations: !c.NoAnnotations,
			Logger:      logger,
		},
		Debounce: c.Debounce,
		OnExport: func(r *export.Result, err error) {
			if err != nil {
				color.New(color.FgRed).Fprintf(g.errOut(), "✗ %v\n", err)
				return
			}
			color.New(color.FgGreen).Fprintf(g.out(), "✓ %s: %d reactions, %d species -> %s\n",
				r.ModelID, r.Reactions, r.Species, r.Output)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(g.out(), "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	SDK bool `help:"Serve through the SDK stdio transport"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx := context.Background()
	logger, err := g.Logger()
	if err != nil {
		return err
	}

	src, err := g.openSource(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	server := mcp.NewServer(src, logger)

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	if c.SDK {
		return server.RunSDK(ctx, &sdk.StdioTransport{})
	}
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// SetupCmd writes MCP client configuration.
type SetupCmd struct {
	Cursor   bool   `help:"Configure for Cursor"`
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom directory for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	cfg := mcpConfig(g)

	// If no specific client is specified, output config to stdout
	clients := c.clients()
	if len(clients) == 0 {
		return writeConfigTo(g.out(), cfg, c.Format)
	}

	for _, client := range clients {
		path := getLocalConfigPath(".", client)
		switch {
		case c.FilePath != "":
			path = filepath.Join(c.FilePath, "mcp.json")
		case c.Global:
			path = getGlobalConfigPath(client)
		}
		if err := writeConfig(path, cfg, c.Format); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(g.out(), "✓ Created %s MCP config at %s\n", client, path)
	}
	return nil
}

func (c *SetupCmd) clients() []string {
	var clients []string
	if c.Cursor {
		clients = append(clients, "cursor")
	}
	if c.Qwen {
		clients = append(clients, "qwen")
	}
	return clients
}

// mcpConfig points a client at "reactome-sbml mcp" with the current source flags.
func mcpConfig(g *Globals) map[string]any {
	args := []string{"mcp", "--source", g.Source}
	switch g.Source {
	case config.SourceSnapshot:
		args = append(args, "--snapshot", g.Snapshot)
	case config.SourceJSON:
		args = append(args, "--json", g.JSON)
	default:
		args = append(args, "--host", g.Host)
		if g.Port != 0 {
			args = append(args, "--port", fmt.Sprint(g.Port))
		}
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"reactome-sbml": map[string]any{
				"command": "reactome-sbml",
				"args":    args,
			},
		},
	}
}

// Path helpers

func getLocalConfigPath(basePath, client string) string {
	return filepath.Join(basePath, "."+client, "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, "."+client, "global", "mcp.json")
}

// Config writers

func writeConfig(configPath string, cfg map[string]any, format string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := writeConfigTo(f, cfg, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeConfigTo(w io.Writer, cfg map[string]any, format string) error {
	if format == "json" {
		content, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(content))
		return err
	}

	// Text format - just output key-value pairs
	var sb strings.Builder
	sb.WriteString("# MCP Configuration for reactome-sbml\n")
	sb.WriteString("# Generated by reactome-sbml setup\n\n")
	for key, value := range cfg {
		sb.WriteString(fmt.Sprintf("%s: %s\n", key, toJSON(value)))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func toJSON(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`
	Config  kong.ConfigFlag  `help:"Load flags from a JSON file"`

	// Commands
	Export     ExportCmd     `cmd:"" help:"Export a pathway or reaction as SBML"`
	Snapshot   SnapshotCmd   `cmd:"" help:"Store the records of one export for offline use"`
	Search     SearchCmd     `cmd:"" help:"Search a snapshot by display name"`
	Classify   ClassifyCmd   `cmd:"" help:"Print the SBO term of a schema class or role"`
	Lookup     LookupCmd     `cmd:"" help:"List pathways whose single reaction consumes a polymer"`
	Activities ActivitiesCmd `cmd:"" help:"Show the catalyst GO function of single-reaction pathways"`
	Info       InfoCmd       `cmd:"" help:"Show the source database name and release"`
	Watch      WatchCmd      `cmd:"" help:"Re-export whenever a JSON dump changes"`
	MCP        MCPCmd        `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup      SetupCmd      `cmd:"" help:"Configure MCP for Cursor / Qwen"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("reactome-sbml"),
		kong.Description("Export Reactome pathways as SBML Level 3 documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(kong.JSON, ".reactome-sbml.json", "~/.reactome-sbml.json"),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	defer func() {
		if c.logger != nil {
			_ = c.logger.Sync()
		}
	}()
	return kongCtx.Run(&c.Globals)
}
