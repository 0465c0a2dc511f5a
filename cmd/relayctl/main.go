package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/extension-relay/internal/client"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/logging"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

const usage = `usage: relayctl [-url URL] [-timeout D] [-v] <command> [args]

commands:
  list      [-type dom|navigation|storage]
  exec      [-params JSON] [-wait] <command>
  navigate  <url>
  history   [-command NAME] [-status STATUS] [-limit N]
  stats     [-command NAME] [-range 1h|24h|7d|30d]
  peer
  bench     [-n N] [-workers W] [-params JSON] <command>
`

type globals struct {
	url     string
	timeout time.Duration
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := flag.NewFlagSet("relayctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&g.url, "url", envOr("RELAY_URL", client.DefaultConfig().BaseURL), "relay base URL")
	fs.DurationVar(&g.timeout, "timeout", 30*time.Second, "command timeout")
	fs.BoolVar(&g.verbose, "v", false, "log HTTP traffic")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := logging.NewDefault()
	if g.verbose {
		logger = logging.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	cfg := client.DefaultConfig()
	cfg.BaseURL = g.url
	cfg.CommandTimeout = g.timeout
	cfg.PageLoadTimeout = g.timeout
	c := client.New(cfg, logger.Component("client"))

	name, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch name {
	case "list":
		err = runList(ctx, c, rest, stdout, stderr)
	case "exec":
		err = runExec(ctx, c, g, rest, stdout, stderr)
	case "navigate":
		err = runNavigate(ctx, c, rest, stdout)
	case "history":
		err = runHistory(ctx, c, rest, stdout, stderr)
	case "stats":
		err = runStats(ctx, c, rest, stdout, stderr)
	case "peer":
		err = runPeer(ctx, c, stdout)
	case "bench":
		err = runBench(ctx, c, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		fs.Usage()
		return 2
	}

	if err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return 2
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func subFlags(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runList(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := subFlags("list", stderr)
	category := fs.String("type", "", "command category")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	cmds, err := c.Commands(ctx, *category)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tRUNS\tDESCRIPTION")
	for _, cmd := range cmds {
		runs := 0
		if cmd.Stats != nil {
			runs = cmd.Stats.Attempted
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", cmd.Name, cmd.Type, runs, cmd.Description)
	}
	return tw.Flush()
}

func runExec(ctx context.Context, c *client.Client, g globals, args []string, stdout, stderr io.Writer) error {
	fs := subFlags("exec", stderr)
	rawParams := fs.String("params", "", "JSON object of parameters")
	wait := fs.Bool("wait", false, "wait for the target element first")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{"expected exactly one command name"}
	}

	params := map[string]interface{}{}
	if *rawParams != "" {
		if err := sonic.UnmarshalString(*rawParams, &params); err != nil {
			return usageError{fmt.Sprintf("invalid -params: %v", err)}
		}
	}
	seconds := int(g.timeout / time.Second)
	resp, err := c.Do(ctx, types.ExecuteRequest{
		Command:        fs.Arg(0),
		Params:         params,
		Timeout:        &seconds,
		WaitForElement: *wait,
	})
	if err != nil {
		return err
	}
	return printJSON(stdout, resp.Result)
}

func runNavigate(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError{"expected exactly one URL"}
	}
	if err := c.Get(ctx, args[0]); err != nil {
		return err
	}
	title, err := c.Title(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "loaded %s (%s)\n", args[0], title)
	return nil
}

func runHistory(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := subFlags("history", stderr)
	var q client.HistoryQuery
	fs.StringVar(&q.Command, "command", "", "filter by command name")
	fs.StringVar(&q.Status, "status", "", "filter by status")
	fs.IntVar(&q.Limit, "limit", 20, "maximum records")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	records, err := c.History(ctx, q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCOMMAND\tSTATUS\tSECONDS\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.Command, r.Status, r.ExecutionTime, r.Error)
	}
	return tw.Flush()
}

func runStats(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := subFlags("stats", stderr)
	command := fs.String("command", "", "single command")
	rng := fs.String("range", "24h", "time range: 1h, 24h, 7d or 30d")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	stats, err := c.Stats(ctx, *command, *rng)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMAND\tATTEMPTED\tSUCCESS\tFAILED\tPENDING\tAVG\tP95")
	for _, name := range names {
		s := stats[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.3f\t%.3f\n",
			name, s.Attempted, s.Success, s.Failed, s.Pending, s.AvgExecutionTime, s.P95ExecutionTime)
	}
	return tw.Flush()
}

func runPeer(ctx context.Context, c *client.Client, stdout io.Writer) error {
	status, err := c.Peer(ctx)
	if err != nil {
		return err
	}
	return printJSON(stdout, status)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
