// Package cmd implements the interactive command line client.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/fzft/go-mini-redis/deps/hredis"
	"github.com/fzft/go-mini-redis/deps/linenoise"
	"github.com/fzft/go-mini-redis/resp"
)

var (
	RedisCliHisFileEnv     = "MINIREDIS_HISTFILE"
	RedisCliHisFileDefault = ".miniredis_history"

	connectTimeout = 5 * time.Second
)

type OutputMode uint8

const (
	OutputStandard OutputMode = iota
	OutputRaw
)

type CliConnInfo struct {
	hostIp   string
	hostPort int
}

func (c *CliConnInfo) addr() string {
	return net.JoinHostPort(c.hostIp, strconv.Itoa(c.hostPort))
}

type RedisCliCfg struct {
	connInfo    *CliConnInfo
	interactive bool
	prompt      string
	output      OutputMode
}

type RedisCli struct {
	config *RedisCliCfg
	client *hredis.Client
	out    io.Writer
}

// NewRedisCli returns a cli for host:port. Output is raw unless stdout is
// a terminal.
func NewRedisCli(host string, port int) *RedisCli {
	cli := &RedisCli{
		config: &RedisCliCfg{
			connInfo: &CliConnInfo{hostIp: host, hostPort: port},
		},
		out: os.Stdout,
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		cli.config.output = OutputRaw
	}
	cli.cliRefreshPrompt()
	return cli
}

// SetRaw forces raw or formatted output.
func (cli *RedisCli) SetRaw(raw bool) {
	if raw {
		cli.config.output = OutputRaw
	} else {
		cli.config.output = OutputStandard
	}
}

// Run sends args as a single command when given, otherwise it reads
// commands from stdin until EOF or quit.
func (cli *RedisCli) Run(args []string) error {
	if len(args) > 0 {
		if err := cli.connect(); err != nil {
			return err
		}
		defer cli.client.Close()
		return cli.issueCommand(args, 1)
	}

	if err := cli.connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to %s: %s\n", cli.config.connInfo.addr(), err)
	}
	defer func() {
		if cli.client != nil {
			cli.client.Close()
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		cli.config.interactive = true
		return cli.repl()
	}
	return cli.pipe(os.Stdin)
}

// connect dials the configured server, replacing any previous connection.
func (cli *RedisCli) connect() error {
	if cli.client != nil {
		cli.client.Close()
		cli.client = nil
	}

	client, err := hredis.DialTimeout(cli.config.connInfo.addr(), connectTimeout)
	if err != nil {
		return err
	}
	if _, err := client.Command("PING"); err != nil {
		client.Close()
		return err
	}
	cli.client = client
	return nil
}

func (cli *RedisCli) repl() error {
	line := linenoise.New()
	defer line.Close()

	historyFile := getDotfilePath(RedisCliHisFileEnv, RedisCliHisFileDefault)
	if historyFile != "" {
		_ = line.HistoryLoad(historyFile)
		defer line.HistorySave(historyFile)
	}

	for {
		prompt := cli.config.prompt
		if cli.client == nil {
			prompt = "not connected> "
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		if quit := cli.handleLine(input); quit {
			return nil
		}
	}
}

// pipe runs one command per line of r.
func (cli *RedisCli) pipe(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if quit := cli.handleLine(scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine runs one input line and reports whether the session is over.
func (cli *RedisCli) handleLine(line string) bool {
	argv, err := splitArgs(line)
	if err != nil {
		fmt.Fprintln(cli.out, "Invalid argument(s)")
		return false
	}
	if len(argv) == 0 {
		return false
	}

	// check if we have a repeat command option and need to skip the first arg
	repeat := 1
	if n, err := strconv.Atoi(argv[0]); err == nil && len(argv) > 1 {
		if n <= 0 {
			fmt.Fprintln(cli.out, "Invalid repeat command option value.")
			return false
		}
		repeat = n
		argv = argv[1:]
	}

	switch {
	case strings.EqualFold(argv[0], "quit"), strings.EqualFold(argv[0], "exit"):
		return true
	case len(argv) == 3 && strings.EqualFold(argv[0], "connect"):
		port, err := strconv.Atoi(argv[2])
		if err != nil {
			fmt.Fprintln(cli.out, "Invalid port number")
			return false
		}
		cli.config.connInfo.hostIp = argv[1]
		cli.config.connInfo.hostPort = port
		cli.cliRefreshPrompt()
		if err := cli.connect(); err != nil {
			fmt.Fprintf(cli.out, "Could not connect to %s: %s\n", cli.config.connInfo.addr(), err)
		}
	case len(argv) == 1 && strings.EqualFold(argv[0], "clear"):
		_ = linenoise.ClearScreen(cli.out)
	default:
		if err := cli.issueCommand(argv, repeat); err != nil {
			fmt.Fprintln(cli.out, err)
		}
	}
	return false
}

// issueCommand sends argv repeat times and prints each reply. An I/O
// failure drops the connection; the next command reconnects.
func (cli *RedisCli) issueCommand(argv []string, repeat int) error {
	for i := 0; i < repeat; i++ {
		if cli.client == nil {
			if err := cli.connect(); err != nil {
				return fmt.Errorf("Could not connect to %s: %w", cli.config.connInfo.addr(), err)
			}
		}
		reply, err := cli.client.Do(argv...)
		if err != nil {
			cli.client.Close()
			cli.client = nil
			return fmt.Errorf("I/O error: %w", err)
		}
		fmt.Fprint(cli.out, cli.formatReply(reply))
	}
	return nil
}

func (cli *RedisCli) formatReply(reply resp.Node) string {
	if cli.config.output == OutputRaw {
		return formatRaw(reply) + "\n"
	}
	return formatStandard(reply, "")
}

func (cli *RedisCli) cliRefreshPrompt() {
	cli.config.prompt = cli.config.connInfo.addr() + "> "
}

// getDotfilePath returns the path named by envOverride, or dotFilename in
// the home directory. An empty result disables the file.
func getDotfilePath(envOverride, dotFilename string) string {
	if path, ok := os.LookupEnv(envOverride); ok {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
