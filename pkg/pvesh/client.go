// pkg/pvesh/client.go

// Package pvesh wraps the Proxmox pvesh command line tool. Every distinct
// (command, argument) pair is executed at most once per Client.
package pvesh

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/utils"
)

// DefaultBinary is the pvesh executable looked up in PATH
const DefaultBinary = "pvesh"

// OutputMode selects how pvesh is asked to format its output
type OutputMode int

const (
	// OutputJSON passes --output-format=json (PVE 5.x and later)
	OutputJSON OutputMode = iota

	// OutputLegacy omits the flag; older pvesh versions print JSON by default
	OutputLegacy
)

func (m OutputMode) String() string {
	if m == OutputLegacy {
		return "legacy"
	}
	return "json"
}

// ExternalToolError reports a pvesh invocation that failed or printed
// something that could not be decoded
type ExternalToolError struct {
	Command  string
	Argument string
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("pvesh %s %s: %v", e.Command, e.Argument, e.Err)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// Options configures a Client
type Options struct {
	Binary string
	Mode   OutputMode

	// AllNodes lists guests of every cluster node instead of only the local one
	AllNodes bool

	// Hostname overrides the executor hostname when selecting the local node
	Hostname string

	Logger *zap.Logger
}

type cacheKey struct {
	command  string
	argument string
}

// Client is the data access shim. It is not safe for concurrent use.
type Client struct {
	exec   utils.CommandExecutor
	opts   Options
	logger *zap.Logger
	cache  map[cacheKey]json.RawMessage
}

// NewClient creates a client running pvesh through exec
func NewClient(exec utils.CommandExecutor, opts Options) *Client {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		exec:   exec,
		opts:   opts,
		logger: logger.Named("pvesh"),
		cache:  make(map[cacheKey]json.RawMessage),
	}
}

// Call runs `pvesh <command> <argument>` and returns the decoded JSON document.
// Identical calls are answered from the cache.
func (c *Client) Call(command, argument string) (json.RawMessage, error) {
	key := cacheKey{command: command, argument: argument}
	if data, ok := c.cache[key]; ok {
		c.logger.Debug("Cache hit", zap.String("command", command), zap.String("argument", argument))
		return data, nil
	}

	args := []string{command, argument}
	if c.opts.Mode == OutputJSON {
		args = append(args, "--output-format=json")
	}

	c.logger.Debug("Running pvesh",
		zap.String("command", command),
		zap.String("argument", argument),
		zap.Stringer("mode", c.opts.Mode))

	out, err := c.exec.RunCommand(c.opts.Binary, args...)
	if err != nil {
		toolErr := &ExternalToolError{Command: command, Argument: argument, Err: err}
		var cmdErr *utils.CommandError
		if errors.As(err, &cmdErr) {
			toolErr.Stderr = cmdErr.Stderr
		}
		c.logger.Error("pvesh failed", zap.String("argument", argument), zap.Error(err))
		return nil, toolErr
	}

	data := json.RawMessage(strings.TrimSpace(out))
	if !json.Valid(data) {
		c.logger.Error("pvesh output is not JSON", zap.String("argument", argument), zap.Stringer("mode", c.opts.Mode))
		return nil, &ExternalToolError{
			Command:  command,
			Argument: argument,
			Err:      errors.WithHint(errors.New("output is not valid JSON"), "set is_old_pvesh only for pvesh versions that print JSON by default"),
		}
	}

	c.cache[key] = data
	return data, nil
}

// Get is Call with the "get" verb decoded into v
func (c *Client) Get(path string, v any) error {
	data, err := c.Call("get", path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ExternalToolError{Command: "get", Argument: path, Err: errors.Wrap(err, "decoding output")}
	}
	return nil
}

// Close drops every cached response
func (c *Client) Close() {
	c.cache = make(map[cacheKey]json.RawMessage)
}

// CacheSize returns the number of memoized responses
func (c *Client) CacheSize() int {
	return len(c.cache)
}
