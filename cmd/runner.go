package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/harmonia-app/harmonia/internal/downloads"
	"github.com/harmonia-app/harmonia/internal/library"
	"github.com/harmonia-app/harmonia/internal/querycache"
	"github.com/harmonia-app/harmonia/internal/shared"
	"github.com/harmonia-app/harmonia/internal/sources"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action. Components are explicit constructed instances — there
// is no module-level shared state.
type Runner struct {
	config     *shared.Config
	store      *library.Store
	cache      *querycache.Cache
	dispatcher *sources.Dispatcher
	manager    *downloads.Manager
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Store      *library.Store
	Cache      *querycache.Cache
	Dispatcher *sources.Dispatcher
	Manager    *downloads.Manager
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided dependencies.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Store,
		cache:      opts.Cache,
		dispatcher: opts.Dispatcher,
		manager:    opts.Manager,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, libraryCommand, downloadCommand, cacheCommand, homeCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	enc := json.NewEncoder(r.output)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (r *Runner) writePlainln(format string, args ...any) {
	fmt.Fprintf(r.output, format+"\n", args...)
}
