// Command schafkopf suggests cards for, ranks and replays Schafkopf deals
// described in YAML files.
//
//	schafkopf suggest [flags] deal.yaml
//	schafkopf rank    [flags] deal.yaml
//	schafkopf replay  [-autoplay] [flags] deal.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/ai"
	"github.com/phimuemue/openschafkopf-sub003/service/internal/config"
	"github.com/phimuemue/openschafkopf-sub003/service/internal/game"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalid      = 2
	exitInconsistent = 3
)

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	log := cfg.NewLogger()
	log.SetOutput(stderr)

	err = dispatch(ctx, cfg, log, args, stdout, stderr)
	code := exitCode(err)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		log.WithError(err).WithField("exit_code", code).Error("command failed")
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, engine.ErrInconsistentInformationSet):
		return exitInconsistent
	case errors.Is(err, errUsage),
		errors.Is(err, game.ErrDealFile),
		errors.Is(err, engine.ErrInvalidCard),
		errors.Is(err, engine.ErrIllegalPlay),
		errors.Is(err, os.ErrNotExist):
		return exitInvalid
	default:
		return exitFailure
	}
}

func dispatch(ctx context.Context, cfg config.Config, log *logrus.Logger, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: schafkopf <suggest|rank|replay> [flags] deal.yaml")
		return errors.Wrap(errUsage, "no command")
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	samples := fs.Int("samples", cfg.Samples, "hypothetical deals per decision (0: engine default)")
	budgetMS := fs.Int("budget-ms", int(cfg.Budget/time.Millisecond), "time budget per decision in milliseconds (0: engine default)")
	threads := fs.Int("threads", cfg.Threads, "search workers (0: one per CPU)")
	seed := cfg.Seed
	fs.Func("seed", "sampling seed (default: derived from the position)", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return err
		}
		seed = &v
		return nil
	})
	autoplay := false
	if cmd == "replay" {
		fs.BoolVar(&autoplay, "autoplay", false, "let the engine finish an incomplete deal")
	}
	switch cmd {
	case "suggest", "rank", "replay":
	default:
		return errors.Wrapf(errUsage, "unknown command %q", cmd)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errors.Wrap(errUsage, err.Error())
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errUsage, "want exactly one deal file")
	}

	cfg.Samples = *samples
	cfg.Budget = time.Duration(*budgetMS) * time.Millisecond
	cfg.Threads = *threads
	eng := ai.New(cfg.Engine(log))
	opts := game.QueryOptions{Seed: seed}

	f, err := game.LoadDealFile(fs.Arg(0))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"command": cmd, "file": fs.Arg(0)}).Debug("deal file loaded")

	switch cmd {
	case "replay":
		return replay(ctx, eng, f, opts, autoplay, log, stdout)
	default:
		v, err := f.View()
		if err != nil {
			return err
		}
		sug, err := eng.SuggestCard(ctx, opts.Query(v))
		if err != nil {
			return err
		}
		return game.WriteSuggestion(stdout, sug, cmd == "rank")
	}
}

// replay validates a full deal, optionally lets the engine finish it, and
// prints its scoring trace.
func replay(ctx context.Context, eng *ai.Engine, f *game.DealFile, opts game.QueryOptions, autoplay bool, log *logrus.Logger, stdout io.Writer) error {
	sn, err := f.Snapshot()
	if err != nil {
		return err
	}
	tbl, err := game.NewTable(sn, eng, log)
	if err != nil {
		return err
	}
	if !tbl.Finished() {
		if !autoplay {
			return errors.Wrapf(engine.ErrIllegalPlay, "deal has %d of %d cards; use -autoplay", sn.Sequence.Len(), engine.NumCards)
		}
		tbl.Query = opts
		tbl.Bots = [engine.NumSeats]bool{true, true, true, true}
		tbl.BroadcastFn = func(ev game.GameEvent) {
			if ev.Type == game.EventCardPlayed {
				log.WithFields(logrus.Fields{"seat": ev.Seat, "card": ev.Card.Code, "trick": ev.Trick}).Info("engine played")
			}
		}
		if err := tbl.Run(ctx); err != nil {
			return err
		}
	}
	sc, err := tbl.Score()
	if err != nil {
		return err
	}
	return game.WriteScore(stdout, sc)
}
