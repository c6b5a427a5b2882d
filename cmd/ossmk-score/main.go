// Command ossmk-score scores a saved event set under a rule set
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ossmk/internal/core/rules"
	"ossmk/internal/core/score"
	"ossmk/internal/core/version"
	"ossmk/internal/export"
	"ossmk/internal/platform/config"
	"ossmk/internal/platform/logger"
)

func main() {
	var (
		in     = flag.String("in", "-", "events JSON path (- for stdin)")
		ruleID = flag.String("rules", "", "rule set: default or a .toml path")
		format = flag.String("format", "json", "output format: json or csv")
		out    = flag.String("out", "", "output path (default stdout)")
		ver    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *ver {
		info := version.Info()
		fmt.Printf("%s %s (%s, %s)\n", info.Service, info.Version, info.Commit, info.Date)
		return
	}

	logger.Init(logger.FromEnv())
	l := logger.Get()

	f, err := export.ParseFormat(*format)
	if err != nil {
		l.Fatal().Err(err).Msg("bad -format")
	}

	r, closeIn, err := openIn(*in)
	if err != nil {
		l.Fatal().Err(err).Str("path", *in).Msg("open input failed")
	}
	evs, err := export.ReadEventsJSON(r)
	closeIn()
	if err != nil {
		l.Fatal().Err(err).Msg("read events failed")
	}

	rs, err := rules.Resolve(*ruleID)
	if err != nil {
		l.Fatal().Err(err).Msg("load rules failed")
	}

	opts := score.FromConfig(config.New().Prefix("OSSMK_"), time.Now().UTC())
	scores := score.Score(evs, rs, opts)

	w, closeOut, err := openOut(*out)
	if err != nil {
		l.Fatal().Err(err).Str("path", *out).Msg("open output failed")
	}
	defer closeOut()

	if err := export.WriteScores(w, scores, f); err != nil {
		l.Fatal().Err(err).Msg("write failed")
	}
	l.Info().Int("events", len(evs)).Int("scores", len(scores)).Msg("scoring complete")
}

func openIn(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOut(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
