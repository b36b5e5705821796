package main

import (
	"flag"
	"fmt"

	"github.com/your-org/finishline/internal/config"
	"github.com/your-org/finishline/internal/models"
)

// cliFlags holds command line overrides. Only flags given explicitly replace
// values from the config file.
type cliFlags struct {
	configPath string
	input      string
	output     string
	model      string
	show       bool
	skip       int
	excluded   string
	port       int

	set map[string]bool
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{set: map[string]bool{}}

	fs := flag.NewFlagSet("racetrack", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "path to config file")
	fs.StringVar(&f.input, "input", "", "race video to analyze")
	fs.StringVar(&f.output, "output", "", "directory for the annotated video")
	fs.StringVar(&f.model, "model", "", "path to the ONNX detection model")
	fs.BoolVar(&f.show, "show", false, "show a live preview, press q to stop")
	fs.IntVar(&f.skip, "skip", 1, "process every n-th frame")
	fs.StringVar(&f.excluded, "excluded", "", "comma-separated track ids that never win")
	fs.IntVar(&f.port, "port", 0, "status server port, 0 disables")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

func (f *cliFlags) apply(cfg *config.Config) error {
	if f.set["input"] {
		cfg.Race.InputPath = f.input
	}
	if f.set["output"] {
		cfg.Race.OutputDir = f.output
	}
	if f.set["model"] {
		cfg.Vision.ModelPath = f.model
	}
	if f.set["show"] {
		cfg.Race.ShowVideo = f.show
	}
	if f.set["skip"] {
		cfg.Race.SkipFrames = f.skip
	}
	if f.set["excluded"] {
		ids, err := config.ParseIDList(f.excluded)
		if err != nil {
			return fmt.Errorf("%w: -excluded: %v", models.ErrConfiguration, err)
		}
		cfg.Race.ExcludedIDs = ids
	}
	if f.set["port"] {
		cfg.Server.Port = f.port
	}
	return nil
}
