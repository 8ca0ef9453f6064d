package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/perishable-vss/internal/config"
	"github.com/andresuchdata/perishable-vss/internal/dataset"
	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/metrics"
	"github.com/andresuchdata/perishable-vss/internal/pipeline"
	"github.com/andresuchdata/perishable-vss/internal/report"
	"github.com/andresuchdata/perishable-vss/internal/solver"
	"github.com/andresuchdata/perishable-vss/internal/storage"
	"github.com/andresuchdata/perishable-vss/pkg/logger"
)

// newApp declares every flag on the app. Subcommands read them through the
// context lineage, so flags go before the command name: vss --data d.yaml plan.
func newApp(cfg *config.Config, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "vss",
		Usage:     "Value of the stochastic solution for perishable order planning",
		UsageText: "vss [global options] [command]",
		Writer:    stdout,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: cfg.Log.Level,
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console or json)",
				Value: cfg.Log.Format,
			},
		}, evaluationFlags(cfg)...),
		Before: func(c *cli.Context) error {
			logger.SetFormat(c.String("log-format"))
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Action: evaluateAction(cfg, stdout),
		Commands: []*cli.Command{
			{
				Name:   "evaluate",
				Usage:  "Solve every model and report EV, EEV, VSS and EVPI",
				Action: evaluateAction(cfg, stdout),
			},
			{
				Name:   "plan",
				Usage:  "Print the expected-value and stochastic order plans",
				Action: planAction(cfg, stdout),
			},
			{
				Name:   "validate",
				Usage:  "Load and validate a dataset; an --object ending in / validates every dataset under that prefix",
				Action: validateAction(cfg, stdout),
			},
		},
	}
}

func datasetFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Dataset file (YAML or JSON); the built-in dataset when empty",
			Value:   cfg.Dataset.Path,
		},
		&cli.StringFlag{
			Name:  "object",
			Usage: "Dataset object key in the configured storage",
			Value: cfg.Dataset.Object,
		},
		&cli.StringFlag{
			Name:  "storage-dir",
			Usage: "Directory that serves dataset objects instead of a bucket",
			Value: cfg.LocalStorageDir,
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (text or json)",
			Value: cfg.Output.Format,
		},
	}
}

func evaluationFlags(cfg *config.Config) []cli.Flag {
	return append(datasetFlags(cfg),
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of models solved concurrently",
			Value: cfg.Solver.Workers,
		},
		&cli.Float64Flag{
			Name:  "tolerance",
			Usage: "Simplex tolerance",
			Value: cfg.Solver.Tolerance,
		},
		&cli.BoolFlag{
			Name:  "verify-eev",
			Usage: "Cross-check EEV with the stochastic model pinned to the EV plan",
			Value: cfg.Solver.VerifyEEV,
		},
	)
}

func evaluateAction(cfg *config.Config, stdout io.Writer) cli.ActionFunc {
	return func(c *cli.Context) error {
		format, ds, sum, err := evaluate(c, cfg)
		if err != nil {
			return err
		}
		return report.WriteSummary(stdout, ds.Name, sum, format)
	}
}

func planAction(cfg *config.Config, stdout io.Writer) cli.ActionFunc {
	return func(c *cli.Context) error {
		format, ds, sum, err := evaluate(c, cfg)
		if err != nil {
			return err
		}
		return report.WritePlans(stdout, ds, sum, format)
	}
}

func validateAction(cfg *config.Config, stdout io.Writer) cli.ActionFunc {
	return func(c *cli.Context) error {
		format, err := report.ParseFormat(c.String("format"))
		if err != nil {
			return err
		}
		if prefix := c.String("object"); strings.HasSuffix(prefix, "/") {
			return validatePrefix(c, cfg, stdout, prefix, format)
		}
		ds, err := loadDataset(c, cfg)
		if err != nil {
			return err
		}
		return report.WriteDataset(stdout, ds, format)
	}
}

// validatePrefix validates every dataset stored under prefix and reports how
// many failed.
func validatePrefix(c *cli.Context, cfg *config.Config, stdout io.Writer, prefix string, format report.Format) error {
	objects, err := objectStorage(c, cfg, dataset.Source{Object: prefix})
	if err != nil {
		return err
	}
	loader := dataset.NewLoader(objects)
	keys, err := loader.List(c.Context, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no datasets found under %s", prefix)
	}

	failed := 0
	for _, key := range keys {
		ds, err := loader.Load(c.Context, dataset.Source{Object: key})
		if err != nil {
			failed++
			logger.Log.Error().Err(err).Str("object", key).Msg("invalid dataset")
			continue
		}
		if err := report.WriteDataset(stdout, ds, format); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d datasets under %s are invalid", failed, len(keys), prefix)
	}
	return nil
}

func evaluate(c *cli.Context, cfg *config.Config) (report.Format, *domain.Dataset, *metrics.Summary, error) {
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return "", nil, nil, err
	}
	ds, err := loadDataset(c, cfg)
	if err != nil {
		return "", nil, nil, err
	}

	pcfg := pipeline.DefaultConfig("vss")
	pcfg.WorkerCount = c.Int("workers")
	pcfg.VerifyEEV = c.Bool("verify-eev")
	orch := pipeline.NewOrchestrator(pcfg, solver.NewSimplex(c.Float64("tolerance")), logger.Log)

	sum, _, err := orch.Evaluate(c.Context, ds, metrics.NewCalculator(ds))
	if err != nil {
		return "", nil, nil, err
	}
	return format, ds, sum, nil
}

func loadDataset(c *cli.Context, cfg *config.Config) (*domain.Dataset, error) {
	src := dataset.Source{
		Path:   c.String("data"),
		Object: c.String("object"),
	}
	objects, err := objectStorage(c, cfg, src)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.NewLoader(objects).Load(c.Context, src)
	if err != nil {
		return nil, err
	}
	logger.Log.Debug().
		Str("dataset", ds.Name).
		Int("products", len(ds.Products)).
		Int("locations", len(ds.Locations)).
		Int("scenarios", len(ds.Scenarios)).
		Msg("dataset loaded")
	return ds, nil
}

// objectStorage picks where dataset objects come from. Nothing is connected
// unless an object was requested.
func objectStorage(c *cli.Context, cfg *config.Config, src dataset.Source) (storage.ObjectStorage, error) {
	if src.Object == "" {
		return nil, nil
	}
	if dir := c.String("storage-dir"); dir != "" {
		return storage.NewLocalStorage(dir), nil
	}
	if !cfg.StorageConfigured() {
		return nil, nil
	}
	return storage.NewMinioClient(cfg.Storage)
}
