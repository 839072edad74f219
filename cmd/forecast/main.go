package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/app"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

type ctxKey string

const engineKey ctxKey = "engine"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initEngine(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))

	db, err := postgres.Open(c.Context, c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	engine := app.New(config.Load(), postgres.NewStore(db))
	c.Context = context.WithValue(c.Context, engineKey, &session{engine: engine, db: db})
	return nil
}

func closeEngine(c *cli.Context) error {
	if s, ok := c.Context.Value(engineKey).(*session); ok && s != nil {
		s.engine.Close()
		return s.db.Close()
	}
	return nil
}

type session struct {
	engine *app.App
	db     *postgres.DB
}

func engineFrom(c *cli.Context) (*app.App, error) {
	s, ok := c.Context.Value(engineKey).(*session)
	if !ok || s == nil {
		return nil, fmt.Errorf("engine not initialised")
	}
	return s.engine, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runProduct(c *cli.Context) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}
	model, err := domain.ParseModelType(c.String("model"))
	if err != nil {
		return err
	}

	outcome, err := engine.Service.ForecastProduct(c.Context, c.Int64("id"), c.Int("horizon"), model)
	if errors.Is(err, domain.ErrInsufficientHistory) {
		fmt.Printf("product %d: not enough sales history to forecast\n", c.Int64("id"))
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func runJob(name string) cli.ActionFunc {
	return func(c *cli.Context) error {
		engine, err := engineFrom(c)
		if err != nil {
			return err
		}
		summary, err := engine.Jobs.Trigger(c.Context, name)
		if err != nil {
			return err
		}
		return printJSON(summary)
	}
}

func runSchedule(c *cli.Context) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}
	sched, err := engine.Scheduler()
	if err != nil {
		return err
	}
	sched.Start()
	for _, name := range sched.Names() {
		if next, ok := sched.Next(name); ok {
			log.Printf("%s next run at %s", name, next.Format(time.RFC3339))
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	jobCommand := func(name, usage, job string) *cli.Command {
		return &cli.Command{
			Name:   name,
			Usage:  usage,
			Flags:  []cli.Flag{newDBURLFlag()},
			Before: initEngine,
			After:  closeEngine,
			Action: runJob(job),
		}
	}

	cliApp := &cli.App{
		Name:  "forecast",
		Usage: "Run demand forecasts and risk sweeps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "product",
				Usage: "Forecast one product and evaluate its stockout risk",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{Name: "id", Usage: "Product id", Required: true},
					&cli.IntFlag{Name: "horizon", Usage: "Days to forecast", Value: 14},
					&cli.StringFlag{Name: "model", Usage: "auto, moving_average, exponential_smoothing, linear_regression, xgboost or lstm", Value: "auto"},
				},
				Before: initEngine,
				After:  closeEngine,
				Action: runProduct,
			},
			jobCommand("daily", "Forecast every active product", "daily"),
			jobCommand("weekly", "Compare stock with the latest forecasts and raise alerts", "weekly"),
			jobCommand("low-stock", "Raise alerts for products at or below their threshold", "low_stock"),
			jobCommand("expiry", "Raise alerts for products near or past expiry", "expiry"),
			{
				Name:   "schedule",
				Usage:  "Run the recurring jobs until interrupted",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initEngine,
				After:  closeEngine,
				Action: runSchedule,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
