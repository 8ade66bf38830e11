package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gokatarajesh/quizbank/internal/app"
	"github.com/gokatarajesh/quizbank/internal/auth/jwt"
	"github.com/gokatarajesh/quizbank/internal/config"
	"github.com/gokatarajesh/quizbank/internal/question"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("quizctl failed")
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "quizctl",
		Usage:     "Operate the quiz question bank",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Parse a provider text block from a file or stdin and print the candidate",
				ArgsUsage: "[file]",
				Action:    parseCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "inline-topic",
						Usage: "Require a Theme: line naming the topic",
					},
				},
			},
			{
				Name:   "acquire",
				Usage:  "Generate and store questions using the configured provider and storage",
				Action: acquireCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "topic",
						Aliases: []string{"t"},
						Usage:   "Topic to acquire for; empty lets the provider choose",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of questions to acquire (requires --topic when above 1)",
						Value:   1,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall deadline",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "topics",
				Usage:  "List registered topics with their question counts",
				Action: topicsCommand,
			},
			{
				Name:   "token",
				Usage:  "Mint a bearer token for the API",
				Action: tokenCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "secret",
						Usage:   "HMAC signing secret",
						EnvVars: []string{"JWT_SECRET"},
					},
					&cli.StringFlag{
						Name:    "issuer",
						Usage:   "Token issuer",
						EnvVars: []string{"JWT_ISSUER"},
						Value:   "quizbank",
					},
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Token subject",
						Value: "quizctl",
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "Role claim (client or operator)",
						Value: jwt.RoleClient,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: time.Hour,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return nil
}

func parseCommand(c *cli.Context) error {
	var src io.Reader = c.App.Reader
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	layout := question.LayoutTopicSupplied
	if c.Bool("inline-topic") {
		layout = question.LayoutTopicInline
	}
	candidate, err := question.Parse(string(raw), layout)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]any{
		"candidate":   candidate,
		"fingerprint": question.Fingerprint(candidate),
	})
}

func acquireCommand(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	storage, err := app.OpenStorage(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	provider, err := app.NewProvider(cfg.Provider, log.Logger)
	if err != nil {
		return err
	}
	pipeline := app.NewPipeline(cfg, storage, provider, nil, nil, log.Logger)

	topic, count := c.String("topic"), c.Int("count")
	var stored []question.StoredQuestion
	switch {
	case count < 1:
		return fmt.Errorf("count must be at least 1")
	case topic == "" && count > 1:
		return fmt.Errorf("--topic is required when --count is above 1")
	case topic == "":
		q, err := pipeline.AcquireAny(ctx)
		if err != nil {
			return err
		}
		stored = append(stored, q)
	default:
		stored, err = pipeline.AcquireMany(ctx, topic, count)
		if err != nil {
			return err
		}
	}
	return writeJSON(c.App.Writer, stored)
}

type topicSummary struct {
	Name      string `json:"name"`
	Partition string `json:"partition"`
	Questions int64  `json:"questions"`
}

func topicsCommand(c *cli.Context) error {
	ctx := c.Context
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	storage, err := app.OpenStorage(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	topics, err := storage.Topics.ListTopics(ctx)
	if err != nil {
		return err
	}
	out := make([]topicSummary, 0, len(topics))
	for _, t := range topics {
		n, err := storage.Questions.CountQuestions(ctx, t)
		if err != nil {
			return err
		}
		out = append(out, topicSummary{Name: t.Name, Partition: t.Partition, Questions: n})
	}
	return writeJSON(c.App.Writer, out)
}

func tokenCommand(c *cli.Context) error {
	secret := c.String("secret")
	if secret == "" {
		return fmt.Errorf("signing secret is required (--secret or JWT_SECRET)")
	}
	role := c.String("role")
	if role != jwt.RoleClient && role != jwt.RoleOperator {
		return fmt.Errorf("role must be %q or %q", jwt.RoleClient, jwt.RoleOperator)
	}

	manager := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(secret),
		Issuer: c.String("issuer"),
	})
	token, err := manager.GenerateToken(c.String("subject"), role, c.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
