package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/mechapengu/postpilot"
	"github.com/mechapengu/postpilot/config"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "postpilot",
		Usage:   "AI posting bot for X with human-in-the-loop review",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			chatIDCommand(),
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the posting loop",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			configureLogging(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := cfg.LoadSecrets(ctx); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			svc, err := postpilot.New(ctx, cfg)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			log.Info().Msg("interrupt received, shutting down")
			svc.Shutdown()
			return nil
		},
	}
}

// chatIDCommand echoes the chat id of every incoming message, so a freshly
// created bot can be pointed at the right chat before the first run.
func chatIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat-id",
		Usage: "Print the chat id of every incoming Telegram message",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			configureLogging(cfg.LogLevel)
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("telegram bot token is required: set telegram.token or TELEGRAM_BOT_TOKEN")
			}

			bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("failed to connect telegram bot: %w", err)
			}

			fmt.Println("Bot started! Send any message to get the chat ID.")
			fmt.Println("Press Ctrl+C to stop.")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			updateCfg := tgbotapi.NewUpdate(0)
			updateCfg.Timeout = 30
			updates := bot.GetUpdatesChan(updateCfg)
			for {
				select {
				case <-ctx.Done():
					bot.StopReceivingUpdates()
					return nil
				case update := <-updates:
					if update.Message == nil || update.Message.Chat == nil {
						continue
					}
					chat := update.Message.Chat
					title := chat.Title
					if title == "" {
						title = "Direct Message"
					}
					response := fmt.Sprintf("Chat ID: %d\nChat Type: %s\nChat Name: %s", chat.ID, chat.Type, title)
					if _, err := bot.Send(tgbotapi.NewMessage(chat.ID, response)); err != nil {
						log.Warn().Err(err).Msg("reply not delivered")
					}
					fmt.Println(response)
				}
			}
		},
	}
}

func configureLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
