package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/blockpress/internal/api"
	"github.com/debemdeboas/blockpress/internal/composer"
	"github.com/debemdeboas/blockpress/internal/config"
	"github.com/debemdeboas/blockpress/internal/draft"
	"github.com/debemdeboas/blockpress/internal/editor"
	"github.com/debemdeboas/blockpress/internal/logger"
	"github.com/debemdeboas/blockpress/internal/publish"
	"github.com/debemdeboas/blockpress/internal/render"
	"github.com/debemdeboas/blockpress/internal/routes"
	"github.com/debemdeboas/blockpress/internal/surface"
	"github.com/debemdeboas/blockpress/internal/terminal"
	"github.com/debemdeboas/blockpress/internal/validate"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

const help = "Commands: status, preview, publish, quit"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	holder := flag.String("file", "", "Draft file to edit (overrides editor.holder)")
	flag.Parse()

	envErr := godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.AppConfig
	if *holder != "" {
		cfg.Editor.Holder = *holder
	}

	log := logger.New(cfg.Logging.Level)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded")
	}
	config.SetLogger(log)
	api.SetLogger(log)
	editor.SetLogger(log)
	surface.SetLogger(log)
	draft.SetLogger(log)
	publish.SetLogger(log)
	composer.SetLogger(log)
	render.SetLogger(log)
	validate.SetLogger(log)

	clientOpts := []api.Option{api.WithAuthHeader(cfg.Auth.HeaderName)}
	present := !cfg.Auth.Enabled
	if cfg.Auth.Enabled {
		signer, err := api.LoadSigner(os.Getenv("ED25519_PRIVKEY_FILE"))
		if err != nil {
			log.Warn().Err(err).Msg("No signing key loaded, the editor stays closed")
		} else {
			clientOpts = append(clientOpts, api.WithSigner(signer, cfg.API.ChallengeURL))
			present = true
		}
	}

	client, err := api.NewClient(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	ui := terminal.New(os.Stdout, client)
	upload, fetch := cfg.ImageEndpoints(routes.APIUploadImage, routes.APIFetchURL)

	c := composer.New(cfg.Editor.Holder, composer.Settings{
		Debounce:  cfg.Editor.Debounce(),
		Autofocus: cfg.Editor.Autofocus,
		Tools:     editor.DefaultTools(upload, fetch),
	}, surface.Factory(cfg.Editor.WriteDebounce()), client, ui, ui)
	defer func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close editor")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribe := c.Session().OnValidityChange(func(can bool) {
		go func() { ui.Validity(can, c.Report(ctx)) }()
	})
	defer unsubscribe()

	c.SetUserPresent(present)
	fmt.Printf("Editing %s\n%s\n", cfg.Editor.Holder, help)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		fmt.Print(promptStyle.Render("blockpress> "))
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !run(ctx, log, c, ui, cfg.Render.SyntaxTheme, line) {
				return
			}
		}
	}
}

// run executes one command and reports whether the loop should continue.
func run(ctx context.Context, log zerolog.Logger, c *composer.Composer, ui *terminal.UI, syntaxTheme, line string) bool {
	switch line {
	case "":
	case "status":
		fmt.Printf("%s (%s)\n", c.Session().State(), c.Session().ID())
		ui.Validity(c.CanPublish(), c.Report(ctx))
	case "preview":
		d, err := c.Session().Save(ctx)
		if err != nil {
			ui.Error(err.Error())
			break
		}
		out, err := render.HighlightMarkdown(string(render.Markdown(d)), syntaxTheme)
		if err != nil {
			log.Debug().Err(err).Msg("Highlighting failed")
		}
		fmt.Println(out)
	case "publish":
		err := c.Publish(ctx)
		switch {
		case errors.Is(err, composer.ErrNotPublishable):
			ui.Error(terminal.NotEnoughContent)
		case errors.Is(err, draft.ErrEmptyContent), errors.Is(err, draft.ErrNoInstance):
			ui.Error(err.Error())
		case errors.Is(err, publish.ErrPublishInFlight):
			ui.Error("A publish is already in progress.")
		case err != nil:
			log.Debug().Err(err).Msg("Publish failed")
		}
	case "quit", "exit":
		return false
	default:
		fmt.Println(help)
	}
	return true
}
