package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/loqalabs/loqa-translate/internal/config"
	"github.com/loqalabs/loqa-translate/internal/display"
	"github.com/loqalabs/loqa-translate/internal/translate"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath string
		text       string
		target     string
	)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validateCmd.StringVar(&configPath, "config", "loqa.yaml", "Path to configuration file")

	translateCmd := flag.NewFlagSet("translate", flag.ExitOnError)
	translateCmd.StringVar(&configPath, "config", "", "Path to configuration file")
	translateCmd.StringVar(&text, "text", "", "Text to translate")
	translateCmd.StringVar(&target, "target", "", "Target language code")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'translate', 'validate' or 'version'")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "translate":
		translateCmd.Parse(os.Args[2:])
		if err := runTranslate(configPath, text, target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if _, err := config.Load(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("config valid")
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
}

func runTranslate(configPath, text, target string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if target == "" {
		target = cfg.Translation.SelectorDefault
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	out := display.NewWriter(os.Stdout)

	client := translate.NewClient(cfg.Translation.Endpoint, cfg.Translation.APIKey, nil)
	requester := translate.NewRequester(context.Background(), client, out, cfg.Translation.FallbackLang, cfg.Display.Label, logger)
	defer requester.Close()

	result, err := requester.Lookup(context.Background(), text, target)
	if err != nil {
		return err
	}
	if result.DetectedLanguage != "" {
		logger.Info("detected source language", slog.String("language", result.DetectedLanguage))
	}
	out.Show(cfg.Display.Label + result.Text)
	return nil
}
