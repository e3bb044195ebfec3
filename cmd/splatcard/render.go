package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/eringen/splatcard"
)

// runRender renders one card from a JSON request file, as the HTTP
// endpoint would, and writes the PNG to outPath.
func runRender(ctx context.Context, kind, inPath, outPath string) error {
	body, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := splatcard.New(cfg)
	defer app.Close()
	if err := app.Init(ctx); err != nil {
		return err
	}

	res, err := app.RenderCard(ctx, kind, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, res.PNG, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("wrote %s (%s)\n", outPath, humanize.Bytes(uint64(len(res.PNG))))
	return nil
}

// runClearCache opens the configured render cache, which clears it.
func runClearCache(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := splatcard.New(cfg)
	defer app.Close()
	return app.Init(ctx)
}
