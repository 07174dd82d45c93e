// Command pdftemplate-mcp is an MCP (Model Context Protocol) server that
// exposes the template store and renderer to AI assistants over stdio.
//
// # Installation
//
//	go install github.com/lvillar/pdftemplate/cmd/pdftemplate-mcp@latest
//
// # Configuration for Claude Desktop
//
// Add to ~/.config/claude/claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdftemplate": {
//	      "command": "pdftemplate-mcp",
//	      "env": {"PDFTPL_DATA_DIR": "/var/lib/pdftemplate"}
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - list_templates: List stored templates
//   - get_template: Get a template and its mapping
//   - save_mapping: Replace a template's element mapping
//   - render_template: Fill a template with data
//   - inspect_pdf: Page sizes and form fields of a PDF file
//   - delete_template: Delete a template
//
// # Available Resources
//
//   - template://list : Template summaries
//   - template://{template_id} : One template
//
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lvillar/pdftemplate/config"
	"github.com/lvillar/pdftemplate/mcp"
	"github.com/lvillar/pdftemplate/service"
	"github.com/lvillar/pdftemplate/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pdftemplate-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	templates, err := store.NewTemplates(cfg.Storage.TemplatesDir, store.WithLogger(logger))
	if err != nil {
		return err
	}
	docs, err := store.NewDocuments(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}
	images, err := store.NewImages(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}
	mode, err := cfg.CheckboxMode()
	if err != nil {
		return err
	}
	svc := service.New(templates, docs, images,
		service.WithLogger(logger),
		service.WithFontsDir(cfg.Storage.FontsDir),
		service.WithCheckboxMode(mode),
	)

	server := mcp.NewServer(mcp.WithLogger(logger))
	mcp.RegisterTools(server, svc)
	mcp.RegisterResources(server, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx)
}
