package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/Protocol-Lattice/agentforge/src/adk"
	"github.com/Protocol-Lattice/agentforge/src/config"
	"github.com/Protocol-Lattice/agentforge/src/helpers"
	"github.com/Protocol-Lattice/agentforge/src/logging"
	"github.com/Protocol-Lattice/agentforge/src/pipeline"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	provider := flag.String("provider", "", "Model provider (overrides config)")
	show := flag.Bool("show", false, "Print the generated source after each run")
	style := flag.String("style", "monokai", "Highlight style used by -show")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *provider != "" {
		cfg.Generation.Provider = *provider
	}

	ctx := context.Background()
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level))
	kit, err := adk.New(ctx, cfg, adk.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to initialise kit: %v", err)
	}
	defer kit.Close(ctx)

	fmt.Println("Agent generator. Leave the name empty to exit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		name, ok := ask(reader, "Agent name: ")
		if !ok || name == "" {
			fmt.Println("Goodbye!")
			return
		}
		purpose, _ := ask(reader, "Purpose: ")
		standard, _ := ask(reader, "Tools (comma separated): ")
		custom, _ := ask(reader, "Custom tools (name=description; ...): ")

		res, err := kit.Pipeline().Create(ctx, pipeline.Request{
			Name:          name,
			Description:   purpose,
			StandardTools: helpers.ParseCSVList(standard),
			CustomTools:   helpers.ParseCustomTools(custom),
		})
		report(res, err)
		if *show && res != nil && res.Path != "" {
			preview(res.Path, *style)
		}
	}
}

func preview(path, style string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if err := quick.Highlight(os.Stdout, string(src), "go", "terminal256", style); err != nil {
		fmt.Println(string(src))
	}
	fmt.Println()
}

func ask(r *bufio.Reader, prompt string) (string, bool) {
	fmt.Print(prompt)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		log.Fatalf("read input: %v", err)
	}
	return strings.TrimSpace(line), err == nil || line != ""
}

func report(res *pipeline.Result, err error) {
	var serr *pipeline.StoreError
	switch {
	case err == nil:
		fmt.Printf("Created %s at %s (record %s)\n", res.Spec.Name, res.Path, res.Record.ID)
	case errors.As(err, &serr):
		fmt.Printf("Generated %s but it was not recorded: %v\n", serr.Path, serr.Cause)
	default:
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(res.Merged) > 0 {
		fmt.Printf("Merged custom tools: %s\n", strings.Join(res.Merged, ", "))
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
