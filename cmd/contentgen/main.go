package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Jenny-Gump/content-generator/internal/app"
	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/logging"
	"github.com/Jenny-Gump/content-generator/internal/usecase"
)

func main() {
	os.Exit(run())
}

// run carries the real work so deferred cleanups fire before the process exits.
func run() int {
	var (
		batchFile      = flag.String("batch", "", "path to a file with one topic per line; runs batch mode")
		resume         = flag.Bool("resume", false, "resume a previously interrupted batch")
		publish        = flag.Bool("publish", false, "publish the finished article to WordPress")
		extractModel   = flag.String("extract-model", "", "override the extraction stage primary model")
		generateModel  = flag.String("generate-model", "", "override the generation stage primary model")
		editorialModel = flag.String("editorial-model", "", "override the editorial stage primary model")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <topic>\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "       %s [flags] -batch topics.txt\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Load()
	if *extractModel != "" {
		cfg.Stages.ExtractPrompts.Primary = *extractModel
	}
	if *generateModel != "" {
		cfg.Stages.GenerateArticle.Primary = *generateModel
	}
	if *editorialModel != "" {
		cfg.Stages.EditorialReview.Primary = *editorialModel
	}

	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger, app.Options{Publish: *publish})
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer application.Close()

	switch {
	case *batchFile != "":
		topics, err := readTopics(*batchFile)
		if err != nil {
			logger.Error("cannot read topics", "error", err)
			return 1
		}
		batchName := strings.TrimSuffix(filepath.Base(*batchFile), filepath.Ext(*batchFile))
		progress, err := application.RunBatch(ctx, topics, batchName, *resume)
		if err != nil {
			logger.Error("batch interrupted", "error", err)
			return 1
		}
		return reportBatch(progress, logger)

	case flag.NArg() == 1:
		if _, err := application.RunTopic(ctx, flag.Arg(0)); err != nil {
			logger.Error("pipeline failed", "error", err)
			return 1
		}

	default:
		flag.Usage()
		return 2
	}
	return 0
}

// readTopics loads one topic per line; blank lines and #-comments are skipped.
func readTopics(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var topics []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics in %s", path)
	}
	return topics, nil
}

// reportBatch summarizes the batch and returns the process exit code.
func reportBatch(progress usecase.BatchProgress, logger *slog.Logger) int {
	var done, failed, skipped int
	for _, t := range progress.Topics {
		switch t.Status {
		case usecase.TopicDone:
			done++
		case usecase.TopicFailed:
			failed++
		case usecase.TopicSkipped:
			skipped++
		}
	}
	logger.Info("batch finished",
		"topics", len(progress.Topics), "done", done, "failed", failed, "skipped", skipped)
	if failed > 0 {
		return 1
	}
	return 0
}
