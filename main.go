package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"collab_story_weaver/config"
	"collab_story_weaver/llm"
	"collab_story_weaver/server"
	"collab_story_weaver/story"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	mock := flag.Bool("mock", false, "use the offline mock model")
	idea := flag.String("idea", "", "story idea")
	characters := flag.String("characters", "", "comma separated character names")
	length := flag.Int("length", 6000, "target story length in characters")
	style := flag.String("style", "", "narrative style")
	feedback := flag.String("feedback", "", "reader feedback applied before each further chapter")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(*configPath, *mock)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	client, err := buildLLM(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	storyOpts := []story.Option{
		story.WithHistoryWindow(cfg.Story.HistoryWindow),
		story.WithLanguage(story.Language(cfg.Story.Language)),
		story.WithParallelCharacters(cfg.Story.ParallelCharacters),
	}

	// Web server mode
	if *serve {
		srv, err := server.New(client, server.Options{
			FeedBuffer:   cfg.Story.FeedBuffer,
			DefaultStyle: cfg.Story.DefaultStyle,
			Story:        storyOpts,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		slog.Info("starting web server", "addr", listen)
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if *idea == "" {
		fmt.Fprintln(os.Stderr, "--idea is required (or use --serve)")
		os.Exit(1)
	}
	if *style == "" {
		*style = cfg.Story.DefaultStyle
	}
	req := story.StoryRequest{
		Idea:           *idea,
		TargetLength:   *length,
		Style:          *style,
		CharacterNames: splitNames(*characters),
	}
	if err := runStory(context.Background(), client, cfg, storyOpts, req, *feedback); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStory(ctx context.Context, client llm.Client, cfg config.Config, opts []story.Option, req story.StoryRequest, feedback string) error {
	sess, err := story.NewSession(client, cfg.Story.FeedBuffer, opts...)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range sess.Updates() {
			slog.Debug("chat update", "from", m.SenderName, "to", m.Recipient.String(), "length", len(m.Content))
		}
	}()
	defer func() {
		sess.Close()
		<-done
	}()

	res, err := sess.GenerateStory(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(res.FirstChapter)

	for more := res.HasMoreChapters; more; {
		adv, err := sess.NextChapter(ctx, feedback)
		if err != nil {
			return err
		}
		if adv.Chapter != nil {
			fmt.Printf("\n%s\n", adv.Chapter.Rendered())
		}
		more = !adv.IsComplete
	}

	view := sess.Snapshot()
	slog.Info("story complete",
		"chapters", len(view.Chapters),
		"total_characters", view.TotalCharacters,
		"messages", len(view.Conversation))
	return nil
}

func loadConfig(path string, mock bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if mock && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return config.Config{}, err
	}
	if mock {
		cfg.LLM.Provider = "mock"
	}
	return cfg, nil
}

// buildLLM wraps the configured provider in the rate/timeout limiter. The
// mock model runs offline and is never limited.
func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLM.Provider == "mock" {
		return llm.MockClient{}, nil
	}
	// openai 与 deepseek 走同一个 OpenAI 兼容客户端，区别只在 base_url
	inner, err := llm.NewOpenAIClient(&llm.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewLimited(inner,
		llm.WithRateLimit(cfg.LLM.RequestsPerMinute, cfg.LLM.Burst),
		llm.WithTimeout(cfg.LLM.Timeout),
	), nil
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
