package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"content_governance_client/export"
	"content_governance_client/generator"
	"content_governance_client/governance"
	"content_governance_client/report"
)

var verbose bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	configPath := flag.String("config", "config/config.json", "path to config file (.json or .toml)")
	topic := flag.String("topic", "", "content topic")
	audience := flag.String("audience", "general", "target audience: general, tech_professionals, business_leaders, healthcare_professionals, students, marketers")
	tone := flag.String("tone", "professional", "tone: professional, casual, friendly, authoritative, creative, conversational")
	length := flag.String("length", "medium", "length: short, medium, long")
	exports := flag.String("export", "", "comma separated export formats: pdf, word, json, markdown, html")
	outDir := flag.String("out", "", "directory for exported files (overrides config.output_dir)")
	mock := flag.Bool("mock", false, "use the offline mock service instead of the governance API")
	flag.BoolVar(&verbose, "v", false, "enable info logs")
	flag.Parse()

	if err := run(*configPath, *topic, *audience, *tone, *length, *exports, *outDir, *mock); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, topic, audience, tone, length, exports, outDir string, mock bool) error {
	req, err := buildRequest(topic, audience, tone, length)
	if err != nil {
		return err
	}
	formats, err := export.ParseFormats(exports)
	if err != nil {
		return err
	}

	cfg, err := governance.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}

	svc, renderer, err := buildService(cfg, mock)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := generator.NewSession(svc,
		generator.WithLogger(log.Default(), verbose),
		generator.WithObserver(func(st generator.State) {
			if st.Phase == generator.PhaseSubmitting {
				fmt.Fprintln(os.Stderr, "Generating and reviewing your content...")
			}
		}),
	)
	if err != nil {
		return err
	}
	defer session.Close()

	log.Printf("[cli] generating topic=%q audience=%s tone=%s length=%s", req.Topic, req.TargetAudience, req.StyleGuide.Tone, req.StyleGuide.Length)
	res, err := session.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, generator.ErrSuperseded) {
			return errors.New("generation cancelled")
		}
		return fmt.Errorf("generation failed: %s", generator.UserMessage(err))
	}
	if err := report.Render(os.Stdout, res); err != nil {
		return err
	}
	if len(formats) == 0 {
		return nil
	}

	sink, err := export.NewDirSink(cfg.OutputDir)
	if err != nil {
		return err
	}
	opts := []export.Option{
		export.WithLogger(log.Default(), verbose),
		export.WithObserver(func(ev export.Event) {
			switch ev.State {
			case export.JobCompleted:
				fmt.Printf("Exported %s -> %s\n", ev.Format.Label(), ev.Filename)
			case export.JobFailed:
				var failure *export.ExportFailure
				if errors.As(ev.Err, &failure) {
					fmt.Fprintln(os.Stderr, failure.Notice())
				}
			}
		}),
	}
	if renderer != nil {
		opts = append(opts, export.WithRenderer(renderer))
	}
	orch, err := export.New(sink, opts...)
	if err != nil {
		return err
	}
	if err := orch.ExportAll(ctx, formats, session.Result()); err != nil {
		return err
	}
	log.Printf("[cli] export done dir=%s", cfg.OutputDir)
	return nil
}

func buildRequest(topic, audience, tone, length string) (generator.GenerationRequest, error) {
	a, err := generator.ParseAudience(audience)
	if err != nil {
		return generator.GenerationRequest{}, err
	}
	t, err := generator.ParseTone(tone)
	if err != nil {
		return generator.GenerationRequest{}, err
	}
	l, err := generator.ParseLength(length)
	if err != nil {
		return generator.GenerationRequest{}, err
	}
	req := generator.NewRequest(topic, a, t, l)
	if err := req.Validate(); err != nil {
		return generator.GenerationRequest{}, err
	}
	return req, nil
}

func buildService(cfg governance.Config, mock bool) (generator.Service, export.Renderer, error) {
	if mock {
		// 离线模式没有服务端渲染，pdf/word 导出会失败并提示。
		return generator.MockService{}, nil, nil
	}
	client, err := governance.New(cfg, nil, verbose, log.Default())
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}
