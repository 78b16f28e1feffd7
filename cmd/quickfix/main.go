package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/kardianos/service"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/agent"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/quickfix"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/reporter"
)

const version = "AX QuickFix v1.0.0"

type program struct {
	agent *agent.Agent
	cfg   *config.AgentConfig
}

func (p *program) Start(s service.Service) error {
	a, err := agent.NewAgent(p.cfg)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("agent could not start: %w", err)
	}
	p.agent = a
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.agent != nil {
		p.agent.Stop()
		logger.Info("Agent stopped.")
	}
	return nil
}

func main() {
	configFlag := flag.String("config", "", "Path to quickfix.yml")
	analyzeFlag := flag.Bool("analyze", false, "Run one analysis and print the ranked fixes")
	formatFlag := flag.String("format", reporter.FormatText, "Output format: text, json")
	applyFlag := flag.Int("apply", 0, "Apply the N-th fix of the current analysis")
	yesFlag := flag.Bool("yes", false, "Confirm fixes that cannot be applied directly")
	interactiveFlag := flag.Bool("interactive", false, "Open an interactive prompt")
	svcFlag := flag.String("service", "", "Control the system service: install, uninstall, start, stop")
	logLevelFlag := flag.String("loglevel", "", "Log level: DEBUG, INFO, WARNING, ERROR, FATAL")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version)
		return
	}

	var (
		cfg *config.AgentConfig
		err error
	)
	if *configFlag != "" {
		cfg, err = config.LoadAgentConfigFrom(*configFlag)
	} else {
		cfg, err = config.LoadAgentConfig()
	}
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	level := cfg.Service.LogLevel
	if *logLevelFlag != "" {
		level = *logLevelFlag
	}
	logger.SetLevel(logger.ParseLevel(level))

	cliMode := *analyzeFlag || *applyFlag > 0 || *interactiveFlag
	if cliMode {
		os.Exit(runCLI(cfg, *formatFlag, *analyzeFlag, *applyFlag, *yesFlag, *interactiveFlag))
	}

	prg := &program{cfg: cfg}
	svcConfig := &service.Config{
		Name:        "AXQuickFix",
		DisplayName: "AX QuickFix",
		Description: "Proposes and applies database performance fixes for Dynamics AX.",
		Arguments:   serviceArguments(*configFlag),
	}

	s, err := service.New(prg, svcConfig)
	if err != nil {
		logger.Fatal("Failed to create service: %v", err)
	}

	if len(*svcFlag) > 0 {
		if err := service.Control(s, *svcFlag); err != nil {
			logger.Fatal("Service command failed: %v", err)
		}
		fmt.Printf("Service %s: %s\n", svcConfig.Name, *svcFlag)
		return
	}

	if !service.Interactive() {
		initLogging()
	}
	if err := s.Run(); err != nil {
		logger.Fatal("Service run failed: %v", err)
	}
}

func serviceArguments(configPath string) []string {
	if configPath == "" {
		return nil
	}
	return []string{"-config", configPath}
}

// runCLI returns the process exit code.
func runCLI(cfg *config.AgentConfig, format string, analyze bool, applyN int, yes, interactive bool) int {
	a, err := agent.NewAgent(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer a.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := a.Engine()
	rep := reporter.NewReporter(os.Stdout, format)

	if interactive {
		s := newSession(engine, reporter.NewReporter(os.Stdout, reporter.FormatText), os.Stdin, os.Stdout)
		if err := s.run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	result := analyzeWithSpinner(ctx, engine, format == reporter.FormatText)
	if analyze || applyN == 0 {
		if err := rep.Analysis(result); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}
	if !result.Success {
		return 1
	}
	if applyN == 0 {
		return 0
	}

	if applyN > len(result.Fixes) {
		fmt.Fprintf(os.Stderr, "fix %d does not exist, the analysis proposed %d fixes\n", applyN, len(result.Fixes))
		return 2
	}
	fix := result.Fixes[applyN-1]
	if !quickfix.DirectlyApplicable(fix) && !yes {
		fmt.Fprintf(os.Stderr, "%q needs confirmation, rerun with -yes\n", fix.Title)
		return 2
	}

	outcome := engine.ApplyIn(ctx, result.Generation, fix.ID)
	if err := rep.Outcome(outcome); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if !outcome.Success {
		return 1
	}
	return 0
}

func analyzeWithSpinner(ctx context.Context, engine *quickfix.Engine, show bool) model.AnalysisResult {
	if !show {
		return engine.Analyze(ctx)
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Analyzing database..."
	s.Start()
	defer s.Stop()
	return engine.Analyze(ctx)
}
