package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sgranger-dev/boardroom/internal/api"
	"github.com/sgranger-dev/boardroom/internal/config"
	"github.com/sgranger-dev/boardroom/internal/orchestrator"
	"github.com/sgranger-dev/boardroom/internal/stream"
	"github.com/sgranger-dev/boardroom/internal/tui"
	"github.com/sgranger-dev/boardroom/pkg/models"
)

var (
	runRequestFile     string
	runHeadless        bool
	runCompanyName     string
	runIndustry        string
	runAudience        string
	runProduct         string
	runDifferentiation string
	runTone            string
	runCompetitors     []string
)

// requestFile is the YAML shape of a --request file.
type requestFile struct {
	CompanyName        string   `yaml:"company_name"`
	Industry           string   `yaml:"industry"`
	TargetAudience     string   `yaml:"target_audience"`
	ProductDescription string   `yaml:"product_description"`
	Differentiation    string   `yaml:"differentiation"`
	BrandTone          string   `yaml:"brand_tone"`
	Competitors        []string `yaml:"competitors"`
}

var runCmd = &cobra.Command{
	Use:   "run [department...]",
	Short: "Run departments from the terminal",
	Long: `Run one or more departments and watch progress live.

With no arguments every department runs: marketing, business, finance,
and engineering. Marketing output feeds engineering automatically.

The company brief comes from flags or from a YAML file:

  boardroom run --company "Acme Fitness" --industry "Fitness Technology"
  boardroom run --request brief.yaml engineering

Missing brief fields fall back to documented defaults rather than
blocking, so a bare 'boardroom run' works.`,
	RunE: runExecute,
}

func init() {
	runCmd.Flags().StringVar(&runRequestFile, "request", "", "YAML file with the company brief")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Plain line output instead of the TUI")
	runCmd.Flags().StringVar(&runCompanyName, "company", "", "Company name")
	runCmd.Flags().StringVar(&runIndustry, "industry", "", "Market sector")
	runCmd.Flags().StringVar(&runAudience, "audience", "", "Target audience")
	runCmd.Flags().StringVar(&runProduct, "product", "", "Product description")
	runCmd.Flags().StringVar(&runDifferentiation, "differentiation", "", "What sets the product apart")
	runCmd.Flags().StringVar(&runTone, "tone", "", "Brand tone, e.g. professional, playful")
	runCmd.Flags().StringSliceVar(&runCompetitors, "competitors", nil, "Known competitor names")
}

func runExecute(cmd *cobra.Command, args []string) error {
	departments, err := parseDepartments(args)
	if err != nil {
		return err
	}

	req, err := buildRequest()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	caller, err := buildCaller(cfg)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	coord := buildCoordinator(cfg, caller, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, err := coord.Start(ctx, req, departments)
	if err != nil {
		return err
	}

	if runHeadless {
		return runPlain(exec, caller)
	}
	return runWithTUI(exec, departments)
}

// parseDepartments resolves positional arguments to the department set.
// No arguments means every department.
func parseDepartments(args []string) ([]models.Department, error) {
	if len(args) == 0 {
		return models.AllDepartments(), nil
	}
	departments := make([]models.Department, 0, len(args))
	for _, arg := range args {
		if arg == "all" {
			return models.AllDepartments(), nil
		}
		d := models.Department(arg)
		if !d.Valid() {
			return nil, fmt.Errorf("unknown department %q", arg)
		}
		departments = append(departments, d)
	}
	return departments, nil
}

// buildRequest assembles the brief from the request file and flags.
// Flags win over the file so a file can be partially overridden.
func buildRequest() (models.ExecutionRequest, error) {
	var req models.ExecutionRequest

	if runRequestFile != "" {
		data, err := os.ReadFile(runRequestFile)
		if err != nil {
			return req, fmt.Errorf("read request file: %w", err)
		}
		var rf requestFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return req, fmt.Errorf("parse request file: %w", err)
		}
		req = models.ExecutionRequest{
			CompanyName:        rf.CompanyName,
			Industry:           rf.Industry,
			TargetAudience:     rf.TargetAudience,
			ProductDescription: rf.ProductDescription,
			Differentiation:    rf.Differentiation,
			BrandTone:          rf.BrandTone,
			Competitors:        rf.Competitors,
		}
	}

	if runCompanyName != "" {
		req.CompanyName = runCompanyName
	}
	if runIndustry != "" {
		req.Industry = runIndustry
	}
	if runAudience != "" {
		req.TargetAudience = runAudience
	}
	if runProduct != "" {
		req.ProductDescription = runProduct
	}
	if runDifferentiation != "" {
		req.Differentiation = runDifferentiation
	}
	if runTone != "" {
		req.BrandTone = runTone
	}
	if len(runCompetitors) > 0 {
		req.Competitors = runCompetitors
	}
	return req, nil
}

// runWithTUI displays execution progress in a full-screen view.
func runWithTUI(exec *orchestrator.Execution, departments []models.Department) error {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	program, _ := tui.NewRunProgram(departments)

	go func() {
		var failure string
		for ev := range exec.Events() {
			program.Send(tui.StreamEventMsg{Event: ev})
			if ev.Type == stream.EventError {
				if p, ok := ev.Data.(orchestrator.ErrorPayload); ok {
					failure = p.Error
				} else {
					failure = "execution failed"
				}
			}
		}
		program.Send(tui.ExecutionDoneMsg{Success: failure == "", Message: failure})
	}()

	if _, err := program.Run(); err != nil {
		exec.Cancel()
		return err
	}

	// The user may quit mid-run; stop the departments before returning.
	exec.Cancel()
	return nil
}

// runPlain prints one line per event, for logs and scripts.
func runPlain(exec *orchestrator.Execution, caller *api.Client) error {
	var failure string
	for ev := range exec.Events() {
		printEvent(ev)
		if ev.Type == stream.EventError {
			if p, ok := ev.Data.(orchestrator.ErrorPayload); ok {
				failure = p.Error
			} else {
				failure = "execution failed"
			}
		}
	}

	input, output := caller.Tracker().Total()
	fmt.Printf("(%d calls, ~%d tokens, $%.4f)\n", caller.Tracker().Calls(), input+output, caller.Tracker().Cost())

	if failure != "" {
		return fmt.Errorf("execution failed: %s", failure)
	}
	return nil
}

func printEvent(ev stream.Event) {
	switch ev.Type {
	case stream.EventStart:
		if p, ok := ev.Data.(orchestrator.StartPayload); ok {
			fmt.Printf("%s %s for %s\n", color.CyanString("▸"), p.RunID, p.Request.CompanyName)
		}

	case stream.EventAgentStart:
		fmt.Printf("%s %s started\n", color.YellowString("●"), ev.Department)

	case stream.EventToolCall:
		step, ok := ev.Data.(models.StepEvent)
		if !ok || step.ToolCall == nil || step.Type != models.StepToolCallResult {
			return
		}
		if step.ToolCall.Status == models.ToolCallError {
			fmt.Printf("  %s %s: %s failed: %s\n", color.RedString("✗"), ev.Department, step.ToolCall.Name, step.ToolCall.Error)
		} else {
			fmt.Printf("  %s %s: %s\n", color.GreenString("✓"), ev.Department, step.ToolCall.Name)
		}

	case stream.EventAgentComplete:
		p, ok := ev.Data.(orchestrator.AgentCompletePayload)
		if !ok {
			return
		}
		if p.Status == models.RunStatusCompleted {
			fmt.Printf("%s %s completed\n", color.GreenString("✓"), p.Department)
		} else {
			fmt.Printf("%s %s failed: %s\n", color.RedString("✗"), p.Department, p.Error)
		}

	case stream.EventSandboxReady:
		if p, ok := ev.Data.(orchestrator.SandboxReadyPayload); ok {
			fmt.Printf("%s preview at %s\n", color.CyanString("▸"), p.URL)
		}

	case stream.EventSandboxError:
		if p, ok := ev.Data.(orchestrator.SandboxErrorPayload); ok {
			fmt.Printf("%s preview unavailable: %s\n", color.YellowString("⚠"), p.Error)
		}

	case stream.EventComplete:
		p, ok := ev.Data.(orchestrator.CompletePayload)
		if !ok {
			return
		}
		fmt.Printf("%s done: %d artifacts", color.GreenString("✓"), len(p.Artifacts))
		if p.PreviewURL != "" {
			fmt.Printf(", preview %s", p.PreviewURL)
		}
		fmt.Println()

	case stream.EventError:
		if p, ok := ev.Data.(orchestrator.ErrorPayload); ok {
			fmt.Printf("%s %s\n", color.RedString("✗"), p.Error)
		}
	}
}
