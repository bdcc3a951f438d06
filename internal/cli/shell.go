package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mission-planner/internal/display"
	"mission-planner/internal/executor"
	"mission-planner/internal/listener"
	"mission-planner/internal/parser"
	"mission-planner/internal/planner"
	"mission-planner/internal/supervisor"
	"mission-planner/internal/world"
)

const maxRecentMissions = 3

const shellHelp = `Type a mission in plain words, or one of:
  status              where the rover is and what is queued
  cancel [id]         cancel a mission (default: the running one)
  plans <file> [name] queue plans from a file
  exit                leave the shell`

func newShellCmd(a *app) *cobra.Command {
	var (
		confirmAll  bool
		historyFile string
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Plan and run missions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := listener.New("planner> ", historyFile)
			if err != nil {
				return err
			}
			defer con.Close()
			return a.runShell(cmd.Context(), con, confirmAll)
		},
	}
	cmd.Flags().BoolVar(&confirmAll, "confirm", false, "ask before running every plan, not only plans with warnings")
	cmd.Flags().StringVar(&historyFile, "history-file", "", "readline history file")
	return cmd
}

type shell struct {
	log        *zap.Logger
	con        *listener.Console
	world      *world.World
	reg        *parser.ActionRegistry
	planner    *planner.Planner
	sup        *supervisor.Supervisor
	confirmAll bool

	mu     sync.Mutex
	recent []supervisor.MissionResult
}

func (a *app) runShell(ctx context.Context, con *listener.Console, confirmAll bool) error {
	w, reg, err := a.setup()
	if err != nil {
		return err
	}
	p, err := a.newPlanner(reg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup, err := supervisor.New(supervisor.FromConfig(a.cfg), w, a.log,
		supervisor.WithEventHandler(func(id string, e executor.Event) {
			switch e.Kind {
			case executor.EventPhotoTaken:
				con.AsyncPrintln(fmt.Sprintf("[Mission %s] photo taken at %s", id, e.Position))
			case executor.EventPreconditionSkip:
				con.AsyncPrintln(fmt.Sprintf("[Mission %s] action %d (%s) skipped: %s", id, e.ActionIndex+1, e.Action, e.Reason))
			}
		}))
	if err != nil {
		return err
	}
	sup.Start(ctx)

	sh := &shell{
		log:        a.log,
		con:        con,
		world:      w,
		reg:        reg,
		planner:    p,
		sup:        sup,
		confirmAll: confirmAll,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		sh.collectResults()
	}()
	defer func() {
		cancel()
		sup.Wait()
		<-done
	}()

	con.AsyncPrintln("Hello! Describe a mission for the rover, or type 'help'. (type 'exit' or press Ctrl+D to quit)")
	for {
		line, err := con.ReadLine()
		if errors.Is(err, listener.ErrClosed) {
			con.Println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if !sh.handle(ctx, line) {
			con.Println("Goodbye!")
			return nil
		}
	}
}

// collectResults prints finished missions and keeps the last few for the
// next planning request. It returns when the supervisor stops.
func (sh *shell) collectResults() {
	for r := range sh.sup.Results() {
		sh.mu.Lock()
		sh.recent = append(sh.recent, r)
		if len(sh.recent) > maxRecentMissions {
			sh.recent = sh.recent[1:]
		}
		sh.mu.Unlock()

		sh.con.AsyncPrintln(display.FormatResult(r))
	}
}

// handle runs one input line and reports whether the shell should go on.
func (sh *shell) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		return false
	case "help":
		sh.con.Println(shellHelp)
	case "status":
		sh.status()
	case "cancel":
		sh.cancel(fields[1:])
	case "plans":
		sh.runPlanFile(fields[1:])
	default:
		sh.planAndSubmit(ctx, line)
	}
	return true
}

func (sh *shell) status() {
	sh.con.Println(display.FormatState(sh.sup.Rover(), sh.world))
	if id, ok := sh.sup.Current(); ok {
		sh.con.Println(fmt.Sprintf("Running: %s", id))
	}
	if pending := sh.sup.Pending(); len(pending) > 0 {
		sh.con.Println(fmt.Sprintf("Queued: %s", strings.Join(pending, ", ")))
	}
}

func (sh *shell) cancel(args []string) {
	if len(args) > 0 {
		if err := sh.sup.Cancel(args[0]); err != nil {
			sh.con.Println(fmt.Sprintf("[Cancel] %v", err))
			return
		}
		sh.con.Println(fmt.Sprintf("[Cancel] Mission %s cancelled", args[0]))
		return
	}
	id, err := sh.sup.CancelMostRecent()
	if err != nil {
		sh.con.Println(fmt.Sprintf("[Cancel] %v", err))
		return
	}
	sh.con.Println(fmt.Sprintf("[Cancel] Mission %s cancelled", id))
}

// constraints extends the arena description with where the rover is now and
// how the last missions ended.
func (sh *shell) constraints() string {
	var sb strings.Builder
	sb.WriteString(sh.world.ConstraintsBlock())

	rover := sh.sup.Rover()
	sample := "is not"
	if rover.CarryingSample {
		sample = "is"
	}
	sb.WriteString(fmt.Sprintf("\nRight now the rover is at (%g, %g) and %s carrying a sample.",
		rover.Position.X, rover.Position.Y, sample))

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if len(sh.recent) > 0 {
		sb.WriteString("\nRecent missions:")
		for _, r := range sh.recent {
			sb.WriteString(fmt.Sprintf("\n- %s: %s", r.MissionName, r.Status))
			if r.Error != "" {
				sb.WriteString(" (" + r.Error + ")")
			}
		}
	}
	return sb.String()
}

func (sh *shell) planAndSubmit(ctx context.Context, instruction string) {
	sh.con.Println("Generating plan ...")
	res, err := sh.planner.GeneratePlan(ctx, instruction, sh.constraints())
	if err != nil {
		sh.con.Println(fmt.Sprintf("[Plan generation FAILED] %v", err))
		return
	}
	sh.log.Info("Plan generated",
		zap.String("plan_id", res.ID),
		zap.String("instruction", instruction),
		zap.String("plan", display.FormatPlanFull(res.Plan)))

	sh.con.Println(display.FormatPlan(res.Plan))
	warnings := sh.world.ReviewFrom(res.Plan, sh.sup.Rover())
	if len(warnings) > 0 {
		sh.con.Println(display.FormatWarnings(warnings))
	}
	if sh.confirmAll || len(warnings) > 0 {
		if !sh.con.AskYesNo("Do you want to execute this plan?") {
			sh.con.Println(fmt.Sprintf("[Plan %s REJECTED]", res.ID))
			return
		}
	}

	id, err := sh.sup.Submit(res.Plan.MissionName, res.Plan)
	if err != nil {
		sh.con.Println(fmt.Sprintf("[Plan %s NOT QUEUED] %v", res.ID, err))
		return
	}
	sh.con.Println(fmt.Sprintf("[Plan %s ACCEPTED] Mission %s queued", res.ID, id))
}

// runPlanFile queues hand-written plans, in file order, after a confirmation.
func (sh *shell) runPlanFile(args []string) {
	if len(args) == 0 {
		sh.con.Println("[Manual] usage: plans <file> [name...]")
		return
	}
	file := args[0]
	plans, err := parser.LoadPlansFromFile(file, sh.reg)
	if err != nil {
		sh.con.Println(fmt.Sprintf("[Manual] %v", err))
		return
	}
	if len(args) > 1 {
		selected, missing := parser.SelectPlansByNames(plans, args[1:])
		if len(missing) > 0 {
			sh.con.Println(fmt.Sprintf("[Manual] Missing missions: %v", missing))
		}
		plans = selected
	}
	if len(plans) == 0 {
		sh.con.Println("[Manual] No missions to run.")
		return
	}

	sh.con.Println(strings.TrimRight(display.FormatPlansCatalog(file, plans, sh.world), "\n"))
	if !sh.con.AskYesNo(fmt.Sprintf("About to run %d mission(s) from %s. Proceed?", len(plans), file)) {
		sh.con.Println("[Manual] Cancelled.")
		return
	}
	for _, p := range plans {
		id, err := sh.sup.Submit(p.MissionName, p)
		if err != nil {
			sh.con.Println(fmt.Sprintf("[Manual] %s: %v", p.MissionName, err))
			continue
		}
		sh.con.Println(fmt.Sprintf("[Manual] Submitted mission %s (%s)", id, p.MissionName))
	}
}
