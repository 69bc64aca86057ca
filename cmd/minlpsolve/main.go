// Command minlpsolve is the CLI driver: it reads a problem file, wires
// Options/logger/engine/handlers/brancher, runs the branch-and-bound
// driver, and reports the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	minlp "github.com/gominlp/bnb"
	"github.com/gominlp/bnb/nlreader"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opt := minlp.DefaultOptions()

	var (
		showVersion   bool
		showOptions   bool
		showHelp      bool
		writeAMPL     bool
		interfaceType string
		solve         bool
	)

	cmd := &cobra.Command{
		Use:   "minlpsolve <problem_file>",
		Short: "Branch-and-bound solver for small mixed-integer nonlinear programs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showHelp {
				return cmd.Help()
			}
			if showVersion {
				fmt.Println("minlpsolve", version)
				return nil
			}
			if showOptions {
				printOptions(opt)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("minlpsolve: a problem_file argument is required (see --help)")
			}
			return run(args[0], opt, writeAMPL, solve, interfaceType)
		},
	}
	cmd.Flags().BoolVarP(&showVersion, "show_version", "v", false, "print the version and exit")
	cmd.Flags().BoolVarP(&showOptions, "show_options", "=", false, "print the active option values and exit")
	cmd.Flags().BoolVarP(&showHelp, "show_help", "?", false, "show help (alias for --help)")
	cmd.Flags().BoolVar(&writeAMPL, "AMPL", false, "write the solution in AMPL format")

	cmd.Flags().StringVar(&interfaceType, "interface_type", "nlreader", "problem-reader interface to use")
	cmd.Flags().BoolVar(&opt.Presolve, "presolve", opt.Presolve, "global presolve toggle (shown by --show_options; not read by the solver)")
	cmd.Flags().BoolVar(&opt.NLPresolve, "nl_presolve", opt.NLPresolve, "nonlinear-handler presolve toggle (shown by --show_options; not read by the solver)")
	cmd.Flags().BoolVar(&opt.LinPresolve, "lin_presolve", opt.LinPresolve, "linear-handler presolve toggle (shown by --show_options; not read by the solver)")
	cmd.Flags().BoolVar(&opt.UseNativeCGraph, "use_native_cgraph", opt.UseNativeCGraph, "native CGraph evaluator toggle (shown by --show_options; not read by the solver)")
	cmd.Flags().StringVar((*string)(&opt.Brancher), "brancher", string(opt.Brancher), "branching strategy: rel|maxvio|lex")
	cmd.Flags().Float64Var(&opt.SolAbsTol, "solAbs_tol", opt.SolAbsTol, "absolute solution tolerance (shown by --show_options; not read by the solver)")
	cmd.Flags().Float64Var(&opt.SolRelTol, "solRel_tol", opt.SolRelTol, "relative solution tolerance (shown by --show_options; not read by the solver)")
	cmd.Flags().Float64Var(&opt.ObjCutOff, "obj_cut_off", opt.ObjCutOff, "objective cutoff")
	cmd.Flags().IntVar(&opt.PresolveFreq, "pres_freq", opt.PresolveFreq, "node-presolve frequency")
	cmd.Flags().BoolVar(&solve, "solve", true, "actually run the solve (false: parse and report size only)")
	cmd.Flags().BoolVar(&opt.DisplayProblem, "display_problem", opt.DisplayProblem, "print the parsed problem's size summary (same line as --display_size)")
	cmd.Flags().BoolVar(&opt.DisplaySize, "display_size", opt.DisplaySize, "print the problem size summary")

	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
	})
	return cmd
}

func printOptions(opt *minlp.Options) {
	fmt.Printf("presolve=%v nl_presolve=%v lin_presolve=%v use_native_cgraph=%v brancher=%v\n",
		opt.Presolve, opt.NLPresolve, opt.LinPresolve, opt.UseNativeCGraph, opt.Brancher)
	fmt.Printf("solAbs_tol=%v solRel_tol=%v obj_cut_off=%v pres_freq=%v\n",
		opt.SolAbsTol, opt.SolRelTol, opt.ObjCutOff, opt.PresolveFreq)
}

func run(problemFile string, opt *minlp.Options, writeAMPL, solve bool, interfaceType string) error {
	log := minlp.NewLogger(logrus.InfoLevel)

	if interfaceType != "nlreader" {
		return fmt.Errorf("minlpsolve: unknown interface_type %q (only %q is built in)", interfaceType, "nlreader")
	}

	f, err := os.Open(problemFile)
	if err != nil {
		return fmt.Errorf("minlpsolve: %w", err)
	}
	defer f.Close()

	p, err := nlreader.Read(f)
	if err != nil {
		return fmt.Errorf("minlpsolve: %w", err)
	}

	if opt.DisplaySize {
		fmt.Println(p.String())
	}
	if opt.DisplayProblem {
		fmt.Println(p.String())
	}
	if !solve {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, err := minlp.LookupEngine("gonum-lp")
	if err != nil {
		return fmt.Errorf("minlpsolve: %w", err)
	}

	handlers := []minlp.Handler{
		minlp.NewLinearHandler(opt),
	}
	rootRel := minlp.RelaxInitFull(p)
	quad := minlp.NewQuadraticHandler(opt, rootRel)
	handlers = append(handlers, quad)

	var brancher minlp.Brancher
	switch opt.Brancher {
	case minlp.BrancherMaxViolation:
		brancher = minlp.NewMaxViolationBrancher()
	case minlp.BrancherLexicographic:
		brancher = minlp.NewLexicographicBrancher()
	default:
		brancher = minlp.NewReliabilityBrancher(p.Size(), 25)
	}

	driver := minlp.NewDriver(opt, log, engine, handlers, brancher)
	result := driver.Solve(ctx, p)

	fmt.Printf("status: %v\n", result.Status)
	fmt.Printf("nodes: %d\n", result.Nodes)
	fmt.Printf("lb: %v ub: %v\n", result.Lb, result.Ub)
	if result.Best != nil {
		if writeAMPL {
			writeAMPLSolution(os.Stdout, p, result.Best)
		} else {
			fmt.Printf("objective: %v\nx: %v\n", result.Best.Obj, result.Best.X)
		}
	}
	return nil
}

func writeAMPLSolution(w *os.File, p *minlp.Problem, sol *minlp.Solution) {
	fmt.Fprintf(w, "suffix solve_result_num 0;\n")
	fmt.Fprintf(w, "solve_result_num 0;\n")
	fmt.Fprintf(w, "objective %v;\n", sol.Obj)
	for _, v := range p.Variables {
		fmt.Fprintf(w, "%s %v;\n", v.Name, sol.X[v.Index])
	}
}
