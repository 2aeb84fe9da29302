/*
Gridmdp solves grid-world Markov decision processes by value iteration and policy iteration.
A board file gives the size, discount and movement noise of the world and its terminal cells;
the solver finds the optimal value of every other cell and the policy that attains it.
With --serve, the solve is also shown live in the browser.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"gridmdp/grid_world"
	"gridmdp/planning"
	"gridmdp/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type solveFlags struct {
	board         string
	config        string
	algorithm     string
	evaluation    string
	improvement   string
	initialPolicy string
	threshold     float64
	maxIterations int
	verbose       bool
	names         bool
	serve         bool
	addr          string
}

func SolveCommand() *cobra.Command {
	flags := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a board and print its values and policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.board, "board", "", "Path of the board file")
	cmd.Flags().StringVar(&flags.config, "config", "", "Path of a solver config yaml; defaults apply without one")
	cmd.Flags().StringVar(&flags.algorithm, "algorithm", "", "value-iteration or policy-iteration")
	cmd.Flags().StringVar(&flags.evaluation, "evaluation", "", "Policy evaluation: iterative or exact")
	cmd.Flags().StringVar(&flags.improvement, "improvement", "", "Policy improvement: policy-only or policy-and-value")
	cmd.Flags().StringVar(&flags.initialPolicy, "initial-policy", "", "Initial policy direction, or random")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", 0, "Convergence threshold")
	cmd.Flags().IntVar(&flags.maxIterations, "max-iterations", 0, "Cap on sweeps and rounds")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log every sweep and round")
	cmd.Flags().BoolVar(&flags.names, "names", false, "Print policy directions by name instead of arrows")
	cmd.Flags().BoolVar(&flags.serve, "serve", false, "Serve a live view of the solve")
	cmd.Flags().StringVar(&flags.addr, "addr", ":8080", "Address of the live view")
	_ = cmd.MarkFlagRequired("board")
	return cmd
}

// solverConfig loads the config file, if any, and applies the flags set on the command line.
func solverConfig(cmd *cobra.Command, flags *solveFlags) (cfg *planning.SolverConfig, err error) {
	cfg = planning.DefaultConfig()
	if flags.config != "" {
		if cfg, err = planning.FromYaml(flags.config); err != nil {
			return
		}
	}

	changed := cmd.Flags().Changed
	if changed("algorithm") {
		cfg.Algorithm = flags.algorithm
	}
	if changed("evaluation") {
		cfg.Evaluation = flags.evaluation
	}
	if changed("improvement") {
		cfg.Improvement = flags.improvement
	}
	if changed("initial-policy") {
		cfg.InitialPolicy = flags.initialPolicy
	}
	if changed("threshold") {
		cfg.SetHyperParam("threshold", flags.threshold)
	}
	if changed("max-iterations") {
		cfg.SetHyperParam("maxIterations", float64(flags.maxIterations))
	}
	return
}

func runSolve(cmd *cobra.Command, flags *solveFlags) (err error) {
	var board *grid_world.Board
	if board, err = grid_world.FromFile(flags.board); err != nil {
		return
	}

	var cfg *planning.SolverConfig
	if cfg, err = solverConfig(cmd, flags); err != nil {
		return
	}
	var opts planning.Options
	if opts, err = cfg.Options(); err != nil {
		return
	}

	out := cmd.OutOrStdout()
	grid_world.ShowBoard(out, board)

	if flags.verbose {
		opts.Progress = logProgress
	}
	solveWithin := func(ctx context.Context) error {
		solveCtx, cancel, err := cfg.WithDeadline(ctx)
		if err != nil {
			return err
		}
		defer cancel()
		return solve(solveCtx, out, board, cfg.Algorithm, opts, flags.names)
	}
	if !flags.serve {
		return solveWithin(cmd.Context())
	}

	// Serve until interrupted, so the final state stays viewable after the solve.
	group, groupCtx := errgroup.WithContext(cmd.Context())
	snapshots := make(chan planning.Snapshot)
	srv, err := server.NewServer(groupCtx, flags.addr, board, opts.TieEpsilon, snapshots)
	if err != nil {
		return
	}
	opts.Progress = withSnapshots(opts.Progress, snapshots)

	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	group.Go(func() error {
		return solveWithin(groupCtx)
	})
	return group.Wait()
}

// withSnapshots chains a progress func sending every snapshot to snapshots.
func withSnapshots(progress planning.ProgressFunc, snapshots chan<- planning.Snapshot) planning.ProgressFunc {
	return func(ctx context.Context, snap planning.Snapshot) {
		if progress != nil {
			progress(ctx, snap)
		}
		select {
		case snapshots <- snap:
		case <-ctx.Done():
		}
	}
}

func logProgress(_ context.Context, snap planning.Snapshot) {
	if snap.Phase == planning.PhaseImprovement {
		log.Printf("%s: round %d after %d sweeps", snap.Phase, snap.Round, snap.Sweep)
		return
	}
	log.Printf("%s: round %d sweep %d delta %.6g", snap.Phase, snap.Round, snap.Sweep, snap.Delta)
}

func solve(
	ctx context.Context,
	out io.Writer,
	board *grid_world.Board,
	algorithm string,
	opts planning.Options,
	names bool,
) error {
	solver, err := planning.NewSolver(algorithm, opts)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := solver.Run(ctx, board)
	if result == nil {
		return err
	}

	fmt.Fprintln(out, "Values:")
	grid_world.ShowValues(out, board, result.Values)
	fmt.Fprintln(out, "Policy:")
	grid_world.ShowPolicy(out, board, result.Policy, !names)
	fmt.Fprintf(out, "Status: %s\n", result.Status)
	fmt.Fprintf(out, "Sweeps: %d\n", result.Sweeps)
	if result.Rounds > 0 {
		fmt.Fprintf(out, "Rounds: %d\n", result.Rounds)
	}
	fmt.Fprintf(out, "Runtime: %s\n", time.Since(start))
	return err
}

type generateFlags struct {
	size  int
	n     int
	gamma float64
	noise []float64
	seed  int64
	out   string
}

func GenerateCommand() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random board file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags)
		},
	}
	cmd.Flags().IntVar(&flags.size, "size", 20, "Board size")
	cmd.Flags().IntVar(&flags.n, "n", 1, "Scale of the number of terminal cells per reward class")
	cmd.Flags().Float64Var(&flags.gamma, "gamma", 0.9, "Discount")
	cmd.Flags().Float64SliceVar(&flags.noise, "noise", []float64{0.8, 0.1, 0.1}, "Noise: intended, clockwise, counter-clockwise[, opposite]")
	cmd.Flags().Int64Var(&flags.seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&flags.out, "out", "", "Output path; stdout when empty")
	return cmd
}

func runGenerate(cmd *cobra.Command, flags *generateFlags) (err error) {
	var noise grid_world.Noise
	if noise, err = grid_world.NewNoise(flags.noise...); err != nil {
		return
	}

	var board *grid_world.Board
	if board, err = grid_world.Generate(
		grid_world.GenerateConfig{
			Size:  flags.size,
			N:     flags.n,
			Gamma: flags.gamma,
			Noise: noise,
		},
		rand.New(rand.NewSource(flags.seed)),
	); err != nil {
		return
	}

	if flags.out == "" {
		return grid_world.Write(cmd.OutOrStdout(), board)
	}

	f, err := os.Create(flags.out)
	if err != nil {
		return
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return grid_world.Write(f, board)
}

func RootCommand() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:          "gridmdp",
		Short:        "Grid-world MDP planning by value and policy iteration",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			grid_world.SetColors(!noColor)
		},
	}
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.AddCommand(SolveCommand(), GenerateCommand())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := RootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		if errors.Is(err, planning.ErrDidNotConverge) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
