package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OCAP2/dockyard/internal/config"
	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/pkg/core"
)

// simPlan is a headless run: launches are issued one after another, each
// waiting for the previous approach to finish.
type simPlan struct {
	Launches   int
	Blueprints []string // cycled, all standard blueprints when empty
	Faults     int
	Repair     bool
	FrameRate  int
	MaxFrames  int // per launch
}

// simResult summarizes a headless run.
type simResult struct {
	Frames   uint64
	Elapsed  time.Duration
	Launched []docking.LaunchResult
	Rejected map[docking.Outcome]int
	Faulted  []core.Module
	Repaired int
	Final    *station.Snapshot
}

var errApproachStalled = errors.New("approach did not finish within the frame limit")

func newSimulateCmd() *cobra.Command {
	plan := simPlan{}
	var storageType string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Grow a station headlessly and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{storage: storageType})
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				_ = a.close(ctx)
			}()
			if err != nil {
				return err
			}

			plan.FrameRate = config.GetStationConfig().FrameRate
			res, err := runSimulation(a.station, plan, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSimulation(res))
			return nil
		},
	}
	cmd.Flags().IntVarP(&plan.Launches, "launches", "n", 6, "number of modules to launch")
	cmd.Flags().StringSliceVarP(&plan.Blueprints, "blueprint", "b", nil, "blueprints to launch, cycled")
	cmd.Flags().IntVar(&plan.Faults, "faults", 0, "faults to inject after the last launch")
	cmd.Flags().BoolVar(&plan.Repair, "repair", false, "run a repair sweep at the end")
	cmd.Flags().IntVar(&plan.MaxFrames, "max-frames", 20000, "frame limit per launch")
	cmd.Flags().StringVar(&storageType, "storage", "", "journal backend override")
	return cmd
}

// simDriver owns the station's frame goroutine for a headless run and
// advances a synthetic clock.
type simDriver struct {
	st  *station.Station
	now time.Time
	dt  time.Duration
}

func (d *simDriver) frame() {
	d.now = d.now.Add(d.dt)
	d.st.Frame(d.now, d.dt)
}

// do submits cmd and runs the frame that applies it.
func (d *simDriver) do(cmd station.Command) station.Result {
	reply := d.st.Submit(cmd)
	d.frame()
	return <-reply
}

// settle runs frames until no launch is in flight.
func (d *simDriver) settle(limit int) error {
	for i := 0; d.st.Snapshot().Launching; i++ {
		if i >= limit {
			return errApproachStalled
		}
		d.frame()
	}
	return nil
}

// runSimulation executes plan on st. st must not be running.
func runSimulation(st *station.Station, plan simPlan, start time.Time) (simResult, error) {
	if plan.FrameRate <= 0 {
		plan.FrameRate = station.DefaultFrameRate
	}
	if plan.MaxFrames <= 0 {
		plan.MaxFrames = 20000
	}
	blueprints := plan.Blueprints
	if len(blueprints) == 0 {
		for _, bp := range st.Catalog().All() {
			if bp.Kind == core.KindStandard {
				blueprints = append(blueprints, bp.Name)
			}
		}
	}

	d := &simDriver{st: st, now: start, dt: time.Second / time.Duration(plan.FrameRate)}
	res := simResult{Rejected: make(map[docking.Outcome]int)}
	startFrame := st.Snapshot().Frame

	for i := 0; i < plan.Launches && len(blueprints) > 0; i++ {
		r := d.do(station.Command{Kind: station.CmdLaunch, Blueprint: blueprints[i%len(blueprints)]})
		lr, _ := r.Value.(docking.LaunchResult)
		if r.Err != nil {
			res.Rejected[lr.Outcome]++
			continue
		}
		res.Launched = append(res.Launched, lr)
		if err := d.settle(plan.MaxFrames); err != nil {
			return res, fmt.Errorf("launch %s: %w", lr.Module.Name, err)
		}
	}

	for i := 0; i < plan.Faults; i++ {
		r := d.do(station.Command{Kind: station.CmdFault})
		if r.Err != nil {
			break
		}
		if m, ok := r.Value.(core.Module); ok {
			res.Faulted = append(res.Faulted, m)
		}
	}

	if plan.Repair {
		r := d.do(station.Command{Kind: station.CmdRepair})
		if n, ok := r.Value.(int); ok {
			res.Repaired = n
		}
	}

	// one more frame so the final topology reflects every arrival
	d.frame()

	res.Final = st.Snapshot()
	res.Frames = res.Final.Frame - startFrame
	res.Elapsed = d.now.Sub(start)
	return res, nil
}
