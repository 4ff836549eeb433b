package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/OCAP2/dockyard/internal/dispatcher"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/pkg/core"
)

// Station commands.
const (
	CmdLaunch       = ":LAUNCH:"
	CmdFault        = ":FAULT:"
	CmdFaultQueued  = ":FAULT:QUEUED:"
	CmdRepair       = ":REPAIR:"
	CmdRepairModule = ":REPAIR:MODULE:"
	CmdUndock       = ":UNDOCK:"
	CmdHub          = ":HUB:"
	CmdHubPosition  = ":HUB:POSITION:"
	CmdCatalogAdd   = ":CATALOG:ADD:"
)

// FaultQueueSize bounds the scheduled fault queue.
const FaultQueueSize = 16

// ErrMissingArgument is returned when an event lacks a required argument.
var ErrMissingArgument = errors.New("missing argument")

// RegisterHandlers registers all station command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	timeout := dispatcher.Timeout(m.deps.CommandTimeout)

	// Operator commands - sync, the caller needs the outcome
	d.Register(CmdLaunch, m.handleLaunch, timeout, dispatcher.Logged())
	d.Register(CmdFault, m.handleFault, timeout, dispatcher.Logged())
	d.Register(CmdRepair, m.handleRepair, timeout, dispatcher.Logged())
	d.Register(CmdRepairModule, m.handleRepairModule, timeout, dispatcher.Logged())
	d.Register(CmdUndock, m.handleUndock, timeout, dispatcher.Logged())
	d.Register(CmdHub, m.handleHub, timeout, dispatcher.Logged())
	d.Register(CmdHubPosition, m.handleHubPosition, timeout, dispatcher.Logged())
	d.Register(CmdCatalogAdd, m.handleCatalogAdd, timeout, dispatcher.Logged())

	// Scheduled fault injection - buffered, callers wait for room until their deadline
	d.Register(CmdFaultQueued, m.handleFault, timeout, dispatcher.Buffered(FaultQueueSize), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) do(ctx context.Context, cmd station.Command) (any, error) {
	return m.deps.Station.Do(ctx, cmd)
}

func requireArg(e dispatcher.Event, i int, name string) (string, error) {
	v := e.Arg(i)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return v, nil
}

func (m *Manager) handleLaunch(ctx context.Context, e dispatcher.Event) (any, error) {
	name, err := requireArg(e, 0, "blueprint")
	if err != nil {
		return nil, err
	}
	return m.do(ctx, station.Command{Kind: station.CmdLaunch, Blueprint: name})
}

func (m *Manager) handleFault(ctx context.Context, _ dispatcher.Event) (any, error) {
	return m.do(ctx, station.Command{Kind: station.CmdFault})
}

func (m *Manager) handleRepair(ctx context.Context, _ dispatcher.Event) (any, error) {
	return m.do(ctx, station.Command{Kind: station.CmdRepair})
}

func (m *Manager) handleRepairModule(ctx context.Context, e dispatcher.Event) (any, error) {
	id, err := requireArg(e, 0, "module id")
	if err != nil {
		return nil, err
	}
	return m.do(ctx, station.Command{Kind: station.CmdRepairModule, ModuleID: id})
}

func (m *Manager) handleUndock(ctx context.Context, e dispatcher.Event) (any, error) {
	id, err := requireArg(e, 0, "module id")
	if err != nil {
		return nil, err
	}
	return m.do(ctx, station.Command{Kind: station.CmdUndock, ModuleID: id})
}

func (m *Manager) handleHub(ctx context.Context, e dispatcher.Event) (any, error) {
	id, err := requireArg(e, 0, "module id")
	if err != nil {
		return nil, err
	}
	return m.do(ctx, station.Command{Kind: station.CmdSetHub, ModuleID: id})
}

// handleHubPosition takes a core.Position payload or x, y, z args.
func (m *Manager) handleHubPosition(ctx context.Context, e dispatcher.Event) (any, error) {
	pos, ok := e.Payload.(core.Position)
	if !ok {
		var err error
		if pos, err = parsePosition(e.Args); err != nil {
			return nil, err
		}
	}
	return m.do(ctx, station.Command{Kind: station.CmdSetHubPosition, Position: pos})
}

func (m *Manager) handleCatalogAdd(ctx context.Context, e dispatcher.Event) (any, error) {
	name, err := requireArg(e, 0, "name")
	if err != nil {
		return nil, err
	}
	color, err := requireArg(e, 1, "color")
	if err != nil {
		return nil, err
	}
	return m.do(ctx, station.Command{Kind: station.CmdAddBlueprint, Blueprint: name, Color: color})
}

func parsePosition(args []string) (core.Position, error) {
	if len(args) != 3 {
		return core.Position{}, fmt.Errorf("%w: position needs x, y, z", ErrMissingArgument)
	}
	var v [3]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return core.Position{}, fmt.Errorf("error parsing coordinate %q: %w", a, err)
		}
		v[i] = f
	}
	return core.Position{X: v[0], Y: v[1], Z: v[2]}, nil
}
