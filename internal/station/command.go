package station

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/pkg/core"
)

var (
	ErrStopped       = errors.New("station stopped")
	ErrNoEligible    = errors.New("no operational modules")
	ErrNotCritical   = errors.New("module is not in a critical state")
	ErrCannotUndock  = errors.New("module cannot be undocked")
	ErrUnknownAction = errors.New("unknown command")
)

// Kind names a registry mutation.
type Kind string

const (
	CmdLaunch         Kind = "launch"
	CmdFault          Kind = "fault"
	CmdRepair         Kind = "repair"
	CmdRepairModule   Kind = "repair_module"
	CmdUndock         Kind = "undock"
	CmdSetHub         Kind = "set_hub"
	CmdSetHubPosition Kind = "set_hub_position"
	CmdAddBlueprint   Kind = "add_blueprint"
)

// Command is a registry mutation queued for the frame goroutine.
type Command struct {
	Kind      Kind
	Blueprint string        // launch, add_blueprint
	Color     string        // add_blueprint
	ModuleID  string        // repair_module, undock, set_hub
	Position  core.Position // set_hub_position
}

// Result is the outcome of a command. Err wraps a docking or station
// sentinel for soft rejections.
type Result struct {
	Value any
	Err   error
}

type pending struct {
	ctx   context.Context
	cmd   Command
	reply chan Result
}

// apply runs cmd against the registry. Frame goroutine only.
func (s *Station) apply(cmd Command) Result {
	switch cmd.Kind {
	case CmdLaunch:
		r := s.orch.Launch(cmd.Blueprint)
		return Result{Value: r, Err: r.Err()}

	case CmdFault:
		m, ok := s.orch.TriggerRandomFault()
		if !ok {
			return Result{Err: ErrNoEligible}
		}
		return Result{Value: m}

	case CmdRepair:
		return Result{Value: s.orch.RepairFault()}

	case CmdRepairModule:
		m, ok := s.orch.Module(cmd.ModuleID)
		if !ok {
			return Result{Err: fmt.Errorf("%w: %s", docking.ErrUnknownModule, cmd.ModuleID)}
		}
		if !s.orch.RepairModule(cmd.ModuleID) {
			return Result{Err: fmt.Errorf("%w: %s", ErrNotCritical, m.Name)}
		}
		m, _ = s.orch.Module(cmd.ModuleID)
		return Result{Value: m}

	case CmdUndock:
		m, ok := s.orch.Module(cmd.ModuleID)
		if !ok {
			return Result{Err: fmt.Errorf("%w: %s", docking.ErrUnknownModule, cmd.ModuleID)}
		}
		if !s.orch.UndockModule(cmd.ModuleID) {
			return Result{Err: fmt.Errorf("%w: %s", ErrCannotUndock, m.Name)}
		}
		return Result{Value: m}

	case CmdSetHub:
		if !s.orch.SetActiveHub(cmd.ModuleID) {
			return Result{Err: fmt.Errorf("%w: %s", docking.ErrUnknownModule, cmd.ModuleID)}
		}
		hub, _ := s.orch.Hub()
		return Result{Value: hub}

	case CmdSetHubPosition:
		s.orch.SetActiveHubPosition(cmd.Position)
		hub, _ := s.orch.Hub()
		return Result{Value: hub}

	case CmdAddBlueprint:
		bp, err := s.orch.Catalog().AddCustom(cmd.Blueprint, cmd.Color)
		if err != nil {
			return Result{Err: err}
		}
		s.deps.Notifier.Info(fmt.Sprintf("Blueprint added: %s", bp.Name))
		return Result{Value: bp}

	default:
		return Result{Err: fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Kind)}
	}
}
