package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"

	"github.com/OCAP2/dockyard/internal/dispatcher"
	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/simulation"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/internal/topology"
	"github.com/OCAP2/dockyard/internal/worker"
	"github.com/OCAP2/dockyard/pkg/core"
)

// Rejection is the body of a 4xx response.
type Rejection struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

// Topology is the body of GET /api/topology.
type Topology struct {
	HubID       string              `json:"hubId"`
	Adjacency   map[string][]string `json:"adjacency"`
	Edges       []topology.Edge     `json:"edges"`
	Connections int                 `json:"connections"`
	Stats       station.Stats       `json:"stats"`
}

// LaunchRequest is the body of POST /api/launch.
type LaunchRequest struct {
	Blueprint string `json:"blueprint"`
}

// BlueprintRequest is the body of POST /api/catalog.
type BlueprintRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// HubRequest is the body of PUT /api/hub. One of the fields must be set.
type HubRequest struct {
	ModuleID string         `json:"moduleId,omitempty"`
	Position *core.Position `json:"position,omitempty"`
}

// HitTestRequest is the body of POST /api/hittest. X and Y are canvas
// pixels; Zoom is an index into simulation.ZoomLevels. PanX/PanY is a drag
// delta and Wheel a scroll delta, both applied before the click.
type HitTestRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Zoom    *int    `json:"zoom,omitempty"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	PanX    float64 `json:"panX,omitempty"`
	PanY    float64 `json:"panY,omitempty"`
	Wheel   float64 `json:"wheel,omitempty"`
}

// HitTestResponse names the module under the cursor, if any, and returns
// the view state after the interaction.
type HitTestResponse struct {
	Hit      bool          `json:"hit"`
	ModuleID string        `json:"moduleId,omitempty"`
	Zoom     int           `json:"zoom"`
	OffsetX  float64       `json:"offsetX"`
	OffsetY  float64       `json:"offsetY"`
	Position core.Position `json:"position"`
	Bounds   orb.Bound     `json:"bounds"`
}

// outcomes maps soft rejections onto their status code and outcome tag.
var outcomes = []struct {
	err     error
	status  int
	outcome string
}{
	{docking.ErrLaunchInProgress, fiber.StatusConflict, string(docking.OutcomeBusy)},
	{docking.ErrNoHub, fiber.StatusConflict, string(docking.OutcomeNoHub)},
	{docking.ErrHubFull, fiber.StatusConflict, string(docking.OutcomeHubFull)},
	{station.ErrNoEligible, fiber.StatusConflict, "no_eligible_module"},
	{station.ErrNotCritical, fiber.StatusConflict, "not_critical"},
	{station.ErrCannotUndock, fiber.StatusConflict, "cannot_undock"},
	{docking.ErrUnknownBlueprint, fiber.StatusNotFound, string(docking.OutcomeUnknownBlueprint)},
	{docking.ErrUnknownModule, fiber.StatusNotFound, "unknown_module"},
	{docking.ErrInvalidBlueprint, fiber.StatusBadRequest, "invalid_blueprint"},
	{worker.ErrMissingArgument, fiber.StatusBadRequest, "missing_argument"},
	{dispatcher.ErrQueueFull, fiber.StatusTooManyRequests, "queue_full"},
	{station.ErrStopped, fiber.StatusServiceUnavailable, "stopped"},
	{dispatcher.ErrClosed, fiber.StatusServiceUnavailable, "stopped"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "timeout"},
}

func reject(c *fiber.Ctx, err error) error {
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return c.Status(o.status).JSON(Rejection{Outcome: o.outcome, Message: err.Error()})
		}
	}
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	outcome := "error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		outcome = "http_error"
	}
	return c.Status(code).JSON(Rejection{Outcome: outcome, Message: err.Error()})
}

func (s *Server) dispatch(c *fiber.Ctx, command string, args ...string) (any, error) {
	return s.deps.Dispatcher.Dispatch(c.UserContext(), dispatcher.Event{Command: command, Args: args})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.deps.Station.Snapshot()
	return c.JSON(fiber.Map{
		"status":  "OK",
		"version": s.deps.Version,
		"frame":   snap.Frame,
		"session": snap.Session,
		"clients": s.hub.ClientCount(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStation(c *fiber.Ctx) error {
	return c.JSON(s.deps.Station.Snapshot())
}

func (s *Server) handleTopology(c *fiber.Ctx) error {
	snap := s.deps.Station.Snapshot()
	return c.JSON(Topology{
		HubID:       snap.GraphHubID,
		Adjacency:   snap.Adjacency,
		Edges:       snap.Edges,
		Connections: snap.Stats.Links,
		Stats:       snap.Stats,
	})
}

func (s *Server) handlePath(c *fiber.Ctx) error {
	id := c.Params("id")
	path := s.deps.Station.Snapshot().Path(id)
	if path == nil {
		return c.Status(fiber.StatusNotFound).JSON(Rejection{Outcome: "unreachable", Message: "no path to " + id})
	}
	return c.JSON(fiber.Map{"path": path, "hops": len(path) - 1})
}

func (s *Server) handleCatalog(c *fiber.Ctx) error {
	return c.JSON(s.deps.Station.Catalog().All())
}

func (s *Server) handleCatalogAdd(c *fiber.Ctx) error {
	var req BlueprintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	bp, err := s.dispatch(c, worker.CmdCatalogAdd, req.Name, req.Color)
	if err != nil {
		return reject(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bp)
}

func (s *Server) handleLaunch(c *fiber.Ctx) error {
	var req LaunchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	res, err := s.dispatch(c, worker.CmdLaunch, req.Blueprint)
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(res)
}

// handleFault faults a module now, or with ?queued=true schedules the fault
// for the next free worker slot and answers 202.
func (s *Server) handleFault(c *fiber.Ctx) error {
	if c.QueryBool("queued") {
		ctx, cancel := context.WithTimeout(c.UserContext(), worker.DefaultCommandTimeout)
		defer cancel()
		if _, err := s.deps.Dispatcher.Dispatch(ctx, dispatcher.Event{Command: worker.CmdFaultQueued}); err != nil {
			return reject(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
	}
	m, err := s.dispatch(c, worker.CmdFault)
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(m)
}

func (s *Server) handleRepair(c *fiber.Ctx) error {
	n, err := s.dispatch(c, worker.CmdRepair)
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(fiber.Map{"repaired": n})
}

func (s *Server) handleRepairModule(c *fiber.Ctx) error {
	m, err := s.dispatch(c, worker.CmdRepairModule, c.Params("id"))
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(m)
}

func (s *Server) handleUndock(c *fiber.Ctx) error {
	m, err := s.dispatch(c, worker.CmdUndock, c.Params("id"))
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(m)
}

func (s *Server) handleHub(c *fiber.Ctx) error {
	var req HubRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var (
		hub any
		err error
	)
	switch {
	case req.ModuleID != "":
		hub, err = s.dispatch(c, worker.CmdHub, req.ModuleID)
	case req.Position != nil:
		hub, err = s.deps.Dispatcher.Dispatch(c.UserContext(), dispatcher.Event{
			Command: worker.CmdHubPosition,
			Payload: *req.Position,
		})
	default:
		return fiber.NewError(fiber.StatusBadRequest, "moduleId or position required")
	}
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(hub)
}

func (s *Server) handleHitTest(c *fiber.Ctx) error {
	var req HitTestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width and height must be positive")
	}

	v := simulation.NewViewport(req.Width, req.Height)
	if req.Zoom != nil {
		v.SetZoom(*req.Zoom)
	}
	v.Offset = orb.Point{req.OffsetX, req.OffsetY}
	if req.PanX != 0 || req.PanY != 0 {
		v.Pan(req.PanX, req.PanY)
	}
	if req.Wheel != 0 {
		v.Wheel(req.Wheel)
	}

	p := orb.Point{req.X, req.Y}
	pos := v.Unproject(p)
	m, ok := v.Click(p, s.deps.Station.Snapshot().Modules)
	return c.JSON(HitTestResponse{
		Hit:      ok,
		ModuleID: m.ID,
		Zoom:     v.Zoom(),
		OffsetX:  v.Offset.X(),
		OffsetY:  v.Offset.Y(),
		Position: pos,
		Bounds:   v.Bounds(),
	})
}
