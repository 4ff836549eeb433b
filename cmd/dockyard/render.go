package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/pkg/core"
)

var (
	primaryColor = lipgloss.Color("#06b6d4")
	mutedColor   = lipgloss.Color("#6b7280")
	greenColor   = lipgloss.Color("#10b981")
	redColor     = lipgloss.Color("#ef4444")
	yellowColor  = lipgloss.Color("#f59e0b")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(10)
	valueStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(redColor)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

func statusStyle(s core.Status) lipgloss.Style {
	switch s {
	case core.StatusCritical:
		return lipgloss.NewStyle().Foreground(redColor).Bold(true)
	case core.StatusDeparting:
		return lipgloss.NewStyle().Foreground(yellowColor)
	default:
		return lipgloss.NewStyle().Foreground(greenColor)
	}
}

func field(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}

func renderBanner(name, listen, storageType string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("DOCKYARD "+Version),
		field("station", name),
		field("api", listen),
		field("journal", storageType),
	))
}

// renderStats is the NODES / LINKS / EN ROUTE overlay.
func renderStats(s station.Stats) string {
	cell := func(label string, n int) string {
		return lipgloss.JoinVertical(lipgloss.Center,
			mutedStyle.Render(label),
			valueStyle.Render(fmt.Sprint(n)),
		)
	}
	return boxStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		cell("NODES", s.Nodes), "   ",
		cell("LINKS", s.Links), "   ",
		cell("EN ROUTE", s.EnRoute),
	))
}

// renderModules lists modules with the hub first, then by name.
func renderModules(snap *station.Snapshot) string {
	mods := append([]core.Module(nil), snap.Modules...)
	sort.SliceStable(mods, func(i, j int) bool {
		if (mods[i].ID == snap.RootID) != (mods[j].ID == snap.RootID) {
			return mods[i].ID == snap.RootID
		}
		return mods[i].Name < mods[j].Name
	})

	hubID := ""
	if snap.Hub != nil {
		hubID = snap.Hub.ModuleID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("%-3s %-22s %-9s %-10s %8s %6s", "", "NAME", "KIND", "STATUS", "ENERGY", "HOPS")))
	for _, m := range mods {
		marker := " "
		if m.ID == hubID {
			marker = "*"
		}
		hops := hopsFromHub(snap, m.ID)
		fmt.Fprintf(&b, "%-3s %-22s %-9s %s %8d %6s\n",
			marker,
			truncate(m.Name, 22),
			kindLabel(m.Kind),
			statusStyle(m.Status).Render(fmt.Sprintf("%-10s", m.Status)),
			m.Telemetry.Energy,
			hops,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// hopsFromHub reads the hub distance off the adjacency so it also works on
// snapshots decoded from the API.
func hopsFromHub(snap *station.Snapshot, id string) string {
	if id == snap.GraphHubID {
		return "0"
	}
	for _, n := range snap.Adjacency[snap.GraphHubID] {
		if n == id {
			return "1"
		}
	}
	return "-"
}

func kindLabel(k core.ModuleKind) string {
	if k == core.KindHubNode {
		return "hub"
	}
	return "standard"
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func renderStatus(snap *station.Snapshot) string {
	head := []string{
		titleStyle.Render(snap.Session),
		field("frame", snap.Frame),
	}
	if snap.Hub != nil {
		head = append(head, field("hub", snap.Hub.Name))
	}
	if snap.HUD.Visible {
		head = append(head, field("inbound", fmt.Sprintf("%s %.1f m, %.0f%%", snap.HUD.Name, snap.HUD.Distance, snap.HUD.Progress*100)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinVertical(lipgloss.Left, head...),
		renderStats(snap.Stats),
		renderModules(snap),
	)
}

func renderSimulation(r simResult) string {
	lines := []string{
		titleStyle.Render("Simulation complete"),
		field("frames", r.Frames),
		field("elapsed", r.Elapsed.Round(10*time.Millisecond)),
		field("launched", len(r.Launched)),
	}
	if len(r.Rejected) > 0 {
		outcomes := make([]string, 0, len(r.Rejected))
		for o, n := range r.Rejected {
			outcomes = append(outcomes, fmt.Sprintf("%s=%d", o, n))
		}
		sort.Strings(outcomes)
		lines = append(lines, field("rejected", strings.Join(outcomes, " ")))
	}
	if len(r.Faulted) > 0 {
		names := make([]string, len(r.Faulted))
		for i, m := range r.Faulted {
			names[i] = m.Name
		}
		lines = append(lines, field("faulted", strings.Join(names, ", ")))
	}
	if r.Repaired > 0 {
		lines = append(lines, field("repaired", r.Repaired))
	}
	lines = append(lines, renderStats(r.Final.Stats), renderModules(r.Final))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderLaunch(r docking.LaunchResult) string {
	return fmt.Sprintf("%s %s %s",
		statusStyle(core.StatusNominal).Render("launched"),
		valueStyle.Render(r.Module.Name),
		mutedStyle.Render(fmt.Sprintf("slot %.0f° (%.1f, %.1f, %.1f)", r.Slot.ApproachAngle, r.Slot.Position.X, r.Slot.Position.Y, r.Slot.Position.Z)),
	)
}

func swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
