package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/dockyard/internal/dispatcher"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

// mockStation records commands and echoes them back
type mockStation struct {
	mu       sync.Mutex
	commands []station.Command
	block    bool
}

func (s *mockStation) Do(ctx context.Context, cmd station.Command) (any, error) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	block := s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return cmd, nil
}

func (s *mockStation) last() station.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[len(s.commands)-1]
}

func (s *mockStation) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

func setup(t *testing.T, deps Dependencies) (*dispatcher.Dispatcher, *mockStation) {
	t.Helper()
	st, ok := deps.Station.(*mockStation)
	if !ok {
		st = &mockStation{}
		deps.Station = st
	}
	d, err := dispatcher.New(mockLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	NewManager(deps).RegisterHandlers(d)
	return d, st
}

func TestRegisterHandlers(t *testing.T) {
	d, _ := setup(t, Dependencies{})

	for _, cmd := range []string{
		CmdLaunch, CmdFault, CmdFaultQueued, CmdRepair, CmdRepairModule,
		CmdUndock, CmdHub, CmdHubPosition, CmdCatalogAdd,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestHandlers_TranslateEvents(t *testing.T) {
	tests := []struct {
		name  string
		event dispatcher.Event
		want  station.Command
	}{
		{"launch", dispatcher.Event{Command: CmdLaunch, Args: []string{"Graphene"}},
			station.Command{Kind: station.CmdLaunch, Blueprint: "Graphene"}},
		{"fault", dispatcher.Event{Command: CmdFault},
			station.Command{Kind: station.CmdFault}},
		{"repair", dispatcher.Event{Command: CmdRepair},
			station.Command{Kind: station.CmdRepair}},
		{"repair module", dispatcher.Event{Command: CmdRepairModule, Args: []string{"m1"}},
			station.Command{Kind: station.CmdRepairModule, ModuleID: "m1"}},
		{"undock", dispatcher.Event{Command: CmdUndock, Args: []string{"m2"}},
			station.Command{Kind: station.CmdUndock, ModuleID: "m2"}},
		{"hub", dispatcher.Event{Command: CmdHub, Args: []string{"m3"}},
			station.Command{Kind: station.CmdSetHub, ModuleID: "m3"}},
		{"hub position args", dispatcher.Event{Command: CmdHubPosition, Args: []string{"1.5", "0", "-2"}},
			station.Command{Kind: station.CmdSetHubPosition, Position: core.Position{X: 1.5, Z: -2}}},
		{"hub position payload", dispatcher.Event{Command: CmdHubPosition, Payload: core.Position{X: 4}},
			station.Command{Kind: station.CmdSetHubPosition, Position: core.Position{X: 4}}},
		{"catalog add", dispatcher.Event{Command: CmdCatalogAdd, Args: []string{"Solar Wing", "#ffcc00"}},
			station.Command{Kind: station.CmdAddBlueprint, Blueprint: "Solar Wing", Color: "#ffcc00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st := setup(t, Dependencies{})
			got, err := d.Dispatch(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, st.last())
		})
	}
}

func TestHandlers_MissingArguments(t *testing.T) {
	d, st := setup(t, Dependencies{})

	for _, e := range []dispatcher.Event{
		{Command: CmdLaunch},
		{Command: CmdRepairModule},
		{Command: CmdUndock},
		{Command: CmdHub},
		{Command: CmdHubPosition, Args: []string{"1", "2"}},
		{Command: CmdCatalogAdd, Args: []string{"Solar Wing"}},
	} {
		_, err := d.Dispatch(context.Background(), e)
		assert.ErrorIs(t, err, ErrMissingArgument, e.Command)
	}

	_, err := d.Dispatch(context.Background(), dispatcher.Event{Command: CmdHubPosition, Args: []string{"x", "0", "0"}})
	assert.ErrorContains(t, err, "error parsing coordinate")

	assert.Zero(t, st.count())
}

func TestHandlers_CommandTimeout(t *testing.T) {
	st := &mockStation{block: true}
	d, _ := setup(t, Dependencies{Station: st, CommandTimeout: 20 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), dispatcher.Event{Command: CmdRepair})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandlers_QueuedFault(t *testing.T) {
	d, st := setup(t, Dependencies{})

	res, err := d.Dispatch(context.Background(), dispatcher.Event{Command: CmdFaultQueued})
	require.NoError(t, err)
	assert.Equal(t, "queued", res)

	assert.Eventually(t, func() bool { return st.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, station.CmdFault, st.last().Kind)
}

func TestHandlers_QueuedFaultWaitsForRoom(t *testing.T) {
	st := &mockStation{block: true}
	d, _ := setup(t, Dependencies{Station: st, CommandTimeout: 30 * time.Millisecond})

	var err error
	for i := 0; i < 4*FaultQueueSize && err == nil; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err = d.Dispatch(ctx, dispatcher.Event{Command: CmdFaultQueued})
		cancel()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, dispatcher.ErrQueueFull)
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Dependencies{})
	assert.Equal(t, DefaultCommandTimeout, m.deps.CommandTimeout)
	assert.NotNil(t, m.log)
}
