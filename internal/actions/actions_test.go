package actions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
	block chan struct{}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.errs[call]
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeAPI) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) StartInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("start")
}
func (f *fakeAPI) StopInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("stop")
}
func (f *fakeAPI) ShutdownInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("shutdown")
}
func (f *fakeAPI) DeleteInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("delete")
}
func (f *fakeAPI) ResetRootPassword(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("reset")
}
func (f *fakeAPI) MarkInstanceActive(ctx context.Context, typ cloud.Type, hostname string) error {
	return f.record("active")
}
func (f *fakeAPI) AddVHost(ctx context.Context, typ cloud.Type, hostname, domain string, port int, https bool) error {
	return f.record("addvhost")
}
func (f *fakeAPI) RemoveVHost(ctx context.Context, typ cloud.Type, hostname, domain string) error {
	return f.record("removevhost")
}
func (f *fakeAPI) AddPort(ctx context.Context, typ cloud.Type, hostname string, external, internal int) error {
	return f.record("addport")
}
func (f *fakeAPI) RemovePort(ctx context.Context, typ cloud.Type, hostname string, external int) error {
	return f.record("removeport")
}

type fakeStore struct {
	mu       sync.Mutex
	refreshs int
}

func (f *fakeStore) Refresh(ctx context.Context) {
	f.mu.Lock()
	f.refreshs++
	f.mu.Unlock()
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshs
}

func testController(api *fakeAPI, store *fakeStore) *Controller {
	return New(api, store, zap.NewNop().Sugar())
}

func await(t *testing.T, c *Controller) Notification {
	t.Helper()
	select {
	case note := <-c.Notifications():
		return note
	case <-time.After(time.Second):
		t.Fatal("no notification")
		return Notification{}
	}
}

var activeInstance = cloud.Instance{Type: cloud.TypeLXC, Hostname: "blog", Active: true, Status: cloud.StatusRunning}

func TestStartRefreshesStoreOnSuccess(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	c := testController(api, store)

	if err := c.Start(context.Background(), activeInstance); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	note := await(t, c)
	if note.Err != nil {
		t.Errorf("notification error = %v", note.Err)
	}
	if note.Key != "lxc/blog" || note.Verb != "start" {
		t.Errorf("notification = %+v", note)
	}
	if store.count() != 1 {
		t.Errorf("store refreshes = %d, want 1", store.count())
	}
}

func TestFailureSkipsRefresh(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"stop": errors.New("backend down")}}
	store := &fakeStore{}
	c := testController(api, store)

	if err := c.Stop(context.Background(), activeInstance); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	note := await(t, c)
	if note.Err == nil {
		t.Error("notification error = nil, want failure")
	}
	if store.count() != 0 {
		t.Errorf("store refreshes = %d, want 0", store.count())
	}
}

func TestSecondActionRejectedWhileFirstRuns(t *testing.T) {
	block := make(chan struct{})
	api := &fakeAPI{block: block}
	store := &fakeStore{}
	c := testController(api, store)

	if err := c.Start(context.Background(), activeInstance); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	for {
		if _, busy := c.Pending("lxc/blog"); busy {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.Stop(context.Background(), activeInstance); !errors.Is(err, ErrActionInFlight) {
		t.Errorf("Stop() while busy = %v, want ErrActionInFlight", err)
	}

	// A different instance is unaffected.
	other := cloud.Instance{Type: cloud.TypeVPS, Hostname: "blog", Active: true}
	if err := c.Start(context.Background(), other); err != nil {
		t.Errorf("Start() on other instance = %v", err)
	}

	close(block)
	await(t, c)
	await(t, c)
	if _, busy := c.Pending("lxc/blog"); busy {
		t.Error("slot still held after completion")
	}
}

func TestInactiveInstanceOnlyReactivates(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	c := testController(api, store)
	inactive := cloud.Instance{Type: cloud.TypeLXC, Hostname: "blog", Active: false}

	if err := c.Start(context.Background(), inactive); !errors.Is(err, ErrInstanceInactive) {
		t.Errorf("Start() on inactive = %v, want ErrInstanceInactive", err)
	}
	if err := c.Reactivate(context.Background(), inactive); err != nil {
		t.Fatalf("Reactivate() = %v", err)
	}
	await(t, c)
	if got := api.recorded(); len(got) != 1 || got[0] != "active" {
		t.Errorf("calls = %v, want only the activation", got)
	}
}

func TestDeleteShutsDownFirst(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	c := testController(api, store)

	if err := c.Delete(context.Background(), activeInstance); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	await(t, c)
	want := []string{"shutdown", "delete"}
	got := api.recorded()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestDeleteAbortsOnShutdownFailure(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"shutdown": errors.New("timed out")}}
	store := &fakeStore{}
	c := testController(api, store)

	if err := c.Delete(context.Background(), activeInstance); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	note := await(t, c)
	if note.Err == nil {
		t.Error("notification error = nil, want shutdown failure")
	}
	for _, call := range api.recorded() {
		if call == "delete" {
			t.Error("delete sent despite shutdown failure")
		}
	}
}

func TestDeleteSkipsShutdownWhenStopped(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	c := testController(api, store)
	stopped := cloud.Instance{Type: cloud.TypeLXC, Hostname: "blog", Active: true, Status: cloud.StatusStopped}

	if err := c.Delete(context.Background(), stopped); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	await(t, c)
	if got := api.recorded(); len(got) != 1 || got[0] != "delete" {
		t.Errorf("calls = %v, want a bare delete", got)
	}
}

func TestValidationRejectsBeforeSubmission(t *testing.T) {
	api := &fakeAPI{}
	store := &fakeStore{}
	c := testController(api, store)
	ctx := context.Background()

	if err := c.AddVHost(ctx, activeInstance, "not a domain", 8080, false); err == nil {
		t.Error("AddVHost() with bad domain = nil, want error")
	}
	if err := c.AddVHost(ctx, activeInstance, "test.netsoc.cloud", 0, false); err == nil {
		t.Error("AddVHost() with bad port = nil, want error")
	}
	if err := c.AddPort(ctx, activeInstance, 25, 8080); err == nil {
		t.Error("AddPort() with reserved external port = nil, want error")
	}
	if len(api.recorded()) != 0 {
		t.Errorf("calls = %v, want none", api.recorded())
	}
}
