// Package actions runs user-initiated instance operations. Each action
// is validated client-side, sent to the API exactly once, and fanned
// out as a notification; the store is refreshed on success so the UI
// converges on backend truth instead of mutating local state.
package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"go.uber.org/zap"
)

// API is the slice of the client the controller drives.
type API interface {
	StartInstance(ctx context.Context, typ cloud.Type, hostname string) error
	StopInstance(ctx context.Context, typ cloud.Type, hostname string) error
	ShutdownInstance(ctx context.Context, typ cloud.Type, hostname string) error
	DeleteInstance(ctx context.Context, typ cloud.Type, hostname string) error
	ResetRootPassword(ctx context.Context, typ cloud.Type, hostname string) error
	MarkInstanceActive(ctx context.Context, typ cloud.Type, hostname string) error
	AddVHost(ctx context.Context, typ cloud.Type, hostname, domain string, port int, https bool) error
	RemoveVHost(ctx context.Context, typ cloud.Type, hostname, domain string) error
	AddPort(ctx context.Context, typ cloud.Type, hostname string, external, internal int) error
	RemovePort(ctx context.Context, typ cloud.Type, hostname string, external int) error
}

// Refresher is the store hook invoked after a successful action.
type Refresher interface {
	Refresh(ctx context.Context)
}

// ErrActionInFlight is returned when an instance already has an action
// running. Repeats are rejected rather than queued.
var ErrActionInFlight = fmt.Errorf("an action is already running for this instance")

// ErrInstanceInactive is returned when anything other than reactivation
// is attempted on an inactive instance.
var ErrInstanceInactive = fmt.Errorf("instance is marked inactive, reactivate it first")

// Notification is the outcome of a finished action, for transient
// display. Err is nil on success.
type Notification struct {
	Key     string
	Verb    string
	Message string
	Err     error
}

// Controller serialises actions per instance. The pending map mirrors
// what is in flight; Pending is what the views use to disable controls.
type Controller struct {
	mu      sync.RWMutex
	pending map[string]string

	api           API
	store         Refresher
	log           *zap.SugaredLogger
	notifications chan Notification
}

// New builds a controller around the given API client and store.
func New(api API, store Refresher, log *zap.SugaredLogger) *Controller {
	return &Controller{
		pending:       make(map[string]string),
		api:           api,
		store:         store,
		log:           log,
		notifications: make(chan Notification, 16),
	}
}

// Notifications delivers one event per finished action.
func (c *Controller) Notifications() <-chan Notification {
	return c.notifications
}

// Pending reports the verb of the action running against the instance,
// if any.
func (c *Controller) Pending(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	verb, ok := c.pending[key]
	return verb, ok
}

// Start boots a stopped instance.
func (c *Controller) Start(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "start", true, func(ctx context.Context) error {
		return c.api.StartInstance(ctx, instance.Type, instance.Hostname)
	})
}

// Stop kills a running instance immediately.
func (c *Controller) Stop(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "stop", true, func(ctx context.Context) error {
		return c.api.StopInstance(ctx, instance.Type, instance.Hostname)
	})
}

// Shutdown asks the instance to power off gracefully.
func (c *Controller) Shutdown(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "shutdown", true, func(ctx context.Context) error {
		return c.api.ShutdownInstance(ctx, instance.Type, instance.Hostname)
	})
}

// ResetRootPassword rotates the root credentials; the new password is
// delivered out of band by the backend.
func (c *Controller) ResetRootPassword(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "reset root password", true, func(ctx context.Context) error {
		return c.api.ResetRootPassword(ctx, instance.Type, instance.Hostname)
	})
}

// Reactivate clears the inactivity flag. It is the only action allowed
// on an inactive instance.
func (c *Controller) Reactivate(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "reactivate", false, func(ctx context.Context) error {
		return c.api.MarkInstanceActive(ctx, instance.Type, instance.Hostname)
	})
}

// Delete shuts the instance down and then deletes it. The deletion is
// only sent once the shutdown call has been accepted.
func (c *Controller) Delete(ctx context.Context, instance cloud.Instance) error {
	return c.run(ctx, instance, "delete", true, func(ctx context.Context) error {
		if instance.Status == cloud.StatusRunning {
			if err := c.api.ShutdownInstance(ctx, instance.Type, instance.Hostname); err != nil {
				return fmt.Errorf("could not shut down before deletion: %w", err)
			}
		}
		return c.api.DeleteInstance(ctx, instance.Type, instance.Hostname)
	})
}

// AddVHost binds a domain to the instance after validating it locally.
func (c *Controller) AddVHost(ctx context.Context, instance cloud.Instance, domain string, port int, https bool) error {
	if err := cloud.ValidateDomain(domain); err != nil {
		return err
	}
	if err := cloud.ValidatePort(port); err != nil {
		return err
	}
	return c.run(ctx, instance, "add vhost", true, func(ctx context.Context) error {
		return c.api.AddVHost(ctx, instance.Type, instance.Hostname, domain, port, https)
	})
}

// RemoveVHost unbinds a domain from the instance.
func (c *Controller) RemoveVHost(ctx context.Context, instance cloud.Instance, domain string) error {
	if err := cloud.ValidateDomain(domain); err != nil {
		return err
	}
	return c.run(ctx, instance, "remove vhost", true, func(ctx context.Context) error {
		return c.api.RemoveVHost(ctx, instance.Type, instance.Hostname, domain)
	})
}

// AddPort forwards an external port to an internal one.
func (c *Controller) AddPort(ctx context.Context, instance cloud.Instance, external, internal int) error {
	if err := cloud.ValidateExternalPort(external); err != nil {
		return err
	}
	if err := cloud.ValidatePort(internal); err != nil {
		return err
	}
	return c.run(ctx, instance, "add port forward", true, func(ctx context.Context) error {
		return c.api.AddPort(ctx, instance.Type, instance.Hostname, external, internal)
	})
}

// RemovePort removes a port forward.
func (c *Controller) RemovePort(ctx context.Context, instance cloud.Instance, external int) error {
	if err := cloud.ValidateExternalPort(external); err != nil {
		return err
	}
	return c.run(ctx, instance, "remove port forward", true, func(ctx context.Context) error {
		return c.api.RemovePort(ctx, instance.Type, instance.Hostname, external)
	})
}

// run acquires the per-instance slot, executes the call once, refreshes
// the store on success and emits a notification either way. Validation
// failures surface synchronously and never occupy the slot.
func (c *Controller) run(ctx context.Context, instance cloud.Instance, verb string, requireActive bool, call func(context.Context) error) error {
	if requireActive && !instance.Active {
		return ErrInstanceInactive
	}
	key := instance.Key()

	c.mu.Lock()
	if _, busy := c.pending[key]; busy {
		c.mu.Unlock()
		return ErrActionInFlight
	}
	c.pending[key] = verb
	c.mu.Unlock()

	go func() {
		err := call(ctx)

		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()

		note := Notification{Key: key, Verb: verb, Err: err}
		if err != nil {
			c.log.Warnw("action failed", "instance", key, "verb", verb, "error", err)
			note.Message = fmt.Sprintf("could not %s %s: %v", verb, instance.Hostname, err)
		} else {
			c.log.Infow("action completed", "instance", key, "verb", verb)
			note.Message = fmt.Sprintf("%s: %s succeeded", instance.Hostname, verb)
			c.store.Refresh(ctx)
		}
		select {
		case c.notifications <- note:
		default:
		}
	}()
	return nil
}
