package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apiwire-hq/apiwire/pkg/services"
	"github.com/apiwire-hq/apiwire/pkg/typedhttp"
)

const (
	loginEndpoint   = "login"
	profileEndpoint = "me"
)

// loginResponse is the typed shape of the login payload.
type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// decodeLogin rejects payloads missing the access token, so a shape mismatch
// surfaces as a decode failure rather than an empty credential.
func decodeLogin(body []byte) (loginResponse, error) {
	v, err := typedhttp.JSON[loginResponse]()(body)
	if err != nil {
		return v, err
	}
	if v.AccessToken == "" {
		return v, errors.New("payload has no access_token")
	}
	return v, nil
}

// EnsureToken returns a bearer token for the demo service, logging in only
// when the store has no unexpired one.
func (r *Runtime) EnsureToken(ctx context.Context, username, password string) (string, error) {
	serviceID := r.cfg.DemoService

	token, found, err := r.store.Token(serviceID)
	if err != nil {
		return "", fmt.Errorf("read token store: %w", err)
	}
	if found {
		r.log.DebugObj("reusing stored token", "service", serviceID)
		return token, nil
	}

	desc, err := r.registry.Descriptor(serviceID, loginEndpoint, services.Overrides{
		Query: map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return "", err
	}

	resp, err := typedhttp.Call(ctx, r.client, desc, decodeLogin)
	if err != nil {
		return "", fmt.Errorf("login call: %w", err)
	}

	if err := r.store.SaveToken(serviceID, resp.AccessToken); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	return resp.AccessToken, nil
}

// RunDemo performs the scripted flow: log in, persist the token, then fetch
// the profile endpoint asynchronously with the callback marshaled onto a
// serial dispatcher.
func (r *Runtime) RunDemo(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("runtime is not initialized")
	}

	token, err := r.EnsureToken(ctx, r.cfg.DemoUsername, r.cfg.DemoPassword)
	if err != nil {
		return err
	}
	r.log.InfoObj("login succeeded", "service", r.cfg.DemoService)

	desc, err := r.registry.Descriptor(r.cfg.DemoService, profileEndpoint, services.Overrides{
		BearerToken: token,
	})
	if err != nil {
		return err
	}

	disp := typedhttp.NewSerialDispatcher()
	defer disp.Close()

	done := make(chan error, 1)
	typedhttp.Go(ctx, r.client, desc, typedhttp.JSON[json.RawMessage](), disp, func(o typedhttp.Outcome[json.RawMessage]) {
		if o.Failed() {
			// A stale token should not poison the next run.
			if o.Kind() != typedhttp.KindTransport {
				if delErr := r.store.DeleteToken(r.cfg.DemoService); delErr != nil {
					r.log.WarnObj("token cleanup failed", "error", delErr.Error())
				}
			}
			done <- o.Err
			return
		}
		r.log.InfoObj("profile fetched", "profile", json.RawMessage(o.Value))
		done <- nil
	})

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("profile call: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.cfg.HTTPTimeout + time.Second):
		return fmt.Errorf("profile call timed out waiting for callback")
	}
}

// Invoke executes a registry endpoint by name, attaching any stored bearer
// token for the service, and returns the raw JSON payload.
func (r *Runtime) Invoke(ctx context.Context, serviceID, endpointID string, query map[string]string) (json.RawMessage, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("runtime is not initialized")
	}

	token, _, err := r.store.Token(serviceID)
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}

	desc, err := r.registry.Descriptor(serviceID, endpointID, services.Overrides{
		Query:       query,
		BearerToken: token,
	})
	if err != nil {
		return nil, err
	}

	return typedhttp.Call(ctx, r.client, desc, typedhttp.JSON[json.RawMessage]())
}
