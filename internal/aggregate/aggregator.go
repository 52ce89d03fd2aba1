// Package aggregate fetches the external records a contract document is
// built from: owner and client profiles, equipment records, and the rental
// request. Every fetch is best-effort; failures degrade to absent data.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"rentalsign/internal/platform/config"
	dErrors "rentalsign/pkg/domain-errors"
)

// Aggregator fans out to the upstream read-only services.
type Aggregator struct {
	client  *http.Client
	cfg     config.Upstreams
	logger  *slog.Logger
	timeout time.Duration
}

// New constructs an Aggregator. The http.Client is shared across fetches;
// per-call deadlines come from the configured fetch timeout.
func New(cfg config.Upstreams, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		client:  &http.Client{},
		cfg:     cfg,
		logger:  logger,
		timeout: cfg.FetchTimeout,
	}
}

// Fetch gathers all records concurrently. It never fails: each sub-fetch
// error is logged and converted to a nil record so downstream stages operate
// on partial data. Equipment results preserve the input identifier order.
func (a *Aggregator) Fetch(ctx context.Context, ownerID, clientID string, equipmentIDs []string, requestID string) *Context {
	out := &Context{Equipment: make([]*Equipment, len(equipmentIDs))}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.Owner = a.fetchProfile(gctx, ownerID)
		return nil
	})
	g.Go(func() error {
		out.Client = a.fetchProfile(gctx, clientID)
		return nil
	})
	g.Go(func() error {
		out.Request = a.fetchRequest(gctx, requestID)
		return nil
	})
	for i, eid := range equipmentIDs {
		g.Go(func() error {
			out.Equipment[i] = a.fetchEquipment(gctx, eid)
			return nil
		})
	}

	// Closures never return errors; Wait only synchronizes the fan-out.
	_ = g.Wait()
	return out
}

// fetchProfile tolerates both a bare profile object and a one-element array,
// which is what the profile service actually returns for user queries.
func (a *Aggregator) fetchProfile(ctx context.Context, userID string) *Profile {
	if userID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/profile/profil/?user=%s", a.cfg.ProfileBaseURL, url.QueryEscape(userID))
	body, err := a.get(ctx, endpoint)
	if err != nil {
		a.logger.WarnContext(ctx, "profile fetch failed", "user", userID, "error", err)
		return nil
	}
	var single Profile
	if err := json.Unmarshal(body, &single); err == nil {
		return &single
	}
	var many []Profile
	if err := json.Unmarshal(body, &many); err == nil && len(many) > 0 {
		return &many[0]
	}
	a.logger.WarnContext(ctx, "profile payload unreadable", "user", userID)
	return nil
}

func (a *Aggregator) fetchEquipment(ctx context.Context, equipmentID string) *Equipment {
	if equipmentID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/api/stuffs/%s/", a.cfg.EquipmentBaseURL, url.PathEscape(equipmentID))
	body, err := a.get(ctx, endpoint)
	if err != nil {
		a.logger.WarnContext(ctx, "equipment fetch failed", "equipment_id", equipmentID, "error", err)
		return nil
	}
	var eq Equipment
	if err := json.Unmarshal(body, &eq); err != nil {
		a.logger.WarnContext(ctx, "equipment payload unreadable", "equipment_id", equipmentID, "error", err)
		return nil
	}
	return &eq
}

func (a *Aggregator) fetchRequest(ctx context.Context, requestID string) *RentalRequest {
	if requestID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("%s/rental/rental_requests/%s/", a.cfg.RentalBaseURL, url.PathEscape(requestID))
	body, err := a.get(ctx, endpoint)
	if err != nil {
		a.logger.WarnContext(ctx, "rental request fetch failed", "request_id", requestID, "error", err)
		return nil
	}
	var req RentalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.logger.WarnContext(ctx, "rental request payload unreadable", "request_id", requestID, "error", err)
		return nil
	}
	return &req
}

// get performs one bounded GET. No retries: a timeout or error is terminal
// for that sub-fetch.
func (a *Aggregator) get(ctx context.Context, endpoint string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeFetchFailed, "build upstream request", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeFetchFailed, "upstream call failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dErrors.New(dErrors.CodeFetchFailed, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
