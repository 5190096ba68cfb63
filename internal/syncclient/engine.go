// Package syncclient pushes the local outbox to the sync server and pulls
// habits back.
//
// Sync is caller-driven. Each SyncNow sends at most one batch; the caller
// decides when to call again.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/julianstephens/habitsync/internal/conflict"
	"github.com/julianstephens/habitsync/internal/constants"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/outbox"
	"github.com/julianstephens/habitsync/internal/storage"
)

// ErrSyncInProgress is returned when another SyncNow holds the device lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// Result summarizes one SyncNow call. Error is set when no structured
// response was received, in which case Failed counts the whole batch.
type Result struct {
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

type Engine struct {
	baseURL   string
	client    *http.Client
	store     *storage.Store
	queue     *outbox.Queue
	resolver  *conflict.Resolver
	lockPath  string
	batchSize int
}

// NewEngine creates an engine for the server at baseURL. The device lock
// file lives next to the store's database.
func NewEngine(baseURL string, store *storage.Store, queue *outbox.Queue) *Engine {
	return &Engine{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: constants.SyncHTTPTimeout},
		store:     store,
		queue:     queue,
		resolver:  conflict.NewResolver(store),
		lockPath:  filepath.Join(filepath.Dir(store.GetConfigPath()), constants.SyncLockFileName),
		batchSize: constants.SyncBatchSize,
	}
}

// SyncNow pushes one batch of pending operations. Acknowledged ops leave the
// outbox and failed ops are recorded against their retry policy. When the
// request itself fails nothing in the outbox changes.
//
// The returned error is reserved for local faults and ErrSyncInProgress.
func (e *Engine) SyncNow(ctx context.Context, credential string) (Result, error) {
	lock := flock.New(e.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !locked {
		return Result{Error: ErrSyncInProgress.Error()}, ErrSyncInProgress
	}
	defer lock.Unlock()

	ops, err := e.queue.Pending(ctx, e.batchSize)
	if err != nil {
		return Result{}, err
	}
	if len(ops) == 0 {
		return Result{}, nil
	}

	req := models.SyncRequest{Ops: make([]models.SyncOp, 0, len(ops))}
	for _, op := range ops {
		createdAt := op.CreatedAt
		req.Ops = append(req.Ops, models.SyncOp{
			ID:        op.ID,
			Type:      op.Type,
			Payload:   op.Payload,
			CreatedAt: &createdAt,
		})
	}

	var resp models.SyncResponse
	if err := e.do(ctx, http.MethodPost, constants.SyncEndpoint, credential, req, &resp); err != nil {
		logger.Warn("Sync request failed", "ops", len(ops), "error", err)
		return Result{Failed: len(ops), Error: err.Error()}, nil
	}

	acked := make([]string, 0, len(resp.Applied)+len(resp.Skipped))
	acked = append(acked, resp.Applied...)
	acked = append(acked, resp.Skipped...)
	if len(acked) > 0 {
		if err := e.queue.Ack(ctx, acked); err != nil {
			return Result{}, err
		}
	}
	for _, f := range resp.Failed {
		if err := e.queue.Fail(ctx, f.OpID, f.Code+": "+f.Message); err != nil {
			return Result{}, err
		}
	}

	result := Result{Applied: len(resp.Applied), Skipped: len(resp.Skipped), Failed: len(resp.Failed)}
	logger.Info("Sync completed", "applied", result.Applied, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// Pull fetches every habit for the account, archived ones included, and
// merges them into the local store.
func (e *Engine) Pull(ctx context.Context, credential string) (conflict.MergeReport, error) {
	var list models.HabitList
	if err := e.do(ctx, http.MethodGet, constants.HabitsEndpoint+"?includeArchived=true", credential, nil, &list); err != nil {
		return conflict.MergeReport{}, fmt.Errorf("failed to fetch habits: %w", err)
	}
	return e.resolver.Merge(ctx, list.Habits)
}

// PullCheckin fetches the server's check-in for date and merges it into the
// local store without queueing operations. A server mood replaces the local
// one; server completions are added and local ones are never removed.
// Completions for habits unknown to this device are ignored.
func (e *Engine) PullCheckin(ctx context.Context, credential, date string) (models.Checkin, error) {
	var c models.Checkin
	if err := e.do(ctx, http.MethodGet, constants.CheckinsEndpoint+"/"+date, credential, nil, &c); err != nil {
		return models.Checkin{}, fmt.Errorf("failed to fetch check-in for %s: %w", date, err)
	}

	now := time.Now().UTC()
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		if c.Mood != nil {
			if err := q.UpsertMood(ctx, date, *c.Mood, c.Notes, now); err != nil {
				return err
			}
		}
		for _, comp := range c.Completions {
			if comp.Done == nil || !*comp.Done {
				continue
			}
			if _, err := q.GetHabit(ctx, comp.HabitID); errors.Is(err, storage.ErrNotFound) {
				logger.Debug("Skipping completion for unknown habit", "habit", comp.HabitID, "date", date)
				continue
			} else if err != nil {
				return err
			}
			if err := q.SetCompletion(ctx, comp.HabitID, date, true, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Checkin{}, err
	}
	return c, nil
}

// Ping checks that the server is up.
func (e *Engine) Ping(ctx context.Context) error {
	var status map[string]string
	return e.do(ctx, http.MethodGet, "/health", "", nil, &status)
}

// CheckCredential reports whether the server accepts credential.
func (e *Engine) CheckCredential(ctx context.Context, credential string) error {
	var list models.HabitList
	return e.do(ctx, http.MethodGet, constants.HabitsEndpoint, credential, nil, &list)
}

// Summary renders a result for the user.
func Summary(r Result) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Failed > 0:
		return fmt.Sprintf("%d operation(s) failed", r.Failed)
	default:
		return fmt.Sprintf("Synced: %d applied, %d skipped", r.Applied, r.Skipped)
	}
}

func (e *Engine) do(ctx context.Context, method, path, credential string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb models.ErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error.Code != "" {
			return fmt.Errorf("server returned %d: %s: %s", resp.StatusCode, eb.Error.Code, eb.Error.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
