package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"valet-backend/models"
)

// ErrUnknownStatus is returned for a status outside the lifecycle table.
var ErrUnknownStatus = errors.New("unknown status")

// FieldError marks a patch against a field that is not updatable.
type FieldError struct{ Field string }

func (e *FieldError) Error() string { return "field not updatable: " + e.Field }

// Engine implements the parking request workflow: the query filters the role
// screens poll and the transition actions they write back. It is the only
// sanctioned mutator of the request store.
type Engine struct {
	store Store
	hub   *Hub
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store Store, hub *Hub, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, hub: hub, log: log, now: time.Now}
}

// GetAll returns every record in the store.
func (e *Engine) GetAll(ctx context.Context) ([]models.ParkingRequest, error) {
	return e.store.All(ctx)
}

// Get returns a single record by id.
func (e *Engine) Get(ctx context.Context, id int64) (*models.ParkingRequest, error) {
	return e.store.Get(ctx, id)
}

// GetPending returns unassigned requests any driver may claim: status
// requested or retrieval_requested with no valet attached.
func (e *Engine) GetPending(ctx context.Context) ([]models.ParkingRequest, error) {
	all, err := e.store.All(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]models.ParkingRequest, 0)
	for _, r := range all {
		if (r.Status == StatusRequested || r.Status == StatusRetrievalRequested) && r.ValetID == nil {
			pending = append(pending, r)
		}
	}
	sortByIDDesc(pending)
	return pending, nil
}

// GetUserActiveRequests returns the user's non-terminal requests, newest first.
func (e *Engine) GetUserActiveRequests(ctx context.Context, userID string) ([]models.ParkingRequest, error) {
	all, err := e.store.All(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]models.ParkingRequest, 0)
	for _, r := range all {
		if r.UserID == userID && !IsTerminal(r.Status) {
			active = append(active, r)
		}
	}
	sortByIDDesc(active)
	return active, nil
}

// GetActive returns the user's most recent non-terminal request, or nil.
func (e *Engine) GetActive(ctx context.Context, userID string) (*models.ParkingRequest, error) {
	active, err := e.GetUserActiveRequests(ctx, userID)
	if err != nil || len(active) == 0 {
		return nil, err
	}
	return &active[0], nil
}

// GetDriverActive returns the driver's current non-terminal job, or nil.
// A driver holds at most one active job at a time.
func (e *Engine) GetDriverActive(ctx context.Context, driverID string) (*models.ParkingRequest, error) {
	all, err := e.store.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ValetID != nil && *r.ValetID == driverID && !IsTerminal(r.Status) {
			req := r
			return &req, nil
		}
	}
	return nil, nil
}

// UserHistory returns the user's completed requests, newest first, capped at limit.
func (e *Engine) UserHistory(ctx context.Context, userID string, limit int) ([]models.ParkingRequest, error) {
	all, err := e.store.All(ctx)
	if err != nil {
		return nil, err
	}
	done := make([]models.ParkingRequest, 0)
	for _, r := range all {
		if r.UserID == userID && r.Status == StatusCompleted {
			done = append(done, r)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].Timestamp.After(done[j].Timestamp) })
	if limit > 0 && len(done) > limit {
		done = done[:limit]
	}
	return done, nil
}

// CreateRequest appends a new request in status requested. The id is derived
// from the creation time in Unix milliseconds; on a rare collision the id is
// bumped until insertion succeeds.
func (e *Engine) CreateRequest(ctx context.Context, user models.User, vehicle models.Vehicle, location string) (*models.ParkingRequest, error) {
	name := user.Name
	if name == "" {
		name = "Unknown User"
	}
	phone := user.Phone
	if phone == "" {
		phone = "9999999999"
	}

	now := e.now().UTC()
	req := &models.ParkingRequest{
		ID:        now.UnixMilli(),
		UserID:    user.Id,
		UserName:  name,
		UserPhone: phone,
		Vehicle:   vehicle,
		Location:  location,
		Status:    StatusRequested,
		Timestamp: now,
	}

	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = e.store.Create(ctx, req); err == nil {
			break
		}
		req.ID++
	}
	if err != nil {
		return nil, err
	}

	e.recordEvent(ctx, req, user.Id)
	e.publish(EventCreated, req)
	e.log.Info("parking request created",
		zap.Int64("id", req.ID),
		zap.String("userId", req.UserID),
		zap.String("location", req.Location))
	return req, nil
}

// AcceptRequest claims a pending request for a driver. On a requested record
// the status advances to assigned; on a retrieval_requested record the valet
// is attached without a phase change. The claim is conditional: it succeeds
// only while the record is unassigned, so of two racing drivers exactly one
// wins and the other gets ErrConflict.
func (e *Engine) AcceptRequest(ctx context.Context, id int64, driver models.User) (*models.ParkingRequest, error) {
	req, err := e.store.Mutate(ctx, id, func(r *models.ParkingRequest) error {
		if r.Status != StatusRequested && r.Status != StatusRetrievalRequested {
			return ErrConflict
		}
		if r.ValetID != nil {
			return ErrConflict
		}
		valetID, valetName := driver.Id, driver.Name
		r.ValetID = &valetID
		r.ValetName = &valetName
		if r.Status == StatusRequested {
			r.Status = StatusAssigned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordEvent(ctx, req, driver.Id)
	e.publish(EventAccepted, req)
	e.log.Info("parking request accepted",
		zap.Int64("id", req.ID),
		zap.String("valetId", driver.Id))
	return req, nil
}

// UpdateStatus advances a request to newStatus. Illegal transitions are
// rejected with ErrConflict. Side effects:
//   - retrieval_requested clears the valet assignment so the job can be re-claimed
//   - parked stamps parkedTimestamp the first time only
//   - completed stamps exitTimestamp
func (e *Engine) UpdateStatus(ctx context.Context, id int64, newStatus, actor string) (*models.ParkingRequest, error) {
	if !KnownStatus(newStatus) {
		return nil, ErrUnknownStatus
	}
	req, err := e.store.Mutate(ctx, id, func(r *models.ParkingRequest) error {
		if !CanTransition(r.Status, newStatus) {
			return ErrConflict
		}
		// Every working status implies an assigned valet. A retrieval that
		// nobody accepted must not advance past retrieval_requested.
		if r.ValetID == nil && RequiresValet(newStatus) {
			return ErrConflict
		}
		r.Status = newStatus
		switch newStatus {
		case StatusRetrievalRequested:
			r.ValetID = nil
			r.ValetName = nil
		case StatusParked:
			if r.ParkedTimestamp == nil {
				t := e.now().UTC()
				r.ParkedTimestamp = &t
			}
		case StatusCompleted:
			t := e.now().UTC()
			r.ExitTimestamp = &t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordEvent(ctx, req, actor)
	e.publish(EventStatus, req)
	e.log.Info("parking request status updated",
		zap.Int64("id", req.ID),
		zap.String("status", newStatus))
	return req, nil
}

// Mutable fields accepted by Patch, keyed by wire name.
var patchable = map[string]bool{
	"status":          true,
	"valetId":         true,
	"valetName":       true,
	"parkedTimestamp": true,
	"exitTimestamp":   true,
}

// Patch applies a partial update with the raw wire-field names, the surface
// other client variants use directly. Unlike UpdateStatus it does not walk
// the transition table, but it still refuses unknown statuses, rejects
// immutable fields and keeps both lifecycle timestamps write-once.
func (e *Engine) Patch(ctx context.Context, id int64, updates map[string]any, actor string) (*models.ParkingRequest, error) {
	for k := range updates {
		if !patchable[k] {
			return nil, &FieldError{Field: k}
		}
	}
	if v, ok := updates["status"]; ok {
		s, _ := v.(string)
		if !KnownStatus(s) {
			return nil, ErrUnknownStatus
		}
	}

	req, err := e.store.Mutate(ctx, id, func(r *models.ParkingRequest) error {
		if v, ok := updates["status"]; ok {
			r.Status = v.(string)
		}
		if v, ok := updates["valetId"]; ok {
			r.ValetID = toStringPtr(v)
		}
		if v, ok := updates["valetName"]; ok {
			r.ValetName = toStringPtr(v)
		}
		if v, ok := updates["parkedTimestamp"]; ok && r.ParkedTimestamp == nil {
			t, err := toTimePtr(v)
			if err != nil {
				return err
			}
			r.ParkedTimestamp = t
		}
		if v, ok := updates["exitTimestamp"]; ok && r.ExitTimestamp == nil {
			t, err := toTimePtr(v)
			if err != nil {
				return err
			}
			r.ExitTimestamp = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordEvent(ctx, req, actor)
	e.publish(EventStatus, req)
	return req, nil
}

// Events returns the audit snapshots recorded for a request.
func (e *Engine) Events(ctx context.Context, requestID int64) ([]models.RequestEvent, error) {
	return e.store.Events(ctx, requestID)
}

func (e *Engine) recordEvent(ctx context.Context, req *models.ParkingRequest, actor string) {
	snap, err := json.Marshal(req)
	if err != nil {
		e.log.Error("snapshot marshal failed", zap.Int64("id", req.ID), zap.Error(err))
		return
	}
	ev := &models.RequestEvent{
		RequestID: req.ID,
		Status:    req.Status,
		Actor:     actor,
		Snapshot:  datatypes.JSON(snap),
		CreatedAt: e.now().UTC(),
	}
	// Audit trail is best-effort; a failed append never fails the transition.
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		e.log.Error("event append failed", zap.Int64("id", req.ID), zap.Error(err))
	}
}

func (e *Engine) publish(typ string, req *models.ParkingRequest) {
	if e.hub != nil {
		e.hub.Publish(Event{Type: typ, Request: *req})
	}
}

func sortByIDDesc(reqs []models.ParkingRequest) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID > reqs[j].ID })
}

func toStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func toTimePtr(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, errors.New("timestamp must be an RFC3339 string or null")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
