package livetrack

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LiveTrackService owns the session lifecycle: the in-memory index is
// authoritative for current position, the point log is authoritative
// for history, and divergence is always resolved by rebuilding memory
// from the log, never the reverse.
type LiveTrackService interface {
	Create(ctx context.Context, name, phone string, lat, lon float64) (*Created, error)
	Update(ctx context.Context, id string, lat, lon float64) (Snapshot, error)
	Stop(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Snapshot, error)
	Track(ctx context.Context, id string) (Snapshot, []TrackPoint, error)
	Points(ctx context.Context, id string) ([]TrackPoint, error)
	List(ctx context.Context) []Snapshot
	Delete(ctx context.Context, id string) bool
	SyncMirror(ctx context.Context) error

	Subscribe(id string) (*Subscriber, error)
	Unsubscribe(sub *Subscriber)
}

type Created struct {
	SessionID   string `json:"session_id"`
	TrackingURL string `json:"tracking_url"`
}

type liveTrackService struct {
	store        *Store
	points       PointRepository
	mirror       SessionRepository
	hub          *hub
	logger       *zap.SugaredLogger
	trackingBase string
	staleAfter   time.Duration
}

func NewLiveTrackService(
	store *Store,
	points PointRepository,
	mirror SessionRepository,
	logger *zap.SugaredLogger,
	trackingBase string,
	staleAfter time.Duration,
) LiveTrackService {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &liveTrackService{
		store:        store,
		points:       points,
		mirror:       mirror,
		hub:          newHub(),
		logger:       logger,
		trackingBase: trackingBase,
		staleAfter:   staleAfter,
	}
}

func (s *liveTrackService) Create(ctx context.Context, name, phone string, lat, lon float64) (*Created, error) {
	if !ValidCoords(lat, lon) {
		return nil, ErrInvalidCoords
	}
	if name == "" {
		name = "contato"
	}

	now := time.Now().UTC()
	id := newSessionID()
	first := TrackPoint{SessionID: id, Lat: lat, Lon: lon, TS: now}

	s.store.Put(&Session{
		ID:        id,
		Name:      name,
		Phone:     phone,
		Lat:       lat,
		Lon:       lon,
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
		Track:     []TrackPoint{first},
	})

	// A lost first point must not lose the alert's tracking link.
	if err := s.points.Append(ctx, &first); err != nil {
		s.logger.Errorf("livetrack: initial point append failed session=%s err=%v", id, err)
	}
	if err := s.mirror.Upsert(ctx, s.recordFor(id)); err != nil {
		s.logger.Errorf("livetrack: mirror upsert failed session=%s err=%v", id, err)
	}

	return &Created{
		SessionID:   id,
		TrackingURL: s.trackingURL(id),
	}, nil
}

func (s *liveTrackService) Update(ctx context.Context, id string, lat, lon float64) (Snapshot, error) {
	if !ValidCoords(lat, lon) {
		return Snapshot{}, ErrInvalidCoords
	}

	now := time.Now().UTC()
	sess, err := s.store.Update(id, lat, lon, now)
	if err != nil {
		return Snapshot{}, err
	}

	if err := s.points.Append(ctx, &TrackPoint{SessionID: id, Lat: lat, Lon: lon, TS: now}); err != nil {
		s.logger.Errorf("livetrack: point append failed session=%s err=%v", id, err)
	}

	snap := s.snapshot(sess, now)
	s.hub.publish(id, snap)
	s.logger.Infof("livetrack: update session=%s lat=%.7f lon=%.7f n_points=%d", id, lat, lon, len(sess.Track))
	return snap, nil
}

func (s *liveTrackService) Stop(ctx context.Context, id string) error {
	now := time.Now().UTC()
	if err := s.store.Stop(id, now); err != nil {
		return err
	}
	if err := s.mirror.Upsert(ctx, s.recordFor(id)); err != nil {
		s.logger.Errorf("livetrack: mirror upsert on stop failed session=%s err=%v", id, err)
	}
	s.hub.close(id)
	s.logger.Infof("livetrack: session stopped id=%s", id)
	return nil
}

func (s *liveTrackService) Get(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.ensure(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sess, time.Now().UTC()), nil
}

// Track serves the recent-history buffer; on a cold index it first
// rehydrates the session from the durable log.
func (s *liveTrackService) Track(ctx context.Context, id string) (Snapshot, []TrackPoint, error) {
	sess, err := s.ensure(ctx, id)
	if err != nil {
		return Snapshot{}, nil, err
	}
	return s.snapshot(sess, time.Now().UTC()), sess.Track, nil
}

func (s *liveTrackService) Points(ctx context.Context, id string) ([]TrackPoint, error) {
	points, err := s.points.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrSessionNotFound
	}
	return points, nil
}

func (s *liveTrackService) List(ctx context.Context) []Snapshot {
	now := time.Now().UTC()
	sessions := s.store.List()
	out := make([]Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		if !ValidCoords(sess.Lat, sess.Lon) {
			continue
		}
		out = append(out, s.snapshot(sess, now))
	}
	return out
}

func (s *liveTrackService) Delete(ctx context.Context, id string) bool {
	s.hub.close(id)
	return s.store.Delete(id)
}

// SyncMirror flushes the in-memory index to the durable mirror. It is a
// reconciliation sweep only: it never changes session state.
func (s *liveTrackService) SyncMirror(ctx context.Context) error {
	var lastErr error
	for _, sess := range s.store.List() {
		rec := recordFromSession(sess)
		if err := s.mirror.Upsert(ctx, rec); err != nil {
			s.logger.Errorf("livetrack: mirror sync failed session=%s err=%v", sess.ID, err)
			lastErr = err
		}
	}
	return lastErr
}

func (s *liveTrackService) Subscribe(id string) (*Subscriber, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, ErrSessionNotFound
	}
	return s.hub.subscribe(id), nil
}

// ensure returns the in-memory session, rebuilding it from the durable
// log if the index lost it (restart, admin delete). Memory is always
// rebuilt from the log, never the other way around.
func (s *liveTrackService) ensure(ctx context.Context, id string) (Session, error) {
	if sess, ok := s.store.Get(id); ok {
		return sess, nil
	}

	points, err := s.points.List(ctx, id)
	if err != nil {
		s.logger.Errorf("livetrack: rebuild query failed session=%s err=%v", id, err)
		return Session{}, ErrSessionNotFound
	}
	if len(points) == 0 {
		return Session{}, ErrSessionNotFound
	}

	last := points[len(points)-1]
	sess := &Session{
		ID:        id,
		Name:      "contato",
		Lat:       last.Lat,
		Lon:       last.Lon,
		CreatedAt: points[0].TS,
		UpdatedAt: last.TS,
		Active:    true,
		Track:     points,
	}
	if rec, err := s.mirror.Find(ctx, id); err == nil && rec != nil {
		sess.Name = rec.Name
		sess.Phone = rec.Phone
		sess.Active = rec.Active
		sess.StoppedAt = rec.StoppedAt
		sess.CreatedAt = rec.CreatedAt
	}

	s.store.Put(sess)
	s.logger.Infof("livetrack: rebuilt session from log id=%s points=%d", id, len(points))

	rebuilt, _ := s.store.Get(id)
	return rebuilt, nil
}

// snapshot folds the canonical recency threshold into the active flag:
// a session is presented active only while its flag is set and the last
// update is fresh enough.
func (s *liveTrackService) snapshot(sess Session, now time.Time) Snapshot {
	active := sess.Active
	if active && now.Sub(sess.UpdatedAt) > s.staleAfter {
		active = false
	}
	return Snapshot{
		ID:          sess.ID,
		Name:        sess.Name,
		Phone:       sess.Phone,
		Lat:         sess.Lat,
		Lon:         sess.Lon,
		UpdatedAt:   sess.UpdatedAt,
		Active:      active,
		TrackingURL: s.trackingURL(sess.ID),
	}
}

func (s *liveTrackService) recordFor(id string) *SessionRecord {
	sess, ok := s.store.Get(id)
	if !ok {
		return &SessionRecord{ID: id}
	}
	return recordFromSession(sess)
}

func recordFromSession(sess Session) *SessionRecord {
	return &SessionRecord{
		ID:        sess.ID,
		Name:      sess.Name,
		Phone:     sess.Phone,
		Lat:       sess.Lat,
		Lon:       sess.Lon,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		StoppedAt: sess.StoppedAt,
		Active:    sess.Active,
	}
}

func (s *liveTrackService) trackingURL(id string) string {
	if s.trackingBase == "" {
		return ""
	}
	return fmt.Sprintf("%s/t/%s", s.trackingBase, id)
}

// newSessionID returns a short unguessable url-safe token, the piece of
// the tracking link recipients share.
func newSessionID() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("livetrack: crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
