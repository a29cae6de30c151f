package livetrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePointRepo struct {
	points    map[string][]TrackPoint
	appendErr error
}

func newFakePointRepo() *fakePointRepo {
	return &fakePointRepo{points: make(map[string][]TrackPoint)}
}

func (f *fakePointRepo) Append(ctx context.Context, p *TrackPoint) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.points[p.SessionID] = append(f.points[p.SessionID], *p)
	return nil
}

func (f *fakePointRepo) List(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	return append([]TrackPoint(nil), f.points[sessionID]...), nil
}

type fakeSessionRepo struct {
	records map[string]*SessionRecord
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{records: make(map[string]*SessionRecord)}
}

func (f *fakeSessionRepo) Upsert(ctx context.Context, rec *SessionRecord) error {
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) Find(ctx context.Context, id string) (*SessionRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func newTestService(points *fakePointRepo, mirror *fakeSessionRepo) LiveTrackService {
	return NewLiveTrackService(
		NewStore(500), points, mirror,
		zap.NewNop().Sugar(),
		"https://sos.example.com",
		15*time.Minute,
	)
}

func TestCreateRejectsInvalidCoords(t *testing.T) {
	svc := newTestService(newFakePointRepo(), newFakeSessionRepo())

	_, err := svc.Create(context.Background(), "Ana", "11999990000", -91, -46.63)
	assert.ErrorIs(t, err, ErrInvalidCoords)
}

func TestCreateSeedsSessionAndTrackingURL(t *testing.T) {
	points := newFakePointRepo()
	mirror := newFakeSessionRepo()
	svc := newTestService(points, mirror)

	created, err := svc.Create(context.Background(), "Ana", "11999990000", -23.55, -46.63)
	require.NoError(t, err)

	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, "https://sos.example.com/t/"+created.SessionID, created.TrackingURL)
	assert.Len(t, points.points[created.SessionID], 1, "first fix goes to the durable log")
	assert.Contains(t, mirror.records, created.SessionID)

	other, err := svc.Create(context.Background(), "Bia", "", -23.55, -46.63)
	require.NoError(t, err)
	assert.NotEqual(t, created.SessionID, other.SessionID)
}

func TestUpdateUnknownSession(t *testing.T) {
	points := newFakePointRepo()
	svc := newTestService(points, newFakeSessionRepo())

	_, err := svc.Update(context.Background(), "missing", 0, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, points.points, "a rejected update leaves no row behind")
}

func TestAnaScenario(t *testing.T) {
	points := newFakePointRepo()
	svc := newTestService(points, newFakeSessionRepo())

	created, err := svc.Create(context.Background(), "Ana", "+551199999999", -23.55, -46.63)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.SessionID, -23.551, -46.631)
	require.NoError(t, err)

	snap, err := svc.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, -23.551, snap.Lat)
	assert.Equal(t, -46.631, snap.Lon)

	track, err := svc.Points(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Len(t, track, 2)
}

func TestUpdateAfterStop(t *testing.T) {
	svc := newTestService(newFakePointRepo(), newFakeSessionRepo())

	created, err := svc.Create(context.Background(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)
	require.NoError(t, svc.Stop(context.Background(), created.SessionID))
	require.NoError(t, svc.Stop(context.Background(), created.SessionID), "stop is idempotent")

	_, err = svc.Update(context.Background(), created.SessionID, -23.56, -46.64)
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestUpdateSurvivesAppendFailure(t *testing.T) {
	points := newFakePointRepo()
	svc := newTestService(points, newFakeSessionRepo())

	created, err := svc.Create(context.Background(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)

	points.appendErr = errors.New("mongo down")

	snap, err := svc.Update(context.Background(), created.SessionID, -23.56, -46.64)
	require.NoError(t, err, "a lost log write must not fail the position beat")
	assert.Equal(t, -23.56, snap.Lat)
}

func TestPointsRoundTripInOrder(t *testing.T) {
	points := newFakePointRepo()
	svc := newTestService(points, newFakeSessionRepo())

	created, err := svc.Create(context.Background(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)

	const n = 20
	for i := 1; i <= n; i++ {
		_, err := svc.Update(context.Background(), created.SessionID, -23.55, -46.63+float64(i)*0.001)
		require.NoError(t, err)
	}

	got, err := svc.Points(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Len(t, got, n+1)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].TS.Before(got[i-1].TS))
		assert.InDelta(t, -46.63+float64(i)*0.001, got[i].Lon, 1e-9)
	}
}

func TestGetRebuildsFromDurableLog(t *testing.T) {
	points := newFakePointRepo()
	mirror := newFakeSessionRepo()

	base := time.Now().UTC().Add(-time.Minute)
	points.points["lost1"] = []TrackPoint{
		{SessionID: "lost1", Lat: -23.55, Lon: -46.63, TS: base},
		{SessionID: "lost1", Lat: -23.56, Lon: -46.64, TS: base.Add(30 * time.Second)},
	}
	mirror.records["lost1"] = &SessionRecord{
		ID: "lost1", Name: "Ana", Phone: "11999990000",
		CreatedAt: base, UpdatedAt: base.Add(30 * time.Second), Active: true,
	}

	svc := newTestService(points, mirror)

	snap, err := svc.Get(context.Background(), "lost1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", snap.Name)
	assert.Equal(t, -23.56, snap.Lat)
	assert.Equal(t, -46.64, snap.Lon)

	_, track, err := svc.Track(context.Background(), "lost1")
	require.NoError(t, err)
	assert.Len(t, track, 2)
}

func TestGetUnknownSession(t *testing.T) {
	svc := newTestService(newFakePointRepo(), newFakeSessionRepo())

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListFoldsStalenessIntoActive(t *testing.T) {
	points := newFakePointRepo()
	mirror := newFakeSessionRepo()
	store := NewStore(500)
	svc := NewLiveTrackService(store, points, mirror, zap.NewNop().Sugar(), "https://sos.example.com", 15*time.Minute)

	old := time.Now().UTC().Add(-16 * time.Minute)
	store.Put(&Session{
		ID: "stale", Name: "Ana", Lat: -23.55, Lon: -46.63,
		CreatedAt: old, UpdatedAt: old, Active: true,
	})
	fresh := time.Now().UTC()
	store.Put(&Session{
		ID: "fresh", Name: "Bia", Lat: -23.55, Lon: -46.63,
		CreatedAt: fresh, UpdatedAt: fresh, Active: true,
	})

	byID := map[string]Snapshot{}
	for _, snap := range svc.List(context.Background()) {
		byID[snap.ID] = snap
	}

	require.Len(t, byID, 2)
	assert.False(t, byID["stale"].Active, "stored flag stays true, presentation goes inactive")
	assert.True(t, byID["fresh"].Active)
}

func TestSyncMirrorWritesEverySession(t *testing.T) {
	mirror := newFakeSessionRepo()
	svc := newTestService(newFakePointRepo(), mirror)

	a, err := svc.Create(context.Background(), "Ana", "", -23.55, -46.63)
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), "Bia", "", -23.50, -46.60)
	require.NoError(t, err)
	require.NoError(t, svc.Stop(context.Background(), b.SessionID))

	require.NoError(t, svc.SyncMirror(context.Background()))

	require.Contains(t, mirror.records, a.SessionID)
	require.Contains(t, mirror.records, b.SessionID)
	assert.True(t, mirror.records[a.SessionID].Active)
	assert.False(t, mirror.records[b.SessionID].Active)
}
