package archive

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archigen/internal/types"
)

var tinyPNG = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func samplePlan() types.GeneratedPlan {
	return types.GeneratedPlan{
		ID:       "plan-42",
		ImageURL: types.ImageRef{MIMEType: "image/png", Data: tinyPNG}.DataURI(),
		Analysis: types.LayoutAnalysis{
			VisualPrompt:      "plan <top view>",
			DistributionLogic: "kitchen near entry",
			RoomDimensions:    []types.RoomRecord{{Name: "Master Bedroom", Width: "12ft", Length: "14ft", Area: "168 sq ft"}},
			BylawCompliance:   []types.ComplianceFinding{{Rule: "Egress", Status: types.StatusCompliant, Details: "ok"}},
			TotalUtilizedArea: 900,
			EfficiencyScore:   90,
		},
		Timestamp: 1700000000000,
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "p1", "/b.txt", []byte("B")))
	require.NoError(t, s.Put(ctx, "p1", "a.txt", []byte("A")))
	require.NoError(t, s.Put(ctx, "p2", "a.txt", []byte("other")))

	got, err := s.Get(ctx, "p1", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), got)

	list, err := s.List(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, list)

	_, err = s.Get(ctx, "p1", "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Put(ctx, " ", "a.txt", nil))
	assert.Error(t, s.Put(ctx, "p1", " ", nil))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "p", "f", buf))
	buf[0] = 'z'
	got, err := s.Get(context.Background(), "p", "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestCachedStore(t *testing.T) {
	origin := NewMemoryStore()
	s := NewCachedStore(origin, CacheConfig{})
	exerciseStore(t, s)

	ctx := context.Background()
	_, err := s.Get(ctx, "p1", "a.txt")
	require.NoError(t, err)
	_, err = s.List(ctx, "p1")
	require.NoError(t, err)

	m := s.Metrics()
	assert.GreaterOrEqual(t, m.BlobHits, uint64(2))
	assert.Equal(t, uint64(5), m.OriginWrites)
	assert.GreaterOrEqual(t, m.ListHits, uint64(1))
}

func TestCachedStoreInvalidatesListOnPut(t *testing.T) {
	s := NewCachedStore(NewMemoryStore(), DefaultCacheConfig())
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "p", "a", nil))
	list, err := s.List(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)

	require.NoError(t, s.Put(ctx, "p", "b", nil))
	list, err = s.List(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)
}

func TestExporter(t *testing.T) {
	store := NewMemoryStore()
	e := &Exporter{Store: store}
	plan := samplePlan()

	m, err := e.Export(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "plan-42", m.PlanID)
	assert.Equal(t, []string{"analysis.json", "blueprint.png", "plan.json"}, m.Files)
	assert.Empty(t, m.ImageURL)

	img, err := store.Get(context.Background(), "plan-42", "blueprint.png")
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, img)

	raw, err := store.Get(context.Background(), "plan-42", AnalysisFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "plan <top view>")

	back, err := e.Load(context.Background(), "plan-42")
	require.NoError(t, err)
	assert.Equal(t, plan.Analysis, back.Analysis)
	assert.Equal(t, plan.Timestamp, back.Timestamp)
	assert.Equal(t, "plan-42", back.Manifest.PlanID)
	assert.Contains(t, back.Manifest.Files, "blueprint.png")

	_, err = e.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Load(context.Background(), " ")
	assert.Error(t, err)
}

func TestExporterRejects(t *testing.T) {
	e := &Exporter{Store: NewMemoryStore()}

	plan := samplePlan()
	plan.ID = ""
	_, err := e.Export(context.Background(), plan)
	assert.Error(t, err)

	plan = samplePlan()
	plan.ImageURL = "https://example.com/x.png"
	_, err = e.Export(context.Background(), plan)
	assert.ErrorIs(t, err, types.ErrInvalidDataURI)

	_, err = (&Exporter{}).Export(context.Background(), samplePlan())
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("blueprint.png"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}

func TestS3ConfigComplete(t *testing.T) {
	assert.False(t, S3Config{Endpoint: "minio:9000"}.Complete())
	assert.True(t, S3Config{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "c"}.Complete())

	_, err := NewS3Store(S3Config{Endpoint: "minio:9000"})
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ARCHIVE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ARCHIVE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, `DROP TABLE IF EXISTS plan_files`)
	require.NoError(t, err)
	exerciseStore(t, s)
}
