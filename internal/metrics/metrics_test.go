package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	created := testutil.ToFloat64(ShortenTotal.WithLabelValues("created"))
	existing := testutil.ToFloat64(ShortenTotal.WithLabelValues("existing"))
	notFound := testutil.ToFloat64(ResolveTotal.WithLabelValues("not_found"))
	collisions := testutil.ToFloat64(HashCollisionsTotal)

	rec.RecordShorten(true)
	rec.RecordShorten(false)
	rec.RecordShorten(false)
	rec.RecordResolve("not_found")
	rec.RecordHashCollision()

	assert.Equal(t, created+1, testutil.ToFloat64(ShortenTotal.WithLabelValues("created")))
	assert.Equal(t, existing+2, testutil.ToFloat64(ShortenTotal.WithLabelValues("existing")))
	assert.Equal(t, notFound+1, testutil.ToFloat64(ResolveTotal.WithLabelValues("not_found")))
	assert.Equal(t, collisions+1, testutil.ToFloat64(HashCollisionsTotal))
}
