// Package storetest checks that a store.Repository behaves the way the Store
// expects. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respec/internal/apperr"
	"respec/internal/document"
	"respec/internal/loop"
	"respec/internal/store"
)

// Run exercises a fresh repository from newRepo for each subtest.
func Run(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	t.Run("LoopRoundTrip", func(t *testing.T) { testLoopRoundTrip(t, newRepo(t)) })
	t.Run("LoopConflictAndNotFound", func(t *testing.T) { testLoopErrors(t, newRepo(t)) })
	t.Run("ListLoopsOrdered", func(t *testing.T) { testListLoops(t, newRepo(t)) })
	t.Run("DocumentUpsert", func(t *testing.T) { testDocumentUpsert(t, newRepo(t)) })
	t.Run("DocumentList", func(t *testing.T) { testDocumentList(t, newRepo(t)) })
	t.Run("SlashesInRefs", func(t *testing.T) { testSlashesInRefs(t, newRepo(t)) })
	t.Run("RoadmapSpecsSurvive", func(t *testing.T) { testRoadmapSpecs(t, newRepo(t)) })
	t.Run("NoAliasing", func(t *testing.T) { testNoAliasing(t, newRepo(t)) })
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newLoop(id string, offset time.Duration) *loop.State {
	return loop.NewState(id, loop.TypeSpec, base.Add(offset))
}

func testLoopRoundTrip(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	st := newLoop("loop-1", 0)
	require.NoError(t, repo.InsertLoop(ctx, st))

	st.Iteration = 2
	st.Scores = append(st.Scores, 72)
	st.Feedback = append(st.Feedback, &document.CriticFeedback{
		LoopID:          "loop-1",
		Agent:           document.CriticSpec,
		Iteration:       2,
		OverallScore:    72,
		Summary:         "needs error handling",
		Criteria:        map[string]int{"completeness": 7},
		KeyIssues:       []string{"no retries"},
		Recommendations: []string{"add retries"},
		CreatedAt:       "2025-03-01",
	})
	st.Status = loop.StatusRefine
	st.Document = &document.Ref{Kind: document.KindSpecification, Container: "shop", Name: "api"}
	st.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, repo.SaveLoop(ctx, st))

	got, err := repo.GetLoop(ctx, "loop-1")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, st.Type, got.Type)
	assert.Equal(t, 2, got.Iteration)
	assert.Equal(t, []int{72}, got.Scores)
	assert.Equal(t, st.Feedback, got.Feedback)
	assert.Equal(t, loop.StatusRefine, got.Status)
	assert.Equal(t, st.Document, got.Document)
	assert.True(t, st.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, st.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, repo.DeleteLoop(ctx, "loop-1"))
	_, err = repo.GetLoop(ctx, "loop-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testLoopErrors(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	st := newLoop("loop-1", 0)
	require.NoError(t, repo.InsertLoop(ctx, st))
	assert.ErrorIs(t, repo.InsertLoop(ctx, st), apperr.ErrConflict)

	_, err := repo.GetLoop(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, repo.SaveLoop(ctx, newLoop("missing", 0)), apperr.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteLoop(ctx, "missing"), apperr.ErrNotFound)
}

func testListLoops(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.InsertLoop(ctx, newLoop("c", 2*time.Second)))
	require.NoError(t, repo.InsertLoop(ctx, newLoop("a", 0)))
	require.NoError(t, repo.InsertLoop(ctx, newLoop("b", time.Second)))

	loops, err := repo.ListLoops(ctx)
	require.NoError(t, err)
	ids := make([]string, len(loops))
	for i, st := range loops {
		ids[i] = st.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func testDocumentUpsert(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindProjectPlan, Name: "shop"}

	_, err := repo.GetDocument(ctx, ref)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	first := &document.ProjectPlan{ProjectName: "shop", Vision: "first", Status: document.ProjectDraft}
	require.NoError(t, repo.PutDocument(ctx, ref, first))
	second := &document.ProjectPlan{ProjectName: "shop", Vision: "second", Status: document.ProjectDraft}
	require.NoError(t, repo.PutDocument(ctx, ref, second))

	got, err := repo.GetDocument(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "second", got.(*document.ProjectPlan).Vision)

	require.NoError(t, repo.DeleteDocument(ctx, ref))
	assert.ErrorIs(t, repo.DeleteDocument(ctx, ref), apperr.ErrNotFound)
	_, err = repo.GetDocument(ctx, ref)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func testDocumentList(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	put := func(kind document.Kind, container, name string) {
		doc, err := document.NewPlaceholder(kind, name)
		require.NoError(t, err)
		require.NoError(t, repo.PutDocument(ctx, document.Ref{Kind: kind, Container: container, Name: name}, doc))
	}
	put(document.KindSpecification, "shop", "payments")
	put(document.KindSpecification, "shop", "catalog")
	put(document.KindSpecification, "blog", "posts")
	put(document.KindSpecification, "", "standalone")
	put(document.KindBuildPlan, "shop", "rollout")

	names, err := repo.ListDocuments(ctx, document.KindSpecification, "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog", "payments"}, names)

	names, err = repo.ListDocuments(ctx, document.KindSpecification, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"standalone"}, names)

	names, err = repo.ListDocuments(ctx, document.KindRoadmap, "shop")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func testSlashesInRefs(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	a := document.Ref{Kind: document.KindSpecification, Container: "acme", Name: "auth/v2"}
	b := document.Ref{Kind: document.KindSpecification, Container: "acme/auth", Name: "v2"}
	for ref, name := range map[document.Ref]string{a: "A", b: "B"} {
		doc, err := document.NewPlaceholder(ref.Kind, name)
		require.NoError(t, err)
		require.NoError(t, repo.PutDocument(ctx, ref, doc))
	}

	// Read twice so cached reads are covered too.
	for i := 0; i < 2; i++ {
		got, err := repo.GetDocument(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Name())
		got, err = repo.GetDocument(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, "B", got.Name())
	}

	names, err := repo.ListDocuments(ctx, document.KindSpecification, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth/v2"}, names)
	names, err = repo.ListDocuments(ctx, document.KindSpecification, "acme/auth")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, names)

	require.NoError(t, repo.DeleteDocument(ctx, a))
	_, err = repo.GetDocument(ctx, a)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	got, err := repo.GetDocument(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name())
}

func testRoadmapSpecs(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindRoadmap, Name: "shop"}
	roadmap := &document.Roadmap{
		ProjectName: "shop",
		Status:      document.RoadmapDraft,
		SpecCount:   3,
		Specs: []*document.Specification{
			{PhaseName: "payments", Iteration: 1, Version: 1},
		},
	}
	require.NoError(t, repo.PutDocument(ctx, ref, roadmap))

	got, err := repo.GetDocument(ctx, ref)
	require.NoError(t, err)
	r := got.(*document.Roadmap)
	assert.Equal(t, 3, r.SpecCount)
	require.Len(t, r.Specs, 1)
	assert.Equal(t, "payments", r.Specs[0].PhaseName)
}

func testNoAliasing(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	st := newLoop("loop-1", 0)
	require.NoError(t, repo.InsertLoop(ctx, st))
	st.Scores = append(st.Scores, 99)

	got, err := repo.GetLoop(ctx, "loop-1")
	require.NoError(t, err)
	assert.Empty(t, got.Scores)

	got.Scores = append(got.Scores, 10)
	again, err := repo.GetLoop(ctx, "loop-1")
	require.NoError(t, err)
	assert.Empty(t, again.Scores)

	ref := document.Ref{Kind: document.KindProjectPlan, Name: "shop"}
	plan := &document.ProjectPlan{ProjectName: "shop", Vision: "before"}
	require.NoError(t, repo.PutDocument(ctx, ref, plan))
	plan.Vision = "after"

	doc, err := repo.GetDocument(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "before", doc.(*document.ProjectPlan).Vision)
}
