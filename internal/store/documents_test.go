package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respec/internal/apperr"
	"respec/internal/document"
)

func TestStoreDocumentReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindProjectPlan, Name: "shop"}

	_, err := s.StoreDocument(ctx, ref, "# Project Plan: shop\n\n## Executive Summary\n- **Vision**: first\n")
	require.NoError(t, err)
	_, err = s.StoreDocument(ctx, ref, "# Project Plan: shop\n\n## Executive Summary\n- **Vision**: second\n")
	require.NoError(t, err)

	text, err := s.GetDocument(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, text, "- **Vision**: second")
	assert.NotContains(t, text, "first")

	_, err = s.StoreDocument(ctx, ref, "no title")
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)
}

func TestStoreRecordValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plan, err := document.NewPlaceholder(document.KindProjectPlan, "shop")
	require.NoError(t, err)

	err = s.StoreRecord(ctx, document.Ref{Kind: document.KindRoadmap, Name: "shop"}, plan)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	err = s.StoreRecord(ctx, document.Ref{Kind: document.KindProjectPlan}, plan)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	err = s.StoreRecord(ctx, document.Ref{Kind: "memo", Name: "shop"}, plan)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.ListDocuments(ctx, "memo", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetRecordIsACopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindBuildPlan, Name: "rollout"}

	_, err := s.CreatePlaceholder(ctx, ref)
	require.NoError(t, err)

	doc, err := s.GetRecord(ctx, ref)
	require.NoError(t, err)
	doc.(*document.BuildPlan).ProjectName = "mutated"

	again, err := s.GetRecord(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "rollout", again.Name())
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindSpecification, Container: "shop", Name: "cart"}

	_, err := s.CreatePlaceholder(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, s.DeleteDocument(ctx, ref))

	_, err = s.GetDocument(ctx, ref)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, ref), apperr.ErrNotFound)
}

func TestLoopDocumentLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := document.Ref{Kind: document.KindProjectPlan, Name: "shop"}

	st, err := s.CreateLoop(ctx, "plan")
	require.NoError(t, err)

	_, err = s.LoopDocumentRef(ctx, st.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Linking does not require the document to exist yet.
	require.NoError(t, s.LinkLoopToDocument(ctx, st.ID, ref))
	got, err := s.LoopDocumentRef(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	_, err = s.GetLoopDocument(ctx, st.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.CreatePlaceholder(ctx, ref)
	require.NoError(t, err)
	text, err := s.GetLoopDocument(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# Project Plan: shop\n"))

	require.NoError(t, s.UnlinkLoop(ctx, st.ID))
	_, err = s.LoopDocumentRef(ctx, st.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, s.LinkLoopToDocument(ctx, "missing", ref), apperr.ErrNotFound)
	assert.ErrorIs(t, s.LinkLoopToDocument(ctx, st.ID, document.Ref{Kind: document.KindProjectPlan}), apperr.ErrValidation)
}

func TestAddRoadmapSpec(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := &document.Specification{PhaseName: "payments", Objectives: "take money"}

	err := s.AddRoadmapSpec(ctx, "shop", spec)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	roadmapRef := document.Ref{Kind: document.KindRoadmap, Name: "shop"}
	placeholder, err := document.NewPlaceholder(document.KindRoadmap, "shop")
	require.NoError(t, err)
	placeholder.(*document.Roadmap).SpecCount = 7
	require.NoError(t, s.StoreRecord(ctx, roadmapRef, placeholder))

	require.NoError(t, s.AddRoadmapSpec(ctx, "shop", spec))
	require.NoError(t, s.AddRoadmapSpec(ctx, "shop", &document.Specification{PhaseName: "search"}))

	doc, err := s.GetRecord(ctx, roadmapRef)
	require.NoError(t, err)
	roadmap := doc.(*document.Roadmap)
	require.Len(t, roadmap.Specs, 2)
	assert.Equal(t, "payments", roadmap.Specs[0].PhaseName)
	assert.Equal(t, "search", roadmap.Specs[1].PhaseName)
	assert.Equal(t, 7, roadmap.SpecCount, "spec count is authored, not derived")

	names, err := s.ListDocuments(ctx, document.KindSpecification, "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"payments", "search"}, names)

	spec.Objectives = "changed after the call"
	doc, err = s.GetRecord(ctx, roadmapRef)
	require.NoError(t, err)
	assert.Equal(t, "take money", doc.(*document.Roadmap).Specs[0].Objectives)

	assert.ErrorIs(t, s.AddRoadmapSpec(ctx, "shop", &document.Specification{}), apperr.ErrValidation)
}

func TestRefsWithSlashesStayDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := document.Ref{Kind: document.KindSpecification, Container: "acme", Name: "auth/v2"}
	b := document.Ref{Kind: document.KindSpecification, Container: "acme/auth", Name: "v2"}

	_, err := s.StoreDocument(ctx, a, "# Technical Specification: A\n")
	require.NoError(t, err)
	_, err = s.StoreDocument(ctx, b, "# Technical Specification: B\n")
	require.NoError(t, err)

	got, err := s.GetRecord(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name())

	names, err := s.ListDocuments(ctx, document.KindSpecification, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth/v2"}, names)
}
