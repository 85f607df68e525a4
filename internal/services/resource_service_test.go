package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestShouldUpdate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockResourceRepo)
	svc := NewResourceService(repo, nil)

	repo.On("GetTimestamp", ctx, "new").Return(int64(0), false, nil)
	repo.On("GetTimestamp", ctx, "known").Return(int64(100), true, nil)

	ok, err := svc.ShouldUpdate(ctx, "new", 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.ShouldUpdate(ctx, "known", 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.ShouldUpdate(ctx, "known", 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreParsedExtractsURI(t *testing.T) {
	ctx := context.Background()
	repo := new(mockResourceRepo)
	svc := NewResourceService(repo, nil)

	data := []byte(`{"id":"d1","uri":"http://ex/d1","isOpenData":true}`)
	repo.On("UpsertParsed", ctx, "d1", models.ResourceTypeDataset, data, mock.MatchedBy(func(u *string) bool {
		return u != nil && *u == "http://ex/d1"
	}), int64(10)).Return(true, nil)

	applied, err := svc.StoreParsed(ctx, "d1", models.ResourceTypeDataset, data, 10)
	require.NoError(t, err)
	require.True(t, applied)
	repo.AssertExpectations(t)
}

func TestStoreParsedRejectsNonObject(t *testing.T) {
	svc := NewResourceService(new(mockResourceRepo), nil)
	for _, data := range []string{`[1]`, `"x"`, `null`, `{`} {
		_, err := svc.StoreParsed(context.Background(), "d1", models.ResourceTypeDataset, []byte(data), 1)
		require.True(t, appErr.IsCode(err, appErr.CodeInvalid), data)
	}
}

func TestStoreGraphsUseMatchingWrites(t *testing.T) {
	ctx := context.Background()
	repo := new(mockResourceRepo)
	svc := NewResourceService(repo, nil)
	graph := []byte(`[{"@id":"http://ex/c"}]`)

	repo.On("UndeleteWithGraph", ctx, "c", models.ResourceTypeConcept, graph, int64(5)).Return(true, nil)
	repo.On("UpsertGraph", ctx, "c", models.ResourceTypeConcept, graph, int64(6)).Return(false, nil)
	repo.On("MarkDeleted", ctx, "c", models.ResourceTypeConcept, int64(7)).Return(false, errors.New("db down"))

	applied, err := svc.StoreHarvestedGraph(ctx, "c", models.ResourceTypeConcept, graph, 5)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = svc.StoreReasonedGraph(ctx, "c", models.ResourceTypeConcept, graph, 6)
	require.NoError(t, err)
	require.False(t, applied, "older write is ignored without error")

	_, err = svc.MarkDeleted(ctx, "c", models.ResourceTypeConcept, 7)
	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestResourceReadsValidateInput(t *testing.T) {
	ctx := context.Background()
	repo := new(mockResourceRepo)
	svc := NewResourceService(repo, nil)

	_, err := svc.ListResources(ctx, "BOGUS")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = svc.GetResourceByURI(ctx, "", nil)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	want := &models.Resource{ID: "e1", ResourceType: models.ResourceTypeEvent, Deleted: true}
	repo.On("GetByID", ctx, "e1", mock.Anything).Return(want, nil)
	got, err := svc.GetResource(ctx, "e1")
	require.NoError(t, err)
	require.True(t, got.Deleted)
}
