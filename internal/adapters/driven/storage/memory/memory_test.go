package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
)

func TestSearchStore_SaveGetLatest(t *testing.T) {
	ctx := context.Background()
	store := NewSearchStore()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	older := domain.Search{ID: "s1", Term: "one", CreatedAt: time.Now().Add(-time.Hour)}
	newer := domain.Search{ID: "s2", Term: "two", CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "one", got.Term)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", latest.ID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
}

func TestReferenceStore_NumericStudyOrder(t *testing.T) {
	ctx := context.Background()
	store := NewReferenceStore()

	var refs []domain.Reference
	for i := 0; i < 11; i++ {
		refs = append(refs, domain.Reference{
			SearchID: "s1",
			StudyID:  domain.StudyIDFor(i),
		})
	}
	require.NoError(t, store.SaveAll(ctx, refs))

	list, err := store.ListBySearch(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 11)
	// study_10 sorts after study_9, not after study_1
	assert.Equal(t, "study_9", list[8].StudyID)
	assert.Equal(t, "study_10", list[9].StudyID)
	assert.Equal(t, "study_11", list[10].StudyID)

	_, err = store.Get(ctx, "s1", "study_99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtractionStore_DeleteAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewExtractionStore()

	rows := []domain.Extraction{
		{ID: "r1", SearchID: "s1", StudyID: "study_1", ResultIndex: 1},
		{ID: "r2", SearchID: "s1", StudyID: "study_1", ResultIndex: 2},
		{ID: "r3", SearchID: "s1", StudyID: "study_2", ResultIndex: 1},
	}
	for _, row := range rows {
		require.NoError(t, store.Save(ctx, row))
	}

	require.NoError(t, store.UpdateMapping(ctx, "r3", "parenting programmes", "child wellbeing"))
	err := store.UpdateMapping(ctx, "missing", "x", "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.DeleteByStudy(ctx, "s1", "study_1"))

	list, err := store.ListBySearch(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r3", list[0].ID)
	assert.Equal(t, "parenting programmes", list[0].MappedIntervention)
	assert.Equal(t, "child wellbeing", list[0].MappedOutcome)
}
