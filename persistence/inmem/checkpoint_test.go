package inmem

import (
	"context"
	"testing"

	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"github.com/credik/underwrite/util"
	"github.com/stretchr/testify/require"
)

func newTestStore() *inMemCheckpointStore {
	return NewInMemCheckpointStore(util.NewJsonEncoderDecoder[model.Record]())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore()
	record := model.NewRecord("run-1", &model.LoanApplication{ApplicantName: "Acme Traders"}, model.DefaultBusinessRules())
	record.UpdateStage("document_classification")
	record.AddWarning("document_classification", "low confidence gst_certificate", nil)

	require.NoError(t, store.Save(context.Background(), record))

	loaded, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, record.Id, loaded.Id)
	require.Equal(t, record.CurrentStage, loaded.CurrentStage)
	require.Len(t, loaded.Warnings, 1)
	require.Equal(t, model.STATUS_IN_PROGRESS, loaded.Status)
}

func TestLoadMissingRecordReturnsNotFound(t *testing.T) {
	_, err := newTestStore().Load(context.Background(), "no-such-run")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestLoadReturnsIndependentCopy(t *testing.T) {
	store := newTestStore()
	record := model.NewRecord("run-1", &model.LoanApplication{}, model.DefaultBusinessRules())
	require.NoError(t, store.Save(context.Background(), record))

	first, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	first.AddError("stage1", "mutated after load", nil)

	second, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	require.Empty(t, second.Errors)
}

func TestSaveOverwritesCheckpoint(t *testing.T) {
	store := newTestStore()
	record := model.NewRecord("run-1", &model.LoanApplication{}, model.DefaultBusinessRules())
	require.NoError(t, store.Save(context.Background(), record))

	record.UpdateStage("verification_compliance")
	require.NoError(t, store.Save(context.Background(), record))

	loaded, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, "verification_compliance", loaded.CurrentStage)
}
