package tengoview

import (
	"context"
	"errors"
	"testing"

	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_Map(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		doc     *model.Document
		want    []*model.Emission
		wantErr bool
	}{
		{
			name:   "empty emit",
			script: `func(doc) {}`,
			doc: &model.Document{ID: "1", Rev: "0-REV", Data: map[string]interface{}{
				"test": 1,
			}},
			want: nil,
		},
		{
			name: "one emit",
			script: `func(doc) {
				emit(doc.test, 1)
			}`,
			doc: &model.Document{ID: "1", Rev: "0-REV", Data: map[string]interface{}{
				"test": 1,
			}},
			want: []*model.Emission{
				{DocID: "1", Key: int64(1), Value: int64(1)},
			},
		},
		{
			name: "emit order",
			script: `func(doc) {
				emit(doc._id, 1)
				emit(doc._id, 2)
			}`,
			doc: &model.Document{ID: "1", Data: map[string]interface{}{}},
			want: []*model.Emission{
				{DocID: "1", Key: "1", Value: int64(1)},
				{DocID: "1", Key: "1", Value: int64(2)},
			},
		},
		{
			name: "full text tagged",
			script: `func(doc) {
				emit_fts(doc.text, undefined)
			}`,
			doc: &model.Document{ID: "1", Data: map[string]interface{}{
				"text": "hello",
			}},
			want: []*model.Emission{
				{DocID: "1", Key: "hello", Fulltext: true},
			},
		},
		{
			name: "stdlib available",
			script: `func(doc) {
				emit(text.to_upper(doc.text), undefined)
			}`,
			doc: &model.Document{ID: "1", Data: map[string]interface{}{
				"text": "hello",
			}},
			want: []*model.Emission{
				{DocID: "1", Key: "HELLO"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMapper(tt.script, nil)
			require.NoError(t, err)

			var sink model.EmissionList
			err = m.Map(context.Background(), tt.doc, &sink)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.EqualValues(t, tt.want, sink.Emissions())
		})
	}
}

func TestNewMapper_CompileError(t *testing.T) {
	m, err := NewMapper(`func(doc {`, nil)
	require.Error(t, err)
	assert.Nil(t, m)

	var compileErr *port.CompileError
	assert.True(t, errors.As(err, &compileErr))
}

func TestMapper_FailedDocumentDoesNotPoisonUnit(t *testing.T) {
	m, err := NewMapper(`func(doc) {
		emit(doc.test.deep, 1)
	}`, nil)
	require.NoError(t, err)

	var sink model.EmissionList
	err = m.Map(context.Background(), &model.Document{
		ID:   "1",
		Data: map[string]interface{}{"test": 1}, // int has no .deep
	}, &sink)
	require.Error(t, err)
	assert.Zero(t, sink.Len())

	err = m.Map(context.Background(), &model.Document{
		ID:   "2",
		Data: map[string]interface{}{"test": map[string]interface{}{"deep": "x"}},
	}, &sink)
	require.NoError(t, err)
	require.Equal(t, 1, sink.Len())
	assert.Equal(t, "x", sink.Emissions()[0].Key)
}
