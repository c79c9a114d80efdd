package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
)

func TestCancelGuard(t *testing.T) {
	tests := []struct {
		status  string
		wantErr bool
		wantMsg string
	}{
		{StatusPending, false, ""},
		{StatusPaid, true, "cannot cancel orders that are paid, processing, shipped, or delivered"},
		{StatusProcessing, true, "cannot cancel orders that are paid, processing, shipped, or delivered"},
		{StatusShipped, true, "cannot cancel orders that are paid, processing, shipped, or delivered"},
		{StatusDelivered, true, "cannot cancel orders that are paid, processing, shipped, or delivered"},
		{StatusCancelled, true, "order is already cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			err := cancelGuard(tt.status)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperror.Message(err))
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("REFUNDED"))
	assert.False(t, ValidStatus("pending"))
	assert.False(t, ValidStatus(""))
}

func TestMergeLines(t *testing.T) {
	t.Run("no duplicates passes through", func(t *testing.T) {
		items := []NewItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 2}}
		assert.Equal(t, items, mergeLines(items))
	})

	t.Run("repeated product folds into one line", func(t *testing.T) {
		got := mergeLines([]NewItem{
			{ProductID: "a", Quantity: 3},
			{ProductID: "b", Quantity: 1},
			{ProductID: "a", Quantity: 3},
		})
		assert.Equal(t, []NewItem{
			{ProductID: "a", Quantity: 6},
			{ProductID: "b", Quantity: 1},
		}, got)
	})
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, int64(0), lineTotal(1999, 0))
	assert.Equal(t, int64(1999), lineTotal(1999, 1))
	assert.Equal(t, int64(5997), lineTotal(1999, 3))
}
