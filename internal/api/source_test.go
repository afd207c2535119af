package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagesOf(total int) func(context.Context, int) (List[int], error) {
	return func(_ context.Context, page int) (List[int], error) {
		return List[int]{Data: []int{page}, Pagination: &Pagination{Page: page, TotalPages: total}}, nil
	}
}

func TestCollectWalksEveryPage(t *testing.T) {
	out, err := collect(context.Background(), pagesOf(3))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)

	out, err = collect(context.Background(), pagesOf(maxPages))
	require.NoError(t, err)
	assert.Len(t, out, maxPages)
}

func TestCollectRefusesToTruncate(t *testing.T) {
	out, err := collect(context.Background(), pagesOf(maxPages+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyPages)
	assert.Nil(t, out)
}

func TestCollectStopsOnEmptyPageAndErrors(t *testing.T) {
	calls := 0
	out, err := collect(context.Background(), func(_ context.Context, page int) (List[int], error) {
		calls++
		return List[int]{Pagination: &Pagination{Page: page, TotalPages: 9}}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = collect(context.Background(), func(context.Context, int) (List[int], error) {
		return List[int]{}, boom
	})
	assert.ErrorIs(t, err, boom)
}
