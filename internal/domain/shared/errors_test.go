package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	specific := ErrNotFound.Withf("variant %s not found", "abc")

	assert.True(t, errors.Is(specific, ErrNotFound))
	assert.False(t, errors.Is(specific, ErrInvalidInput))
	assert.Equal(t, "variant abc not found", specific.Error())
	assert.Equal(t, "NOT_FOUND", specific.Code)

	wrapped := fmt.Errorf("loading: %w", specific)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestDomainError_IsIgnoresOtherErrors(t *testing.T) {
	assert.False(t, ErrNotFound.Is(errors.New("NOT_FOUND")))
}

func TestFilterOffset(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, 0, f.Offset())

	f.Page = 3
	f.PageSize = 20
	assert.Equal(t, 40, f.Offset())

	f.Page = 0
	assert.Equal(t, 0, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 2)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.GetVersion())

	evt := NewBaseDomainEvent("Thing", "Agg", root.ID)
	root.AddDomainEvent(&evt)
	root.IncrementVersion()

	assert.Len(t, root.GetDomainEvents(), 1)
	assert.Equal(t, 2, root.GetVersion())
	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}
