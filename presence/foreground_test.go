package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_AttachDetach(t *testing.T) {
	req := require.New(t)
	table := NewTable()

	req.False(table.IsForeground("conv-1"))
	req.True(table.ShouldNotify("conv-1"))

	table.Attach("conv-1")
	req.True(table.IsForeground("conv-1"))
	req.False(table.ShouldNotify("conv-1"))
	req.True(table.ShouldNotify("conv-2"))

	table.Detach("conv-1")
	req.False(table.IsForeground("conv-1"))
	req.True(table.ShouldNotify("conv-1"))
}

func TestTable_DetachUnknownIsHarmless(t *testing.T) {
	table := NewTable()
	table.Detach("never-attached")
	require.False(t, table.IsForeground("never-attached"))
}
