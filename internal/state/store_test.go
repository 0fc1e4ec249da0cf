package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/walletsync/internal/state"
)

func TestStore_DispatchNotifiesSubscribers(t *testing.T) {
	add := func(s, a int) int { return s + a }
	st := state.NewStore(add, 0)

	var seen []int
	unsubscribe := st.Subscribe(func(s int) { seen = append(seen, s) })

	st.Dispatch(2)
	st.Dispatch(3)
	unsubscribe()
	st.Dispatch(10)

	assert.Equal(t, []int{2, 5}, seen)
	assert.Equal(t, 15, st.State())
}
