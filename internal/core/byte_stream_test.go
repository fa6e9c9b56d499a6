package core

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteStream(t *testing.T) {
	t.Run("only one lease holder at a time", func(t *testing.T) {
		bs := NewByteStream(NewMemoryRws(), nil)

		require.NoError(t, bs.Acquire())

		released := make(chan struct{})
		go func() {
			require.NoError(t, bs.Acquire())
			close(released)
			bs.Release()
		}()

		select {
		case <-released:
			t.Fatal("second acquire should not have succeeded while the first lease is held")
		default:
		}

		bs.Release()
		<-released
	})

	t.Run("closed stream refuses new leases", func(t *testing.T) {
		bs := NewByteStream(NewMemoryRws(), nil)
		bs.Close()
		require.Error(t, bs.Acquire())
	})

	t.Run("WithLease always releases, even under concurrent use", func(t *testing.T) {
		bs := NewByteStream(NewMemoryRws(), nil)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = bs.WithLease(func(rws io.ReadWriteSeeker) error {
					return nil
				})
			}()
		}
		wg.Wait()
		require.NoError(t, bs.Acquire())
		bs.Release()
	})
}
