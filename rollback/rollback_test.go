/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Apr 17 14:30:10 2018 mstenber
 * Last modified: Wed Apr 18 09:44:02 2018 mstenber
 * Edit time:     6 min
 *
 */

package rollback

import (
	"errors"
	"testing"

	"github.com/stvp/assert"
)

func TestLog(t *testing.T) {
	t.Parallel()
	var l Log
	assert.Equal(t, l.Len(), 0)
	l.Add(KindChunkAllocated, 1)
	l.Add(KindExtentRemoved, 2)
	l.Add(KindExtentInserted, 3)
	assert.Equal(t, l.Len(), 3)
	assert.Equal(t, l.Entries()[1], Entry{Kind: KindExtentRemoved, Data: 2})

	var seen []interface{}
	boom := errors.New("boom")
	err := l.Replay(func(e Entry) error {
		seen = append(seen, e.Data)
		if e.Kind == KindExtentRemoved {
			return boom
		}
		return nil
	})
	assert.Equal(t, err, boom)
	assert.Equal(t, seen, []interface{}{3, 2, 1})
	assert.Equal(t, l.Len(), 0)

	l.Add(KindSizeChanged, uint64(0))
	l.Clear()
	assert.Equal(t, l.Len(), 0)
	assert.Equal(t, KindSizeChanged.String(), "size-changed")
}
