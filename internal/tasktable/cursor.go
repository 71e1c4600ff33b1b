package tasktable

import (
	"github.com/cockroachdb/pebble"
	"github.com/rzbill/docket/pkg/id"
)

// rowCursor walks row keys in identity order.
type rowCursor struct {
	it      *pebble.Iterator
	started bool
	cur     Row
}

func (c *rowCursor) Next() bool {
	var ok bool
	if !c.started {
		c.started = true
		ok = c.it.First()
	} else {
		ok = c.it.Next()
	}
	if !ok {
		return false
	}
	rowID, _ := id.FromKey(c.it.Key())
	c.cur = rowFromValue(rowID, c.it.Value())
	return true
}

func (c *rowCursor) Row() Row     { return c.cur }
func (c *rowCursor) Err() error   { return c.it.Error() }
func (c *rowCursor) Close() error { return c.it.Close() }

// indexCursor walks composite index entries and loads each row by identity.
// Entries whose row no longer exists are skipped.
type indexCursor struct {
	tx      *Tx
	it      *pebble.Iterator
	started bool
	cur     Row
	err     error
}

func (c *indexCursor) Next() bool {
	for {
		var ok bool
		if !c.started {
			c.started = true
			ok = c.it.First()
		} else {
			ok = c.it.Next()
		}
		if !ok {
			return false
		}
		rowID, valid := id.FromKey(c.it.Key())
		if !valid {
			continue
		}
		r, found, err := c.tx.Get(rowID)
		if err != nil {
			c.err = err
			return false
		}
		if !found {
			continue
		}
		c.cur = r
		return true
	}
}

func (c *indexCursor) Row() Row { return c.cur }

func (c *indexCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.it.Error()
}

func (c *indexCursor) Close() error { return c.it.Close() }
